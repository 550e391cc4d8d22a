// perft counts leaf nodes of the legal move tree to a fixed depth. It is the
// standard cross-check for make/unmake correctness: the counts for the usual
// reference positions are published and must match exactly.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime/pprof"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dylhunn/dragontoothmg"
)

func perft(b *dragontoothmg.Board, depth int) uint64 {
	if depth == 0 {
		return 1
	}
	moves := b.GenerateLegalMoves()
	if depth == 1 {
		return uint64(len(moves))
	}
	var nodes uint64
	for _, move := range moves {
		unapply := b.Apply(move)
		nodes += perft(b, depth-1)
		unapply()
	}
	return nodes
}

func main() {
	fen := flag.String("fen", dragontoothmg.Startpos, "FEN string (defaults to initial position)")
	depth := flag.Int("depth", 0, "perft depth (required)")
	divide := flag.Bool("divide", false, "print per-move node counts at root")
	repeat := flag.Int("repeat", 1, "repeat N times and report aggregate, for steadier timings")
	label := flag.String("label", "", "optional label prefix for one-line output")
	cpuProf := flag.String("cpuprofile", "", "write CPU profile to file during run")
	flag.Parse()

	if *depth <= 0 {
		fmt.Fprintln(os.Stderr, "-depth must be > 0")
		os.Exit(2)
	}

	board := dragontoothmg.ParseFen(*fen)

	if *divide {
		type line struct {
			uci   string
			nodes uint64
		}
		var lines []line
		var sum uint64
		for _, move := range board.GenerateLegalMoves() {
			unapply := board.Apply(move)
			n := perft(&board, *depth-1)
			unapply()
			lines = append(lines, line{move.String(), n})
			sum += n
		}
		sort.Slice(lines, func(i, j int) bool { return lines[i].uci < lines[j].uci })
		for _, l := range lines {
			fmt.Printf("%s: %d\n", l.uci, l.nodes)
		}
		fmt.Printf("Total: %d\n", sum)
		return
	}

	if *cpuProf != "" {
		f, err := os.Create(*cpuProf)
		if err != nil {
			fmt.Fprintf(os.Stderr, "creating cpuprofile: %v\n", err)
			os.Exit(2)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "start cpu profile: %v\n", err)
			os.Exit(2)
		}
		defer func() {
			pprof.StopCPUProfile()
			f.Close()
		}()
	}

	var totalNodes uint64
	start := time.Now()
	for i := 0; i < *repeat; i++ {
		totalNodes += perft(&board, *depth)
	}
	elapsed := time.Since(start)
	nps := float64(totalNodes) / elapsed.Seconds()

	fmt.Printf("%s depth %d: %s nodes in %s (%s nps)\n",
		*label, *depth, humanize.Comma(int64(totalNodes)), elapsed.Round(time.Millisecond),
		humanize.Comma(int64(nps)))
}
