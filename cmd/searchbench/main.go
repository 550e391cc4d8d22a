// searchbench runs fixed-depth searches over a suite of positions, in
// parallel, and reports per-position and aggregate node counts. Its main use
// is comparing search builds: node counts at a fixed depth are deterministic,
// so two runs of the same binary must agree exactly.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/bondycow/katfish/engine"
)

// A mix of openings, middlegames and endgames; roughly what a real game
// visits, so aggregate node counts track real playing cost.
var defaultSuite = []string{
	"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
	"r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R w KQkq - 2 3",
	"r2q1rk1/pp1bbppp/2n1pn2/3p4/3P4/2NBPN2/PP3PPP/R1BQ1RK1 w - - 6 9",
	"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
	"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
	"rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8",
	"r4rk1/1pp1qppp/p1np1n2/2b1p1B1/2B1P1b1/P1NP1N2/1PP1QPPP/R4RK1 w - - 0 10",
	"4k3/8/8/8/8/8/4P3/4K3 w - - 0 1",
	"8/8/1p1k4/p1p2p2/P1P2P2/1P1K4/8/8 w - - 0 1",
	"6k1/5ppp/8/8/8/8/5PPP/3R2K1 w - - 0 1",
}

type benchResult struct {
	fen     string
	move    string
	score   int32
	nodes   uint64
	elapsed time.Duration
}

func main() {
	depthFlag := flag.Int("depth", 8, "search depth in plies")
	tableFlag := flag.Int("hash", 16, "transposition table size per worker, in MB")
	workersFlag := flag.Int("workers", runtime.NumCPU(), "concurrent searches")
	fenFlag := flag.String("fen", "", "single FEN to search instead of the suite")
	weightsFlag := flag.String("weights", "", "network weights file (empty = material+PSQT evaluation)")
	cpuProfile := flag.String("cpuprofile", "", "write CPU profile to file")
	flag.Parse()

	if *depthFlag <= 0 || *depthFlag > engine.MaxDepth {
		log.Fatalf("depth must be in 1..%d, got %d", engine.MaxDepth, *depthFlag)
	}

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			log.Fatalf("could not create CPU profile: %v", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatalf("could not start CPU profile: %v", err)
		}
		defer func() {
			pprof.StopCPUProfile()
			f.Close()
		}()
	}

	suite := defaultSuite
	if *fenFlag != "" {
		suite = []string{*fenFlag}
	}

	// Searchers share nothing: each position gets its own engine and table,
	// so node counts stay deterministic regardless of scheduling. Results go
	// into fixed slots, no locking needed.
	results := make([]benchResult, len(suite))
	started := time.Now()

	var g errgroup.Group
	g.SetLimit(*workersFlag)
	for i, fen := range suite {
		i, fen := i, fen
		g.Go(func() error {
			opts := []engine.Option{
				engine.WithFEN(fen),
				engine.WithTableSize(*tableFlag),
				engine.WithLogger(zerolog.Nop()),
			}
			if *weightsFlag != "" {
				opts = append(opts, engine.WithWeights(*weightsFlag))
			}
			eng := engine.New(opts...)

			runStart := time.Now()
			result, status := eng.ChooseMoveLimits(engine.Limits{Depth: uint8(*depthFlag)})
			if result.Move == 0 {
				return fmt.Errorf("no move for %q (status %d)", fen, status)
			}

			results[i] = benchResult{
				fen:     fen,
				move:    result.Move.String(),
				score:   result.Score,
				nodes:   result.Nodes,
				elapsed: time.Since(runStart),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatalf("searchbench: %v", err)
	}
	wall := time.Since(started)

	for _, r := range results {
		fmt.Printf("%-72s  %-6s  cp %-6d  %12s nodes  %8s\n",
			r.fen, r.move, r.score, humanize.Comma(int64(r.nodes)), r.elapsed.Round(time.Millisecond))
	}

	totalNodes := lo.SumBy(results, func(r benchResult) uint64 { return r.nodes })
	cpuTime := lo.SumBy(results, func(r benchResult) time.Duration { return r.elapsed })
	slowest := lo.MaxBy(results, func(a, b benchResult) bool { return a.elapsed > b.elapsed })

	fmt.Println()
	fmt.Printf("positions: %d  depth: %d  workers: %d\n", len(suite), *depthFlag, *workersFlag)
	fmt.Printf("total nodes: %s\n", humanize.Comma(int64(totalNodes)))
	fmt.Printf("wall time: %s  cpu time: %s\n", wall.Round(time.Millisecond), cpuTime.Round(time.Millisecond))
	if cpuTime > 0 {
		fmt.Printf("nps (cpu): %s\n", humanize.Comma(int64(float64(totalNodes)/cpuTime.Seconds())))
	}
	fmt.Printf("slowest: %s (%s)\n", slowest.fen, slowest.elapsed.Round(time.Millisecond))
}
