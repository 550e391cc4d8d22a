package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dylhunn/dragontoothmg"
	"github.com/rs/zerolog"

	"github.com/bondycow/katfish/book"
	"github.com/bondycow/katfish/engine"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.WarnLevel).With().Timestamp().Logger()
	if os.Getenv("KATFISH_DEBUG") != "" {
		logger = logger.Level(zerolog.DebugLevel)
	}
	uciLoop(logger)
}

type options struct {
	tableMB  int
	bookPath string
	weights  string
	bestOnly bool
}

func uciLoop(logger zerolog.Logger) {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	opts := options{tableMB: engine.DefaultTTSize}
	eng := buildEngine(opts, logger)

	// The search runs on its own goroutine so "stop" can interrupt it.
	var wg sync.WaitGroup
	awaitSearch := func() {
		eng.Searcher().Stop()
		wg.Wait()
	}

	for scanner.Scan() {
		tokens := strings.Fields(scanner.Text())
		if len(tokens) == 0 {
			continue
		}

		switch strings.ToLower(tokens[0]) {
		case "uci":
			fmt.Println("id name Katfish")
			fmt.Println("id author the Katfish authors")
			fmt.Println("option name Hash type spin default", engine.DefaultTTSize, "min 1 max 1024")
			fmt.Println("option name BookFile type string default <empty>")
			fmt.Println("option name WeightsFile type string default <empty>")
			fmt.Println("option name BookBestOnly type check default false")
			fmt.Println("uciok")

		case "isready":
			fmt.Println("readyok")

		case "setoption":
			name, value := parseSetOption(tokens[1:])
			switch strings.ToLower(name) {
			case "hash":
				if mb, err := strconv.Atoi(value); err == nil && mb > 0 {
					opts.tableMB = mb
				}
			case "bookfile":
				opts.bookPath = value
			case "weightsfile":
				opts.weights = value
			case "bookbestonly":
				opts.bestOnly = strings.EqualFold(value, "true")
			}
			eng = buildEngine(opts, logger)

		case "ucinewgame":
			awaitSearch()
			eng.NewGame()

		case "position":
			awaitSearch()
			applyPosition(eng, tokens[1:], logger)

		case "go":
			awaitSearch()
			limits := parseGo(eng.Board(), tokens[1:])
			wg.Add(1)
			go func() {
				defer wg.Done()
				result, status := eng.ChooseMoveLimits(limits)
				if result.Move == 0 {
					logger.Debug().Int("status", int(status)).Msg("no move at root")
					fmt.Println("bestmove 0000")
					return
				}
				fmt.Println("bestmove", result.Move.String())
			}()

		case "stop":
			eng.Searcher().Stop()

		case "undo":
			awaitSearch()
			eng.Undo()

		case "redo":
			awaitSearch()
			eng.Redo()

		case "quit":
			awaitSearch()
			return
		}
	}
}

func buildEngine(opts options, logger zerolog.Logger) *engine.Engine {
	eopts := []engine.Option{
		engine.WithTableSize(opts.tableMB),
		engine.WithLogger(logger),
	}
	if opts.bookPath != "" {
		eopts = append(eopts, engine.WithBook(opts.bookPath))
	}
	if opts.weights != "" {
		eopts = append(eopts, engine.WithWeights(opts.weights))
	}
	if opts.bestOnly {
		eopts = append(eopts, engine.WithBookPolicy(book.SelectBest))
	}
	eng := engine.New(eopts...)
	eng.Searcher().OnIteration = func(r engine.Result, elapsed time.Duration) {
		ms := elapsed.Milliseconds()
		if ms == 0 {
			ms = 1
		}
		fmt.Println(
			"info depth", r.Depth,
			"score", scoreString(r.Score),
			"nodes", r.Nodes,
			"time", ms,
			"nps", r.Nodes*1000/uint64(ms),
			"pv", pvString(r.PV),
		)
	}
	return eng
}

// parseSetOption handles "setoption name <id> [value <x>]"; both the name and
// the value may contain spaces.
func parseSetOption(tokens []string) (name, value string) {
	mode := ""
	var nameParts, valueParts []string
	for _, tok := range tokens {
		switch strings.ToLower(tok) {
		case "name":
			mode = "name"
		case "value":
			mode = "value"
		default:
			switch mode {
			case "name":
				nameParts = append(nameParts, tok)
			case "value":
				valueParts = append(valueParts, tok)
			}
		}
	}
	return strings.Join(nameParts, " "), strings.Join(valueParts, " ")
}

func applyPosition(eng *engine.Engine, tokens []string, logger zerolog.Logger) {
	if len(tokens) == 0 {
		return
	}

	movesAt := -1
	for i, tok := range tokens {
		if tok == "moves" {
			movesAt = i
			break
		}
	}

	switch tokens[0] {
	case "startpos":
		eng.NewGame()
	case "fen":
		fenEnd := len(tokens)
		if movesAt != -1 {
			fenEnd = movesAt
		}
		fen := strings.Join(tokens[1:fenEnd], " ")
		if err := eng.SetPosition(fen); err != nil {
			logger.Warn().Err(err).Msg("position rejected")
			return
		}
	default:
		return
	}

	if movesAt == -1 {
		return
	}
	for _, moveStr := range tokens[movesAt+1:] {
		parsed, err := dragontoothmg.ParseMove(moveStr)
		if err != nil {
			logger.Warn().Str("move", moveStr).Err(err).Msg("unparseable move in position command")
			return
		}
		move, ok := matchLegal(eng.Board(), parsed)
		if !ok {
			logger.Warn().Str("move", moveStr).Msg("illegal move in position command")
			return
		}
		if err := eng.ApplyMove(move); err != nil {
			logger.Warn().Str("move", moveStr).Err(err).Msg("move rejected")
			return
		}
	}
}

// matchLegal resolves a parsed coordinate move against the generated legal
// moves, which carry capture and castling flags ParseMove cannot know about.
func matchLegal(b *dragontoothmg.Board, parsed dragontoothmg.Move) (dragontoothmg.Move, bool) {
	for _, legal := range b.GenerateLegalMoves() {
		if legal.From() == parsed.From() && legal.To() == parsed.To() && legal.Promote() == parsed.Promote() {
			return legal, true
		}
	}
	return 0, false
}

func parseGo(b *dragontoothmg.Board, tokens []string) engine.Limits {
	var limits engine.Limits
	var wtime, btime, winc, binc, movetimeMs int

	for i := 0; i < len(tokens); i++ {
		readInt := func() int {
			if i+1 >= len(tokens) {
				return 0
			}
			i++
			v, _ := strconv.Atoi(tokens[i])
			return v
		}
		switch strings.ToLower(tokens[i]) {
		case "depth":
			limits.Depth = uint8(readInt())
		case "nodes":
			limits.Nodes = uint64(readInt())
		case "movetime":
			movetimeMs = readInt()
		case "wtime":
			wtime = readInt()
		case "btime":
			btime = readInt()
		case "winc":
			winc = readInt()
		case "binc":
			binc = readInt()
		case "infinite":
			// all limits stay zero, search runs until "stop"
		}
	}

	if movetimeMs > 0 {
		limits.MoveTime = time.Duration(movetimeMs) * time.Millisecond
	} else if wtime > 0 || btime > 0 {
		remaining, increment := wtime, winc
		if !b.Wtomove {
			remaining, increment = btime, binc
		}
		limits.MoveTime = engine.BudgetFromClock(remaining, increment, int(b.Fullmoveno))
	}
	return limits
}

func pvString(pv []dragontoothmg.Move) string {
	parts := make([]string, 0, len(pv))
	for i := range pv {
		parts = append(parts, pv[i].String())
	}
	return strings.Join(parts, " ")
}

func scoreString(score int32) string {
	if score >= engine.Checkmate {
		plies := engine.MaxScore - score
		return fmt.Sprintf("mate %d", (plies+1)/2)
	}
	if score <= -engine.Checkmate {
		plies := engine.MaxScore + score
		return fmt.Sprintf("mate %d", -(plies+1)/2)
	}
	return fmt.Sprintf("cp %d", score)
}
