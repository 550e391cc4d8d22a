package engine

import (
	"math/rand"
	"time"

	"github.com/dylhunn/dragontoothmg"
	"github.com/rs/zerolog"

	"github.com/bondycow/katfish/book"
	"github.com/bondycow/katfish/game"
)

// Status reports the game-theoretic state of the root position.
type Status int

const (
	StatusNone Status = iota
	StatusCheckmate
	StatusStalemate
	StatusDrawFiftyMove
	StatusDrawRepetition
	StatusDrawMaterial
)

// Engine is the invocation surface: an opening book probe in front of the
// searcher, and a game history manager for apply/undo/redo. Which side the
// engine plays, and board orientation, are caller concerns.
type Engine struct {
	searcher   *Searcher
	tt         *TransTable
	book       *book.Book
	bookPolicy book.SelectionPolicy
	rng        *rand.Rand
	game       *game.Manager
	logger     zerolog.Logger
}

type config struct {
	fen         string
	bookPath    string
	weightsPath string
	tableMB     int
	bookPolicy  book.SelectionPolicy
	logger      zerolog.Logger
	rng         *rand.Rand
}

type Option func(*config)

// WithFEN starts the game from the given position instead of the initial one.
func WithFEN(fen string) Option { return func(c *config) { c.fen = fen } }

// WithBook enables opening-book probing from the given Polyglot file.
func WithBook(path string) Option { return func(c *config) { c.bookPath = path } }

// WithWeights enables the network evaluator from the given weights file.
// Load failures fall back to the baseline evaluator.
func WithWeights(path string) Option { return func(c *config) { c.weightsPath = path } }

// WithTableSize sets the transposition table size in megabytes.
func WithTableSize(mb int) Option { return func(c *config) { c.tableMB = mb } }

// WithBookPolicy selects how book moves are picked among candidates.
func WithBookPolicy(p book.SelectionPolicy) Option { return func(c *config) { c.bookPolicy = p } }

func WithLogger(l zerolog.Logger) Option { return func(c *config) { c.logger = l } }

// WithRand injects the randomness source for weighted book selection.
func WithRand(rng *rand.Rand) Option { return func(c *config) { c.rng = rng } }

func New(opts ...Option) *Engine {
	cfg := config{
		fen:        dragontoothmg.Startpos,
		tableMB:    DefaultTTSize,
		bookPolicy: book.SelectWeighted,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	var eval Evaluator = NewBaselineEvaluator()
	if cfg.weightsPath != "" {
		if nn, err := LoadNNUE(cfg.weightsPath); err != nil {
			// Weights trouble never stops the engine, only downgrades it.
			cfg.logger.Warn().Err(err).Str("path", cfg.weightsPath).
				Msg("weights unavailable, falling back to baseline evaluation")
		} else {
			cfg.logger.Info().Str("path", cfg.weightsPath).Msg("network evaluator loaded")
			eval = nn
		}
	}

	var bk *book.Book
	if cfg.bookPath != "" {
		if opened, err := book.Open(cfg.bookPath); err != nil {
			// Fail closed: a suspect book is disabled for the whole session.
			cfg.logger.Warn().Err(err).Str("path", cfg.bookPath).
				Msg("opening book disabled")
		} else {
			cfg.logger.Info().Int("entries", opened.Len()).Msg("opening book loaded")
			bk = opened
		}
	}

	mgr, err := game.NewManagerFromFEN(cfg.fen)
	if err != nil {
		cfg.logger.Warn().Err(err).Msg("bad starting FEN, using the initial position")
		mgr = game.NewManager()
	}

	tt := NewTransTable(cfg.tableMB)
	e := &Engine{
		searcher:   NewSearcher(tt, eval, cfg.logger),
		tt:         tt,
		book:       bk,
		bookPolicy: cfg.bookPolicy,
		rng:        cfg.rng,
		game:       mgr,
		logger:     cfg.logger,
	}
	e.searcher.ResetHistory(e.game.Board())
	return e
}

// Board returns the current position.
func (e *Engine) Board() *dragontoothmg.Board { return e.game.Board() }

// Searcher exposes the underlying searcher for iteration callbacks and stop
// requests.
func (e *Engine) Searcher() *Searcher { return e.searcher }

// GameID identifies the current game session.
func (e *Engine) GameID() string { return e.game.ID() }

// Terminal classifies the root position. StatusNone means play continues.
func (e *Engine) Terminal() Status {
	b := e.game.Board()
	if len(b.GenerateLegalMoves()) == 0 {
		if b.OurKingInCheck() {
			return StatusCheckmate
		}
		return StatusStalemate
	}
	if int(b.Halfmoveclock) >= fiftyMoveLimit {
		return StatusDrawFiftyMove
	}
	if repetitions(e.game.Hashes()) >= 3 {
		return StatusDrawRepetition
	}
	if insufficientMaterial(b) {
		return StatusDrawMaterial
	}
	return StatusNone
}

func repetitions(hashes []uint64) int {
	if len(hashes) == 0 {
		return 0
	}
	current := hashes[len(hashes)-1]
	n := 0
	for _, h := range hashes {
		if h == current {
			n++
		}
	}
	return n
}

// ChooseMove picks a move for the current position within the time budget:
// opening book first, search on a miss. When the position is checkmate or
// stalemate there is no move to return and the status says which.
func (e *Engine) ChooseMove(budget time.Duration) (Result, Status) {
	return e.ChooseMoveLimits(Limits{MoveTime: budget})
}

// ChooseMoveLimits is ChooseMove with full control over depth/node/time limits.
func (e *Engine) ChooseMoveLimits(limits Limits) (Result, Status) {
	status := e.Terminal()
	if status == StatusCheckmate || status == StatusStalemate {
		return Result{}, status
	}

	b := e.game.Board()

	if e.book != nil {
		if move, ok := e.probeBook(b); ok {
			return Result{Move: move}, status
		}
	}

	return e.searcher.Search(b, limits), status
}

func (e *Engine) probeBook(b *dragontoothmg.Board) (dragontoothmg.Move, bool) {
	key, err := book.KeyFromFEN(b.ToFen())
	if err != nil {
		e.logger.Warn().Err(err).Msg("book key derivation failed")
		return 0, false
	}
	entries := e.book.Lookup(key)
	entry, ok := book.Pick(entries, e.bookPolicy, e.rng)
	if !ok {
		return 0, false // normal miss, fall through to search
	}
	move, ok := entry.BoardMove(b)
	if !ok {
		e.logger.Warn().Str("uci", entry.UCI()).Msg("book entry is not a legal move, ignoring")
		return 0, false
	}
	e.logger.Info().Str("move", move.String()).Uint16("weight", entry.Weight).Msg("book move")
	return move, true
}

// ApplyMove plays a move on the game board and keeps search state in step.
func (e *Engine) ApplyMove(move dragontoothmg.Move) error {
	if err := e.game.Apply(move); err != nil {
		return err
	}
	e.searcher.RecordState(e.game.Board())
	return nil
}

// Undo takes back the last move; no-op when there is nothing to undo.
func (e *Engine) Undo() bool {
	if !e.game.Undo() {
		return false
	}
	e.searcher.ForgetState()
	return true
}

// Redo replays the last undone move; no-op when the redo branch is empty.
func (e *Engine) Redo() bool {
	if !e.game.Redo() {
		return false
	}
	e.searcher.RecordState(e.game.Board())
	return true
}

// SetPosition replaces the game with a fresh one from the given FEN. Search
// history is reset; the transposition table is kept.
func (e *Engine) SetPosition(fen string) error {
	mgr, err := game.NewManagerFromFEN(fen)
	if err != nil {
		return err
	}
	e.game = mgr
	e.searcher.ResetHistory(e.game.Board())
	return nil
}

// NewGame resets the board and all cross-search state.
func (e *Engine) NewGame() {
	e.game = game.NewManager()
	e.searcher.NewGame()
	e.searcher.ResetHistory(e.game.Board())
}

// TableStats returns transposition table traffic counters for diagnostics.
func (e *Engine) TableStats() string { return e.tt.Stats() }
