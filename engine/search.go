package engine

import (
	"sync/atomic"
	"time"

	"github.com/dylhunn/dragontoothmg"
	"github.com/rs/zerolog"
)

// =============================================================================
// SCORE CONSTANTS
// =============================================================================
const (
	MaxScore  int32 = 32500
	Checkmate int32 = 20000
	DrawScore int32 = 0
)

// =============================================================================
// MARGINS
// =============================================================================
var FutilityMargins = [8]int32{0, 120, 220, 320, 420, 520, 620, 720}
var RFPMargins = [8]int32{0, 100, 200, 300, 400, 500, 600, 700}
var LateMovePruningMargins = [9]int{0, 3, 5, 9, 14, 20, 27, 35, 44}

const (
	lmrDepthLimit int8 = 2
	lmrMoveLimit       = 2

	aspirationWindowSize int32 = 35

	// Quiescence never extends more than this many plies past the horizon.
	qsearchDepthCap int8 = 30

	deltaMargin int32 = 200
)

// Limits bounds one search invocation. Zero values mean unbounded for that
// dimension; Depth defaults to MaxDepth.
type Limits struct {
	Depth    uint8
	MoveTime time.Duration
	Nodes    uint64
}

// Result is the outcome of the deepest fully completed iteration.
type Result struct {
	Move  dragontoothmg.Move
	Score int32
	Depth uint8
	Nodes uint64
	PV    []dragontoothmg.Move
}

// Searcher owns all mutable search state: the transposition table, killer and
// history heuristics, the repetition stack and the evaluator. One goroutine
// drives one Searcher; independent searchers may not share anything but a
// transposition table.
type Searcher struct {
	tt      *TransTable
	eval    Evaluator
	killers KillerStruct
	quiets  QuietStats
	states  stateStack
	timer   TimeHandler
	logger  zerolog.Logger

	// OnIteration, when set, is invoked after every completed depth.
	OnIteration func(Result, time.Duration)

	nodes      uint64
	nodeLimit  uint64
	shouldStop bool
	stop       atomic.Bool
	prevScore  int32
	rootIndex  int
}

func NewSearcher(tt *TransTable, eval Evaluator, logger zerolog.Logger) *Searcher {
	return &Searcher{tt: tt, eval: eval, logger: logger}
}

// Stop requests cooperative cancellation; safe to call from another goroutine.
func (s *Searcher) Stop() { s.stop.Store(true) }

// ResetHistory rebuilds the repetition stack to contain only the given board.
func (s *Searcher) ResetHistory(board *dragontoothmg.Board) { s.states.Reset(board) }

// RecordState notes a played game position for repetition detection.
func (s *Searcher) RecordState(board *dragontoothmg.Board) { s.states.Record(board) }

// ForgetState drops the most recent recorded position (a move was undone).
func (s *Searcher) ForgetState() { s.states.pop() }

// NewGame clears all cross-search state.
func (s *Searcher) NewGame() {
	s.tt.Clear()
	s.killers.Clear()
	s.quiets.Clear()
	s.states.states = s.states.states[:0]
	s.prevScore = 0
}

/*
Search runs iterative deepening under the given limits and returns the best
move from the last fully completed depth. A cancelled deeper iteration never
replaces a completed result. If cancellation lands before depth 1 completes,
the first legal move is returned so the caller always gets a playable move.
*/
func (s *Searcher) Search(b *dragontoothmg.Board, limits Limits) Result {
	s.states.sync(b)
	s.rootIndex = len(s.states.states) - 1
	s.nodes = 0
	s.nodeLimit = limits.Nodes
	s.shouldStop = false
	s.stop.Store(false)
	s.timer.Start(limits.MoveTime)
	s.tt.NextGeneration()
	s.eval.Refresh(b)

	maxDepth := limits.Depth
	if maxDepth == 0 || maxDepth > MaxDepth {
		maxDepth = MaxDepth
	}

	var (
		alpha         = -MaxScore
		beta          = MaxScore
		currentWindow = aspirationWindowSize
		pvLine        PVLine
		best          Result
	)

	if s.prevScore != 0 {
		alpha = clampScore(int64(s.prevScore) - int64(aspirationWindowSize))
		beta = clampScore(int64(s.prevScore) + int64(aspirationWindowSize))
	}

	started := time.Now()

	for depth := uint8(1); depth <= maxDepth; depth++ {
		if depth > 1 && s.timer.Exceeded() {
			break
		}

		pvLine.Clear()
		score := s.alphabeta(b, alpha, beta, int8(depth), 0, &pvLine, 0)

		if s.aborted() {
			// A partially searched depth may still be trusted when nothing
			// completed before it; otherwise discard it.
			if best.Move == 0 && len(pvLine.Moves) > 0 {
				best = Result{Move: pvLine.GetPVMove(), Score: score, Depth: depth, PV: pvLine.Clone().Moves}
			}
			break
		}

		// Aspiration window re-search on fail low/high. A result at the edge
		// of a fully open window is final; widening further cannot change it.
		failLow := score <= alpha && alpha > -MaxScore
		failHigh := score >= beta && beta < MaxScore
		if failLow || failHigh {
			if currentWindow < MaxScore {
				currentWindow *= 2
			}
			alpha = clampScore(int64(score) - int64(currentWindow))
			beta = clampScore(int64(score) + int64(currentWindow))
			depth--
			continue
		}

		best = Result{Move: pvLine.GetPVMove(), Score: score, Depth: depth, PV: pvLine.Clone().Moves}
		s.prevScore = score
		currentWindow = aspirationWindowSize
		alpha = clampScore(int64(score) - int64(currentWindow))
		beta = clampScore(int64(score) + int64(currentWindow))

		best.Nodes = s.nodes
		elapsed := time.Since(started)
		s.logger.Debug().
			Uint8("depth", depth).
			Int32("score", score).
			Uint64("nodes", s.nodes).
			Dur("elapsed", elapsed).
			Str("pv", pvLine.String()).
			Msg("iteration complete")
		if s.OnIteration != nil {
			s.OnIteration(best, elapsed)
		}

		// Mate found: no deeper iteration can improve on the shortest mate.
		if score > Checkmate || score < -Checkmate {
			break
		}
	}

	best.Nodes = s.nodes

	if best.Move == 0 {
		if moves := b.GenerateLegalMoves(); len(moves) > 0 {
			best.Move = moves[0]
		}
	}
	return best
}

func (s *Searcher) aborted() bool {
	return s.shouldStop || s.stop.Load()
}

func (s *Searcher) checkLimits(interval uint64) {
	if s.nodes&interval == 0 {
		if s.timer.Exceeded() || (s.nodeLimit > 0 && s.nodes >= s.nodeLimit) {
			s.shouldStop = true
		}
	}
}

func (s *Searcher) alphabeta(b *dragontoothmg.Board, alpha, beta int32, depth, ply int8, pvLine *PVLine, prevMove dragontoothmg.Move) int32 {
	s.nodes++
	s.checkLimits(4095)

	if ply >= MaxDepth {
		return int32(s.eval.Evaluate(b))
	}

	if s.aborted() {
		return 0
	}

	var bestMove dragontoothmg.Move
	var childPVLine PVLine
	isPVNode := beta-alpha > 1
	isRoot := ply == 0

	if !isRoot {
		if s.states.isDraw(s.rootIndex) || insufficientMaterial(b) {
			return DrawScore
		}
	}

	inCheck := b.OurKingInCheck()

	// Check extension
	if inCheck {
		depth++
	}

	// Quiescence at leaf nodes
	if depth <= 0 {
		return s.quiescence(b, alpha, beta, pvLine, qsearchDepthCap, ply)
	}

	posHash := b.Hash()

	/*
		TRANSPOSITION TABLE LOOKUP
	*/
	ttEntry, ttHit := s.tt.Probe(posHash)
	var ttMove dragontoothmg.Move
	if ttHit {
		ttMove = ttEntry.Move
	}

	var usable bool
	var ttScore int32
	if ttHit {
		usable, ttScore = s.tt.useEntry(ttEntry, depth, alpha, beta, ply)
	}
	if usable && !isRoot && !isPVNode {
		return ttScore
	}

	var staticScore int32
	if ttHit && ttEntry.Flag == ExactFlag {
		staticScore = int32(ttEntry.Score)
		bestMove = ttMove
	} else {
		staticScore = int32(s.eval.Evaluate(b))
	}

	improving := ply >= 2 && !inCheck && staticScore > alpha

	/*
		REVERSE FUTILITY PRUNING
		If our position is so good that even after giving the opponent a
		margin we still beat beta, prune. Not in PV nodes or in check.
	*/
	if !inCheck && !isPVNode && !isRoot && depth >= 1 && depth <= 7 && abs32(beta) < Checkmate {
		rfpMargin := RFPMargins[depth]
		if !improving {
			rfpMargin -= 50
		}
		if staticScore-rfpMargin >= beta {
			s.tt.Store(posHash, depth, ply, ttMove, int16(staticScore-rfpMargin), BetaFlag)
			return staticScore - rfpMargin
		}
	}

	allMoves := b.GenerateLegalMoves()

	// Checkmate/stalemate check
	if len(allMoves) == 0 {
		if inCheck {
			return -MaxScore + int32(ply)
		}
		return DrawScore
	}

	var bestScore int32 = -MaxScore
	moves := s.scoreMovesList(b, allMoves, ply, ttMove, prevMove)
	ttFlag := AlphaFlag
	legalMoves := 0

	// Track quiet moves tried for the history malus on a cutoff
	quietMovesTried := make([]dragontoothmg.Move, 0, 16)

	for index := uint8(0); index < uint8(len(moves.moves)); index++ {
		orderNextMove(index, &moves)
		move := moves.moves[index].move

		captures := isCapture(move, b)
		isPromotion := move.Promote() > 0
		tactical := captures || isPromotion
		legalMoves++

		/*
			LATE MOVE PRUNING:
			Skip quiet moves late in the move list at low depths.
		*/
		if depth <= 8 && !isPVNode && !tactical && !inCheck && !isRoot && legalMoves > 1 {
			lmpMargin := LateMovePruningMargins[Min(int(depth), len(LateMovePruningMargins)-1)]
			if !improving {
				lmpMargin = lmpMargin * 2 / 3
			}
			if lmpMargin > 0 && legalMoves > lmpMargin {
				continue
			}
		}

		/*
			FUTILITY PRUNING
			At shallow depths, if static eval plus a margin cannot beat
			alpha, quiet moves are a waste of nodes.
		*/
		if depth >= 1 && depth <= 7 && !isPVNode && !isRoot && !tactical && !inCheck && abs32(alpha) < Checkmate {
			futilityMargin := FutilityMargins[depth]
			if !improving {
				futilityMargin -= 50
			}
			if staticScore+futilityMargin <= alpha {
				continue
			}
		}

		if !captures {
			quietMovesTried = append(quietMovesTried, move)
		}

		unapply := s.applyMove(b, move)

		var score int32
		if legalMoves == 1 {
			// First move: full-depth, full-window search
			score = -s.alphabeta(b, -beta, -alpha, depth-1, ply+1, &childPVLine, move)
		} else {
			var reduct int8
			if depth >= lmrDepthLimit && legalMoves >= lmrMoveLimit && !tactical && !inCheck {
				reduct = s.computeLMRReduction(b.Wtomove, depth, legalMoves, isPVNode, move)
			}
			score = s.searchMoveWithPVS(b, move, depth-1, reduct, alpha, beta, ply, &childPVLine)
		}

		unapply()

		if score > bestScore {
			bestScore = score
			bestMove = move
		}

		// Beta cutoff
		if score >= beta {
			ttFlag = BetaFlag
			if !captures {
				s.killers.Insert(move, ply)
				if prevMove != 0 {
					s.quiets.storeCounter(b.Wtomove, prevMove, move)
				}
				s.quiets.incrementHistory(b.Wtomove, move, depth)
				for _, failedMove := range quietMovesTried {
					if failedMove != move {
						s.quiets.decrementHistory(b.Wtomove, failedMove, depth)
					}
				}
			}
			break
		}

		// Alpha improvement
		if score > alpha {
			alpha = score
			ttFlag = ExactFlag
			pvLine.Update(move, childPVLine)
			if !captures {
				s.quiets.incrementHistory(b.Wtomove, move, depth)
			}
		}
		childPVLine.Clear()
	}

	if !s.aborted() {
		s.tt.Store(posHash, depth, ply, bestMove, int16(bestScore), int8(ttFlag))
	}

	return bestScore
}

func (s *Searcher) quiescence(b *dragontoothmg.Board, alpha, beta int32, pvLine *PVLine, depth, ply int8) int32 {
	s.nodes++
	s.checkLimits(2047)

	if s.aborted() {
		return 0
	}

	inCheck := b.OurKingInCheck()
	var childPVLine PVLine

	standpat := int32(s.eval.Evaluate(b))

	if depth <= 0 || ply >= MaxDepth {
		return standpat
	}

	// Stand-pat pruning (not when in check)
	if !inCheck {
		if standpat >= beta {
			return standpat
		}
		if standpat > alpha {
			alpha = standpat
		}
	}

	var bestScore int32
	if inCheck {
		bestScore = -MaxScore // must escape check
	} else {
		bestScore = standpat
	}

	// All moves when in check, only captures/promotions otherwise
	var moves moveList
	if inCheck {
		legal := b.GenerateLegalMoves()
		if len(legal) == 0 {
			return -MaxScore + int32(ply)
		}
		moves = s.scoreMovesList(b, legal, ply, 0, 0)
	} else {
		moves = s.scoreCaptures(b, b.GenerateLegalMoves())
	}

	for index := uint8(0); index < uint8(len(moves.moves)); index++ {
		orderNextMove(index, &moves)
		move := moves.moves[index].move

		/*
			DELTA PRUNING
			If the capture plus a margin still can't lift us to alpha, skip it.
		*/
		if !inCheck {
			moveGain := int32(PieceValueMG[moves.moves[index].capturedPiece])
			if promo := move.Promote(); promo > 0 {
				moveGain += int32(PieceValueMG[promo] - PieceValueMG[dragontoothmg.Pawn])
			}
			if standpat+moveGain+deltaMargin < alpha {
				continue
			}
		}

		unapply := s.applyMove(b, move)
		score := -s.quiescence(b, -beta, -alpha, &childPVLine, depth-1, ply+1)
		unapply()

		if score > bestScore {
			bestScore = score
		}
		if score >= beta {
			return score
		}
		if score > alpha {
			alpha = score
			pvLine.Update(move, childPVLine)
		}
		childPVLine.Clear()
	}

	return bestScore
}

/*
searchMoveWithPVS performs a principal variation search for a non-first move:
1. reduced-depth null-window probe
2. full-depth null-window re-search if the probe beat alpha through a reduction
3. full-window re-search if the score landed inside (alpha, beta)
*/
func (s *Searcher) searchMoveWithPVS(b *dragontoothmg.Board, move dragontoothmg.Move, baseDepth, reduction int8,
	alpha, beta int32, ply int8, childPVLine *PVLine) int32 {

	score := -s.alphabeta(b, -(alpha + 1), -alpha, baseDepth-reduction, ply+1, childPVLine, move)

	if score > alpha && reduction > 0 {
		score = -s.alphabeta(b, -(alpha + 1), -alpha, baseDepth, ply+1, childPVLine, move)
	}

	if score > alpha && score < beta {
		score = -s.alphabeta(b, -beta, -alpha, baseDepth, ply+1, childPVLine, move)
	}

	return score
}

func (s *Searcher) computeLMRReduction(whiteToMove bool, depth int8, legalMoves int, isPVNode bool, move dragontoothmg.Move) int8 {
	if isPVNode || legalMoves <= 2 {
		return 0
	}

	d := Min(int(depth), len(LMR)-1)
	m := Min(legalMoves-1, len(LMR[0])-1)
	r := LMR[d][m]

	// Good history means less reduction
	if r > 0 && s.quiets.historyScore(whiteToMove, move) > 0 {
		r--
	}
	if r < 0 {
		r = 0
	}
	return r
}

// applyMove plays a move while keeping the evaluator accumulator and the
// repetition stack in step with the board. The returned closure reverses all
// three.
func (s *Searcher) applyMove(b *dragontoothmg.Board, move dragontoothmg.Move) func() {
	s.eval.OnMake(b, move)
	unapply := b.Apply(move)
	s.states.push(b)
	return func() {
		s.states.pop()
		unapply()
		s.eval.OnUnmake()
	}
}

func clampScore(v int64) int32 {
	if v < int64(-MaxScore) {
		return -MaxScore
	}
	if v > int64(MaxScore) {
		return MaxScore
	}
	return int32(v)
}
