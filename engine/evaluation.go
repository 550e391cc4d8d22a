package engine

import (
	"math/bits"

	"github.com/dylhunn/dragontoothmg"
)

/*
Evaluator scores a position from the perspective of the side to move
(positive favors the mover). Implementations that keep incremental state
track the live position through the OnMake/OnUnmake hooks; stateless
implementations leave them as no-ops.
*/
type Evaluator interface {
	// Evaluate returns a centipawn score, side-to-move perspective.
	Evaluate(b *dragontoothmg.Board) int16
	// OnMake is called with the position as it is BEFORE the move is applied.
	OnMake(b *dragontoothmg.Board, move dragontoothmg.Move)
	OnUnmake()
	// Refresh rebuilds any internal state from scratch for the given position.
	Refresh(b *dragontoothmg.Board)
}

// BaselineEvaluator is the material + piece-square evaluation, tapered
// between the middlegame and endgame tables by remaining material.
type BaselineEvaluator struct{}

func NewBaselineEvaluator() *BaselineEvaluator { return &BaselineEvaluator{} }

func (e *BaselineEvaluator) OnMake(b *dragontoothmg.Board, move dragontoothmg.Move) {}
func (e *BaselineEvaluator) OnUnmake()                                              {}
func (e *BaselineEvaluator) Refresh(b *dragontoothmg.Board)                         {}

func (e *BaselineEvaluator) Evaluate(b *dragontoothmg.Board) int16 {
	var mg, eg int32

	mg, eg = accumulateSide(&b.White, mg, eg, false)
	mg, eg = accumulateSide(&b.Black, mg, eg, true)

	phase := gamePhase(b)
	score := (mg*int32(256-phase) + eg*int32(phase)) / 256

	if !b.Wtomove {
		score = -score
	}
	return int16(score)
}

func accumulateSide(bb *dragontoothmg.Bitboards, mg, eg int32, black bool) (int32, int32) {
	sign := int32(1)
	if black {
		sign = -1
	}
	boards := [7]uint64{0, bb.Pawns, bb.Knights, bb.Bishops, bb.Rooks, bb.Queens, bb.Kings}
	for pt := dragontoothmg.Pawn; pt <= dragontoothmg.King; pt++ {
		for pieces := boards[pt]; pieces != 0; pieces &= pieces - 1 {
			sq := uint8(bits.TrailingZeros64(pieces))
			if black {
				sq = mirrorSquare(sq)
			}
			mg += sign * (int32(PieceValueMG[pt]) + int32(psqtMG[pt][sq]))
			eg += sign * (int32(PieceValueEG[pt]) + int32(psqtEG[pt][sq]))
		}
	}
	return mg, eg
}

// gamePhase maps remaining material onto [0,256]: 0 = full middlegame,
// 256 = bare endgame.
func gamePhase(b *dragontoothmg.Board) int {
	phase := TotalPhase
	phase -= bits.OnesCount64(b.White.Knights|b.Black.Knights) * piecePhaseWeight[dragontoothmg.Knight]
	phase -= bits.OnesCount64(b.White.Bishops|b.Black.Bishops) * piecePhaseWeight[dragontoothmg.Bishop]
	phase -= bits.OnesCount64(b.White.Rooks|b.Black.Rooks) * piecePhaseWeight[dragontoothmg.Rook]
	phase -= bits.OnesCount64(b.White.Queens|b.Black.Queens) * piecePhaseWeight[dragontoothmg.Queen]
	if phase < 0 {
		phase = 0
	}
	return (phase*256 + TotalPhase/2) / TotalPhase
}

// insufficientMaterial reports positions that cannot be won by either side:
// bare kings, or king + single minor piece versus king.
func insufficientMaterial(b *dragontoothmg.Board) bool {
	if b.White.Pawns|b.Black.Pawns|b.White.Rooks|b.Black.Rooks|b.White.Queens|b.Black.Queens != 0 {
		return false
	}
	minors := bits.OnesCount64(b.White.Knights | b.White.Bishops | b.Black.Knights | b.Black.Bishops)
	return minors <= 1
}
