package engine

import (
	"github.com/dylhunn/dragontoothmg"
)

const MaxDepth = 100

var LMR = [MaxDepth + 1][100]int8{}

func init() {
	for d := 1; d < MaxDepth+1; d++ {
		for m := 1; m < 100; m++ {
			r := 1 + d/8 + m/16 // gentle growth with depth & lateness
			if r > d-2 {
				r = d - 2
			}
			if r < 0 {
				r = 0
			}
			LMR[d][m] = int8(r)
		}
	}
}

/*
HISTORY/COUNTER MOVES
If a move was a cut-node (above beta) and not a capture, we keep track of two things:
the move that countered us (previous move made) - a counter move - and a historical
score of the move, so move ordering can prefer it later.
*/
type QuietStats struct {
	counterMove [2][64][64]dragontoothmg.Move
	historyMove [2][64][64]int
}

// Ensure we stay below the captures, countermoves etc
const historyMaxVal = 10000

func sideIndex(whiteToMove bool) int {
	if whiteToMove {
		return 0
	}
	return 1
}

func (q *QuietStats) storeCounter(whiteToMove bool, prevMove, move dragontoothmg.Move) {
	q.counterMove[sideIndex(whiteToMove)][prevMove.From()][prevMove.To()] = move
}

func (q *QuietStats) counter(whiteToMove bool, prevMove dragontoothmg.Move) dragontoothmg.Move {
	return q.counterMove[sideIndex(whiteToMove)][prevMove.From()][prevMove.To()]
}

func (q *QuietStats) historyScore(whiteToMove bool, move dragontoothmg.Move) int {
	return q.historyMove[sideIndex(whiteToMove)][move.From()][move.To()]
}

// Increment the history score for a quiet move that caused a beta-cutoff.
func (q *QuietStats) incrementHistory(whiteToMove bool, move dragontoothmg.Move, depth int8) {
	side := sideIndex(whiteToMove)
	q.historyMove[side][move.From()][move.To()] += int(depth) * int(depth)
	if q.historyMove[side][move.From()][move.To()] >= historyMaxVal {
		q.ageHistory(side)
	}
}

// Decrement the history score for quiet moves that were tried before the cutoff move.
func (q *QuietStats) decrementHistory(whiteToMove bool, move dragontoothmg.Move, depth int8) {
	side := sideIndex(whiteToMove)
	score := q.historyMove[side][move.From()][move.To()] - int(depth)*int(depth)
	if score < 0 {
		score = 0
	}
	q.historyMove[side][move.From()][move.To()] = score
}

// Age the values in the history table by halving them.
func (q *QuietStats) ageHistory(side int) {
	for sq1 := 0; sq1 < 64; sq1++ {
		for sq2 := 0; sq2 < 64; sq2++ {
			q.historyMove[side][sq1][sq2] /= 2
		}
	}
}

func (q *QuietStats) Clear() {
	*q = QuietStats{}
}

// Min returns the smaller of x or y.
func Min(x, y int) int {
	if x < y {
		return x
	}
	return y
}

func abs32(x int32) int32 {
	if x < 0 {
		return -x
	}
	return x
}
