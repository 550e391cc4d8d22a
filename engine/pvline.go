package engine

import (
	"strings"

	"github.com/dylhunn/dragontoothmg"
)

// PVLine is the principal variation collected on the way back up the tree.
type PVLine struct {
	Moves []dragontoothmg.Move
}

// Clear the principal variation line.
func (pv *PVLine) Clear() {
	pv.Moves = pv.Moves[:0]
}

// Update the line with a new best move followed by the best play after it.
func (pv *PVLine) Update(move dragontoothmg.Move, child PVLine) {
	pv.Moves = pv.Moves[:0]
	pv.Moves = append(pv.Moves, move)
	pv.Moves = append(pv.Moves, child.Moves...)
}

// GetPVMove returns the first move of the line, or 0 when the line is empty.
func (pv *PVLine) GetPVMove() dragontoothmg.Move {
	if len(pv.Moves) == 0 {
		return 0
	}
	return pv.Moves[0]
}

func (pv *PVLine) Clone() PVLine {
	out := PVLine{Moves: make([]dragontoothmg.Move, len(pv.Moves))}
	copy(out.Moves, pv.Moves)
	return out
}

func (pv PVLine) String() string {
	parts := make([]string, 0, len(pv.Moves))
	for i := range pv.Moves {
		parts = append(parts, pv.Moves[i].String())
	}
	return strings.Join(parts, " ")
}
