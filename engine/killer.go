package engine

import (
	"github.com/dylhunn/dragontoothmg"
)

type KillerStruct struct {
	KillerMoves [MaxDepth + 1][2]dragontoothmg.Move
}

func (k *KillerStruct) Insert(move dragontoothmg.Move, ply int8) {
	if move != k.KillerMoves[ply][0] {
		k.KillerMoves[ply][1] = k.KillerMoves[ply][0]
		k.KillerMoves[ply][0] = move
	}
}

func (k *KillerStruct) IsKiller(move dragontoothmg.Move, ply int8) bool {
	return move == k.KillerMoves[ply][0] || move == k.KillerMoves[ply][1]
}

// Clear the killer moves table.
func (k *KillerStruct) Clear() {
	for ply := 0; ply < MaxDepth+1; ply++ {
		k.KillerMoves[ply][0] = 0
		k.KillerMoves[ply][1] = 0
	}
}
