package engine

import (
	"github.com/dylhunn/dragontoothmg"
)

const fiftyMoveLimit = 100

// State captures the information we need to reason about repetitions and draws.
type State struct {
	Hash   uint64
	Rule50 int
}

// stateStack tracks the hashes seen from game start through the current
// search path, so repetition detection can look across the root.
type stateStack struct {
	states []State
}

// Reset rebuilds the stack so that it only contains the current board.
func (st *stateStack) Reset(board *dragontoothmg.Board) {
	st.states = st.states[:0]
	st.push(board)
}

// Record appends the board's current state to the history stack.
func (st *stateStack) Record(board *dragontoothmg.Board) {
	st.push(board)
}

// sync guarantees that the top of the stack reflects the board position.
func (st *stateStack) sync(board *dragontoothmg.Board) {
	if len(st.states) == 0 {
		st.push(board)
		return
	}
	last := &st.states[len(st.states)-1]
	if last.Hash != board.Hash() {
		st.Reset(board)
		return
	}
	last.Rule50 = int(board.Halfmoveclock)
}

func (st *stateStack) push(board *dragontoothmg.Board) {
	st.states = append(st.states, State{
		Hash:   board.Hash(),
		Rule50: int(board.Halfmoveclock),
	})
}

func (st *stateStack) pop() {
	if len(st.states) == 0 {
		return
	}
	st.states = st.states[:len(st.states)-1]
}

// isDraw reports a fifty-move draw, a threefold repetition anywhere in the
// game, or a single repetition that occurred inside the current search tree
// (rootIndex marks where the search started).
func (st *stateStack) isDraw(rootIndex int) bool {
	if len(st.states) == 0 {
		return false
	}
	curr := st.states[len(st.states)-1]
	if curr.Rule50 >= fiftyMoveLimit {
		return true
	}

	matchCount, firstIdx := st.repetitionInfo(curr.Hash, curr.Rule50)
	if matchCount >= 2 {
		return true
	}
	return matchCount >= 1 && firstIdx >= rootIndex
}

func (st *stateStack) repetitionInfo(hash uint64, rule50 int) (count int, firstIdx int) {
	firstIdx = -1
	if len(st.states) <= 1 {
		return 0, firstIdx
	}
	start := len(st.states) - 1 - rule50
	if start < 0 {
		start = 0
	}
	for i := start; i <= len(st.states)-2; i++ {
		if st.states[i].Hash == hash {
			count++
			if firstIdx == -1 {
				firstIdx = i
			}
		}
	}
	return count, firstIdx
}
