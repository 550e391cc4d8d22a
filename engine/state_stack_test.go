package engine

import (
	"testing"

	"github.com/dylhunn/dragontoothmg"
	"github.com/matryer/is"
)

func applyUCI(t *testing.T, b *dragontoothmg.Board, st *stateStack, ucis ...string) {
	t.Helper()
	for _, uci := range ucis {
		applied := false
		for _, m := range b.GenerateLegalMoves() {
			if m.String() == uci {
				b.Apply(m)
				st.push(b)
				applied = true
				break
			}
		}
		if !applied {
			t.Fatalf("move %s not legal in %s", uci, b.ToFen())
		}
	}
}

func TestRepetitionInsideSearchTree(t *testing.T) {
	is := is.New(t)

	b := dragontoothmg.ParseFen(dragontoothmg.Startpos)
	var st stateStack
	st.Reset(&b)

	// Everything after the root index counts as the search tree: a single
	// recurrence there is already a draw.
	rootIndex := len(st.states) - 1
	applyUCI(t, &b, &st, "g1f3", "g8f6", "f3g1", "f6g8")
	is.True(st.isDraw(rootIndex))
}

func TestRepetitionBeforeRootNeedsThree(t *testing.T) {
	is := is.New(t)

	b := dragontoothmg.ParseFen(dragontoothmg.Startpos)
	var st stateStack
	st.Reset(&b)

	// The first recurrence happens in played-game history, before the root.
	applyUCI(t, &b, &st, "g1f3", "g8f6", "f3g1", "f6g8")
	rootIndex := len(st.states) - 1
	is.True(!st.isDraw(rootIndex))

	// Second recurrence, this time at or past the root: draw.
	applyUCI(t, &b, &st, "g1f3", "g8f6", "f3g1", "f6g8")
	is.True(st.isDraw(rootIndex))
}

func TestFiftyMoveDraw(t *testing.T) {
	is := is.New(t)

	b := dragontoothmg.ParseFen("4k3/8/8/8/8/8/8/4KR2 w - - 99 80")
	var st stateStack
	st.Reset(&b)
	is.True(!st.isDraw(0))

	applyUCI(t, &b, &st, "f1f2")
	is.True(st.isDraw(0))
}

func TestSyncRebuildsOnForeignBoard(t *testing.T) {
	is := is.New(t)

	b := dragontoothmg.ParseFen(dragontoothmg.Startpos)
	var st stateStack
	st.Reset(&b)
	applyUCI(t, &b, &st, "e2e4", "e7e5")

	other := dragontoothmg.ParseFen("4k3/8/8/8/8/8/8/4K3 w - - 0 1")
	st.sync(&other)
	is.Equal(len(st.states), 1)
	is.Equal(st.states[0].Hash, other.Hash())
}
