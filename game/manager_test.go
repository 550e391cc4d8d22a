package game

import (
	"math/rand"
	"testing"

	"github.com/dylhunn/dragontoothmg"
	"github.com/matryer/is"
)

func legalByUCI(t *testing.T, m *Manager, uci string) dragontoothmg.Move {
	t.Helper()
	for _, move := range m.Board().GenerateLegalMoves() {
		if move.String() == uci {
			return move
		}
	}
	t.Fatalf("move %s not legal in %s", uci, m.Board().ToFen())
	return 0
}

func TestApplyUndoRedo(t *testing.T) {
	is := is.New(t)
	m := NewManager()

	startHash := m.Board().Hash()
	is.NoErr(m.Apply(legalByUCI(t, m, "e2e4")))
	is.NoErr(m.Apply(legalByUCI(t, m, "e7e5")))
	is.Equal(m.MoveCount(), 2)
	afterTwo := m.Board().Hash()

	is.True(m.Undo())
	is.True(m.Undo())
	is.Equal(m.MoveCount(), 0)
	is.Equal(m.Board().Hash(), startHash)
	is.True(!m.Undo()) // nothing left

	is.True(m.Redo())
	is.True(m.Redo())
	is.Equal(m.Board().Hash(), afterTwo)
	is.True(!m.Redo()) // redo branch exhausted
}

func TestApplyDiscardsRedoBranch(t *testing.T) {
	is := is.New(t)
	m := NewManager()

	is.NoErr(m.Apply(legalByUCI(t, m, "e2e4")))
	is.True(m.Undo())

	// Playing a different move abandons the undone line for good.
	is.NoErr(m.Apply(legalByUCI(t, m, "d2d4")))
	is.True(!m.Redo())
}

func TestApplyRejectsIllegalMove(t *testing.T) {
	is := is.New(t)
	m := NewManager()

	before := m.Board().Hash()
	err := m.Apply(dragontoothmg.Move(0))
	is.True(err != nil)
	is.Equal(m.Board().Hash(), before) // board untouched
	is.Equal(m.MoveCount(), 0)
}

func TestHashesTrackTheGame(t *testing.T) {
	is := is.New(t)
	m := NewManager()

	is.NoErr(m.Apply(legalByUCI(t, m, "g1f3")))
	is.NoErr(m.Apply(legalByUCI(t, m, "g8f6")))

	hashes := m.Hashes()
	is.Equal(len(hashes), 3) // start, after Nf3, after Nf6
	is.Equal(hashes[len(hashes)-1], m.Board().Hash())
}

func TestManagerFromFEN(t *testing.T) {
	is := is.New(t)

	m, err := NewManagerFromFEN("4k3/8/8/8/8/8/4P3/4K3 w - - 0 1")
	is.NoErr(err)
	is.True(m.ID() != "")
	is.NoErr(m.Apply(legalByUCI(t, m, "e2e4")))

	_, err = NewManagerFromFEN("garbage")
	is.True(err != nil)

	// Structurally broken positions are caught before the board sees them.
	_, err = NewManagerFromFEN("8/8/8/8/8/8/8/8 w - - 0 1") // no kings
	is.True(err != nil)
	_, err = NewManagerFromFEN("rnbqkbnr/pppppppp/8/8/8/8/PPPPPPP/RNBQKBNR w KQkq - 0 1") // short rank
	is.True(err != nil)
}

func TestRandomPlayoutUndoRestoresEveryPosition(t *testing.T) {
	is := is.New(t)
	rng := rand.New(rand.NewSource(11))

	for game := 0; game < 3; game++ {
		m := NewManager()
		want := []uint64{m.Board().Hash()}

		for ply := 0; ply < 80; ply++ {
			moves := m.Board().GenerateLegalMoves()
			if len(moves) == 0 {
				break
			}
			is.NoErr(m.Apply(moves[rng.Intn(len(moves))]))
			want = append(want, m.Board().Hash())
		}

		// Unwind the whole game; every intermediate hash must reappear.
		// Undo itself panics on any mismatch, this checks the full chain.
		for i := len(want) - 2; i >= 0; i-- {
			is.True(m.Undo())
			is.Equal(m.Board().Hash(), want[i])
		}
	}
}

func TestFreshManagersGetDistinctIDs(t *testing.T) {
	is := is.New(t)
	is.True(NewManager().ID() != NewManager().ID())
}
