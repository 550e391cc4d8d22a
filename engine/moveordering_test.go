package engine

import (
	"testing"

	"github.com/dylhunn/dragontoothmg"
	"github.com/matryer/is"
)

func moveByUCI(t *testing.T, b *dragontoothmg.Board, uci string) dragontoothmg.Move {
	t.Helper()
	for _, m := range b.GenerateLegalMoves() {
		if m.String() == uci {
			return m
		}
	}
	t.Fatalf("move %s not legal in %s", uci, b.ToFen())
	return 0
}

func TestOrderingPutsPVMoveFirst(t *testing.T) {
	is := is.New(t)
	s := newTestSearcher()

	b := dragontoothmg.ParseFen(dragontoothmg.Startpos)
	moves := b.GenerateLegalMoves()
	pv := moveByUCI(t, &b, "b1c3")

	list := s.scoreMovesList(&b, moves, 0, pv, 0)
	orderNextMove(0, &list)
	is.Equal(list.moves[0].move, pv)
}

func TestOrderingPrefersCapturesOverQuiets(t *testing.T) {
	is := is.New(t)
	s := newTestSearcher()

	// White can take the d5 pawn with either the e4 pawn or the f4 knight;
	// pawn-takes ranks above knight-takes, both above every quiet move.
	b := dragontoothmg.ParseFen("rnbqkbnr/ppp1pppp/8/3p4/4PN2/8/PPPP1PPP/RNBQKB1R w KQkq - 0 2")
	moves := b.GenerateLegalMoves()
	list := s.scoreMovesList(&b, moves, 0, 0, 0)

	orderNextMove(0, &list)
	is.Equal(list.moves[0].move.String(), "e4d5")
	orderNextMove(1, &list)
	is.Equal(list.moves[1].move.String(), "f4d5")
	is.True(list.moves[1].score > killerOffset)
}

func TestOrderingRanksKillersAboveHistory(t *testing.T) {
	is := is.New(t)
	s := newTestSearcher()

	b := dragontoothmg.ParseFen(dragontoothmg.Startpos)
	killer := moveByUCI(t, &b, "g2g3")
	s.killers.Insert(killer, 2)

	other := moveByUCI(t, &b, "a2a3")
	s.quiets.incrementHistory(b.Wtomove, other, 6)

	list := s.scoreMovesList(&b, b.GenerateLegalMoves(), 2, 0, 0)
	orderNextMove(0, &list)
	is.Equal(list.moves[0].move, killer)
}

func TestQuiescenceListKeepsOnlyTacticalMoves(t *testing.T) {
	is := is.New(t)
	s := newTestSearcher()

	// One real capture available (exd5), everything else quiet.
	b := dragontoothmg.ParseFen("rnbqkbnr/ppp1pppp/8/3p4/4P3/8/PPPP1PPP/RNBQKBNR w KQkq - 0 2")
	list := s.scoreCaptures(&b, b.GenerateLegalMoves())
	is.Equal(len(list.moves), 1)
	is.Equal(list.moves[0].move.String(), "e4d5")
	is.Equal(list.moves[0].capturedPiece, dragontoothmg.Piece(dragontoothmg.Pawn))
}

func TestEnPassantIsACapture(t *testing.T) {
	is := is.New(t)

	// After ...d7d5 the e5 pawn may capture en passant on d6.
	b := dragontoothmg.ParseFen("rnbqkbnr/ppp1pppp/8/3pP3/8/8/PPPP1PPP/RNBQKBNR w KQkq d6 0 3")
	ep := moveByUCI(t, &b, "e5d6")
	is.True(isCapture(ep, &b))

	quiet := moveByUCI(t, &b, "e5e6")
	is.True(!isCapture(quiet, &b))
}

func TestKillerSlots(t *testing.T) {
	is := is.New(t)
	var k KillerStruct

	k.Insert(100, 3)
	k.Insert(200, 3)
	is.Equal(k.KillerMoves[3][0], dragontoothmg.Move(200))
	is.Equal(k.KillerMoves[3][1], dragontoothmg.Move(100))
	is.True(k.IsKiller(100, 3))
	is.True(!k.IsKiller(100, 4))

	// Re-inserting the current first killer must not duplicate it.
	k.Insert(200, 3)
	is.Equal(k.KillerMoves[3][1], dragontoothmg.Move(100))

	k.Clear()
	is.True(!k.IsKiller(200, 3))
}

func TestPVLineUpdate(t *testing.T) {
	is := is.New(t)

	var child, parent PVLine
	child.Update(7, PVLine{})
	parent.Update(3, child)

	is.Equal(parent.GetPVMove(), dragontoothmg.Move(3))
	is.Equal(len(parent.Moves), 2)

	clone := parent.Clone()
	parent.Clear()
	is.Equal(parent.GetPVMove(), dragontoothmg.Move(0))
	is.Equal(len(clone.Moves), 2)
}
