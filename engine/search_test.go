package engine

import (
	"testing"
	"time"

	"github.com/dylhunn/dragontoothmg"
	"github.com/matryer/is"
	"github.com/rs/zerolog"
)

func newTestSearcher() *Searcher {
	return NewSearcher(NewTransTable(8), NewBaselineEvaluator(), zerolog.Nop())
}

func searchFEN(s *Searcher, fen string, limits Limits) Result {
	b := dragontoothmg.ParseFen(fen)
	s.ResetHistory(&b)
	return s.Search(&b, limits)
}

func isLegal(b *dragontoothmg.Board, move dragontoothmg.Move) bool {
	for _, m := range b.GenerateLegalMoves() {
		if m == move {
			return true
		}
	}
	return false
}

func TestFindsMateInOne(t *testing.T) {
	is := is.New(t)
	s := newTestSearcher()

	// Back-rank mate: only Re8 ends the game.
	result := searchFEN(s, "6k1/5ppp/8/8/8/8/5PPP/4R1K1 w - - 0 1", Limits{Depth: 4})
	is.Equal(result.Move.String(), "e1e8")
	is.True(result.Score > Checkmate)
	is.Equal(result.Score, MaxScore-1) // mate one ply from the root
}

func TestFindsMateInTwo(t *testing.T) {
	is := is.New(t)
	s := newTestSearcher()

	// Two-rook ladder: cut off the seventh rank, then mate on the eighth.
	result := searchFEN(s, "7k/8/8/8/8/8/R7/1R5K w - - 0 1", Limits{Depth: 6})
	is.True(result.Score > Checkmate)
	is.Equal(result.Score, MaxScore-3) // mate in two moves, three plies
}

func TestAvoidsHangingMaterial(t *testing.T) {
	is := is.New(t)
	s := newTestSearcher()

	// The d5 pawn attacks the white queen on e4; any decent depth must
	// address it rather than lose the queen for nothing.
	fen := "rnb1kbnr/ppp1pppp/8/3p4/4Q3/8/PPPP1PPP/RNB1KBNR w KQkq - 0 3"
	result := searchFEN(s, fen, Limits{Depth: 5})
	b := dragontoothmg.ParseFen(fen)
	is.True(isLegal(&b, result.Move))
	is.True(result.Score > -200) // not down a queen
}

func TestDepthLimitRespected(t *testing.T) {
	is := is.New(t)
	s := newTestSearcher()

	result := searchFEN(s, dragontoothmg.Startpos, Limits{Depth: 3})
	is.Equal(result.Depth, uint8(3))

	b := dragontoothmg.ParseFen(dragontoothmg.Startpos)
	is.True(isLegal(&b, result.Move))
	is.True(result.Nodes > 0)
	is.True(abs32(result.Score) < 200) // the start position is near balanced
}

func TestNodeLimitStopsSearch(t *testing.T) {
	is := is.New(t)
	s := newTestSearcher()

	result := searchFEN(s, dragontoothmg.Startpos, Limits{Nodes: 5000})
	b := dragontoothmg.ParseFen(dragontoothmg.Startpos)
	is.True(isLegal(&b, result.Move))

	// The limit is polled at node intervals, so allow bounded overshoot.
	is.True(result.Nodes < 5000+8192)
}

func TestExpiredBudgetStillReturnsALegalMove(t *testing.T) {
	is := is.New(t)
	s := newTestSearcher()

	result := searchFEN(s, dragontoothmg.Startpos, Limits{MoveTime: time.Nanosecond})
	b := dragontoothmg.ParseFen(dragontoothmg.Startpos)
	is.True(isLegal(&b, result.Move))
}

func TestStopIsStickyUntilNextSearch(t *testing.T) {
	is := is.New(t)
	s := newTestSearcher()

	s.Stop()
	result := searchFEN(s, dragontoothmg.Startpos, Limits{Depth: 3})
	// Search clears a pending stop on entry; a stale Stop never poisons it.
	is.Equal(result.Depth, uint8(3))
}

func TestSingleLegalMove(t *testing.T) {
	is := is.New(t)
	s := newTestSearcher()

	// Black is in check from the rook; the king's only flight square is g7.
	fen := "5R1k/7p/8/8/8/8/8/7K b - - 0 1"
	b := dragontoothmg.ParseFen(fen)
	moves := b.GenerateLegalMoves()
	is.Equal(len(moves), 1)

	result := searchFEN(s, fen, Limits{Depth: 4})
	is.Equal(result.Move, moves[0])
}

func TestMatedPositionReturnsNoMove(t *testing.T) {
	is := is.New(t)
	s := newTestSearcher()

	// Fool's mate: white is checkmated, there is nothing to search.
	result := searchFEN(s, "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3", Limits{Depth: 3})
	is.Equal(result.Move, dragontoothmg.Move(0))
}

func TestDeadDrawScoredAsZero(t *testing.T) {
	is := is.New(t)
	s := newTestSearcher()

	// King and bishop cannot win: every line is a dead draw.
	fen := "4k3/8/8/8/8/8/8/4KB2 w - - 0 1"
	result := searchFEN(s, fen, Limits{Depth: 4})
	b := dragontoothmg.ParseFen(fen)
	is.True(isLegal(&b, result.Move))
	is.Equal(result.Score, DrawScore)
}

func TestIterationCallbackFires(t *testing.T) {
	is := is.New(t)
	s := newTestSearcher()

	var depths []uint8
	s.OnIteration = func(r Result, _ time.Duration) {
		depths = append(depths, r.Depth)
	}
	searchFEN(s, dragontoothmg.Startpos, Limits{Depth: 4})

	is.True(len(depths) >= 1)
	for i := 1; i < len(depths); i++ {
		is.True(depths[i] > depths[i-1]) // deepening, never regressing
	}
	is.Equal(depths[len(depths)-1], uint8(4))
}

func TestTableSpeedsUpResearch(t *testing.T) {
	is := is.New(t)
	s := newTestSearcher()

	first := searchFEN(s, dragontoothmg.Startpos, Limits{Depth: 5})
	second := searchFEN(s, dragontoothmg.Startpos, Limits{Depth: 5})
	is.True(second.Nodes <= first.Nodes) // warm table can only help
	is.Equal(second.Depth, first.Depth)
}
