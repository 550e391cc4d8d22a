package engine

import (
	"github.com/dylhunn/dragontoothmg"
)

type scoredMove struct {
	move          dragontoothmg.Move
	score         uint16
	capturedPiece dragontoothmg.Piece
}

type moveList struct {
	moves []scoredMove
}

// Most Valuable Victim - Least Valuable Aggressor; used to score & sort captures
var mvvLva = [7][7]uint16{
	{0, 0, 0, 0, 0, 0, 0},
	{0, 14, 13, 12, 11, 10, 0}, // victim Pawn
	{0, 24, 23, 22, 21, 20, 0}, // victim Knight
	{0, 34, 33, 32, 31, 30, 0}, // victim Bishop
	{0, 44, 43, 42, 41, 40, 0}, // victim Rook
	{0, 54, 53, 52, 51, 50, 0}, // victim Queen
	{0, 0, 0, 0, 0, 0, 0},      // victim King
}

/*
Move ordering offsets.
The TT/PV move goes first: it either guides us down the best path or into the
fastest cutoff. Promotions and captures next so tactical shots are never late.
Among quiet moves, killers beat counters beat plain history.
*/
const (
	pvOffset        uint16 = 25000
	promotionOffset uint16 = 20000
	captureOffset   uint16 = 15000
	killerOffset    uint16 = 12000
	counterOffset   uint16 = 11000
)

// pieceTypeAt reports the piece type occupying a square in the given bitboard set.
func pieceTypeAt(position uint8, bitboards *dragontoothmg.Bitboards) (pieceType dragontoothmg.Piece, occupied bool) {
	bit := uint64(1) << position
	switch {
	case bitboards.Pawns&bit != 0:
		return dragontoothmg.Pawn, true
	case bitboards.Knights&bit != 0:
		return dragontoothmg.Knight, true
	case bitboards.Bishops&bit != 0:
		return dragontoothmg.Bishop, true
	case bitboards.Rooks&bit != 0:
		return dragontoothmg.Rook, true
	case bitboards.Queens&bit != 0:
		return dragontoothmg.Queen, true
	case bitboards.Kings&bit != 0:
		return dragontoothmg.King, true
	}
	return 0, false
}

func sideBitboards(b *dragontoothmg.Board) (own, opp *dragontoothmg.Bitboards) {
	if b.Wtomove {
		return &b.White, &b.Black
	}
	return &b.Black, &b.White
}

// isCapture reports whether the move takes a piece, including en passant
// (a pawn moving diagonally onto an empty square).
func isCapture(move dragontoothmg.Move, b *dragontoothmg.Board) bool {
	_, opp := sideBitboards(b)
	if _, occupied := pieceTypeAt(move.To(), opp); occupied {
		return true
	}
	own, _ := sideBitboards(b)
	if own.Pawns&(uint64(1)<<move.From()) == 0 {
		return false
	}
	return move.From()%8 != move.To()%8
}

// orderNextMove selection-sorts the highest-scored remaining move into currIndex.
func orderNextMove(currIndex uint8, moves *moveList) {
	bestIndex := currIndex
	bestScore := moves.moves[bestIndex].score

	for index := bestIndex + 1; index < uint8(len(moves.moves)); index++ {
		if moves.moves[index].score > bestScore {
			bestIndex = index
			bestScore = moves.moves[index].score
		}
	}

	moves.moves[currIndex], moves.moves[bestIndex] = moves.moves[bestIndex], moves.moves[currIndex]
}

func (s *Searcher) scoreMovesList(b *dragontoothmg.Board, moves []dragontoothmg.Move, ply int8, pvMove, prevMove dragontoothmg.Move) moveList {
	own, opp := sideBitboards(b)

	list := moveList{moves: make([]scoredMove, len(moves))}
	for i := 0; i < len(moves); i++ {
		move := moves[i]
		var moveEval uint16
		capturedPiece, captures := pieceTypeAt(move.To(), opp)
		promotePiece := move.Promote()

		switch {
		case move == pvMove:
			moveEval = pvOffset + 1500
		case promotePiece > 0:
			moveEval = promotionOffset + uint16(PieceValueEG[promotePiece])
		case captures:
			pieceTypeFrom, _ := pieceTypeAt(move.From(), own)
			moveEval = captureOffset + mvvLva[capturedPiece][pieceTypeFrom]
		case s.killers.KillerMoves[ply][0] == move:
			moveEval = killerOffset + 200
		case s.killers.KillerMoves[ply][1] == move:
			moveEval = killerOffset
		default:
			moveEval = uint16(s.quiets.historyScore(b.Wtomove, move))
			if prevMove != 0 && s.quiets.counter(b.Wtomove, prevMove) == move {
				moveEval += counterOffset
			}
		}

		list.moves[i] = scoredMove{move: move, score: moveEval, capturedPiece: capturedPiece}
	}
	return list
}

// scoreCaptures keeps only captures and promotions, scored for quiescence.
func (s *Searcher) scoreCaptures(b *dragontoothmg.Board, moves []dragontoothmg.Move) moveList {
	own, opp := sideBitboards(b)

	list := moveList{moves: make([]scoredMove, 0, len(moves))}
	for i := 0; i < len(moves); i++ {
		move := moves[i]
		isPromotion := move.Promote() > 0
		enemyPiece, captures := pieceTypeAt(move.To(), opp)
		if !captures && own.Pawns&(uint64(1)<<move.From()) != 0 && move.From()%8 != move.To()%8 {
			// en passant
			enemyPiece, captures = dragontoothmg.Pawn, true
		}

		if !captures && !isPromotion {
			continue
		}

		var moveEval uint16
		if isPromotion {
			moveEval = captureOffset + 75
		} else {
			ourPiece, _ := pieceTypeAt(move.From(), own)
			moveEval = mvvLva[enemyPiece][ourPiece]
		}
		list.moves = append(list.moves, scoredMove{move: move, score: moveEval, capturedPiece: enemyPiece})
	}
	return list
}
