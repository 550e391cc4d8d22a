package book

import (
	"strings"

	"github.com/pkg/errors"
)

// Polyglot-style Zobrist keys. These are deliberately distinct from the board
// library's internal hash so book files are a self-contained format.
var (
	polyglotPieces     [12][64]uint64 // [piece kind][square]
	polyglotCastling   [4]uint64      // [KQkq]
	polyglotEnPassant  [8]uint64      // [file]
	polyglotSideToMove uint64
)

func init() {
	// Seeded xorshift so the table is reproducible without carrying
	// 781 literal constants around.
	var s uint64 = 0x37b4a4b3f0d1c0d0
	rng := func() uint64 {
		s ^= s >> 12
		s ^= s << 25
		s ^= s >> 27
		return s * 0x2545F4914F6CDD1D
	}

	for piece := 0; piece < 12; piece++ {
		for sq := 0; sq < 64; sq++ {
			polyglotPieces[piece][sq] = rng()
		}
	}
	for i := 0; i < 4; i++ {
		polyglotCastling[i] = rng()
	}
	for i := 0; i < 8; i++ {
		polyglotEnPassant[i] = rng()
	}
	polyglotSideToMove = rng()
}

// Piece kind ordering: bp bN bB bR bQ bK wp wN wB wR wQ wK.
var fenPieceKind = map[byte]int{
	'p': 0, 'n': 1, 'b': 2, 'r': 3, 'q': 4, 'k': 5,
	'P': 6, 'N': 7, 'B': 8, 'R': 9, 'Q': 10, 'K': 11,
}

/*
KeyFromFEN computes the book key for a position given in FEN. The board
library does not expose castling or en-passant state directly, so the FEN it
produces is the key-derivation contract. The en-passant file only enters the
key when an enemy pawn could actually capture onto the square.
*/
func KeyFromFEN(fen string) (uint64, error) {
	fields := strings.Fields(fen)
	if len(fields) < 4 {
		return 0, errors.Errorf("book: malformed FEN %q", fen)
	}

	var key uint64
	var pawnAt [64]byte // 'P', 'p' or 0

	// Field 0: placement, rank 8 down to rank 1
	rank := 7
	file := 0
	for i := 0; i < len(fields[0]); i++ {
		c := fields[0][i]
		switch {
		case c == '/':
			rank--
			file = 0
		case c >= '1' && c <= '8':
			file += int(c - '0')
		default:
			kind, ok := fenPieceKind[c]
			if !ok {
				return 0, errors.Errorf("book: bad piece %q in FEN %q", c, fen)
			}
			if rank < 0 || file > 7 {
				return 0, errors.Errorf("book: overlong rank in FEN %q", fen)
			}
			sq := rank*8 + file
			key ^= polyglotPieces[kind][sq]
			if c == 'P' || c == 'p' {
				pawnAt[sq] = c
			}
			file++
		}
	}

	// Field 1: side to move
	whiteToMove := fields[1] == "w"
	if whiteToMove {
		key ^= polyglotSideToMove
	}

	// Field 2: castling rights
	if fields[2] != "-" {
		for i := 0; i < len(fields[2]); i++ {
			switch fields[2][i] {
			case 'K':
				key ^= polyglotCastling[0]
			case 'Q':
				key ^= polyglotCastling[1]
			case 'k':
				key ^= polyglotCastling[2]
			case 'q':
				key ^= polyglotCastling[3]
			}
		}
	}

	// Field 3: en passant square, keyed only when capturable
	if fields[3] != "-" && len(fields[3]) == 2 {
		epFile := int(fields[3][0] - 'a')
		if epFile >= 0 && epFile < 8 && epCapturable(&pawnAt, epFile, whiteToMove) {
			key ^= polyglotEnPassant[epFile]
		}
	}

	return key, nil
}

func epCapturable(pawnAt *[64]byte, epFile int, whiteToMove bool) bool {
	// The capturing pawn sits beside the ep file on the mover's 5th rank:
	// rank index 4 for white to move, 3 for black to move.
	rank := 4
	capturer := byte('P')
	if !whiteToMove {
		rank = 3
		capturer = 'p'
	}
	if epFile > 0 && pawnAt[rank*8+epFile-1] == capturer {
		return true
	}
	if epFile < 7 && pawnAt[rank*8+epFile+1] == capturer {
		return true
	}
	return false
}
