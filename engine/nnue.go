package engine

import (
	"bytes"
	"encoding/binary"
	"math/bits"
	"os"
	"strings"

	"github.com/dylhunn/dragontoothmg"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

/*
Katfish network weights: a small fully-connected net evaluated over 768
piece-square inputs (6 piece types x 2 colors x 64 squares), with the first
layer kept as an incrementally-updated accumulator so make/unmake costs a
handful of row additions instead of a full forward pass.

File layout: 6-byte magic, zero padding to a 128-byte header, then
little-endian int16 weights in order W1[768][256], B1[256], W2[256][32],
B2[32], W3[32][1], B3[1]. Files ending in .zst are zstd-compressed.
*/
const (
	nnueInputs = 768
	nnueH1     = 256
	nnueH2     = 32
	nnueScale  = 64 // 6-bit fractional part
)

var nnueMagics = [][]byte{[]byte("NNUEF\n"), []byte("NNUE\x00\n")}

const nnueHeaderSize = 128

type nnueWeights struct {
	W1 []int16 // nnueInputs * nnueH1
	B1 []int16 // nnueH1
	W2 []int16 // nnueH1 * nnueH2
	B2 []int16 // nnueH2
	W3 []int16 // nnueH2
	B3 int16
}

// NNUEEvaluator holds loaded weights plus a stack of first-layer
// accumulators, one per ply, per perspective.
type NNUEEvaluator struct {
	weights nnueWeights

	// acc[ply][perspective][feature sums]; perspective 0 = white, 1 = black
	stack [][2][nnueH1]int32
}

// LoadNNUE reads a Katfish weights file. Any failure here is a reason to run
// in baseline mode, never a reason to stop the engine.
func LoadNNUE(path string) (*NNUEEvaluator, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "nnue: read weights")
	}

	if strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, errors.Wrap(err, "nnue: init zstd")
		}
		defer dec.Close()
		raw, err = dec.DecodeAll(raw, nil)
		if err != nil {
			return nil, errors.Wrap(err, "nnue: decompress weights")
		}
	}

	w, err := parseNNUE(raw)
	if err != nil {
		return nil, err
	}

	e := &NNUEEvaluator{weights: w}
	e.stack = make([][2][nnueH1]int32, 1, MaxDepth+8)
	return e, nil
}

func parseNNUE(raw []byte) (nnueWeights, error) {
	var w nnueWeights
	if len(raw) < nnueHeaderSize {
		return w, errors.New("nnue: file shorter than header")
	}
	magicOK := false
	for _, magic := range nnueMagics {
		if bytes.HasPrefix(raw, magic) {
			magicOK = true
			break
		}
	}
	if !magicOK {
		return w, errors.New("nnue: bad magic")
	}

	body := raw[nnueHeaderSize:]
	need := 2 * (nnueInputs*nnueH1 + nnueH1 + nnueH1*nnueH2 + nnueH2 + nnueH2 + 1)
	if len(body) < need {
		return w, errors.Errorf("nnue: truncated weights: have %d bytes, need %d", len(body), need)
	}

	next := func(n int) []int16 {
		out := make([]int16, n)
		for i := 0; i < n; i++ {
			out[i] = int16(binary.LittleEndian.Uint16(body[2*i:]))
		}
		body = body[2*n:]
		return out
	}

	w.W1 = next(nnueInputs * nnueH1)
	w.B1 = next(nnueH1)
	w.W2 = next(nnueH1 * nnueH2)
	w.B2 = next(nnueH2)
	w.W3 = next(nnueH2)
	w.B3 = next(1)[0]
	return w, nil
}

// featureIndex maps a piece type and square (from the viewing perspective)
// onto the 768-wide input layer.
func featureIndex(pt dragontoothmg.Piece, sq uint8) int {
	return (int(pt)-1)*64 + int(sq)
}

func (e *NNUEEvaluator) top() *[2][nnueH1]int32 {
	return &e.stack[len(e.stack)-1]
}

// addPiece folds a piece of the given color in (or out, sign -1) of both
// perspective accumulators.
func (e *NNUEEvaluator) addPiece(pt dragontoothmg.Piece, sq uint8, white bool, sign int32) {
	acc := e.top()
	for persp := 0; persp < 2; persp++ {
		fsq := sq
		if persp == 1 {
			fsq = mirrorSquare(sq)
		}
		s := sign
		if (persp == 0) != white {
			s = -sign
		}
		row := e.weights.W1[featureIndex(pt, fsq)*nnueH1:]
		for i := 0; i < nnueH1; i++ {
			acc[persp][i] += s * int32(row[i])
		}
	}
}

// Refresh recomputes both accumulators from scratch.
func (e *NNUEEvaluator) Refresh(b *dragontoothmg.Board) {
	e.stack = e.stack[:1]
	acc := e.top()
	for persp := 0; persp < 2; persp++ {
		for i := 0; i < nnueH1; i++ {
			acc[persp][i] = int32(e.weights.B1[i])
		}
	}

	for _, side := range []struct {
		bb    *dragontoothmg.Bitboards
		white bool
	}{{&b.White, true}, {&b.Black, false}} {
		boards := [7]uint64{0, side.bb.Pawns, side.bb.Knights, side.bb.Bishops, side.bb.Rooks, side.bb.Queens, side.bb.Kings}
		for pt := dragontoothmg.Piece(dragontoothmg.Pawn); pt <= dragontoothmg.King; pt++ {
			for pieces := boards[pt]; pieces != 0; pieces &= pieces - 1 {
				sq := uint8(bits.TrailingZeros64(pieces))
				e.addPiece(pt, sq, side.white, 1)
			}
		}
	}
}

// OnMake pushes a copy of the accumulators and folds the move's deltas in.
// Must be called with the position as it is before the move is applied.
func (e *NNUEEvaluator) OnMake(b *dragontoothmg.Board, move dragontoothmg.Move) {
	e.stack = append(e.stack, *e.top())

	own, opp := sideBitboards(b)
	white := b.Wtomove
	from, to := move.From(), move.To()

	movingPt, ok := pieceTypeAt(from, own)
	if !ok {
		panic("nnue: no piece on from-square")
	}

	// Remove the mover from its source square
	e.addPiece(movingPt, from, white, -1)

	// Capture, including en passant
	if capPt, captured := pieceTypeAt(to, opp); captured {
		e.addPiece(capPt, to, !white, -1)
	} else if movingPt == dragontoothmg.Pawn && from%8 != to%8 {
		capSq := to - 8
		if !white {
			capSq = to + 8
		}
		e.addPiece(dragontoothmg.Pawn, capSq, !white, -1)
	}

	// Promotion changes the arriving piece type
	arriving := movingPt
	if promo := move.Promote(); promo > 0 {
		arriving = promo
	}
	e.addPiece(arriving, to, white, 1)

	// Castling moves the rook as well
	if movingPt == dragontoothmg.King {
		switch {
		case from == 4 && to == 6:
			e.addPiece(dragontoothmg.Rook, 7, true, -1)
			e.addPiece(dragontoothmg.Rook, 5, true, 1)
		case from == 4 && to == 2:
			e.addPiece(dragontoothmg.Rook, 0, true, -1)
			e.addPiece(dragontoothmg.Rook, 3, true, 1)
		case from == 60 && to == 62:
			e.addPiece(dragontoothmg.Rook, 63, false, -1)
			e.addPiece(dragontoothmg.Rook, 61, false, 1)
		case from == 60 && to == 58:
			e.addPiece(dragontoothmg.Rook, 56, false, -1)
			e.addPiece(dragontoothmg.Rook, 59, false, 1)
		}
	}
}

// OnUnmake drops back to the accumulator state before the matching OnMake.
func (e *NNUEEvaluator) OnUnmake() {
	if len(e.stack) <= 1 {
		panic("nnue: unmake without make")
	}
	e.stack = e.stack[:len(e.stack)-1]
}

// Evaluate runs the upper layers over the side-to-move accumulator.
func (e *NNUEEvaluator) Evaluate(b *dragontoothmg.Board) int16 {
	persp := 0
	if !b.Wtomove {
		persp = 1
	}
	acc := &e.top()[persp]

	var hidden [nnueH2]int64
	for j := 0; j < nnueH2; j++ {
		hidden[j] = int64(e.weights.B2[j])
	}
	for i := 0; i < nnueH1; i++ {
		x := int64(acc[i])
		if x <= 0 {
			continue
		}
		row := e.weights.W2[i*nnueH2:]
		for j := 0; j < nnueH2; j++ {
			hidden[j] += x * int64(row[j])
		}
	}

	var out int64 = int64(e.weights.B3)
	for j := 0; j < nnueH2; j++ {
		y := hidden[j]
		if y <= 0 {
			continue
		}
		out += y * int64(e.weights.W3[j])
	}

	score := out / nnueScale

	// Keep network output well clear of the mate score range
	scoreCap := int64(Checkmate) - 1000
	if score > scoreCap {
		score = scoreCap
	} else if score < -scoreCap {
		score = -scoreCap
	}
	return int16(score)
}
