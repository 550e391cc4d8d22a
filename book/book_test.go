package book

import (
	"encoding/binary"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/dylhunn/dragontoothmg"
	"github.com/matryer/is"
)

// packMove encodes coordinates into the Polyglot move bit layout.
func packMove(fromFile, fromRank, toFile, toRank, promo uint16) uint16 {
	return toFile | toRank<<3 | fromFile<<6 | fromRank<<9 | promo<<12
}

func writeBook(t *testing.T, entries []Entry) string {
	t.Helper()
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	raw := make([]byte, 0, len(entries)*recordSize)
	for _, e := range entries {
		var rec [recordSize]byte
		binary.BigEndian.PutUint64(rec[0:], e.Key)
		binary.BigEndian.PutUint16(rec[8:], e.Move)
		binary.BigEndian.PutUint16(rec[10:], e.Weight)
		raw = append(raw, rec[:]...)
	}
	path := filepath.Join(t.TempDir(), "test.bin")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

var (
	e2e4 = packMove(4, 1, 4, 3, 0)
	d2d4 = packMove(3, 1, 3, 3, 0)
	g1f3 = packMove(6, 0, 5, 2, 0)
)

func TestOpenLookupPick(t *testing.T) {
	is := is.New(t)

	startKey, err := KeyFromFEN(dragontoothmg.Startpos)
	is.NoErr(err)

	bk, err := Open(writeBook(t, []Entry{
		{Key: startKey, Move: e2e4, Weight: 100},
		{Key: startKey, Move: d2d4, Weight: 60},
		{Key: startKey, Move: g1f3, Weight: 20},
		{Key: startKey + 1, Move: e2e4, Weight: 7},
	}))
	is.NoErr(err)
	is.Equal(bk.Len(), 4)

	entries := bk.Lookup(startKey)
	is.Equal(len(entries), 3)

	is.Equal(len(bk.Lookup(startKey^0x5555)), 0) // miss is empty, not error

	best, ok := Pick(entries, SelectBest, nil)
	is.True(ok)
	is.Equal(best.Move, e2e4)

	// Weighted selection only ever returns listed candidates, and over many
	// draws each positive-weight candidate shows up.
	rng := rand.New(rand.NewSource(3))
	seen := map[uint16]int{}
	for i := 0; i < 500; i++ {
		e, ok := Pick(entries, SelectWeighted, rng)
		is.True(ok)
		seen[e.Move]++
	}
	is.Equal(len(seen), 3)
	is.True(seen[e2e4] > seen[g1f3])
}

func TestPickEmpty(t *testing.T) {
	is := is.New(t)
	_, ok := Pick(nil, SelectBest, nil)
	is.True(!ok)
}

func TestOpenRejectsMalformed(t *testing.T) {
	is := is.New(t)

	// Truncated record
	path := filepath.Join(t.TempDir(), "short.bin")
	is.NoErr(os.WriteFile(path, make([]byte, recordSize+3), 0o644))
	_, err := Open(path)
	is.True(err != nil)

	// Unsorted keys
	raw := make([]byte, 2*recordSize)
	binary.BigEndian.PutUint64(raw[0:], 9)
	binary.BigEndian.PutUint64(raw[recordSize:], 5)
	path = filepath.Join(t.TempDir(), "unsorted.bin")
	is.NoErr(os.WriteFile(path, raw, 0o644))
	_, err = Open(path)
	is.True(err != nil)

	_, err = Open(filepath.Join(t.TempDir(), "missing.bin"))
	is.True(err != nil)
}

func TestEntryUCI(t *testing.T) {
	is := is.New(t)

	is.Equal(Entry{Move: e2e4}.UCI(), "e2e4")
	is.Equal(Entry{Move: packMove(0, 6, 0, 7, 4)}.UCI(), "a7a8q")
	is.Equal(Entry{Move: packMove(4, 0, 7, 0, 0)}.UCI(), "e1h1") // castling as king-takes-rook
}

func TestBoardMoveResolvesCastling(t *testing.T) {
	is := is.New(t)

	// White ready to castle short; the book says e1h1, the board wants e1g1.
	b := dragontoothmg.ParseFen("rnbqkbnr/pppppppp/8/8/8/5NPB/PPPPPP1P/RNBQK2R w KQkq - 0 1")
	move, ok := Entry{Move: packMove(4, 0, 7, 0, 0)}.BoardMove(&b)
	is.True(ok)
	is.Equal(move.String(), "e1g1")
}

func TestBoardMoveRookOnH1IsNotCastling(t *testing.T) {
	is := is.New(t)

	// A rook (not the king) sits on e1: e1h1 is a plain rook move.
	b := dragontoothmg.ParseFen("k7/8/8/8/8/8/8/2K1R3 w - - 0 1")
	move, ok := Entry{Move: packMove(4, 0, 7, 0, 0)}.BoardMove(&b)
	is.True(ok)
	is.Equal(move.String(), "e1h1")
}

func TestBoardMoveIgnoresIllegalEntries(t *testing.T) {
	is := is.New(t)

	b := dragontoothmg.ParseFen(dragontoothmg.Startpos)
	_, ok := Entry{Move: packMove(0, 0, 0, 5, 0)}.BoardMove(&b) // a1a6: blocked
	is.True(!ok)
}
