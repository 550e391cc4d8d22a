// Package book reads Polyglot-format opening books: fixed 16-byte records
// sorted ascending by position key, several records per key allowed, one per
// candidate move.
package book

import (
	"encoding/binary"
	"fmt"
	"math/rand"
	"os"

	"github.com/dylhunn/dragontoothmg"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

const recordSize = 16

// Entry is one candidate continuation for a position.
type Entry struct {
	Key    uint64
	Move   uint16 // packed per the Polyglot bit layout
	Weight uint16
}

// SelectionPolicy controls how a move is chosen among entries with equal keys.
type SelectionPolicy int

const (
	// SelectWeighted picks proportionally to the stored weights.
	SelectWeighted SelectionPolicy = iota
	// SelectBest always picks the highest weight (first wins ties);
	// deterministic, used for reproducible play and tests.
	SelectBest
)

type Book struct {
	entries []Entry
}

/*
Open loads and validates a book file. A malformed file (bad size, unsorted
keys) is rejected outright so a session either has a trustworthy book or none
at all; the caller proceeds bookless on error.
*/
func Open(path string) (*Book, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "book: read")
	}
	if len(raw)%recordSize != 0 {
		return nil, errors.Errorf("book: size %d is not a multiple of %d", len(raw), recordSize)
	}

	entries := make([]Entry, 0, len(raw)/recordSize)
	for off := 0; off < len(raw); off += recordSize {
		entries = append(entries, Entry{
			Key:    binary.BigEndian.Uint64(raw[off:]),
			Move:   binary.BigEndian.Uint16(raw[off+8:]),
			Weight: binary.BigEndian.Uint16(raw[off+10:]),
			// 4 learn bytes ignored
		})
	}

	if !slices.IsSortedFunc(entries, func(a, b Entry) int {
		switch {
		case a.Key < b.Key:
			return -1
		case a.Key > b.Key:
			return 1
		}
		return 0
	}) {
		return nil, errors.New("book: keys are not sorted ascending")
	}

	return &Book{entries: entries}, nil
}

// Len returns the number of records loaded.
func (b *Book) Len() int { return len(b.entries) }

// Lookup returns all entries for the given key. An empty result is a normal
// miss, not an error.
func (b *Book) Lookup(key uint64) []Entry {
	first, found := slices.BinarySearchFunc(b.entries, key, func(e Entry, k uint64) int {
		switch {
		case e.Key < k:
			return -1
		case e.Key > k:
			return 1
		}
		return 0
	})
	if !found {
		return nil
	}
	// BinarySearchFunc lands on the first of an equal run
	last := first
	for last < len(b.entries) && b.entries[last].Key == key {
		last++
	}
	return b.entries[first:last]
}

// Pick chooses one entry under the given policy. rng may be nil for
// SelectBest; SelectWeighted with a nil rng uses the global source.
func Pick(entries []Entry, policy SelectionPolicy, rng *rand.Rand) (Entry, bool) {
	if len(entries) == 0 {
		return Entry{}, false
	}

	if policy == SelectBest {
		best := entries[0]
		for _, e := range entries[1:] {
			if e.Weight > best.Weight {
				best = e
			}
		}
		return best, true
	}

	var total int
	for _, e := range entries {
		total += int(e.Weight)
	}
	if total == 0 {
		return entries[0], true
	}
	var draw int
	if rng != nil {
		draw = rng.Intn(total)
	} else {
		draw = rand.Intn(total)
	}
	for _, e := range entries {
		draw -= int(e.Weight)
		if draw < 0 {
			return e, true
		}
	}
	return entries[len(entries)-1], true
}

// UCI decodes the packed move into coordinate notation. Polyglot encodes
// castling as king-takes-rook (e1h1); the caller maps that onto its own
// castling encoding when matching legal moves.
func (e Entry) UCI() string {
	toFile := e.Move & 0x7
	toRank := (e.Move >> 3) & 0x7
	fromFile := (e.Move >> 6) & 0x7
	fromRank := (e.Move >> 9) & 0x7
	promo := (e.Move >> 12) & 0x7

	s := fmt.Sprintf("%c%d%c%d", 'a'+byte(fromFile), fromRank+1, 'a'+byte(toFile), toRank+1)
	if promo > 0 && promo <= 4 {
		s += string("nbrq"[promo-1])
	}
	return s
}

// castleAliases maps Polyglot king-takes-rook castling notation onto the
// conventional king-two-squares encoding.
var castleAliases = map[string]string{
	"e1h1": "e1g1", "e1a1": "e1c1",
	"e8h8": "e8g8", "e8a8": "e8c8",
}

// BoardMove resolves a book entry against the actual legal moves of a
// position. Entries that do not correspond to a legal move are ignored.
func (e Entry) BoardMove(b *dragontoothmg.Board) (dragontoothmg.Move, bool) {
	want := e.UCI()
	if alias, ok := castleAliases[want]; ok {
		// Only a king move can be castling; a rook capture on h1 from e1
		// stays as written.
		kingBit := uint64(1) << 4
		if !b.Wtomove {
			kingBit = uint64(1) << 60
		}
		if (b.White.Kings|b.Black.Kings)&kingBit != 0 {
			want = alias
		}
	}
	for _, m := range b.GenerateLegalMoves() {
		if m.String() == want {
			return m, true
		}
	}
	return 0, false
}
