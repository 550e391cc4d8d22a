// Package game tracks the moves of one game: applying, undoing and redoing
// moves on top of the board library, with enough bookkeeping to guarantee the
// position after undo is bit-identical to what it was before the move.
package game

import (
	"fmt"
	"strings"

	"github.com/dylhunn/dragontoothmg"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type applied struct {
	move       dragontoothmg.Move
	unapply    func()
	hashBefore uint64
}

// Manager owns the live board of a single game session. It is not safe for
// concurrent use; one game, one goroutine.
type Manager struct {
	id    string
	board dragontoothmg.Board
	moves []applied
	redo  []dragontoothmg.Move
}

// NewManager starts a game from the standard initial position.
func NewManager() *Manager {
	m, err := NewManagerFromFEN(dragontoothmg.Startpos)
	if err != nil {
		panic(err) // the start position always parses
	}
	return m
}

// NewManagerFromFEN starts a game from an arbitrary position. The FEN is
// validated before handing it to the board library, which accepts anything.
func NewManagerFromFEN(fen string) (*Manager, error) {
	if err := validateFEN(fen); err != nil {
		return nil, err
	}
	return &Manager{
		id:    uuid.NewString(),
		board: dragontoothmg.ParseFen(fen),
	}, nil
}

func validateFEN(fen string) error {
	fields := strings.Fields(fen)
	if len(fields) < 4 {
		return errors.Errorf("game: FEN %q has %d fields, want at least 4", fen, len(fields))
	}
	ranks := strings.Split(fields[0], "/")
	if len(ranks) != 8 {
		return errors.Errorf("game: FEN %q has %d ranks, want 8", fen, len(ranks))
	}
	kings := map[rune]int{}
	for _, rank := range ranks {
		files := 0
		for _, c := range rank {
			switch {
			case c >= '1' && c <= '8':
				files += int(c - '0')
			case strings.ContainsRune("pnbrqkPNBRQK", c):
				files++
				if c == 'k' || c == 'K' {
					kings[c]++
				}
			default:
				return errors.Errorf("game: FEN %q has bad piece char %q", fen, c)
			}
		}
		if files != 8 {
			return errors.Errorf("game: FEN %q has a rank of width %d, want 8", fen, files)
		}
	}
	if kings['K'] != 1 || kings['k'] != 1 {
		return errors.Errorf("game: FEN %q must have exactly one king per side", fen)
	}
	if fields[1] != "w" && fields[1] != "b" {
		return errors.Errorf("game: FEN %q has bad side to move %q", fen, fields[1])
	}
	return nil
}

func (m *Manager) ID() string { return m.id }

// Board returns the live position. Callers may read it but must route all
// mutation through Apply/Undo/Redo.
func (m *Manager) Board() *dragontoothmg.Board { return &m.board }

// Apply plays a move, which must be legal in the current position. Applying
// a new move discards any pending redo branch.
func (m *Manager) Apply(move dragontoothmg.Move) error {
	legal := false
	for _, lm := range m.board.GenerateLegalMoves() {
		if lm == move {
			legal = true
			break
		}
	}
	if !legal {
		return errors.Errorf("game: move %s is not legal in position %s", move.String(), m.board.ToFen())
	}

	hashBefore := m.board.Hash()
	unapply := m.board.Apply(move)
	m.moves = append(m.moves, applied{move: move, unapply: unapply, hashBefore: hashBefore})
	m.redo = m.redo[:0]
	return nil
}

// Undo reverses the most recent move. Returns false (and does nothing) when
// there is nothing to undo. Panics if the board does not return to its exact
// prior state: that is a board-library bug, not a game condition.
func (m *Manager) Undo() bool {
	if len(m.moves) == 0 {
		return false
	}
	last := m.moves[len(m.moves)-1]
	m.moves = m.moves[:len(m.moves)-1]
	last.unapply()
	if m.board.Hash() != last.hashBefore {
		panic(fmt.Sprintf("game: hash mismatch after undo of %s: got %x, want %x",
			last.move.String(), m.board.Hash(), last.hashBefore))
	}
	m.redo = append(m.redo, last.move)
	return true
}

// Redo replays the most recently undone move, if the redo branch is intact.
func (m *Manager) Redo() bool {
	if len(m.redo) == 0 {
		return false
	}
	move := m.redo[len(m.redo)-1]
	m.redo = m.redo[:len(m.redo)-1]

	hashBefore := m.board.Hash()
	unapply := m.board.Apply(move)
	m.moves = append(m.moves, applied{move: move, unapply: unapply, hashBefore: hashBefore})
	return true
}

// MoveCount returns the number of applied (not undone) moves.
func (m *Manager) MoveCount() int { return len(m.moves) }

// Hashes returns the position hashes from game start through the current
// position, oldest first. Used for repetition detection by the search.
func (m *Manager) Hashes() []uint64 {
	out := make([]uint64, 0, len(m.moves)+1)
	for _, a := range m.moves {
		out = append(out, a.hashBefore)
	}
	out = append(out, m.board.Hash())
	return out
}
