package engine

import (
	"time"
)

// TimeHandler enforces the per-move budget. The search polls Exceeded at
// bounded node intervals, so overrun is proportional to the poll interval.
type TimeHandler struct {
	deadline   time.Time
	unbounded  bool
	stopSearch bool
}

func (th *TimeHandler) Start(budget time.Duration) {
	th.stopSearch = false
	if budget <= 0 {
		th.unbounded = true
		return
	}
	th.unbounded = false
	th.deadline = time.Now().Add(budget)
}

func (th *TimeHandler) Exceeded() bool {
	if th.unbounded {
		return false
	}
	return !time.Now().Before(th.deadline)
}

// BudgetFromClock converts a game clock (remaining time plus increment, in
// milliseconds) into a single-move budget. Reserves a little headroom for
// transport jitter and never banks below the minimum.
func BudgetFromClock(remainingMs, incrementMs, moveNumber int) time.Duration {
	const (
		overheadMs    = 30
		minMoveMs     = 5
		maxFrac       = 0.7
		panicThreshMs = 1000
		panicFrac     = 0.90
	)

	movesLeft := estimateMovesRemaining(moveNumber)

	var moveTime int
	if incrementMs > 0 {
		if remainingMs < panicThreshMs {
			moveTime = int(float64(incrementMs) * panicFrac)
		} else {
			moveTime = remainingMs/movesLeft + incrementMs
		}
	} else {
		moveTime = remainingMs / 40
	}

	if moveTime > int(float64(remainingMs)*maxFrac) {
		moveTime = int(float64(remainingMs) * maxFrac)
	}
	if moveTime > remainingMs-overheadMs {
		moveTime = remainingMs - overheadMs
	}
	if moveTime < minMoveMs {
		moveTime = minMoveMs
	}

	return time.Duration(moveTime) * time.Millisecond
}

// Interpolate between 45 expected further moves in the opening and 20 late on.
func estimateMovesRemaining(moveNumber int) int {
	left := 45 - moveNumber/2
	if left < 20 {
		left = 20
	}
	return left
}
