package engine

import (
	"fmt"
	"unsafe"

	"github.com/dustin/go-humanize"
	"github.com/dylhunn/dragontoothmg"
)

const (
	// Flags
	NoFlag    int8 = iota
	AlphaFlag      // upper bound: real score <= stored score
	BetaFlag       // lower bound: real score >= stored score
	ExactFlag

	// Default table size in MB
	DefaultTTSize = 64
	clusterSize   = 4

	// Entries whose generation lags the table by this much are fair game
	// for replacement regardless of depth.
	staleGenerations = 2

	// Unusable score
	UnusableScore int16 = -32750
)

type TransTable struct {
	entries      []TTEntry
	clusterCount uint64
	generation   uint8

	hits    uint64
	misses  uint64
	writes  uint64
	rejects uint64
}

type TTEntry struct {
	Hash  uint64
	Depth int8
	Move  dragontoothmg.Move
	Score int16
	Flag  int8
	Gen   uint8
}

// NewTransTable allocates a table of roughly sizeMB megabytes, rounded down
// to a power-of-two cluster count so indexing can mask instead of mod.
func NewTransTable(sizeMB int) *TransTable {
	if sizeMB <= 0 {
		sizeMB = DefaultTTSize
	}
	entrySize := uint64(unsafe.Sizeof(TTEntry{}))
	totalBytes := uint64(sizeMB) * 1024 * 1024
	clusterCount := totalBytes / (entrySize * clusterSize)

	// Round down to power of two
	pow := uint64(1)
	for pow<<1 <= clusterCount {
		pow <<= 1
	}

	return &TransTable{
		entries:      make([]TTEntry, pow*clusterSize),
		clusterCount: pow,
	}
}

// NextGeneration marks the start of a new search session. Older entries
// become progressively easier to evict.
func (tt *TransTable) NextGeneration() {
	tt.generation++
}

func (tt *TransTable) Clear() {
	for i := range tt.entries {
		tt.entries[i] = TTEntry{}
	}
	tt.generation = 0
	tt.hits, tt.misses, tt.writes, tt.rejects = 0, 0, 0, 0
}

// Probe returns the entry stored for hash, if any. A cluster slot whose full
// hash differs is a miss, never a silent collision hit.
func (tt *TransTable) Probe(hash uint64) (TTEntry, bool) {
	base := int((hash & (tt.clusterCount - 1)) * clusterSize)
	for i := 0; i < clusterSize; i++ {
		e := &tt.entries[base+i]
		if e.Flag != NoFlag && e.Hash == hash {
			tt.hits++
			return *e, true
		}
	}
	tt.misses++
	return TTEntry{}, false
}

/*
useEntry decides whether a probed entry can short-circuit the current node.
Exact entries at sufficient depth are returned as-is; alpha/beta-bound entries
only count when they fall outside the current window. Mate scores were stored
relative to the storing node, so re-anchor them to the probing ply.
*/
func (tt *TransTable) useEntry(e TTEntry, depth int8, alpha, beta int32, ply int8) (bool, int32) {
	if e.Depth < depth {
		return false, int32(UnusableScore)
	}
	score := int32(e.Score)
	if score > Checkmate {
		score -= int32(ply)
	} else if score < -Checkmate {
		score += int32(ply)
	}
	switch e.Flag {
	case ExactFlag:
		return true, score
	case AlphaFlag:
		if score <= alpha {
			return true, alpha
		}
	case BetaFlag:
		if score >= beta {
			return true, beta
		}
	}
	return false, int32(UnusableScore)
}

/*
Store writes an entry, replacing within the cluster by preference:
same-hash slot, then an empty slot, then any slot stale by generation,
then the shallowest slot - and that one only if our generation is newer
or our depth is at least as good. Contention overwrites are the defined
behavior, not an error.
*/
func (tt *TransTable) Store(hash uint64, depth int8, ply int8, move dragontoothmg.Move, score int16, flag int8) {
	base := int((hash & (tt.clusterCount - 1)) * clusterSize)

	// Mate scores are stored relative to the node that found them
	if score > int16(Checkmate) {
		score += int16(ply)
	} else if score < -int16(Checkmate) {
		score -= int16(ply)
	}

	targetIdx := -1
	for i := 0; i < clusterSize; i++ {
		idx := base + i
		if tt.entries[idx].Hash == hash {
			targetIdx = idx
			break
		}
	}

	if targetIdx == -1 {
		for i := 0; i < clusterSize; i++ {
			idx := base + i
			if tt.entries[idx].Flag == NoFlag {
				targetIdx = idx
				break
			}
		}
	}

	if targetIdx == -1 {
		for i := 0; i < clusterSize; i++ {
			idx := base + i
			if tt.generation-tt.entries[idx].Gen >= staleGenerations {
				targetIdx = idx
				break
			}
		}
	}

	if targetIdx == -1 {
		shallowest := base
		minDepth := tt.entries[base].Depth
		for i := 1; i < clusterSize; i++ {
			idx := base + i
			if tt.entries[idx].Depth < minDepth {
				minDepth = tt.entries[idx].Depth
				shallowest = idx
			}
		}
		old := &tt.entries[shallowest]
		if old.Gen == tt.generation && depth < old.Depth {
			tt.rejects++
			return
		}
		targetIdx = shallowest
	}

	tt.entries[targetIdx] = TTEntry{
		Hash:  hash,
		Depth: depth,
		Move:  move,
		Score: score,
		Flag:  flag,
		Gen:   tt.generation,
	}
	tt.writes++
}

// Stats returns a printable summary of table traffic.
func (tt *TransTable) Stats() string {
	return fmt.Sprintf("tt: %v hits, %v misses, %v writes, %v rejected",
		humanize.Comma(int64(tt.hits)), humanize.Comma(int64(tt.misses)),
		humanize.Comma(int64(tt.writes)), humanize.Comma(int64(tt.rejects)))
}
