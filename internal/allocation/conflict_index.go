package allocation

import (
	"fmt"
	"sync"

	"github.com/noah-isme/room-allocation-api/pkg/timeblock"
)

type slotKey struct {
	roomID string
	block  timeblock.Block
}

// ConflictIndex maps (room, block) to the demand occupying it for one semester.
// It only grows during a run.
type ConflictIndex struct {
	semesterID string

	mu       sync.Mutex
	occupied map[slotKey]string
}

// NewConflictIndex returns an empty index for the semester.
func NewConflictIndex(semesterID string) *ConflictIndex {
	return &ConflictIndex{
		semesterID: semesterID,
		occupied:   make(map[slotKey]string),
	}
}

// SemesterID returns the semester the index belongs to.
func (c *ConflictIndex) SemesterID() string {
	return c.semesterID
}

// Evaluation is one candidate walked by the conflict detector.
type Evaluation struct {
	Candidate Candidate
	Conflicts []timeblock.Block
}

// Selection is the outcome of TryCommit. Chosen is nil when every candidate clashed.
type Selection struct {
	Chosen    *Candidate
	Evaluated []Evaluation
}

// TryCommit walks the ranked candidates and commits the demand's blocks to the
// first room without overlaps. The check and the insert happen under one lock
// so no other demand can observe a half-updated index.
func (c *ConflictIndex) TryCommit(demandID string, blocks timeblock.Set, ranked []Candidate) (Selection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var selection Selection
	for i := range ranked {
		conflicts := c.conflictsLocked(ranked[i].Room.ID, blocks)
		selection.Evaluated = append(selection.Evaluated, Evaluation{Candidate: ranked[i], Conflicts: conflicts})
		if len(conflicts) > 0 {
			continue
		}
		if err := c.insertLocked(ranked[i].Room.ID, demandID, blocks); err != nil {
			return selection, err
		}
		chosen := ranked[i]
		selection.Chosen = &chosen
		return selection, nil
	}
	return selection, nil
}

// Conflicts returns the blocks of the set already occupied in the room.
func (c *ConflictIndex) Conflicts(roomID string, blocks timeblock.Set) []timeblock.Block {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conflictsLocked(roomID, blocks)
}

// Occupant returns the demand holding the room at the block.
func (c *ConflictIndex) Occupant(roomID string, block timeblock.Block) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	demandID, ok := c.occupied[slotKey{roomID: roomID, block: block}]
	return demandID, ok
}

// Len returns the number of occupied (room, block) pairs.
func (c *ConflictIndex) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.occupied)
}

func (c *ConflictIndex) conflictsLocked(roomID string, blocks timeblock.Set) []timeblock.Block {
	var conflicts []timeblock.Block
	for _, block := range blocks {
		if _, taken := c.occupied[slotKey{roomID: roomID, block: block}]; taken {
			conflicts = append(conflicts, block)
		}
	}
	return conflicts
}

func (c *ConflictIndex) insertLocked(roomID, demandID string, blocks timeblock.Set) error {
	for _, block := range blocks {
		key := slotKey{roomID: roomID, block: block}
		if holder, taken := c.occupied[key]; taken {
			return fmt.Errorf("%w: room %s block %s already held by %s while committing %s",
				ErrIndexCorruption, roomID, block, holder, demandID)
		}
	}
	for _, block := range blocks {
		c.occupied[slotKey{roomID: roomID, block: block}] = demandID
	}
	return nil
}
