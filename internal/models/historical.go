package models

// HistoricalAllocationCount is one row of the historical allocation feed.
type HistoricalAllocationCount struct {
	DisciplineCode string `db:"discipline_code" json:"discipline_code"`
	RoomID         string `db:"room_id" json:"room_id"`
	Count          int    `db:"allocation_count" json:"allocation_count"`
}

// HistoricalCounts indexes prior-semester allocations by discipline then room.
type HistoricalCounts map[string]map[string]int

// NewHistoricalCounts builds the index from feed rows, summing duplicates.
func NewHistoricalCounts(rows []HistoricalAllocationCount) HistoricalCounts {
	counts := make(HistoricalCounts)
	for _, row := range rows {
		if counts[row.DisciplineCode] == nil {
			counts[row.DisciplineCode] = make(map[string]int)
		}
		counts[row.DisciplineCode][row.RoomID] += row.Count
	}
	return counts
}

// Count returns how often the discipline used the room before.
func (h HistoricalCounts) Count(disciplineCode, roomID string) int {
	if h == nil {
		return 0
	}
	return h[disciplineCode][roomID]
}
