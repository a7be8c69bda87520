package models

// ScoreStatistics summarises scores of allocated records.
type ScoreStatistics struct {
	Count   int           `json:"count"`
	Min     float64       `json:"min"`
	Max     float64       `json:"max"`
	Mean    float64       `json:"mean"`
	StdDev  float64       `json:"std_dev"`
	Median  float64       `json:"median"`
	Buckets []ScoreBucket `json:"buckets"`
}

// ScoreBucket counts allocated records whose total score falls in [From, To).
type ScoreBucket struct {
	From  int `json:"from"`
	To    int `json:"to"`
	Count int `json:"count"`
}

// RoomUsage counts allocations per room.
type RoomUsage struct {
	RoomID      string `json:"room_id"`
	Allocations int    `json:"allocations"`
}

// DecisionReport aggregates a decision log, optionally filtered by discipline.
type DecisionReport struct {
	DisciplineCode     string                  `json:"discipline_code,omitempty"`
	Total              int                     `json:"total"`
	Allocated          int                     `json:"allocated"`
	Unallocated        int                     `json:"unallocated"`
	SuccessRate        float64                 `json:"success_rate"`
	Scores             ScoreStatistics         `json:"scores"`
	PhaseDistribution  map[AllocationPhase]int `json:"phase_distribution"`
	ReasonDistribution map[string]int          `json:"reason_distribution"`
	TopRooms           []RoomUsage             `json:"top_rooms"`
}
