package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// AllocationPhase is the last engine phase a demand reached.
type AllocationPhase string

const (
	PhaseScheduleDecode AllocationPhase = "schedule_decode"
	PhaseHardRuleFilter AllocationPhase = "hard_rule_filter"
	PhaseConflictCheck  AllocationPhase = "conflict_check"
	PhaseCommitted      AllocationPhase = "committed"
)

// Reasons recorded for every outcome.
const (
	ReasonAllocated          = "allocated"
	ReasonScheduleDecode     = "schedule decode failed"
	ReasonNoEligibleRooms    = "no eligible rooms after hard-rule filtering"
	ReasonAllCandidatesClash = "all candidates conflict"
)

// ScoringBreakdown is the per-candidate score split into its components.
type ScoringBreakdown struct {
	CapacityPoints       int `json:"capacity_points"`
	HardRulePoints       int `json:"hard_rule_points"`
	SoftPreferencePoints int `json:"soft_preference_points"`
	HistoricalPoints     int `json:"historical_frequency_points"`
	Total                int `json:"total_score"`
}

// CandidateTrace captures one evaluated candidate room.
type CandidateTrace struct {
	RoomID            string           `json:"room_id"`
	Capacity          int              `json:"capacity"`
	Score             ScoringBreakdown `json:"score"`
	HistoricalCount   int              `json:"historical_count"`
	ConflictingBlocks []string         `json:"conflicting_blocks,omitempty"`
}

// AllocationRecord is the immutable outcome of processing one demand in a run.
type AllocationRecord struct {
	Sequence             int              `json:"sequence"`
	DemandID             string           `json:"demand_id"`
	SemesterID           string           `json:"semester_id"`
	DisciplineCode       string           `json:"discipline_code"`
	DisciplineName       string           `json:"discipline_name"`
	Section              string           `json:"section"`
	Priority             int              `json:"priority"`
	Allocated            bool             `json:"allocated"`
	RoomID               *string          `json:"room_id"`
	Phase                AllocationPhase  `json:"phase"`
	Score                ScoringBreakdown `json:"score"`
	TimeBlocks           []string         `json:"time_blocks,omitempty"`
	Candidates           []CandidateTrace `json:"candidates,omitempty"`
	RulesSatisfied       []string         `json:"rules_satisfied,omitempty"`
	PreferencesSatisfied []string         `json:"preferences_satisfied,omitempty"`
	ConflictsSeen        int              `json:"conflicts_seen"`
	HistoricalCount      int              `json:"historical_count"`
	Reason               string           `json:"reason"`
}

// Room returns the allocated room id or an empty string.
func (r AllocationRecord) Room() string {
	if r.RoomID == nil {
		return ""
	}
	return *r.RoomID
}

// FlatRecordHeaders lists the columns produced by Flatten.
var FlatRecordHeaders = []string{
	"sequence", "demand_id", "semester_id", "discipline_code", "discipline_name", "section",
	"priority", "allocated", "room_id", "phase", "total_score", "time_blocks",
	"conflicts_seen", "historical_count", "reason",
}

// Flatten renders the record as a flat string map for tabular exports.
func (r AllocationRecord) Flatten() map[string]string {
	return map[string]string{
		"sequence":         strconv.Itoa(r.Sequence),
		"demand_id":        r.DemandID,
		"semester_id":      r.SemesterID,
		"discipline_code":  r.DisciplineCode,
		"discipline_name":  r.DisciplineName,
		"section":          r.Section,
		"priority":         strconv.Itoa(r.Priority),
		"allocated":        strconv.FormatBool(r.Allocated),
		"room_id":          r.Room(),
		"phase":            string(r.Phase),
		"total_score":      strconv.Itoa(r.Score.Total),
		"time_blocks":      strings.Join(r.TimeBlocks, " "),
		"conflicts_seen":   strconv.Itoa(r.ConflictsSeen),
		"historical_count": strconv.Itoa(r.HistoricalCount),
		"reason":           r.Reason,
	}
}

// AllocationRunStatus tracks the lifecycle of a run.
type AllocationRunStatus string

const (
	AllocationRunStatusRunning   AllocationRunStatus = "RUNNING"
	AllocationRunStatusCompleted AllocationRunStatus = "COMPLETED"
	AllocationRunStatusAborted   AllocationRunStatus = "ABORTED"
)

// AllocationRun is the persisted header of one semester run.
type AllocationRun struct {
	ID             string              `db:"id" json:"id"`
	SemesterID     string              `db:"semester_id" json:"semester_id"`
	Status         AllocationRunStatus `db:"status" json:"status"`
	ConfigVersion  int64               `db:"config_version" json:"config_version"`
	ConfigSnapshot types.JSONText      `db:"config_snapshot" json:"config_snapshot,omitempty"`
	DemandCount    int                 `db:"demand_count" json:"demand_count"`
	AllocatedCount int                 `db:"allocated_count" json:"allocated_count"`
	AbortReason    *string             `db:"abort_reason" json:"abort_reason,omitempty"`
	StartedAt      time.Time           `db:"started_at" json:"started_at"`
	FinishedAt     *time.Time          `db:"finished_at" json:"finished_at,omitempty"`
}

// AllocationDecision is the stored row of one AllocationRecord.
type AllocationDecision struct {
	RunID          string         `db:"run_id" json:"run_id"`
	Sequence       int            `db:"sequence" json:"sequence"`
	DemandID       string         `db:"demand_id" json:"demand_id"`
	DisciplineCode string         `db:"discipline_code" json:"discipline_code"`
	Allocated      bool           `db:"allocated" json:"allocated"`
	RoomID         *string        `db:"room_id" json:"room_id,omitempty"`
	Record         types.JSONText `db:"record" json:"record"`
}

// RoomAllocation is a committed (room, block) occupation kept for the historical feed.
type RoomAllocation struct {
	ID             string `db:"id" json:"id"`
	RunID          string `db:"run_id" json:"run_id"`
	SemesterID     string `db:"semester_id" json:"semester_id"`
	DemandID       string `db:"demand_id" json:"demand_id"`
	DisciplineCode string `db:"discipline_code" json:"discipline_code"`
	RoomID         string `db:"room_id" json:"room_id"`
	TimeBlocks     string `db:"time_blocks" json:"time_blocks"`
}
