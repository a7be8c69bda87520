package dto

import (
	"time"

	"github.com/noah-isme/room-allocation-api/internal/models"
	"github.com/noah-isme/room-allocation-api/pkg/timeblock"
)

// RunAllocationRequest starts allocation for one or more semesters.
type RunAllocationRequest struct {
	SemesterID  string   `json:"semesterId" validate:"required_without=SemesterIDs,max=32"`
	SemesterIDs []string `json:"semesterIds" validate:"omitempty,max=16,dive,required,max=32"`
	Async       bool     `json:"async"`
	Persist     *bool    `json:"persist"`
}

// Semesters returns the requested semesters de-duplicated, single id first.
func (r RunAllocationRequest) Semesters() []string {
	seen := make(map[string]struct{}, len(r.SemesterIDs)+1)
	out := make([]string, 0, len(r.SemesterIDs)+1)
	for _, id := range append([]string{r.SemesterID}, r.SemesterIDs...) {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// RunSummary describes one semester run.
type RunSummary struct {
	RunID            string                     `json:"runId"`
	SemesterID       string                     `json:"semesterId"`
	Status           models.AllocationRunStatus `json:"status"`
	ConfigVersion    int64                      `json:"configVersion"`
	DemandCount      int                        `json:"demandCount"`
	AllocatedCount   int                        `json:"allocatedCount"`
	UnallocatedCount int                        `json:"unallocatedCount"`
	SuccessRate      float64                    `json:"successRate"`
	AbortReason      string                     `json:"abortReason,omitempty"`
	Persisted        bool                       `json:"persisted"`
	StartedAt        time.Time                  `json:"startedAt"`
	FinishedAt       *time.Time                 `json:"finishedAt,omitempty"`
}

// RunAllocationResponse lists the runs started by one request.
type RunAllocationResponse struct {
	Async bool         `json:"async"`
	Runs  []RunSummary `json:"runs"`
}

// AllocationRunQuery filters run listings.
type AllocationRunQuery struct {
	SemesterID string `form:"semesterId" validate:"omitempty,max=32"`
	Status     string `form:"status" validate:"omitempty,oneof=RUNNING COMPLETED ABORTED"`
	Page       int    `form:"page" validate:"omitempty,min=1"`
	PageSize   int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// DecisionQuery filters a run's decision log.
type DecisionQuery struct {
	DisciplineCode string `form:"disciplineCode" validate:"omitempty,max=32"`
	Allocated      *bool  `form:"allocated"`
}

// Export formats for decision logs.
const (
	ExportFormatJSON = "json"
	ExportFormatCSV  = "csv"
	ExportFormatPDF  = "pdf"
)

// ExportQuery selects the decision log export format.
type ExportQuery struct {
	Format         string `form:"format" validate:"omitempty,oneof=json csv pdf"`
	DisciplineCode string `form:"disciplineCode" validate:"omitempty,max=32"`
}

// DecodeScheduleRequest carries a raw schedule string.
type DecodeScheduleRequest struct {
	Schedule string `json:"schedule" validate:"required,max=256"`
}

// DecodeScheduleResponse is the decoded form of a raw schedule.
type DecodeScheduleResponse struct {
	Schedule  string            `json:"schedule"`
	Canonical string            `json:"canonical"`
	Codes     []string          `json:"codes"`
	Blocks    []timeblock.Block `json:"blocks"`
}

// CandidatePreview is one scored room in a demand preview.
type CandidatePreview struct {
	RoomID               string                  `json:"roomId"`
	Capacity             int                     `json:"capacity"`
	Eligible             bool                    `json:"eligible"`
	FailedRules          []string                `json:"failedRules,omitempty"`
	Score                models.ScoringBreakdown `json:"score"`
	HistoricalCount      int                     `json:"historicalCount"`
	PreferencesSatisfied []string                `json:"preferencesSatisfied,omitempty"`
}

// CandidatePreviewResponse lists every room scored for one demand.
type CandidatePreviewResponse struct {
	DemandID       string             `json:"demandId"`
	SemesterID     string             `json:"semesterId"`
	DisciplineCode string             `json:"disciplineCode"`
	Enrollment     int                `json:"enrollment"`
	Priority       int                `json:"priority"`
	ConfigVersion  int64              `json:"configVersion"`
	TimeBlocks     []string           `json:"timeBlocks"`
	Rules          []string           `json:"rules"`
	Candidates     []CandidatePreview `json:"candidates"`
}

// ExportFile is an in-memory export ready to stream.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}
