package allocation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/room-allocation-api/internal/models"
	"github.com/noah-isme/room-allocation-api/pkg/timeblock"
)

const (
	defaultTopCandidates = 3
	defaultSemesterLimit = 4
)

// Observer is notified about decisions and finished runs. Implementations must be
// safe for concurrent use since semesters run in parallel.
type Observer interface {
	ObserveDecision(rec models.AllocationRecord)
	ObserveRun(semesterID string, status models.AllocationRunStatus, elapsed time.Duration)
}

// Options tunes an Engine.
type Options struct {
	// TopCandidates is how many evaluated candidates a record keeps.
	TopCandidates int
	// SemesterLimit caps concurrent semesters in RunSemesters.
	SemesterLimit int
	Sink          DecisionSink
	Logger        *zap.Logger
	Observer      Observer
}

// Engine allocates rooms to demands. It performs no I/O beyond its sink.
type Engine struct {
	topCandidates int
	semesterLimit int
	sink          DecisionSink
	logger        *zap.Logger
	observer      Observer
}

// NewEngine constructs an engine with defaults for unset options.
func NewEngine(opts Options) *Engine {
	if opts.TopCandidates <= 0 {
		opts.TopCandidates = defaultTopCandidates
	}
	if opts.SemesterLimit <= 0 {
		opts.SemesterLimit = defaultSemesterLimit
	}
	if opts.Sink == nil {
		opts.Sink = NopSink{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Engine{
		topCandidates: opts.TopCandidates,
		semesterLimit: opts.SemesterLimit,
		sink:          opts.Sink,
		logger:        opts.Logger,
		observer:      opts.Observer,
	}
}

// ReferenceData is everything a run reads besides the demands. Nil HardRules or
// Preferences mean the feed was never loaded; empty slices are valid.
type ReferenceData struct {
	Rooms       []models.Room
	HardRules   []models.HardRule
	Preferences []models.Preference
	Historical  models.HistoricalCounts
}

// Validate checks the reference data before any demand is processed.
func (r ReferenceData) Validate() error {
	if len(r.Rooms) == 0 {
		return fmt.Errorf("%w: room catalogue is empty", ErrMissingReferenceData)
	}
	if r.HardRules == nil {
		return fmt.Errorf("%w: hard rules not loaded", ErrMissingReferenceData)
	}
	if r.Preferences == nil {
		return fmt.Errorf("%w: professor preferences not loaded", ErrMissingReferenceData)
	}
	seen := make(map[string]struct{}, len(r.Rooms))
	for _, room := range r.Rooms {
		if room.ID == "" {
			return fmt.Errorf("%w: room without id", ErrInvalidReferenceData)
		}
		if _, dup := seen[room.ID]; dup {
			return fmt.Errorf("%w: duplicate room %s", ErrInvalidReferenceData, room.ID)
		}
		seen[room.ID] = struct{}{}
	}
	for _, rule := range r.HardRules {
		if err := validateHardRule(rule); err != nil {
			return err
		}
	}
	return nil
}

// SemesterInput is one semester's demand set plus its reference data.
type SemesterInput struct {
	SemesterID string
	Demands    []models.Demand
	Reference  ReferenceData
}

// Result is a completed run.
type Result struct {
	SemesterID    string
	ConfigVersion int64
	Records       []models.AllocationRecord
	Allocated     int
	Index         *ConflictIndex
}

// Report aggregates the run's records.
func (r *Result) Report(disciplineCode string) models.DecisionReport {
	return BuildReport(r.Records, disciplineCode)
}

// Run allocates one semester using the given configuration snapshot. Fatal
// conditions return a *RunError holding the records produced so far.
func (e *Engine) Run(ctx context.Context, cfg models.ScoringConfig, in SemesterInput) (*Result, error) {
	started := time.Now()
	log := NewDecisionLog(e.sink, e.logger)

	abort := func(processed int, err error) (*Result, error) {
		e.logger.Warn("allocation run aborted",
			zap.String("semester_id", in.SemesterID),
			zap.Int("processed", processed),
			zap.Error(err),
		)
		e.observeRun(in.SemesterID, models.AllocationRunStatusAborted, time.Since(started))
		return nil, &RunError{SemesterID: in.SemesterID, Processed: processed, Records: log.Records(), Err: err}
	}

	if err := in.Reference.Validate(); err != nil {
		return abort(0, err)
	}

	index := NewConflictIndex(in.SemesterID)
	scorer := NewScorer(cfg)
	queue := Prioritize(in.Demands, in.Reference.HardRules, in.Reference.Preferences, cfg.Weights)

	allocated := 0
	for i, item := range queue {
		if err := ctx.Err(); err != nil {
			return abort(i, err)
		}
		rec, err := e.allocate(scorer, index, item, in)
		if err != nil {
			return abort(i, err)
		}
		rec = log.Append(ctx, rec)
		if rec.Allocated {
			allocated++
		}
		if e.observer != nil {
			e.observer.ObserveDecision(rec)
		}
	}

	e.logger.Info("allocation run completed",
		zap.String("semester_id", in.SemesterID),
		zap.Int64("config_version", cfg.Version),
		zap.Int("demands", len(queue)),
		zap.Int("allocated", allocated),
		zap.Duration("elapsed", time.Since(started)),
	)
	e.observeRun(in.SemesterID, models.AllocationRunStatusCompleted, time.Since(started))

	return &Result{
		SemesterID:    in.SemesterID,
		ConfigVersion: cfg.Version,
		Records:       log.Records(),
		Allocated:     allocated,
		Index:         index,
	}, nil
}

func (e *Engine) observeRun(semesterID string, status models.AllocationRunStatus, elapsed time.Duration) {
	if e.observer != nil {
		e.observer.ObserveRun(semesterID, status, elapsed)
	}
}

func (e *Engine) allocate(scorer Scorer, index *ConflictIndex, item PrioritizedDemand, in SemesterInput) (models.AllocationRecord, error) {
	demand := item.Demand
	rec := models.AllocationRecord{
		DemandID:       demand.ID,
		SemesterID:     in.SemesterID,
		DisciplineCode: demand.DisciplineCode,
		DisciplineName: demand.DisciplineName,
		Section:        demand.Section,
		Priority:       item.Priority,
	}

	blocks, err := timeblock.Decode(demand.RawSchedule)
	if err != nil {
		rec.Phase = models.PhaseScheduleDecode
		rec.Reason = models.ReasonScheduleDecode
		return rec, nil
	}
	rec.TimeBlocks = blocks.Strings()

	filtered := EvaluateHardRules(item.Rules, in.Reference.Rooms)
	if len(filtered.Eligible) == 0 {
		rec.Phase = models.PhaseHardRuleFilter
		rec.Reason = models.ReasonNoEligibleRooms
		return rec, nil
	}
	rec.RulesSatisfied = filtered.Satisfied

	ranked := scorer.Rank(demand, filtered.Eligible, item.Preferences, in.Reference.Historical, len(item.Rules) > 0)
	selection, err := index.TryCommit(demand.ID, blocks, ranked)
	if err != nil {
		return rec, err
	}

	conflicts := make(map[string][]timeblock.Block, len(selection.Evaluated))
	for _, ev := range selection.Evaluated {
		if len(ev.Conflicts) > 0 {
			conflicts[ev.Candidate.Room.ID] = ev.Conflicts
			rec.ConflictsSeen++
		}
	}
	rec.Candidates = e.traces(ranked, conflicts)

	if selection.Chosen == nil {
		rec.Phase = models.PhaseConflictCheck
		rec.Reason = models.ReasonAllCandidatesClash
		return rec, nil
	}

	chosen := selection.Chosen
	roomID := chosen.Room.ID
	rec.Allocated = true
	rec.RoomID = &roomID
	rec.Phase = models.PhaseCommitted
	rec.Score = chosen.Score
	rec.PreferencesSatisfied = chosen.Preferences
	rec.HistoricalCount = chosen.HistoricalCount
	rec.Reason = models.ReasonAllocated
	return rec, nil
}

func (e *Engine) traces(ranked []Candidate, conflicts map[string][]timeblock.Block) []models.CandidateTrace {
	limit := e.topCandidates
	if len(ranked) < limit {
		limit = len(ranked)
	}
	out := make([]models.CandidateTrace, 0, limit)
	for _, c := range ranked[:limit] {
		trace := models.CandidateTrace{
			RoomID:          c.Room.ID,
			Capacity:        c.Room.Capacity,
			Score:           c.Score,
			HistoricalCount: c.HistoricalCount,
		}
		if clash := conflicts[c.Room.ID]; len(clash) > 0 {
			trace.ConflictingBlocks = timeblock.Set(clash).Strings()
		}
		out = append(out, trace)
	}
	return out
}

// SemesterOutcome is the result of one semester in RunSemesters.
type SemesterOutcome struct {
	SemesterID string
	Result     *Result
	Err        error
}

// RunSemesters allocates independent semesters concurrently, each with its own
// conflict index. A failing semester does not stop the others. Outcomes keep the
// input order.
func (e *Engine) RunSemesters(ctx context.Context, cfg models.ScoringConfig, inputs []SemesterInput) ([]SemesterOutcome, error) {
	seen := make(map[string]struct{}, len(inputs))
	for _, in := range inputs {
		if _, dup := seen[in.SemesterID]; dup {
			return nil, fmt.Errorf("semester %s submitted twice", in.SemesterID)
		}
		seen[in.SemesterID] = struct{}{}
	}

	outcomes := make([]SemesterOutcome, len(inputs))
	var g errgroup.Group
	g.SetLimit(e.semesterLimit)
	for i := range inputs {
		i := i
		g.Go(func() error {
			result, err := e.Run(ctx, cfg, inputs[i])
			outcomes[i] = SemesterOutcome{SemesterID: inputs[i].SemesterID, Result: result, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes, nil
}

// PreviewCandidate is a room scored for a demand without committing anything.
type PreviewCandidate struct {
	Candidate
	PassedHardRules bool
	FailedRules     []string
}

// Preview is the diagnostic view of how a demand would be scored.
type Preview struct {
	Demand     models.Demand
	Priority   int
	Blocks     timeblock.Set
	Rules      []models.HardRule
	Candidates []PreviewCandidate
}

// Preview scores every room for one demand, including rooms removed by hard
// rules. Rooms that pass come first, each group in ranking order.
func (e *Engine) Preview(cfg models.ScoringConfig, demand models.Demand, ref ReferenceData) (*Preview, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	blocks, err := timeblock.Decode(demand.RawSchedule)
	if err != nil {
		return nil, err
	}
	queue := Prioritize([]models.Demand{demand}, ref.HardRules, ref.Preferences, cfg.Weights)
	item := queue[0]
	scorer := NewScorer(cfg)

	var passed, failed []Candidate
	failures := make(map[string][]string)
	for _, room := range ref.Rooms {
		failedRules := FailedRules(item.Rules, room)
		candidate := scorer.Score(ScoreInput{
			Demand:          demand,
			Room:            room,
			Preferences:     item.Preferences,
			HistoricalCount: ref.Historical.Count(demand.DisciplineCode, room.ID),
			HasHardRules:    len(item.Rules) > 0,
			PassedHardRules: len(failedRules) == 0,
		})
		if len(failedRules) == 0 {
			passed = append(passed, candidate)
			continue
		}
		failures[room.ID] = failedRules
		failed = append(failed, candidate)
	}
	SortCandidates(passed, demand.Enrollment)
	SortCandidates(failed, demand.Enrollment)

	preview := &Preview{Demand: demand, Priority: item.Priority, Blocks: blocks, Rules: item.Rules}
	for _, c := range passed {
		preview.Candidates = append(preview.Candidates, PreviewCandidate{Candidate: c, PassedHardRules: true})
	}
	for _, c := range failed {
		preview.Candidates = append(preview.Candidates, PreviewCandidate{Candidate: c, FailedRules: failures[c.Room.ID]})
	}
	return preview, nil
}
