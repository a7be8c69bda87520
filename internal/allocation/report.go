package allocation

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/noah-isme/room-allocation-api/internal/models"
)

const (
	scoreBucketWidth = 5
	topRoomsLimit    = 5
)

// RecordFilter narrows a decision log.
type RecordFilter struct {
	DisciplineCode string
	Allocated      *bool
}

// Filter returns the records matching every set field, in log order.
func Filter(records []models.AllocationRecord, filter RecordFilter) []models.AllocationRecord {
	out := make([]models.AllocationRecord, 0, len(records))
	for _, rec := range records {
		if filter.DisciplineCode != "" && rec.DisciplineCode != filter.DisciplineCode {
			continue
		}
		if filter.Allocated != nil && rec.Allocated != *filter.Allocated {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// BuildReport derives aggregates by scanning the records. Score statistics cover
// allocated records only.
func BuildReport(records []models.AllocationRecord, disciplineCode string) models.DecisionReport {
	report := models.DecisionReport{
		DisciplineCode:     disciplineCode,
		PhaseDistribution:  make(map[models.AllocationPhase]int),
		ReasonDistribution: make(map[string]int),
		TopRooms:           []models.RoomUsage{},
	}

	var scores []float64
	roomCounts := make(map[string]int)
	for _, rec := range Filter(records, RecordFilter{DisciplineCode: disciplineCode}) {
		report.Total++
		report.PhaseDistribution[rec.Phase]++
		report.ReasonDistribution[rec.Reason]++
		if !rec.Allocated {
			report.Unallocated++
			continue
		}
		report.Allocated++
		scores = append(scores, float64(rec.Score.Total))
		roomCounts[rec.Room()]++
	}
	if report.Total > 0 {
		report.SuccessRate = float64(report.Allocated) / float64(report.Total)
	}
	report.Scores = scoreStatistics(scores)

	for roomID, count := range roomCounts {
		report.TopRooms = append(report.TopRooms, models.RoomUsage{RoomID: roomID, Allocations: count})
	}
	sort.Slice(report.TopRooms, func(i, j int) bool {
		a, b := report.TopRooms[i], report.TopRooms[j]
		if a.Allocations != b.Allocations {
			return a.Allocations > b.Allocations
		}
		return a.RoomID < b.RoomID
	})
	if len(report.TopRooms) > topRoomsLimit {
		report.TopRooms = report.TopRooms[:topRoomsLimit]
	}
	return report
}

func scoreStatistics(scores []float64) models.ScoreStatistics {
	result := models.ScoreStatistics{Count: len(scores), Buckets: []models.ScoreBucket{}}
	if len(scores) == 0 {
		return result
	}
	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)

	result.Min = sorted[0]
	result.Max = sorted[len(sorted)-1]
	result.Mean = stat.Mean(sorted, nil)
	if len(sorted) > 1 {
		result.StdDev = stat.StdDev(sorted, nil)
	}
	result.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)

	buckets := make(map[int]int)
	for _, v := range sorted {
		from := (int(v) / scoreBucketWidth) * scoreBucketWidth
		buckets[from]++
	}
	for from, count := range buckets {
		result.Buckets = append(result.Buckets, models.ScoreBucket{From: from, To: from + scoreBucketWidth, Count: count})
	}
	sort.Slice(result.Buckets, func(i, j int) bool { return result.Buckets[i].From < result.Buckets[j].From })
	return result
}
