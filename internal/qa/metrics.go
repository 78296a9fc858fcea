package qa

import (
	"math"
	"sort"
	"sync"

	"github.com/meridian-health/provider-qa/internal/model"
)

// Metrics is an explicit run-level accumulator the orchestrator folds over a
// batch. Scoring itself stays pure; only Observe mutates. Observe and Report
// hold the internal lock, so a batch writer and stats readers can share one
// accumulator.
type Metrics struct {
	mu sync.Mutex

	TotalProcessed int            `json:"total_processed"`
	AutoResolved   int            `json:"auto_resolved"`
	ManualReview   int            `json:"manual_review"`
	ErrorTypes     map[string]int `json:"error_types"`
}

// NewMetrics returns an empty accumulator.
func NewMetrics() *Metrics {
	return &Metrics{ErrorTypes: make(map[string]int)}
}

// Observe folds one scoring result into the accumulator: the processed and
// routing counters, plus a frequency count for every risk flag or conflict
// that fired.
func (m *Metrics) Observe(result model.QAResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TotalProcessed++
	if result.Action == model.ActionAutoResolve {
		m.AutoResolved++
	} else {
		m.ManualReview++
	}

	if m.ErrorTypes == nil {
		m.ErrorTypes = make(map[string]int)
	}
	for _, name := range result.RiskFlags.Active() {
		m.ErrorTypes[name]++
	}
	for _, name := range result.Conflicts.Active() {
		m.ErrorTypes[name]++
	}
}

// ErrorTypeCount is one entry in the ranked error-type list.
type ErrorTypeCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// KPIReport is the derived run-level quality view. The review-rate target
// band is 10-20% of processed records.
type KPIReport struct {
	TotalProcessed   int              `json:"total_processed"`
	ManualReviewRate float64          `json:"manual_review_rate"`
	AutoResolveRate  float64          `json:"auto_resolve_rate"`
	ManualReview     int              `json:"manual_review_count"`
	AutoResolved     int              `json:"auto_resolve_count"`
	TopErrorTypes    []ErrorTypeCount `json:"top_error_types"`
	TargetReviewRate string           `json:"target_review_rate"`
	WithinTarget     bool             `json:"within_target"`
}

// Report derives KPI rates and the top five error types. Returns the zero
// report when nothing has been processed.
func (m *Metrics) Report() KPIReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.TotalProcessed == 0 {
		return KPIReport{TargetReviewRate: "10-20%"}
	}

	reviewRate := roundRate(float64(m.ManualReview) / float64(m.TotalProcessed) * 100)
	resolveRate := roundRate(float64(m.AutoResolved) / float64(m.TotalProcessed) * 100)

	top := make([]ErrorTypeCount, 0, len(m.ErrorTypes))
	for name, count := range m.ErrorTypes {
		top = append(top, ErrorTypeCount{Name: name, Count: count})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return top[i].Name < top[j].Name
	})
	if len(top) > 5 {
		top = top[:5]
	}

	return KPIReport{
		TotalProcessed:   m.TotalProcessed,
		ManualReviewRate: reviewRate,
		AutoResolveRate:  resolveRate,
		ManualReview:     m.ManualReview,
		AutoResolved:     m.AutoResolved,
		TopErrorTypes:    top,
		TargetReviewRate: "10-20%",
		WithinTarget:     reviewRate >= 10 && reviewRate <= 20,
	}
}

func roundRate(v float64) float64 {
	return math.Round(v*10) / 10
}
