package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated epidemic statistics for a time window.
type WindowStats struct {
	WindowStartTick int32   `csv:"-"`
	WindowEndTick   int32   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Population at window end
	Hosts            int     `csv:"hosts"`
	InfectedHosts    int     `csv:"infected_hosts"`
	ActiveInfections int     `csv:"active_infections"`
	Prevalence       float64 `csv:"prevalence"` // infected hosts / hosts

	// Events during window
	NewInfections   int `csv:"new_infections"`
	Symptomatic     int `csv:"symptomatic"`
	StageAdvances   int `csv:"stage_advances"`
	Detections      int `csv:"detections"`
	ChronicHolds    int `csv:"chronic_holds"`
	Recoveries      int `csv:"recoveries"`
	Deaths          int `csv:"deaths"`
	ImmunityGranted int `csv:"immunity_granted"`
	Purged          int `csv:"purged"`

	// Treatment
	TreatmentsTried  int     `csv:"treatments_tried"`
	Cures            int     `csv:"cures"`
	Mitigations      int     `csv:"mitigations"`
	TreatmentsFailed int     `csv:"treatments_failed"`
	TreatmentSuccess float64 `csv:"treatment_success"`

	// Case duration for infections that ended this window, in seconds
	CaseDurationMean float64 `csv:"case_duration_mean"`
	CaseDurationP10  float64 `csv:"case_duration_p10"`
	CaseDurationP50  float64 `csv:"case_duration_p50"`
	CaseDurationP90  float64 `csv:"case_duration_p90"`

	// Mean secondary cases per closed case (a rough reproduction number)
	SecondaryCases float64 `csv:"secondary_cases"`

	// Per-disease active infections at window end, keyed by name
	Census map[string]int `csv:"-"`
}

// Quantile returns the empirical p-quantile of sorted values.
// p is clamped to [0, 1]. Returns 0 if the slice is empty.
func Quantile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	p = min(max(p, 0), 1)
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}

// ComputeDurationStats calculates mean and percentiles from case durations.
func ComputeDurationStats(values []float64) (mean, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0
	}

	mean = stat.Mean(values, nil)

	// Sort for percentiles
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	p10 = Quantile(sorted, 0.10)
	p50 = Quantile(sorted, 0.50)
	p90 = Quantile(sorted, 0.90)

	return mean, p10, p50, p90
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("hosts", s.Hosts),
		slog.Int("infected_hosts", s.InfectedHosts),
		slog.Int("active_infections", s.ActiveInfections),
		slog.Float64("prevalence", s.Prevalence),
		slog.Int("new_infections", s.NewInfections),
		slog.Int("recoveries", s.Recoveries),
		slog.Int("deaths", s.Deaths),
		slog.Int("cures", s.Cures),
		slog.Int("mitigations", s.Mitigations),
		slog.Int("treatments_failed", s.TreatmentsFailed),
		slog.Float64("case_duration_p50", s.CaseDurationP50),
		slog.Float64("secondary_cases", s.SecondaryCases),
	}
	if len(s.Census) > 0 {
		census := make([]slog.Attr, 0, len(s.Census))
		for _, name := range sortedKeys(s.Census) {
			census = append(census, slog.Int(name, s.Census[name]))
		}
		attrs = append(attrs, slog.Attr{Key: "census", Value: slog.GroupValue(census...)})
	}
	return slog.GroupValue(attrs...)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats", "window", s)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
