package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"
)

// result is one scored parameter vector.
type result struct {
	params  []float64
	summary Summary
}

// tracker logs every evaluation to CSV and stdout and keeps the best.
type tracker struct {
	file   *os.File
	w      *csv.Writer
	params *ParamVector

	maxEvals int
	seeds    int
	count    int
	start    time.Time

	best    result
	hasBest bool
}

func newTracker(path string, params *ParamVector, maxEvals, seeds int) (*tracker, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating log file: %w", err)
	}
	t := &tracker{
		file:     f,
		w:        csv.NewWriter(f),
		params:   params,
		maxEvals: maxEvals,
		seeds:    seeds,
		start:    time.Now(),
	}

	header := []string{"eval", "fitness", "mean_prevalence", "deaths_per_host", "eradicated"}
	for _, spec := range params.Specs {
		header = append(header, spec.Name)
	}
	if err := t.w.Write(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing log header: %w", err)
	}
	return t, nil
}

// Record logs one evaluation of the clamped values.
func (t *tracker) Record(values []float64, fitness float64, s Summary) {
	t.count++
	if fitness < failedFitness && (!t.hasBest || fitness < t.best.summary.Fitness) {
		t.best = result{params: values, summary: s}
		t.hasBest = true
	}

	row := []string{
		strconv.Itoa(t.count),
		strconv.FormatFloat(fitness, 'f', 6, 64),
		strconv.FormatFloat(s.MeanPrevalence, 'f', 4, 64),
		strconv.FormatFloat(s.DeathsPerHost, 'f', 4, 64),
		strconv.Itoa(s.Eradicated),
	}
	for _, v := range values {
		row = append(row, strconv.FormatFloat(v, 'f', 6, 64))
	}
	t.w.Write(row)
	t.w.Flush()

	elapsed := time.Since(t.start)
	eta := time.Duration(t.maxEvals-t.count) * (elapsed / time.Duration(t.count))
	fmt.Printf("Eval %d/%d: prevalence=%.3f deaths/host=%.3f eradicated=%d/%d fitness=%.4f (best=%.4f) | elapsed: %s, ETA: %s\n",
		t.count, t.maxEvals, s.MeanPrevalence, s.DeathsPerHost, s.Eradicated, t.seeds,
		fitness, t.best.summary.Fitness, formatDuration(elapsed), formatDuration(eta))
}

// Best returns the lowest-fitness result, if any evaluation succeeded.
func (t *tracker) Best() (result, bool) {
	return t.best, t.hasBest
}

// PrintSummary prints the best result found so far.
func (t *tracker) PrintSummary() {
	fmt.Printf("\nCalibration complete after %d evaluations in %s\n", t.count, formatDuration(time.Since(t.start)))
	fmt.Printf("Best fitness: %.4f (prevalence %.3f, deaths/host %.3f)\n",
		t.best.summary.Fitness, t.best.summary.MeanPrevalence, t.best.summary.DeathsPerHost)
	fmt.Println("\nBest parameters:")
	for i, spec := range t.params.Specs {
		fmt.Printf("  %s: %.6f\n", spec.Path, t.best.params[i])
	}
}

// Close flushes the log and closes its file.
func (t *tracker) Close() error {
	t.w.Flush()
	if err := t.w.Error(); err != nil {
		t.file.Close()
		return err
	}
	return t.file.Close()
}

// formatDuration formats a duration as 1h02m03s, or 2m03s when under an hour.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}
