package main

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestTrackerKeepsBestAndLogs(t *testing.T) {
	pv := NewParamVector()
	path := filepath.Join(t.TempDir(), "log.csv")
	tr, err := newTracker(path, pv, 3, 2)
	if err != nil {
		t.Fatalf("newTracker failed: %v", err)
	}

	if _, ok := tr.Best(); ok {
		t.Fatal("fresh tracker reports a best result")
	}

	vals := func(v float64) []float64 {
		out := make([]float64, pv.Dim())
		for i := range out {
			out[i] = v
		}
		return out
	}
	tr.Record(vals(1), 0.5, Summary{Fitness: 0.5, MeanPrevalence: 0.1})
	tr.Record(vals(2), failedFitness, Summary{Fitness: failedFitness})
	tr.Record(vals(3), 0.2, Summary{Fitness: 0.2, MeanPrevalence: 0.14})
	if err := tr.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	best, ok := tr.Best()
	if !ok {
		t.Fatal("no best result")
	}
	if best.summary.Fitness != 0.2 || best.params[0] != 3 {
		t.Errorf("best = %+v, want the 0.2 evaluation", best)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want header + 3", len(rows))
	}
	if want := 5 + pv.Dim(); len(rows[0]) != want {
		t.Errorf("header has %d columns, want %d", len(rows[0]), want)
	}
	if rows[0][5] != pv.Specs[0].Name {
		t.Errorf("first param column = %q, want %q", rows[0][5], pv.Specs[0].Name)
	}
}

func TestTrackerFailuresNeverBest(t *testing.T) {
	tr, err := newTracker(filepath.Join(t.TempDir(), "log.csv"), NewParamVector(), 1, 1)
	if err != nil {
		t.Fatalf("newTracker failed: %v", err)
	}
	defer tr.Close()

	tr.Record(make([]float64, NewParamVector().Dim()), failedFitness, Summary{Fitness: failedFitness})
	if _, ok := tr.Best(); ok {
		t.Error("a failed evaluation became the best")
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0m00s"},
		{95 * time.Second, "1m35s"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1h02m03s"},
		{1500 * time.Millisecond, "0m02s"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := formatDuration(tt.d); got != tt.want {
				t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
			}
		})
	}
}
