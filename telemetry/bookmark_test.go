package telemetry

import "testing"

func hasBookmark(bookmarks []Bookmark, typ BookmarkType) bool {
	for _, bm := range bookmarks {
		if bm.Type == typ {
			return true
		}
	}
	return false
}

func TestBookmarkDetector_OutbreakSurge(t *testing.T) {
	bd := NewBookmarkDetector(10)

	// Background trickle of infections
	for i := 0; i < 5; i++ {
		bd.Check(WindowStats{
			WindowEndTick: int32(i * 600),
			Hosts:         100,
			NewInfections: 2,
		})
	}

	surge := WindowStats{
		WindowEndTick: 3000,
		Hosts:         100,
		NewInfections: 12, // 6x the average
	}
	if !hasBookmark(bd.Check(surge), BookmarkOutbreakSurge) {
		t.Error("expected outbreak_surge bookmark")
	}
}

func TestBookmarkDetector_SmallSurgeIgnored(t *testing.T) {
	bd := NewBookmarkDetector(10)
	for i := 0; i < 5; i++ {
		bd.Check(WindowStats{WindowEndTick: int32(i * 600), NewInfections: 0})
	}

	// 3x nothing is still only 3 cases.
	if hasBookmark(bd.Check(WindowStats{WindowEndTick: 3000, NewInfections: 3}), BookmarkOutbreakSurge) {
		t.Error("unexpected outbreak_surge bookmark for a handful of cases")
	}
}

func TestBookmarkDetector_EpidemicPeak(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i, infected := range []int{5, 20, 40, 40} {
		bd.Check(WindowStats{
			WindowEndTick:    int32(i * 600),
			Hosts:            100,
			InfectedHosts:    infected,
			ActiveInfections: infected,
		})
	}

	falling := WindowStats{
		WindowEndTick:    2400,
		Hosts:            100,
		InfectedHosts:    20, // 50% down from peak
		ActiveInfections: 20,
	}
	if !hasBookmark(bd.Check(falling), BookmarkEpidemicPeak) {
		t.Error("expected epidemic_peak bookmark")
	}

	// The peak resets, so a further small dip does not retrigger.
	again := falling
	again.InfectedHosts = 18
	if hasBookmark(bd.Check(again), BookmarkEpidemicPeak) {
		t.Error("epidemic_peak retriggered without a new peak")
	}
}

func TestBookmarkDetector_DieOff(t *testing.T) {
	bd := NewBookmarkDetector(10)
	for i := 0; i < 3; i++ {
		bd.Check(WindowStats{WindowEndTick: int32(i * 600), Hosts: 100})
	}

	if !hasBookmark(bd.Check(WindowStats{WindowEndTick: 1800, Hosts: 70, Deaths: 30}), BookmarkDieOff) {
		t.Error("expected die_off bookmark")
	}
}

func TestBookmarkDetector_Eradicated(t *testing.T) {
	bd := NewBookmarkDetector(10)

	bd.Check(WindowStats{WindowEndTick: 0, Hosts: 50, InfectedHosts: 4, ActiveInfections: 4})
	bd.Check(WindowStats{WindowEndTick: 600, Hosts: 50, InfectedHosts: 1, ActiveInfections: 1})

	if !hasBookmark(bd.Check(WindowStats{WindowEndTick: 1200, Hosts: 50}), BookmarkEradicated) {
		t.Error("expected eradicated bookmark")
	}
	// Only once per outbreak.
	if hasBookmark(bd.Check(WindowStats{WindowEndTick: 1800, Hosts: 50}), BookmarkEradicated) {
		t.Error("eradicated retriggered with no new infections")
	}
}

func TestBookmarkDetector_Endemic(t *testing.T) {
	bd := NewBookmarkDetector(10)

	triggered := 0
	for i := 0; i < 12; i++ {
		stats := WindowStats{
			WindowEndTick:    int32(i * 600),
			Hosts:            100,
			InfectedHosts:    10,
			ActiveInfections: 10,
			Prevalence:       0.10,
		}
		if hasBookmark(bd.Check(stats), BookmarkEndemic) {
			triggered++
			// History needs 4 windows before counting starts.
			if i != 8 {
				t.Errorf("endemic triggered at window %d, want 8", i)
			}
		}
	}
	if triggered != 1 {
		t.Errorf("endemic triggered %d times, want 1", triggered)
	}
}
