package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkOutbreakSurge BookmarkType = "outbreak_surge"
	BookmarkEpidemicPeak  BookmarkType = "epidemic_peak"
	BookmarkDieOff        BookmarkType = "die_off"
	BookmarkEradicated    BookmarkType = "eradicated"
	BookmarkEndemic       BookmarkType = "endemic"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type"`
	Tick        int32        `csv:"tick"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"description", b.Description,
	)
}

// BookmarkDetector detects interesting moments in an outbreak.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	// State tracking
	peakInfected        int  // highest infected-host count since the last peak bookmark
	peakHosts           int  // highest host count since the last die-off bookmark
	everInfected        bool // an infection has been seen since the last eradication
	endemicWindowsCount int  // consecutive windows with steady prevalence
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 5 {
		historySize = 5 // minimum for endemic detection
	}
	return &BookmarkDetector{
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	if bd.historyFull || bd.historyIdx > 0 {
		// Surge: new infections > 2x rolling average
		if b := bd.checkOutbreakSurge(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}

		// Peak passed: infected hosts dropped >30% from recent high
		if b := bd.checkEpidemicPeak(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}

		// Die-off: host population dropped >20% from recent high
		if b := bd.checkDieOff(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}

		// Eradicated: no infections left after an outbreak
		if b := bd.checkEradicated(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}

		// Endemic: steady non-zero prevalence over 5+ windows
		if b := bd.checkEndemic(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}

	// Update history
	bd.addToHistory(stats)

	if stats.InfectedHosts > bd.peakInfected {
		bd.peakInfected = stats.InfectedHosts
	}
	if stats.Hosts > bd.peakHosts {
		bd.peakHosts = stats.Hosts
	}
	if stats.ActiveInfections > 0 {
		bd.everInfected = true
	}

	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []WindowStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

func (bd *BookmarkDetector) checkOutbreakSurge(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var total int
	for _, h := range history {
		total += h.NewInfections
	}
	avg := float64(total) / float64(len(history))

	if stats.NewInfections >= 5 && float64(stats.NewInfections) > avg*2.0 {
		return &Bookmark{
			Type:        BookmarkOutbreakSurge,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("%d new infections, %.1fx the rolling average (%.1f)", stats.NewInfections, float64(stats.NewInfections)/max(avg, 1), avg),
		}
	}

	return nil
}

func (bd *BookmarkDetector) checkEpidemicPeak(stats WindowStats) *Bookmark {
	if bd.peakInfected < 5 {
		return nil
	}

	dropPercent := 1.0 - float64(stats.InfectedHosts)/float64(bd.peakInfected)
	if dropPercent > 0.30 {
		// Reset peak after triggering
		oldPeak := bd.peakInfected
		bd.peakInfected = stats.InfectedHosts

		return &Bookmark{
			Type:        BookmarkEpidemicPeak,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Infected hosts fell %.0f%% from peak %d to %d", dropPercent*100, oldPeak, stats.InfectedHosts),
		}
	}

	return nil
}

func (bd *BookmarkDetector) checkDieOff(stats WindowStats) *Bookmark {
	if bd.peakHosts == 0 || stats.Deaths == 0 {
		return nil
	}

	dropPercent := 1.0 - float64(stats.Hosts)/float64(bd.peakHosts)
	if dropPercent > 0.20 {
		oldPeak := bd.peakHosts
		bd.peakHosts = stats.Hosts

		return &Bookmark{
			Type:        BookmarkDieOff,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Population fell %.0f%% from %d to %d", dropPercent*100, oldPeak, stats.Hosts),
		}
	}

	return nil
}

func (bd *BookmarkDetector) checkEradicated(stats WindowStats) *Bookmark {
	if !bd.everInfected || stats.ActiveInfections > 0 {
		return nil
	}
	bd.everInfected = false

	return &Bookmark{
		Type:        BookmarkEradicated,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("No active infections among %d hosts", stats.Hosts),
	}
}

func (bd *BookmarkDetector) checkEndemic(stats WindowStats) *Bookmark {
	if stats.InfectedHosts < 3 {
		bd.endemicWindowsCount = 0
		return nil
	}

	history := bd.getHistory()
	if len(history) < 4 {
		return nil
	}

	// Check variance in recent windows
	recent := history[len(history)-4:]
	var sum float64
	for _, h := range recent {
		sum += h.Prevalence
	}
	mean := sum / 4

	var variance float64
	for _, h := range recent {
		d := h.Prevalence - mean
		variance += d * d
	}
	variance /= 4

	cv2 := 0.0
	if mean > 0 {
		cv2 = variance / (mean * mean)
	}

	if mean > 0 && cv2 < 0.04 { // CV^2 < 0.04 means CV < 0.2
		bd.endemicWindowsCount++
	} else {
		bd.endemicWindowsCount = 0
	}

	if bd.endemicWindowsCount == 5 { // trigger exactly once at 5 windows
		return &Bookmark{
			Type:        BookmarkEndemic,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Prevalence steady near %.2f over 5+ windows", mean),
		}
	}

	return nil
}
