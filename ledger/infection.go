package ledger

import "github.com/pthm-cable/contagion/disease"

// Infection is one active (entity, disease) pair.
// Times are simulation seconds accumulated from tick dt.
type Infection struct {
	Disease     disease.ID
	Stage       int
	TimeInStage float64
	TotalTime   float64
	Incubating  bool
	Detected    bool
	Contagious  bool
	Active      bool

	// Paused is remaining seconds during which the stage timer does not run.
	Paused float64
	// ChronicHold is set once a chronic disease reaches its final stage
	// with the timer expired. It never clears on its own.
	ChronicHold bool
}

// Immunity blocks reinfection by one disease until it lapses.
type Immunity struct {
	Disease   disease.ID
	Start     float64
	Duration  float64
	Permanent bool
}

// Expires returns the simulation time the record lapses at.
// ok is false for permanent records.
func (im Immunity) Expires() (at float64, ok bool) {
	if im.Permanent {
		return 0, false
	}
	return im.Start + im.Duration, true
}

// ActiveAt reports whether the record still protects at time now.
func (im Immunity) ActiveAt(now float64) bool {
	if im.Permanent {
		return true
	}
	return now < im.Start+im.Duration
}
