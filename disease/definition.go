// Package disease provides the immutable disease catalog: definitions,
// stages, treatments, and the YAML loader that builds them.
package disease

import "fmt"

// ID is a dense catalog key, resolved once from a disease name at load time.
type ID uint16

// TransmissionMethod describes how a disease reaches new hosts.
type TransmissionMethod uint8

const (
	TransmissionNone TransmissionMethod = iota
	TransmissionAirborne
	TransmissionContact
	TransmissionContamination
	TransmissionVector
	TransmissionMagical
	TransmissionEnvironmental
)

var transmissionNames = [...]string{
	TransmissionNone:          "none",
	TransmissionAirborne:      "airborne",
	TransmissionContact:       "contact",
	TransmissionContamination: "contamination",
	TransmissionVector:        "vector",
	TransmissionMagical:       "magical",
	TransmissionEnvironmental: "environmental",
}

func (m TransmissionMethod) String() string {
	if int(m) < len(transmissionNames) {
		return transmissionNames[m]
	}
	return fmt.Sprintf("transmission(%d)", uint8(m))
}

// ParseTransmission maps a config string to a TransmissionMethod.
// An empty string means none.
func ParseTransmission(s string) (TransmissionMethod, error) {
	if s == "" {
		return TransmissionNone, nil
	}
	for i, name := range transmissionNames {
		if name == s {
			return TransmissionMethod(i), nil
		}
	}
	return TransmissionNone, fmt.Errorf("unknown transmission method %q", s)
}

// Severity is the tier of a stage. Only Critical stages can be fatal.
type Severity uint8

const (
	SeverityMild Severity = iota
	SeverityModerate
	SeveritySevere
	SeverityCritical
)

var severityNames = [...]string{
	SeverityMild:     "mild",
	SeverityModerate: "moderate",
	SeveritySevere:   "severe",
	SeverityCritical: "critical",
}

func (s Severity) String() string {
	if int(s) < len(severityNames) {
		return severityNames[s]
	}
	return fmt.Sprintf("severity(%d)", uint8(s))
}

// ParseSeverity maps a config string to a Severity. Empty means mild.
func ParseSeverity(s string) (Severity, error) {
	if s == "" {
		return SeverityMild, nil
	}
	for i, name := range severityNames {
		if name == s {
			return Severity(i), nil
		}
	}
	return SeverityMild, fmt.Errorf("unknown severity %q", s)
}

// Stage is one phase of a disease's progression.
type Stage struct {
	Name          string
	Duration      float64 // seconds
	Severity      Severity
	Contagious    bool
	CanProgress   bool
	CanBeDetected bool
	Effects       []string // symptom effect identifiers
}

// ItemRequirement is a quantity of one item a treatment consumes.
type ItemRequirement struct {
	Item  string `yaml:"item"`
	Count int    `yaml:"count"`
}

// Treatment describes one way to treat a disease.
type Treatment struct {
	ID              string
	Items           []ItemRequirement
	Cost            int
	Effectiveness   float64 // probability the treatment takes
	CuresCompletely bool
	Duration        float64 // seconds the stage timer is paused on mitigation
}

// Definition is an immutable disease description owned by a Catalog.
type Definition struct {
	ID   ID
	Name string

	Transmission       TransmissionMethod
	TransmissionRate   float64 // Bernoulli p per exposure per tick
	TransmissionRadius float64 // world units
	Incubation         float64 // seconds

	Stages     []Stage
	Treatments []Treatment

	ImmunityDuration   float64 // seconds
	PermanentImmunity  bool
	Fatal              bool
	Chronic            bool
	CanDevelopImmunity bool // ignored for fatal or chronic diseases
	AffectsNPCs        bool
	AffectsAnimals     bool

	DetectionChance  float64 // per tick while the stage can be detected
	MortalityPerHour float64 // per sim-hour on critical stages of fatal diseases
}

// Stage returns the stage at index i, or nil if i is out of range.
func (d *Definition) Stage(i int) *Stage {
	if i < 0 || i >= len(d.Stages) {
		return nil
	}
	return &d.Stages[i]
}

// Treatment returns the treatment with the given id.
func (d *Definition) Treatment(id string) (*Treatment, bool) {
	for i := range d.Treatments {
		if d.Treatments[i].ID == id {
			return &d.Treatments[i], true
		}
	}
	return nil, false
}

// Spreads reports whether the disease can ever be transmitted.
func (d *Definition) Spreads() bool {
	if d.Transmission == TransmissionNone || d.TransmissionRadius <= 0 {
		return false
	}
	for i := range d.Stages {
		if d.Stages[i].Contagious {
			return true
		}
	}
	return false
}

// Valid reports whether the definition can be progressed at all.
func (d *Definition) Valid() bool {
	return len(d.Stages) > 0
}
