package disease

import (
	_ "embed"
	"fmt"
	"log/slog"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// Defaults fills definition fields a catalog entry leaves unset.
type Defaults struct {
	DetectionChance  float64
	MortalityPerHour float64
}

// catalogFile is the on-disk catalog layout.
type catalogFile struct {
	Diseases []diseaseEntry `yaml:"diseases"`
}

type diseaseEntry struct {
	Name               string           `yaml:"name"`
	Transmission       string           `yaml:"transmission"`
	TransmissionRate   float64          `yaml:"transmission_rate"`
	TransmissionRadius float64          `yaml:"transmission_radius"`
	Incubation         float64          `yaml:"incubation"`
	ImmunityDuration   float64          `yaml:"immunity_duration"`
	PermanentImmunity  bool             `yaml:"permanent_immunity"`
	Fatal              bool             `yaml:"fatal"`
	Chronic            bool             `yaml:"chronic"`
	CanDevelopImmunity bool             `yaml:"can_develop_immunity"`
	AffectsNPCs        *bool            `yaml:"affects_npcs"`
	AffectsAnimals     bool             `yaml:"affects_animals"`
	DetectionChance    *float64         `yaml:"detection_chance"`
	MortalityPerHour   *float64         `yaml:"mortality_per_hour"`
	Stages             []stageEntry     `yaml:"stages"`
	Treatments         []treatmentEntry `yaml:"treatments"`
}

type stageEntry struct {
	Name          string   `yaml:"name"`
	Duration      float64  `yaml:"duration"`
	Severity      string   `yaml:"severity"`
	Contagious    bool     `yaml:"contagious"`
	CanProgress   *bool    `yaml:"can_progress"`
	CanBeDetected bool     `yaml:"can_be_detected"`
	Effects       []string `yaml:"effects"`
}

type treatmentEntry struct {
	ID              string            `yaml:"id"`
	Items           []ItemRequirement `yaml:"items"`
	Cost            int               `yaml:"cost"`
	Effectiveness   float64           `yaml:"effectiveness"`
	CuresCompletely bool              `yaml:"cures_completely"`
	Duration        float64           `yaml:"duration"`
}

// LoadCatalog reads a catalog from a YAML file, or the embedded default
// catalog if path is empty.
func LoadCatalog(path string, defaults Defaults) (*Catalog, error) {
	data := defaultCatalogYAML
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading catalog file: %w", err)
		}
	}
	return ParseCatalog(data, defaults)
}

// ParseCatalog builds a catalog from YAML bytes.
// Entries with no stages are kept (and logged) so the engine can skip them
// defensively; every other authoring error fails the load.
func ParseCatalog(data []byte, defaults Defaults) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	defs := make([]Definition, 0, len(file.Diseases))
	for i, entry := range file.Diseases {
		def, err := entry.definition(defaults)
		if err != nil {
			return nil, fmt.Errorf("disease %d (%s): %w", i, entry.Name, err)
		}
		if !def.Valid() {
			slog.Warn("disease has no stages; infections will be skipped", "disease", def.Name)
		}
		defs = append(defs, def)
	}

	return NewCatalog(defs)
}

func (e diseaseEntry) definition(defaults Defaults) (Definition, error) {
	method, err := ParseTransmission(e.Transmission)
	if err != nil {
		return Definition{}, err
	}
	if err := checkProbability("transmission_rate", e.TransmissionRate); err != nil {
		return Definition{}, err
	}
	if e.TransmissionRadius < 0 || e.Incubation < 0 || e.ImmunityDuration < 0 {
		return Definition{}, fmt.Errorf("negative radius or duration")
	}

	def := Definition{
		Name:               e.Name,
		Transmission:       method,
		TransmissionRate:   e.TransmissionRate,
		TransmissionRadius: e.TransmissionRadius,
		Incubation:         e.Incubation,
		ImmunityDuration:   e.ImmunityDuration,
		PermanentImmunity:  e.PermanentImmunity,
		Fatal:              e.Fatal,
		Chronic:            e.Chronic,
		CanDevelopImmunity: e.CanDevelopImmunity,
		AffectsNPCs:        true,
		AffectsAnimals:     e.AffectsAnimals,
		DetectionChance:    defaults.DetectionChance,
		MortalityPerHour:   defaults.MortalityPerHour,
	}
	if e.AffectsNPCs != nil {
		def.AffectsNPCs = *e.AffectsNPCs
	}
	if e.DetectionChance != nil {
		def.DetectionChance = *e.DetectionChance
	}
	if e.MortalityPerHour != nil {
		def.MortalityPerHour = *e.MortalityPerHour
	}
	if err := checkProbability("detection_chance", def.DetectionChance); err != nil {
		return Definition{}, err
	}
	if err := checkProbability("mortality_per_hour", def.MortalityPerHour); err != nil {
		return Definition{}, err
	}

	for j, se := range e.Stages {
		severity, err := ParseSeverity(se.Severity)
		if err != nil {
			return Definition{}, fmt.Errorf("stage %d: %w", j, err)
		}
		if se.Duration < 0 {
			return Definition{}, fmt.Errorf("stage %d: negative duration", j)
		}
		canProgress := true
		if se.CanProgress != nil {
			canProgress = *se.CanProgress
		}
		def.Stages = append(def.Stages, Stage{
			Name:          se.Name,
			Duration:      se.Duration,
			Severity:      severity,
			Contagious:    se.Contagious,
			CanProgress:   canProgress,
			CanBeDetected: se.CanBeDetected,
			Effects:       se.Effects,
		})
	}

	seen := make(map[string]bool, len(e.Treatments))
	for j, te := range e.Treatments {
		if te.ID == "" {
			return Definition{}, fmt.Errorf("treatment %d has no id", j)
		}
		if seen[te.ID] {
			return Definition{}, fmt.Errorf("duplicate treatment %q", te.ID)
		}
		seen[te.ID] = true
		if err := checkProbability("effectiveness", te.Effectiveness); err != nil {
			return Definition{}, fmt.Errorf("treatment %q: %w", te.ID, err)
		}
		if te.Cost < 0 || te.Duration < 0 {
			return Definition{}, fmt.Errorf("treatment %q: negative cost or duration", te.ID)
		}
		for _, req := range te.Items {
			if req.Item == "" || req.Count <= 0 {
				return Definition{}, fmt.Errorf("treatment %q: bad item requirement %+v", te.ID, req)
			}
		}
		def.Treatments = append(def.Treatments, Treatment{
			ID:              te.ID,
			Items:           te.Items,
			Cost:            te.Cost,
			Effectiveness:   te.Effectiveness,
			CuresCompletely: te.CuresCompletely,
			Duration:        te.Duration,
		})
	}

	return def, nil
}

func checkProbability(field string, p float64) error {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return fmt.Errorf("%s %v outside [0, 1]", field, p)
	}
	return nil
}
