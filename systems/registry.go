package systems

import "github.com/pthm-cable/contagion/telemetry"

// SystemInfo describes one phase of a simulation tick.
type SystemInfo struct {
	ID          string // Internal identifier (used for perf tracking)
	Name        string // Display name
	Description string // What this system does
	Category    string // Grouping (e.g., "core", "disease")
}

// SystemRegistry holds metadata about all tick phases.
// This centralizes naming so logs and perf output stay in sync.
type SystemRegistry struct {
	systems []SystemInfo
	byID    map[string]SystemInfo
}

// NewSystemRegistry creates a registry with all known phases.
func NewSystemRegistry() *SystemRegistry {
	reg := &SystemRegistry{
		byID: make(map[string]SystemInfo),
	}
	reg.registerDefaults()
	return reg
}

// registerDefaults adds all known phases to the registry.
// Update this when adding new systems.
func (r *SystemRegistry) registerDefaults() {
	// World
	r.Register(SystemInfo{ID: telemetry.PhaseMovement, Name: "Movement", Description: "Wanders hosts around the world", Category: "core"})
	r.Register(SystemInfo{ID: telemetry.PhaseSpatialGrid, Name: "Spatial Grid", Description: "Updates neighbor lookup grid", Category: "core"})

	// Disease
	r.Register(SystemInfo{ID: telemetry.PhaseOutbreak, Name: "Outbreak", Description: "Seeds spontaneous infections", Category: "disease"})
	r.Register(SystemInfo{ID: telemetry.PhaseProgression, Name: "Progression", Description: "Advances infection stages", Category: "disease"})
	r.Register(SystemInfo{ID: telemetry.PhaseTransmission, Name: "Transmission", Description: "Spreads contagious infections", Category: "disease"})
	r.Register(SystemInfo{ID: telemetry.PhaseTreatment, Name: "Treatment", Description: "Runs the host treatment policy", Category: "disease"})

	// Bookkeeping
	r.Register(SystemInfo{ID: telemetry.PhaseCleanup, Name: "Cleanup", Description: "Removes dead hosts", Category: "core"})
	r.Register(SystemInfo{ID: telemetry.PhaseTelemetry, Name: "Telemetry", Description: "Drains events into stats and the journal", Category: "internal"})
	r.Register(SystemInfo{ID: telemetry.PhaseOther, Name: "Other", Description: "Time under an unregistered phase name", Category: "internal"})
}

// Register adds a phase to the registry.
func (r *SystemRegistry) Register(info SystemInfo) {
	r.systems = append(r.systems, info)
	r.byID[info.ID] = info
}

// Get returns phase info by ID.
func (r *SystemRegistry) Get(id string) (SystemInfo, bool) {
	info, ok := r.byID[id]
	return info, ok
}

// GetName returns the display name for a phase ID.
// Falls back to the ID itself if not found.
func (r *SystemRegistry) GetName(id string) string {
	if info, ok := r.byID[id]; ok {
		return info.Name
	}
	return id
}

// IDs returns all phase IDs in registration order.
func (r *SystemRegistry) IDs() []string {
	ids := make([]string, len(r.systems))
	for i, info := range r.systems {
		ids[i] = info.ID
	}
	return ids
}
