package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Simulation.DT != 1.0 {
		t.Errorf("dt = %v, want 1.0", cfg.Simulation.DT)
	}
	if cfg.Disease.DetectionChance != 0.5 {
		t.Errorf("detection_chance = %v, want 0.5", cfg.Disease.DetectionChance)
	}
	if len(cfg.Outbreak.Seeds) == 0 {
		t.Error("expected default outbreak seeds")
	}
	if cfg.Derived.WindowTicks != 300 {
		t.Errorf("window ticks = %d, want 300", cfg.Derived.WindowTicks)
	}
	if cfg.Derived.WorldW32 != 400 {
		t.Errorf("derived world width = %v, want 400", cfg.Derived.WorldW32)
	}
}

func TestLoadMergesUserFile(t *testing.T) {
	path := writeFile(t, "user.yaml", `
simulation:
  dt: 0.5
population:
  npcs: 10
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Simulation.DT != 0.5 {
		t.Errorf("dt = %v, want 0.5", cfg.Simulation.DT)
	}
	if cfg.Population.NPCs != 10 {
		t.Errorf("npcs = %d, want 10", cfg.Population.NPCs)
	}
	// Untouched keys keep their defaults.
	if cfg.Simulation.Seed != 42 {
		t.Errorf("seed = %d, want default 42", cfg.Simulation.Seed)
	}
	if cfg.Derived.WindowTicks != 600 {
		t.Errorf("window ticks = %d, want 600", cfg.Derived.WindowTicks)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CONTAGION_SEED", "7")
	t.Setenv("CONTAGION_NPCS", "25")
	t.Setenv("CONTAGION_JOURNAL", "/tmp/run.db")
	t.Setenv("CONTAGION_TREATMENT", "false")

	path := writeFile(t, "user.yaml", "simulation:\n  seed: 99\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Simulation.Seed != 7 {
		t.Errorf("seed = %d, want env value 7", cfg.Simulation.Seed)
	}
	if cfg.Population.NPCs != 25 {
		t.Errorf("npcs = %d, want 25", cfg.Population.NPCs)
	}
	if cfg.Journal.Path != "/tmp/run.db" {
		t.Errorf("journal path = %q", cfg.Journal.Path)
	}
	if cfg.Treatment.Enabled {
		t.Error("treatment should be disabled by env")
	}
}

func TestLoadBadEnv(t *testing.T) {
	t.Setenv("CONTAGION_SEED", "not-a-number")
	if _, err := Load(""); err == nil || !strings.Contains(err.Error(), "parse env") {
		t.Errorf("err = %v, want parse env error", err)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad yaml", "simulation: [", "parsing config file"},
		{"zero dt", "simulation:\n  dt: 0\n", "simulation.dt"},
		{"bad probability", "disease:\n  detection_chance: 1.5\n", "detection_chance"},
		{"negative population", "population:\n  npcs: -1\n", "population counts"},
		{"zero world", "world:\n  width: 0\n", "world size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "bad.yaml", tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil || !strings.Contains(err.Error(), "reading config file") {
		t.Errorf("err = %v, want reading error", err)
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	cfg.Population.Players = 9

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML failed: %v", err)
	}

	back, err := Load(path)
	if err != nil {
		t.Fatalf("reloading written config: %v", err)
	}
	if back.Population.Players != 9 {
		t.Errorf("players = %d, want 9", back.Population.Players)
	}
	if back.Population.StartingItems["salt"] != cfg.Population.StartingItems["salt"] {
		t.Error("starting items lost in round trip")
	}
}
