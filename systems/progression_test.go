package systems

import (
	"testing"

	"github.com/pthm-cable/contagion/disease"
	"github.com/pthm-cable/contagion/ledger"
	"github.com/pthm-cable/contagion/telemetry"
)

func newProgressionRig(t *testing.T, defs ...disease.Definition) (*tickRunner, *recordingEffects, *recordingLifecycle, *telemetry.Outbox) {
	t.Helper()
	l := ledger.New(mustCatalog(t, defs...))
	fx := newRecordingEffects()
	lc := &recordingLifecycle{}
	out := telemetry.NewOutbox()
	prog := NewProgressionSystem(l, fx, lc, constRoller(0.99), out)
	return &tickRunner{ledger: l, prog: prog}, fx, lc, out
}

func findInfection(t *testing.T, l *ledger.Ledger, id disease.ID) ledger.Infection {
	t.Helper()
	for _, e := range l.Entities() {
		for _, inf := range l.Infections(e) {
			if inf.Disease == id {
				return inf
			}
		}
	}
	t.Fatalf("no infection of disease %d", id)
	return ledger.Infection{}
}

// ---------- Full lifecycle ----------

func TestProgressionLifecycle(t *testing.T) {
	r, fx, _, out := newProgressionRig(t, scenarioDisease())
	l := r.ledger
	id := l.Catalog().MustResolve("d1")
	e := newTestWorld().spawn(0, 0, 0)

	if err := l.AddInfection(e, id); err != nil {
		t.Fatalf("AddInfection failed: %v", err)
	}

	r.runUntil(9)
	if inf := findInfection(t, l, id); !inf.Incubating {
		t.Errorf("t=9: want incubating, got %+v", inf)
	}
	if fx.has(e, "cough") {
		t.Error("t=9: effects applied during incubation")
	}

	r.runUntil(11)
	inf := findInfection(t, l, id)
	if inf.Incubating || inf.Stage != 0 {
		t.Errorf("t=11: want stage 0 symptomatic, got %+v", inf)
	}
	if !fx.has(e, "cough") {
		t.Error("t=11: stage 0 effects not applied")
	}

	r.runUntil(16)
	inf = findInfection(t, l, id)
	if inf.Stage != 1 {
		t.Errorf("t=16: got stage %d, want 1", inf.Stage)
	}
	if fx.has(e, "cough") || !fx.has(e, "fever") {
		t.Errorf("t=16: effects = %v, want only fever", fx.active[e])
	}
	if !inf.Contagious {
		t.Error("t=16: stage 1 is contagious")
	}

	r.runUntil(21)
	if l.IsInfected(e, id) {
		t.Error("t=21: infection should have resolved")
	}
	if !l.HasImmunity(e, id) {
		t.Error("t=21: want immunity")
	}
	if len(fx.active[e]) != 0 {
		t.Errorf("t=21: effects left behind: %v", fx.active[e])
	}

	r.runUntil(79)
	if !l.HasImmunity(e, id) {
		t.Error("t=79: immunity lapsed early")
	}
	r.runUntil(81)
	if l.HasImmunity(e, id) {
		t.Error("t=81: immunity should have lapsed")
	}

	events := out.Drain()
	for _, want := range []telemetry.EventType{
		telemetry.EventSymptomatic,
		telemetry.EventStageAdvanced,
		telemetry.EventResolved,
		telemetry.EventImmunityGranted,
	} {
		if got := countEvents(events, want); got != 1 {
			t.Errorf("%s events: got %d, want 1", want, got)
		}
	}
}

func TestProgressionStageNeverDecreases(t *testing.T) {
	def := scenarioDisease()
	def.Stages = append(def.Stages, disease.Stage{Name: "third", Duration: 3, CanProgress: true})
	r, _, _, _ := newProgressionRig(t, def)
	l := r.ledger
	id := l.Catalog().MustResolve("d1")
	e := newTestWorld().spawn(0, 0, 0)
	if err := l.AddInfection(e, id); err != nil {
		t.Fatalf("AddInfection failed: %v", err)
	}

	last := 0
	for l.IsInfected(e, id) {
		r.runUntil(l.Now() + 1)
		for _, inf := range l.Infections(e) {
			if inf.Stage < last {
				t.Fatalf("stage went from %d to %d", last, inf.Stage)
			}
			if inf.Stage >= len(def.Stages) {
				t.Fatalf("stage %d out of range", inf.Stage)
			}
			last = inf.Stage
		}
		if l.Now() > 100 {
			t.Fatal("infection never resolved")
		}
	}
	if last != 2 {
		t.Errorf("final stage %d, want 2", last)
	}
}

func TestProgressionZeroDurationStage(t *testing.T) {
	def := disease.Definition{
		Name: "flash",
		Stages: []disease.Stage{
			{Duration: 0, CanProgress: true},
			{Duration: 10, CanProgress: true},
		},
	}
	r, _, _, _ := newProgressionRig(t, def)
	l := r.ledger
	id := l.Catalog().MustResolve("flash")
	e := newTestWorld().spawn(0, 0, 0)
	if err := l.AddInfection(e, id); err != nil {
		t.Fatalf("AddInfection failed: %v", err)
	}

	// Incubation 0: symptomatic at stage 0 on the first tick.
	r.runUntil(1)
	if inf := findInfection(t, l, id); inf.Incubating || inf.Stage != 0 {
		t.Fatalf("t=1: got %+v, want stage 0", inf)
	}
	r.runUntil(2)
	if inf := findInfection(t, l, id); inf.Stage != 1 {
		t.Errorf("t=2: got stage %d, want 1", inf.Stage)
	}
}

func TestProgressionStageWithoutProgressHolds(t *testing.T) {
	def := disease.Definition{
		Name:   "stuck",
		Stages: []disease.Stage{{Duration: 1, CanProgress: false}, {Duration: 1, CanProgress: true}},
	}
	r, _, _, _ := newProgressionRig(t, def)
	l := r.ledger
	id := l.Catalog().MustResolve("stuck")
	e := newTestWorld().spawn(0, 0, 0)
	if err := l.AddInfection(e, id); err != nil {
		t.Fatalf("AddInfection failed: %v", err)
	}

	r.runUntil(50)
	if inf := findInfection(t, l, id); inf.Stage != 0 || inf.TimeInStage < 40 {
		t.Errorf("got %+v, want held at stage 0", inf)
	}
}

// ---------- Chronic ----------

func TestProgressionChronicHoldsFinalStage(t *testing.T) {
	def := scenarioDisease()
	def.Chronic = true
	r, fx, _, out := newProgressionRig(t, def)
	l := r.ledger
	id := l.Catalog().MustResolve("d1")
	e := newTestWorld().spawn(0, 0, 0)
	if err := l.AddInfection(e, id); err != nil {
		t.Fatalf("AddInfection failed: %v", err)
	}

	r.runUntil(500)
	inf := findInfection(t, l, id)
	if inf.Stage != 1 || !inf.ChronicHold || !inf.Active {
		t.Errorf("got %+v, want held at final stage", inf)
	}
	if l.HasImmunity(e, id) {
		t.Error("chronic infection must not grant immunity")
	}
	if !fx.has(e, "fever") {
		t.Error("final stage effects should remain applied")
	}
	events := out.Drain()
	if got := countEvents(events, telemetry.EventChronicHold); got != 1 {
		t.Errorf("chronic hold events: got %d, want 1", got)
	}
	if got := countEvents(events, telemetry.EventResolved); got != 0 {
		t.Errorf("resolved events: got %d, want 0", got)
	}
}

// ---------- Detection ----------

func TestProgressionDetection(t *testing.T) {
	tests := []struct {
		name       string
		chance     float64
		detectable bool
		want       bool
	}{
		{"certain", 1, true, true},
		{"never", 0, true, false},
		{"undetectable stage", 1, false, false},
		{"roll below chance", 0.995, true, true},
		{"roll above chance", 0.5, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := disease.Definition{
				Name:            "spots",
				DetectionChance: tt.chance,
				Stages:          []disease.Stage{{Duration: 100, CanBeDetected: tt.detectable}},
			}
			r, _, _, _ := newProgressionRig(t, def)
			l := r.ledger
			id := l.Catalog().MustResolve("spots")
			e := newTestWorld().spawn(0, 0, 0)
			if err := l.AddInfection(e, id); err != nil {
				t.Fatalf("AddInfection failed: %v", err)
			}

			r.runUntil(5)
			if got := findInfection(t, l, id).Detected; got != tt.want {
				t.Errorf("Detected = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProgressionNotDetectedDuringIncubation(t *testing.T) {
	def := disease.Definition{
		Name:            "hidden",
		Incubation:      10,
		DetectionChance: 1,
		Stages:          []disease.Stage{{Duration: 100, CanBeDetected: true}},
	}
	r, _, _, _ := newProgressionRig(t, def)
	l := r.ledger
	id := l.Catalog().MustResolve("hidden")
	e := newTestWorld().spawn(0, 0, 0)
	if err := l.AddInfection(e, id); err != nil {
		t.Fatalf("AddInfection failed: %v", err)
	}

	r.runUntil(5)
	if findInfection(t, l, id).Detected {
		t.Error("detected while incubating")
	}
	r.runUntil(10)
	if !findInfection(t, l, id).Detected {
		t.Error("not detected once symptomatic")
	}
}

// ---------- Contagion ----------

func TestProgressionContagiousMirrorsStage(t *testing.T) {
	def := scenarioDisease()
	def.Stages[0].Contagious = true
	def.Stages[1].Contagious = false
	r, _, _, _ := newProgressionRig(t, def)
	l := r.ledger
	id := l.Catalog().MustResolve("d1")
	e := newTestWorld().spawn(0, 0, 0)
	if err := l.AddInfection(e, id); err != nil {
		t.Fatalf("AddInfection failed: %v", err)
	}

	checks := []struct {
		at   float64
		want bool
	}{
		{5, false},  // incubating
		{12, true},  // stage 0
		{17, false}, // stage 1
	}
	for _, c := range checks {
		r.runUntil(c.at)
		if got := findInfection(t, l, id).Contagious; got != c.want {
			t.Errorf("t=%v: Contagious = %v, want %v", c.at, got, c.want)
		}
	}
}

// ---------- Fatality ----------

func TestProgressionFatality(t *testing.T) {
	def := disease.Definition{
		Name:               "rot",
		Fatal:              true,
		MortalityPerHour:   1,
		CanDevelopImmunity: true,
		ImmunityDuration:   100,
		Stages: []disease.Stage{
			{Duration: 3, CanProgress: true, Severity: disease.SeveritySevere, Effects: []string{"ache"}},
			{Duration: 100, CanProgress: true, Severity: disease.SeverityCritical, Effects: []string{"collapse"}},
		},
	}
	r, fx, lc, out := newProgressionRig(t, def)
	l := r.ledger
	id := l.Catalog().MustResolve("rot")
	e := newTestWorld().spawn(0, 0, 0)
	if err := l.AddInfection(e, id); err != nil {
		t.Fatalf("AddInfection failed: %v", err)
	}

	r.runUntil(3)
	if len(lc.fatal) != 0 {
		t.Fatal("died before reaching the critical stage")
	}

	r.runUntil(5)
	if len(lc.fatal) != 1 || lc.fatal[0] != e {
		t.Fatalf("fatal reports = %v, want [%v]", lc.fatal, e)
	}
	if l.IsInfected(e, id) {
		t.Error("fatal infection should be removed")
	}
	if l.HasImmunity(e, id) {
		t.Error("fatal infection must not grant immunity")
	}
	if fx.has(e, "collapse") {
		t.Error("effects should be removed on death")
	}
	if got := countEvents(out.Drain(), telemetry.EventFatal); got != 1 {
		t.Errorf("fatal events: got %d, want 1", got)
	}
}

func TestProgressionFatalSurvivorGetsNoImmunity(t *testing.T) {
	def := scenarioDisease()
	def.Fatal = true
	r, _, lc, out := newProgressionRig(t, def)
	l := r.ledger
	id := l.Catalog().MustResolve("d1")
	e := newTestWorld().spawn(0, 0, 0)
	if err := l.AddInfection(e, id); err != nil {
		t.Fatalf("AddInfection failed: %v", err)
	}

	r.runUntil(25)
	if len(lc.fatal) != 0 {
		t.Fatal("no critical stage, host should survive")
	}
	if l.IsInfected(e, id) {
		t.Fatal("infection should have resolved")
	}
	if l.HasImmunity(e, id) {
		t.Error("surviving a fatal disease must not grant immunity")
	}
	if got := countEvents(out.Drain(), telemetry.EventImmunityGranted); got != 0 {
		t.Errorf("immunity events: got %d, want 0", got)
	}
}

func TestProgressionNonFatalNeverKills(t *testing.T) {
	def := disease.Definition{
		Name:             "harmless",
		MortalityPerHour: 1,
		Stages:           []disease.Stage{{Duration: 100, Severity: disease.SeverityCritical}},
	}
	r, _, lc, _ := newProgressionRig(t, def)
	l := r.ledger
	e := newTestWorld().spawn(0, 0, 0)
	if err := l.AddInfection(e, l.Catalog().MustResolve("harmless")); err != nil {
		t.Fatalf("AddInfection failed: %v", err)
	}

	r.runUntil(50)
	if len(lc.fatal) != 0 {
		t.Errorf("non-fatal disease killed %d hosts", len(lc.fatal))
	}
}

func TestTickMortality(t *testing.T) {
	tests := []struct {
		name    string
		perHour float64
		dt      float64
		lo, hi  float64
	}{
		{"zero", 0, 1, 0, 0},
		{"certain", 1, 1, 1, 1},
		{"full hour", 0.5, 3600, 0.4999, 0.5001},
		{"one second", 0.5, 1, 0.00019, 0.00020},
		{"no time", 0.5, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tickMortality(tt.perHour, tt.dt)
			if got < tt.lo || got > tt.hi {
				t.Errorf("tickMortality(%v, %v) = %v, want in [%v, %v]", tt.perHour, tt.dt, got, tt.lo, tt.hi)
			}
		})
	}
}

// ---------- Pausing and malformed input ----------

func TestProgressionPausedTimer(t *testing.T) {
	r, _, _, _ := newProgressionRig(t, scenarioDisease())
	l := r.ledger
	id := l.Catalog().MustResolve("d1")
	e := newTestWorld().spawn(0, 0, 0)
	if err := l.AddInfection(e, id); err != nil {
		t.Fatalf("AddInfection failed: %v", err)
	}

	r.runUntil(11) // stage 0, one second in
	l.Mutate(e, func(rec *ledger.Record) {
		rec.Find(id).Paused = 10
	})

	r.runUntil(21)
	inf := findInfection(t, l, id)
	if inf.Stage != 0 || inf.TimeInStage != 1 {
		t.Errorf("paused infection moved: %+v", inf)
	}
	r.runUntil(25)
	if inf := findInfection(t, l, id); inf.Stage != 1 {
		t.Errorf("timer did not resume: %+v", inf)
	}
}

func TestProgressionSkipsMalformedDisease(t *testing.T) {
	r, _, _, _ := newProgressionRig(t,
		disease.Definition{Name: "empty"},
		scenarioDisease(),
	)
	l := r.ledger
	empty := l.Catalog().MustResolve("empty")
	d1 := l.Catalog().MustResolve("d1")
	e := newTestWorld().spawn(0, 0, 0)
	if err := l.AddInfection(e, empty); err != nil {
		t.Fatalf("AddInfection failed: %v", err)
	}
	if err := l.AddInfection(e, d1); err != nil {
		t.Fatalf("AddInfection failed: %v", err)
	}

	r.runUntil(12)
	if inf := findInfection(t, l, empty); inf.TotalTime != 0 || !inf.Incubating {
		t.Errorf("malformed infection was progressed: %+v", inf)
	}
	if inf := findInfection(t, l, d1); inf.Incubating {
		t.Errorf("valid infection on the same host was not progressed: %+v", inf)
	}
}
