package wave

import (
	"context"
	"testing"
	"time"

	ecs "github.com/forgeworks/ecscore"
)

type fakeSystem struct {
	BaseSystem
	run func(ctx context.Context, w *ecs.World) error
}

func (f fakeSystem) Run(ctx context.Context, w *ecs.World) error {
	if f.run == nil {
		return nil
	}
	return f.run(ctx, w)
}

func sys(name string, reads, writes []ecs.TypeID) fakeSystem {
	return fakeSystem{BaseSystem: BaseSystem{SystemName: name, ReadTypes: reads, WriteTypes: writes}}
}

func waveNames(w Wave) []string {
	names := make([]string, len(w.Systems))
	for i, s := range w.Systems {
		names[i] = s.Name()
	}
	return names
}

func TestBuildPlanIndependentSystemsShareOneWave(t *testing.T) {
	a := sys("move", []ecs.TypeID{2}, []ecs.TypeID{1})
	b := sys("render", []ecs.TypeID{1}, nil)
	c := sys("unrelated", []ecs.TypeID{9}, []ecs.TypeID{10})

	// move writes 1, render reads 1: conflict, must not share a wave.
	// unrelated touches disjoint types and should land in move's wave.
	plan, err := BuildPlan([]System{a, b, c})
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	if len(plan.Waves) != 2 {
		t.Fatalf("expected 2 waves, got %d: %#v", len(plan.Waves), plan.Waves)
	}
	firstWaveNames := map[string]bool{}
	for _, n := range waveNames(plan.Waves[0]) {
		firstWaveNames[n] = true
	}
	if !firstWaveNames["move"] || !firstWaveNames["unrelated"] {
		t.Fatalf("expected move and unrelated in the first wave, got %#v", plan.Waves[0])
	}
	if len(plan.Waves[1].Systems) != 1 || plan.Waves[1].Systems[0].Name() != "render" {
		t.Fatalf("expected render alone in the second wave, got %#v", plan.Waves[1])
	}

	var foundWriteWrite bool
	for _, c := range plan.Conflicts {
		if c.Kind == "write-read" && c.TypeID == 1 {
			foundWriteWrite = true
		}
	}
	if !foundWriteWrite {
		t.Fatalf("expected a recorded write-read conflict on type 1, got %#v", plan.Conflicts)
	}
}

func TestBuildPlanExplicitAfterForcesSeparateWave(t *testing.T) {
	a := sys("input", nil, nil)
	b := sys("physics", nil, nil)
	b.BaseSystem.AfterNames = []string{"input"}

	plan, err := BuildPlan([]System{b, a})
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	if len(plan.Waves) != 2 {
		t.Fatalf("expected 2 waves due to explicit After, got %d", len(plan.Waves))
	}
	if plan.Waves[0].Systems[0].Name() != "input" || plan.Waves[1].Systems[0].Name() != "physics" {
		t.Fatalf("expected input before physics, got %#v", plan.Waves)
	}
}

func TestBuildPlanDeterministicTieBreak(t *testing.T) {
	a := sys("bravo", nil, nil)
	b := sys("alpha", nil, nil)
	c := sys("charlie", nil, nil)

	plan, err := BuildPlan([]System{a, b, c})
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	if len(plan.Waves) != 1 || len(plan.Waves[0].Systems) != 3 {
		t.Fatalf("expected all 3 independent systems in one wave, got %#v", plan.Waves)
	}
	names := waveNames(plan.Waves[0])
	want := []string{"alpha", "bravo", "charlie"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected alphabetical tie-break order %v, got %v", want, names)
		}
	}
}

// TestBuildPlanCycleBreaksByPriorityInsteadOfFailing locks in the
// progress-guaranteeing cycle break: a mutual After dependency between a
// and b cannot be satisfied by either ordering, so BuildPlan schedules the
// higher-priority one alone rather than returning an error and dropping
// both.
func TestBuildPlanCycleBreaksByPriorityInsteadOfFailing(t *testing.T) {
	a := sys("a", nil, nil)
	a.BaseSystem.AfterNames = []string{"b"}
	a.BaseSystem.SystemPriority = 5
	b := sys("b", nil, nil)
	b.BaseSystem.AfterNames = []string{"a"}
	b.BaseSystem.SystemPriority = 1

	plan, err := BuildPlan([]System{a, b})
	if err != nil {
		t.Fatalf("expected no error, cycle must be broken instead of failing the plan: %v", err)
	}
	if len(plan.Waves) != 2 {
		t.Fatalf("expected the cycle broken into 2 waves, got %d: %#v", len(plan.Waves), plan.Waves)
	}
	if plan.Waves[0].Systems[0].Name() != "a" {
		t.Fatalf("expected higher-priority system 'a' scheduled alone first, got %#v", plan.Waves[0])
	}
	if len(plan.Waves[0].Systems) != 1 {
		t.Fatalf("expected the cycle-breaking wave to contain exactly one system, got %#v", plan.Waves[0])
	}
	if plan.Waves[1].Systems[0].Name() != "b" {
		t.Fatalf("expected 'b' scheduled in the following wave, got %#v", plan.Waves[1])
	}

	total := 0
	for _, w := range plan.Waves {
		total += len(w.Systems)
	}
	if total != 2 {
		t.Fatalf("expected both systems scheduled, not dropped, got %d total", total)
	}
}

func TestBuildPlanPriorityOrdersWaves(t *testing.T) {
	low := sys("low", nil, []ecs.TypeID{1})
	low.BaseSystem.SystemPriority = 0
	high := sys("high", nil, []ecs.TypeID{1})
	high.BaseSystem.SystemPriority = 10

	plan, err := BuildPlan([]System{low, high})
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	if len(plan.Waves) != 2 {
		t.Fatalf("expected conflicting writers split into 2 waves, got %d", len(plan.Waves))
	}
	if plan.Waves[0].Systems[0].Name() != "high" {
		t.Fatalf("expected higher-priority system scheduled in the earlier wave, got %v first", plan.Waves[0].Systems[0].Name())
	}
}

func TestBuildPlanEstimatedTimeIsMaxOfWaveMembers(t *testing.T) {
	fast := sys("fast", nil, []ecs.TypeID{9})
	fast.BaseSystem.RuntimeEstimate = 2 * time.Millisecond
	slow := sys("slow", nil, []ecs.TypeID{10})
	slow.BaseSystem.RuntimeEstimate = 9 * time.Millisecond

	plan, err := BuildPlan([]System{fast, slow})
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	if len(plan.Waves) != 1 {
		t.Fatalf("expected both disjoint systems in one wave, got %d", len(plan.Waves))
	}
	if plan.Waves[0].EstimatedTime != 9*time.Millisecond {
		t.Fatalf("expected wave EstimatedTime = max(2ms, 9ms) = 9ms, got %v", plan.Waves[0].EstimatedTime)
	}
}

// TestBuildPlanEfficiencyExceedsOneWhenParallel covers §4.7's "Efficiency >
// serial" expectation: two systems with no conflict land in the same wave,
// so the plan's estimated parallel time is less than their summed serial
// estimate and Efficiency is > 1.
func TestBuildPlanEfficiencyExceedsOneWhenParallel(t *testing.T) {
	a := sys("a", nil, []ecs.TypeID{1})
	a.BaseSystem.RuntimeEstimate = 10 * time.Millisecond
	b := sys("b", nil, []ecs.TypeID{2})
	b.BaseSystem.RuntimeEstimate = 10 * time.Millisecond

	plan, err := BuildPlan([]System{a, b})
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	if len(plan.Waves) != 1 {
		t.Fatalf("expected a and b to share one wave, got %d waves", len(plan.Waves))
	}
	if plan.Efficiency <= 1.0 {
		t.Fatalf("expected Efficiency > 1 for two parallel 10ms systems sharing a wave, got %f", plan.Efficiency)
	}
}

// TestBuildPlanConflictsListsWriteWriteOnSharedType covers §4.7's example
// of a conflicts list entry: two systems both writing the same component
// type must produce exactly one write-write ConflictEntry naming that
// type.
func TestBuildPlanConflictsListsWriteWriteOnSharedType(t *testing.T) {
	const positionType ecs.TypeID = 42
	a := sys("physicsA", nil, []ecs.TypeID{positionType})
	b := sys("physicsB", nil, []ecs.TypeID{positionType})

	plan, err := BuildPlan([]System{a, b})
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}

	var writeWrite []ConflictEntry
	for _, c := range plan.Conflicts {
		if c.Kind == "write-write" && c.TypeID == positionType {
			writeWrite = append(writeWrite, c)
		}
	}
	if len(writeWrite) != 1 {
		t.Fatalf("expected exactly one write-write conflict entry on type %d, got %d: %#v", positionType, len(writeWrite), plan.Conflicts)
	}
}

func TestBuildPlanRejectsDuplicateSystemName(t *testing.T) {
	a := sys("dup", nil, []ecs.TypeID{1})
	b := sys("dup", nil, []ecs.TypeID{2})

	_, err := BuildPlan([]System{a, b})
	if err == nil {
		t.Fatalf("expected a ValidationError for a duplicated system name")
	}
	if _, ok := err.(ValidationError); !ok {
		t.Fatalf("expected ValidationError, got %T: %v", err, err)
	}
}

func TestRunnerTickRunsWaveAndRecordsMetrics(t *testing.T) {
	var ranA, ranB bool
	a := sys("a", nil, []ecs.TypeID{1})
	a.run = func(ctx context.Context, w *ecs.World) error { ranA = true; return nil }
	b := sys("b", nil, []ecs.TypeID{2})
	b.run = func(ctx context.Context, w *ecs.World) error { ranB = true; return nil }

	plan, err := BuildPlan([]System{a, b})
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}

	ecs.ResetRegistry()
	w := ecs.NewWorld()
	r := NewRunner()
	result := r.Tick(context.Background(), w, plan)
	if result.Error != nil {
		t.Fatalf("Tick: %v", result.Error)
	}
	if !result.Success {
		t.Fatalf("expected Success=true")
	}
	if !ranA || !ranB {
		t.Fatalf("expected both systems to run: a=%v b=%v", ranA, ranB)
	}
	if len(result.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(result.Results))
	}
	if len(result.SkippedSystems) != 0 {
		t.Fatalf("expected no skipped systems, got %v", result.SkippedSystems)
	}
	if result.Metrics.TicksRun != 1 {
		t.Fatalf("expected TicksRun=1, got %d", result.Metrics.TicksRun)
	}
	if result.Metrics.SystemsRun != 2 {
		t.Fatalf("expected SystemsRun=2, got %d", result.Metrics.SystemsRun)
	}
	if result.Metrics.WavesRun != 1 {
		t.Fatalf("expected WavesRun=1, got %d", result.Metrics.WavesRun)
	}
	if result.ExecutionTime <= 0 {
		t.Fatalf("expected a positive ExecutionTime")
	}
}

func TestRunnerAbortsWaveOnFailureByDefault(t *testing.T) {
	failing := sys("failing", nil, []ecs.TypeID{1})
	failing.run = func(ctx context.Context, w *ecs.World) error { return errBoom }

	plan := Plan{Waves: []Wave{{Systems: []System{failing}}}}
	ecs.ResetRegistry()
	w := ecs.NewWorld()
	r := NewRunner()
	result := r.Tick(context.Background(), w, plan)
	if result.Error == nil {
		t.Fatalf("expected Tick to return an error when a system fails and continueOnFailure is false")
	}
	if result.Success {
		t.Fatalf("expected Success=false")
	}
}

func TestRunnerContinueOnFailureRunsSiblings(t *testing.T) {
	var ranSibling bool
	failing := sys("failing", nil, []ecs.TypeID{1})
	failing.run = func(ctx context.Context, w *ecs.World) error { return errBoom }
	sibling := sys("sibling", nil, []ecs.TypeID{2})
	sibling.run = func(ctx context.Context, w *ecs.World) error { ranSibling = true; return nil }

	plan := Plan{Waves: []Wave{{Systems: []System{failing, sibling}}}}
	ecs.ResetRegistry()
	w := ecs.NewWorld()
	r := NewRunner(WithContinueOnFailure(true))
	result := r.Tick(context.Background(), w, plan)
	if result.Error != nil {
		t.Fatalf("Tick with continueOnFailure should not return an error, got %v", result.Error)
	}
	if !ranSibling {
		t.Fatalf("expected sibling system to still run despite failing's error")
	}
	if result.Metrics.SystemFailures != 1 {
		t.Fatalf("expected SystemFailures=1, got %d", result.Metrics.SystemFailures)
	}
}

func TestRunnerSystemTimeoutCancelsContext(t *testing.T) {
	blocked := sys("blocked", nil, nil)
	blocked.run = func(ctx context.Context, w *ecs.World) error {
		<-ctx.Done()
		return ctx.Err()
	}

	plan := Plan{Waves: []Wave{{Systems: []System{blocked}}}}
	ecs.ResetRegistry()
	w := ecs.NewWorld()
	r := NewRunner(WithSystemTimeout(10 * time.Millisecond))
	result := r.Tick(context.Background(), w, plan)
	if result.Error == nil {
		t.Fatalf("expected a timeout error")
	}
}

// TestRunnerReportsSkippedSystemsOnAbortedLaterWave covers the
// skippedSystems[] accounting §4.8/§5/§7 require: a failure in the first
// wave must abort before the second wave ever starts, and that wave's
// systems must be reported as skipped, not run.
func TestRunnerReportsSkippedSystemsOnAbortedLaterWave(t *testing.T) {
	failing := sys("failing", nil, []ecs.TypeID{1})
	failing.run = func(ctx context.Context, w *ecs.World) error { return errBoom }
	never := sys("never", nil, []ecs.TypeID{2})
	never.BaseSystem.AfterNames = []string{"failing"}

	ecs.ResetRegistry()
	w := ecs.NewWorld()
	plan := Plan{Waves: []Wave{
		{Systems: []System{failing}},
		{Systems: []System{never}},
	}}
	r := NewRunner()
	result := r.Tick(context.Background(), w, plan)
	if result.Success {
		t.Fatalf("expected Success=false")
	}
	found := false
	for _, n := range result.SkippedSystems {
		if n == "never" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected 'never' reported as skipped, got %v", result.SkippedSystems)
	}
}

var errBoom = boomError{}

type boomError struct{}

func (boomError) Error() string { return "boom" }
