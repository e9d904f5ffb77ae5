package wave

import (
	"fmt"
	"sort"
	"time"

	ecs "github.com/forgeworks/ecscore"
)

// Wave is one scheduled batch: its members have no conflicting access and
// no explicit ordering constraint between them, so a Runner may execute
// them concurrently. EstimatedTime is the max of its members' declared
// EstimatedRuntime, since that member gates how long the wave takes.
type Wave struct {
	Systems       []System
	EstimatedTime time.Duration
}

// ConflictEntry is one diagnostic entry in a Plan's conflict list: two
// systems that could not share a wave, and what they conflicted over. Kind
// is "write-write" or "write-read" for a component TypeID conflict (SystemA
// is the writer), "write-write-resource" or "write-read-resource" for a
// named resource conflict, or "order" for an explicit Before/After/DependsOn
// edge between them.
type ConflictEntry struct {
	SystemA  string
	SystemB  string
	Kind     string
	TypeID   ecs.TypeID
	Resource string
}

// Plan is an ordered sequence of waves built by BuildPlan (§4.7 "Wave
// plan"). Conflicts records every pairwise access conflict discovered
// during static analysis, independent of whether it ended up mattering to
// the final wave assignment. Unscheduled lists systems BuildPlan could not
// place even after cycle-breaking (currently always empty: BuildPlan
// guarantees progress by scheduling a lone system rather than giving up,
// but the field exists so a future stricter mode has somewhere to report
// into). Efficiency is the plan's static estimate, Σ estimated serial time
// over Σ per-wave estimated time: 1.0 means no parallelism is predicted,
// >1.0 means the plan is expected to beat running every system serially.
type Plan struct {
	Waves       []Wave
	Conflicts   []ConflictEntry
	Unscheduled []string
	Efficiency  float64
}

// conflicts reports whether a and b cannot run in the same wave: either
// they declare overlapping read/write or write/write access to the same
// component type or resource, or one explicitly names the other via
// Before/After/DependsOn.
func conflicts(a, b System) bool {
	return len(conflictEntries(a, b)) > 0
}

// conflictEntries reports every reason a and b cannot share a wave: name
// references first, then every conflicting type/resource pair, so a Plan's
// diagnostics can name exactly what collided (§4.7 "conflicts list
// contains one write-write entry on Position").
func conflictEntries(a, b System) []ConflictEntry {
	var out []ConflictEntry
	if namesEachOther(a, b) {
		out = append(out, ConflictEntry{SystemA: a.Name(), SystemB: b.Name(), Kind: "order"})
	}
	for _, t := range overlappingTypeIDs(a.Writes(), b.Writes()) {
		out = append(out, ConflictEntry{SystemA: a.Name(), SystemB: b.Name(), Kind: "write-write", TypeID: t})
	}
	for _, t := range overlappingTypeIDs(a.Writes(), b.Reads()) {
		out = append(out, ConflictEntry{SystemA: a.Name(), SystemB: b.Name(), Kind: "write-read", TypeID: t})
	}
	for _, t := range overlappingTypeIDs(b.Writes(), a.Reads()) {
		out = append(out, ConflictEntry{SystemA: b.Name(), SystemB: a.Name(), Kind: "write-read", TypeID: t})
	}
	for _, r := range overlappingStrs(a.ResourceWrites(), b.ResourceWrites()) {
		out = append(out, ConflictEntry{SystemA: a.Name(), SystemB: b.Name(), Kind: "write-write-resource", Resource: r})
	}
	for _, r := range overlappingStrs(a.ResourceWrites(), b.ResourceReads()) {
		out = append(out, ConflictEntry{SystemA: a.Name(), SystemB: b.Name(), Kind: "write-read-resource", Resource: r})
	}
	for _, r := range overlappingStrs(b.ResourceWrites(), a.ResourceReads()) {
		out = append(out, ConflictEntry{SystemA: b.Name(), SystemB: a.Name(), Kind: "write-read-resource", Resource: r})
	}
	return out
}

func namesEachOther(a, b System) bool {
	names := func(s System) []string {
		all := make([]string, 0, len(s.Before())+len(s.After())+len(s.DependsOn()))
		all = append(all, s.Before()...)
		all = append(all, s.After()...)
		all = append(all, s.DependsOn()...)
		return all
	}
	for _, n := range names(a) {
		if n == b.Name() {
			return true
		}
	}
	for _, n := range names(b) {
		if n == a.Name() {
			return true
		}
	}
	return false
}

func overlappingTypeIDs(a, b []ecs.TypeID) []ecs.TypeID {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	set := make(map[ecs.TypeID]struct{}, len(a))
	for _, t := range a {
		set[t] = struct{}{}
	}
	var out []ecs.TypeID
	for _, t := range b {
		if _, ok := set[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

func overlappingStrs(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(a))
	for _, s := range a {
		set[s] = struct{}{}
	}
	var out []string
	for _, s := range b {
		if _, ok := set[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

// CycleError reports that explicit Before/After/DependsOn edges among a set
// of systems form a cycle. BuildPlan no longer fails when it detects one:
// it breaks the cycle by scheduling the highest-priority remaining system
// alone (§4.7). CycleError is kept for anyone diagnosing why a wave ended
// up with exactly one member despite siblings being ready.
type CycleError struct {
	Systems []string
}

func (e CycleError) Error() string {
	return fmt.Sprintf("wave planner: dependency cycle among systems %v", e.Systems)
}

// ValidationError reports that a built Plan failed §4.7's validation pass:
// either a system name appeared twice, or some wave member's explicit
// dependency never appeared in a strictly earlier wave.
type ValidationError struct {
	Reasons []string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("wave planner: invalid plan: %v", e.Reasons)
}

// BuildPlan performs static conflict analysis over systems, then a
// Kahn's-algorithm topological partition into waves (§4.8): each wave is
// the maximal set of remaining systems with no unresolved explicit
// dependency and no pairwise conflict with any other system placed in the
// same wave. Ties are broken by descending Priority then ascending Name
// for a deterministic plan independent of input order. If no system can be
// placed in a would-be wave (a dependency cycle or conflict deadlock), the
// highest-priority remaining system is scheduled alone to guarantee
// progress rather than dropping the rest of the plan. The resulting plan is
// validated before being returned; a validation failure is reported as an
// error rather than as a plan the caller might run.
func BuildPlan(systems []System) (Plan, error) {
	ordered := append([]System(nil), systems...)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Priority() != ordered[j].Priority() {
			return ordered[i].Priority() > ordered[j].Priority()
		}
		return ordered[i].Name() < ordered[j].Name()
	})

	indexOf := make(map[string]int, len(ordered))
	for i, s := range ordered {
		indexOf[s.Name()] = i
	}

	var allConflicts []ConflictEntry
	for i := range ordered {
		for j := i + 1; j < len(ordered); j++ {
			allConflicts = append(allConflicts, conflictEntries(ordered[i], ordered[j])...)
		}
	}

	// dependsOn[i] = set of indices that must run in a strictly earlier
	// wave than i, from explicit After/DependsOn and the reverse of Before.
	dependsOn := make([]map[int]struct{}, len(ordered))
	for i := range dependsOn {
		dependsOn[i] = make(map[int]struct{})
	}
	for i, s := range ordered {
		for _, n := range s.After() {
			if j, ok := indexOf[n]; ok {
				dependsOn[i][j] = struct{}{}
			}
		}
		for _, n := range s.DependsOn() {
			if j, ok := indexOf[n]; ok {
				dependsOn[i][j] = struct{}{}
			}
		}
		for _, n := range s.Before() {
			if j, ok := indexOf[n]; ok {
				dependsOn[j][i] = struct{}{}
			}
		}
	}

	placed := make([]bool, len(ordered))
	cycleBroken := make(map[string]bool)
	var waves []Wave
	remaining := len(ordered)

	for remaining > 0 {
		var members []System
		waveIdx := make(map[int]struct{})
		for i, s := range ordered {
			if placed[i] {
				continue
			}
			if !allPlaced(dependsOn[i], placed) {
				continue
			}
			conflictsInWave := false
			for j := range waveIdx {
				if conflicts(s, ordered[j]) {
					conflictsInWave = true
					break
				}
			}
			if conflictsInWave {
				continue
			}
			members = append(members, s)
			waveIdx[i] = struct{}{}
		}
		if len(members) == 0 {
			// Nothing placeable: either a dependency cycle or a conflict
			// deadlock among the remaining systems. Break it by scheduling
			// the highest-priority remaining system alone; ordered is
			// already sorted by descending Priority then ascending Name, so
			// the first unplaced entry is that system.
			for i, s := range ordered {
				if !placed[i] {
					members = []System{s}
					waveIdx[i] = struct{}{}
					cycleBroken[s.Name()] = true
					break
				}
			}
		}
		for i := range waveIdx {
			placed[i] = true
		}
		waves = append(waves, Wave{Systems: members, EstimatedTime: maxEstimatedRuntime(members)})
		remaining -= len(members)
	}

	var serialTotal, parallelTotal time.Duration
	for _, s := range ordered {
		serialTotal += s.EstimatedRuntime()
	}
	for _, w := range waves {
		parallelTotal += w.EstimatedTime
	}
	efficiency := 0.0
	if parallelTotal > 0 {
		efficiency = float64(serialTotal) / float64(parallelTotal)
	}

	plan := Plan{
		Waves:      waves,
		Conflicts:  allConflicts,
		Efficiency: efficiency,
	}
	if err := validatePlan(plan, ordered, cycleBroken); err != nil {
		return Plan{}, err
	}
	return plan, nil
}

func maxEstimatedRuntime(systems []System) time.Duration {
	var max time.Duration
	for _, s := range systems {
		if d := s.EstimatedRuntime(); d > max {
			max = d
		}
	}
	return max
}

// validatePlan enforces §4.7's two plan invariants: (a) no system appears
// twice across the plan, and (b) every explicit dependency of every wave
// member has appeared in a strictly earlier wave. Members named in
// cycleBroken were scheduled alone to break a dependency cycle, so their
// own dependencies are exempt from (b).
func validatePlan(plan Plan, systems []System, cycleBroken map[string]bool) error {
	var reasons []string

	seen := make(map[string]int, len(systems))
	waveOf := make(map[string]int, len(systems))
	for wi, w := range plan.Waves {
		for _, s := range w.Systems {
			seen[s.Name()]++
			waveOf[s.Name()] = wi
		}
	}
	for name, count := range seen {
		if count > 1 {
			reasons = append(reasons, fmt.Sprintf("system %q is scheduled %d times", name, count))
		}
	}

	depsOf := func(s System) []string {
		all := make([]string, 0, len(s.After())+len(s.DependsOn()))
		all = append(all, s.After()...)
		all = append(all, s.DependsOn()...)
		return all
	}
	for wi, w := range plan.Waves {
		for _, s := range w.Systems {
			if cycleBroken[s.Name()] {
				continue
			}
			for _, dep := range depsOf(s) {
				depWave, ok := waveOf[dep]
				if !ok {
					continue
				}
				if depWave >= wi {
					reasons = append(reasons, fmt.Sprintf("system %q depends on %q but it did not run in a strictly earlier wave", s.Name(), dep))
				}
			}
		}
	}

	if len(reasons) > 0 {
		sort.Strings(reasons)
		return ValidationError{Reasons: reasons}
	}
	return nil
}

func allPlaced(deps map[int]struct{}, placed []bool) bool {
	for i := range deps {
		if !placed[i] {
			return false
		}
	}
	return true
}
