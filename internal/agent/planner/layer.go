// Package planner turns service requirements into ordered, parallel-safe batches.
package planner

import (
	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/model"
)

// Layer groups services into batches: each round schedules every unscheduled
// service whose dependencies are all already scheduled. A round with nothing
// ready while services remain (a cycle or a dependency that is never
// scheduled) puts all remaining services into one final batch and reports
// forced=true. Within a batch, services keep their input order. Layer
// terminates in at most len(services) rounds.
func Layer(services []model.ServiceName, deps map[model.ServiceName][]model.ServiceName) (batches [][]model.ServiceName, forced bool) {
	scheduled := make(map[model.ServiceName]bool, len(services))
	remaining := dedupe(services)

	for len(remaining) > 0 {
		var ready, blocked []model.ServiceName
		for _, s := range remaining {
			if allScheduled(deps[s], scheduled) {
				ready = append(ready, s)
			} else {
				blocked = append(blocked, s)
			}
		}
		if len(ready) == 0 {
			batches = append(batches, blocked)
			return batches, true
		}
		for _, s := range ready {
			scheduled[s] = true
		}
		batches = append(batches, ready)
		remaining = blocked
	}
	return batches, false
}

func allScheduled(deps []model.ServiceName, scheduled map[model.ServiceName]bool) bool {
	for _, d := range deps {
		if !scheduled[d] {
			return false
		}
	}
	return true
}

func dedupe(in []model.ServiceName) []model.ServiceName {
	seen := make(map[model.ServiceName]bool, len(in))
	out := make([]model.ServiceName, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
