package planner

import (
	"fmt"
	"time"

	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/orchestrator/pkg/logger"
)

// Normalize merges requirements for the same service (first occurrence keeps
// its position, dependencies are unioned) and drops self-dependencies.
func Normalize(reqs []model.AgentRequirement) ([]model.ServiceName, map[model.ServiceName][]model.ServiceName) {
	order := make([]model.ServiceName, 0, len(reqs))
	deps := make(map[model.ServiceName][]model.ServiceName, len(reqs))
	seenDep := make(map[model.ServiceName]map[model.ServiceName]bool, len(reqs))

	for _, r := range reqs {
		if _, ok := seenDep[r.Service]; !ok {
			order = append(order, r.Service)
			seenDep[r.Service] = map[model.ServiceName]bool{}
			deps[r.Service] = nil
		}
		for _, d := range r.DependsOn {
			if d == r.Service || seenDep[r.Service][d] {
				continue
			}
			seenDep[r.Service][d] = true
			deps[r.Service] = append(deps[r.Service], d)
		}
	}
	return order, deps
}

// BuildPlan layers the requirements into an ExecutionPlan. A forced final
// batch is logged as a diagnostic; it means the declared dependencies were
// cyclic or referenced a service that is not part of the plan.
func BuildPlan(reqs []model.AgentRequirement) model.ExecutionPlan {
	services, deps := Normalize(reqs)
	batches, forced := Layer(services, deps)
	if forced {
		logx.Warn().
			Interface("dependencies", deps).
			Interface("batches", batches).
			Msg("execution plan has an unresolvable dependency; remaining services merged into a final batch")
	}
	return model.ExecutionPlan{
		Batches:       batches,
		Dependencies:  deps,
		Forced:        forced,
		EstimatedTime: time.Duration(len(batches)) * model.EstimatedBatchTime,
	}
}

// Validate checks that every dependency of a service sits in an earlier batch.
func Validate(plan model.ExecutionPlan) error {
	for i, batch := range plan.Batches {
		for _, s := range batch {
			for _, d := range plan.Dependencies[s] {
				j := plan.BatchOf(d)
				if j < 0 || j >= i {
					return fmt.Errorf("%s in batch %d depends on %s in batch %d", s, i, d, j)
				}
			}
		}
	}
	return nil
}
