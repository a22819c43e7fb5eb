package planner

import (
	"math/rand"
	"testing"

	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	order     = model.ServiceOrder
	logistics = model.ServiceLogistics
	payment   = model.ServicePayment
	support   = model.ServiceSupport
)

func req(s model.ServiceName, deps ...model.ServiceName) model.AgentRequirement {
	return model.AgentRequirement{Service: s, DependsOn: deps, Priority: 1}
}

func TestBuildPlan(t *testing.T) {
	tests := []struct {
		name   string
		reqs   []model.AgentRequirement
		want   [][]model.ServiceName
		forced bool
	}{
		{
			name: "single",
			reqs: []model.AgentRequirement{req(order)},
			want: [][]model.ServiceName{{order}},
		},
		{
			name: "fan out after order",
			reqs: []model.AgentRequirement{req(order), req(logistics, order), req(support, order)},
			want: [][]model.ServiceName{{order}, {logistics, support}},
		},
		{
			name: "three layers",
			reqs: []model.AgentRequirement{req(support, order, payment), req(payment, order), req(order)},
			want: [][]model.ServiceName{{order}, {payment}, {support}},
		},
		{
			name: "independent services share a batch",
			reqs: []model.AgentRequirement{req(payment), req(support)},
			want: [][]model.ServiceName{{payment, support}},
		},
		{
			name:   "cycle forces final batch",
			reqs:   []model.AgentRequirement{req(order), req(logistics, payment), req(payment, logistics)},
			want:   [][]model.ServiceName{{order}, {logistics, payment}},
			forced: true,
		},
		{
			name:   "missing dependency forces final batch",
			reqs:   []model.AgentRequirement{req(logistics, order)},
			want:   [][]model.ServiceName{{logistics}},
			forced: true,
		},
		{
			name: "self dependency ignored",
			reqs: []model.AgentRequirement{req(order, order)},
			want: [][]model.ServiceName{{order}},
		},
		{
			name: "duplicate requirements merge",
			reqs: []model.AgentRequirement{req(logistics), req(order), req(logistics, order)},
			want: [][]model.ServiceName{{order}, {logistics}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := BuildPlan(tt.reqs)
			assert.Equal(t, tt.want, plan.Batches)
			assert.Equal(t, tt.forced, plan.Forced)
			assert.Equal(t, len(tt.want)*int(model.EstimatedBatchTime), int(plan.EstimatedTime))
			if !tt.forced {
				assert.NoError(t, Validate(plan))
			}
		})
	}
}

func TestEmptyPlan(t *testing.T) {
	plan := BuildPlan(nil)
	assert.Empty(t, plan.Batches)
	assert.False(t, plan.Forced)
}

// Random acyclic requirement sets always produce plans satisfying the
// dependency ordering, in at most |services| batches.
func TestBuildPlanAcyclicProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	all := model.AllServices()

	for i := 0; i < 500; i++ {
		perm := rng.Perm(len(all))
		n := 1 + rng.Intn(len(all))
		var reqs []model.AgentRequirement
		for pos := 0; pos < n; pos++ {
			s := all[perm[pos]]
			var deps []model.ServiceName
			// depend only on services earlier in the permutation: acyclic by construction
			for prev := 0; prev < pos; prev++ {
				if rng.Intn(2) == 0 {
					deps = append(deps, all[perm[prev]])
				}
			}
			reqs = append(reqs, req(s, deps...))
		}
		rng.Shuffle(len(reqs), func(a, b int) { reqs[a], reqs[b] = reqs[b], reqs[a] })

		plan := BuildPlan(reqs)
		require.False(t, plan.Forced)
		require.NoError(t, Validate(plan))
		require.LessOrEqual(t, len(plan.Batches), n)
		require.Len(t, plan.Services(), n)
	}
}

func TestValidateDetectsViolation(t *testing.T) {
	plan := model.ExecutionPlan{
		Batches:      [][]model.ServiceName{{order, logistics}},
		Dependencies: map[model.ServiceName][]model.ServiceName{logistics: {order}},
	}
	assert.Error(t, Validate(plan))
}
