// Package graph runs the orchestration state machine as an Eino graph:
// Route -> Plan -> Execute -> Answer, with Fail reachable from Route and
// Execute.
package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"

	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/graph/nodes"
	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/graph/observers"
	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/orchestrator/internal/core/error"
	logx "github.com/Chative-core-poc-v1/orchestrator/pkg/logger"
)

const maxRunSteps = 10

// Runner processes one query end to end. The returned response is always
// well formed; an error means the query was rejected or the graph broke.
type Runner interface {
	Process(ctx context.Context, q model.Query) (model.QueryResponse, error)
}

// RunObserver receives the outcome of every run, e.g. a Prometheus recorder.
type RunObserver interface {
	ObserveRun(path model.RoutePath, success bool, latency time.Duration)
}

// Config is everything BuildGraph needs.
type Config struct {
	Deps *nodes.Deps
	// Observer is optional.
	Observer RunObserver
}

// GraphBuilder handles the construction of the orchestration graph.
type GraphBuilder struct {
	deps  *nodes.Deps
	graph *compose.Graph[model.Query, model.QueryResponse]
}

type graphRunner struct {
	runnable compose.Runnable[model.Query, model.QueryResponse]
	observer RunObserver
	now      func() time.Time
}

func (r *graphRunner) Process(ctx context.Context, q model.Query) (model.QueryResponse, error) {
	q.Text = strings.TrimSpace(q.Text)
	if q.Text == "" {
		return model.QueryResponse{}, errx.BadRequest(errx.ErrEmptyQuery)
	}
	if q.SessionID == "" {
		q.SessionID = uuid.NewString()
	}
	if q.ArrivedAt.IsZero() {
		q.ArrivedAt = r.now()
	}

	start := r.now()
	out, err := r.runnable.Invoke(ctx, q, compose.WithCallbacks(observers.NewAllCallbacks()))
	if err != nil {
		logx.Error().Err(err).Str("session_id", q.SessionID).Msg("graph invocation failed")
		return model.QueryResponse{}, fmt.Errorf("process query: %w", err)
	}
	if r.observer != nil {
		r.observer.ObserveRun(out.Details.Path, out.Success, r.now().Sub(start))
	}
	return out, nil
}

// New builds the graph and wraps it in a Runner.
func New(ctx context.Context, cfg Config) (Runner, error) {
	runnable, err := BuildGraph(ctx, cfg.Deps)
	if err != nil {
		return nil, err
	}
	logx.Debug().Str("reasoner", cfg.Deps.Reasoner.Mode()).Msg("orchestration graph built successfully")
	return &graphRunner{runnable: runnable, observer: cfg.Observer, now: time.Now}, nil
}

// BuildGraph constructs and returns the compiled orchestration graph.
func BuildGraph(ctx context.Context, deps *nodes.Deps) (compose.Runnable[model.Query, model.QueryResponse], error) {
	if err := deps.Validate(); err != nil {
		return nil, err
	}

	b := &GraphBuilder{
		deps: deps,
		graph: compose.NewGraph[model.Query, model.QueryResponse](
			compose.WithGenLocalState(func(ctx context.Context) *model.RunState {
				return model.NewRunState()
			}),
		),
	}

	if err := b.addNodes(); err != nil {
		return nil, err
	}
	if err := b.addEdges(); err != nil {
		return nil, err
	}
	if err := b.addBranches(); err != nil {
		return nil, err
	}
	return b.compile(ctx)
}

// addNodes adds all processing nodes to the graph. Answer and Fail share
// the finishing post-handler that completes the machine.
func (b *GraphBuilder) addNodes() error {
	finish := compose.WithStatePostHandler(nodes.NewFinishPostHandler())
	err := errors.Join(
		b.graph.AddLambdaNode(nodes.NodeRoute, nodes.NewRouteNode(b.deps),
			compose.WithStatePreHandler(nodes.NewRoutePreHandler())),
		b.graph.AddLambdaNode(nodes.NodePlan, nodes.NewPlanNode(),
			compose.WithStatePostHandler(nodes.NewPlanPostHandler())),
		b.graph.AddLambdaNode(nodes.NodeExecute, nodes.NewExecuteNode(b.deps)),
		b.graph.AddLambdaNode(nodes.NodeAnswer, nodes.NewAnswerNode(b.deps),
			compose.WithStatePreHandler(nodes.NewAnswerPreHandler()), finish),
		b.graph.AddLambdaNode(nodes.NodeFail, nodes.NewFailNode(b.deps),
			compose.WithStatePreHandler(nodes.NewFailPreHandler()), finish),
	)
	if err != nil {
		logx.Error().Err(err).Msg("Error adding nodes")
		return fmt.Errorf("error adding nodes: %w", err)
	}
	return nil
}

// addEdges creates the unconditional connections between nodes.
func (b *GraphBuilder) addEdges() error {
	edges := [][2]string{
		{compose.START, nodes.NodeRoute},
		{nodes.NodePlan, nodes.NodeExecute},
		{nodes.NodeAnswer, compose.END},
		{nodes.NodeFail, compose.END},
	}
	for _, edge := range edges {
		if err := b.graph.AddEdge(edge[0], edge[1]); err != nil {
			return fmt.Errorf("error adding edge %s -> %s: %w", edge[0], edge[1], err)
		}
	}
	return nil
}

// addBranches creates the conditional routing branches.
func (b *GraphBuilder) addBranches() error {
	routeBranch := compose.NewGraphBranch(
		nodes.NewRouteCondition(),
		map[string]bool{
			nodes.NodePlan: true,
			nodes.NodeFail: true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeRoute, routeBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding route branch")
		return fmt.Errorf("error adding route branch: %w", err)
	}

	executeBranch := compose.NewGraphBranch(
		nodes.NewExecuteCondition(),
		map[string]bool{
			nodes.NodeAnswer: true,
			nodes.NodeFail:   true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeExecute, executeBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding execute branch")
		return fmt.Errorf("error adding execute branch: %w", err)
	}
	return nil
}

// compile finalizes and compiles the graph.
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[model.Query, model.QueryResponse], error) {
	runnable, err := b.graph.Compile(ctx,
		compose.WithGraphName("orchestrator"),
		compose.WithMaxRunSteps(maxRunSteps),
	)
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}
	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}
