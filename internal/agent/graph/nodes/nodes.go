package nodes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/cache"
	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/executor"
	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/matcher"
	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/memory"
	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/model"
	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/planner"
	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/reasoner"
	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/recovery"
	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/synth"
	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/trace"
	errx "github.com/Chative-core-poc-v1/orchestrator/internal/core/error"
	logx "github.com/Chative-core-poc-v1/orchestrator/pkg/logger"
)

// Node keys.
const (
	NodeRoute   = "Route"
	NodePlan    = "Plan"
	NodeExecute = "Execute"
	NodeAnswer  = "Answer"
	NodeFail    = "Fail"
)

// Deps are the collaborators shared by every node.
type Deps struct {
	Matcher  *matcher.Matcher
	Cache    *cache.IntentCache
	Reasoner reasoner.Reasoner
	Executor *executor.Executor
	Synth    *synth.Synthesizer
	Sessions *memory.Store
	// History is optional.
	History model.HistoryRepository
	Routing model.RoutingConfig
}

// Validate reports missing collaborators.
func (d *Deps) Validate() error {
	switch {
	case d == nil:
		return fmt.Errorf("graph deps are nil")
	case d.Matcher == nil || d.Cache == nil:
		return fmt.Errorf("matcher and cache are required")
	case d.Reasoner == nil || d.Synth == nil:
		return fmt.Errorf("reasoner and synthesizer are required")
	case d.Executor == nil:
		return fmt.Errorf("executor is required")
	case d.Sessions == nil:
		return fmt.Errorf("session store is required")
	}
	return nil
}

// ================ Route ================

// NewRoutePreHandler starts the run: Listening -> Routing.
func NewRoutePreHandler() func(context.Context, model.Query, *model.RunState) (model.Query, error) {
	return func(ctx context.Context, in model.Query, s *model.RunState) (model.Query, error) {
		s.RunID = uuid.NewString()
		s.SessionID = in.SessionID
		s.Chain = trace.New(in.Text, in.SessionID)
		s.Chain.Add(trace.StepQueryReceived,
			fmt.Sprintf("Received query: '%s'", clip(in.Text, 50)),
			"Begin analysis", 1.0,
			map[string]any{"query_length": len(in.Text)})
		if err := s.Machine.Transition(model.StateRouting, model.TriggerQueryReceived); err != nil {
			return in, err
		}
		logx.Info().Str("run_id", s.RunID).Str("session_id", s.SessionID).Msg("query received")
		return in, nil
	}
}

func NewRouteNode(d *Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, q model.Query) (*model.Turn, error) {
		start := time.Now()
		st, err := snapshot(ctx)
		if err != nil {
			return nil, err
		}

		window := d.Sessions.GetOrCreate(q.SessionID)
		history := memory.Render(window.ContextForReasoning(), q.Text)

		routing, usage := d.Route(ctx, q, history, st.chain)
		turn := &model.Turn{Query: q, RunID: st.runID, Routing: routing}
		if err := checkRouting(routing, d.Routing.ConfidenceFloor); err != nil {
			turn.Failure = err
		}

		logx.Info().Str("run_id", st.runID).Str("path", string(routing.Path)).Str("intent", routing.Intent).
			Float64("confidence", routing.Confidence).Interface("services", routing.Services()).Msg("query routed")
		return turn, record(ctx, "routing", start, usage.CostUSD)
	})
}

// NewRouteCondition sends unroutable turns to Fail.
func NewRouteCondition() func(context.Context, *model.Turn) (string, error) {
	return func(ctx context.Context, t *model.Turn) (string, error) {
		if t.Failure != nil {
			logx.Debug().Err(t.Failure).Msg("routing failed")
			return NodeFail, nil
		}
		return NodePlan, nil
	}
}

// ================ Plan ================

func NewPlanNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, t *model.Turn) (*model.Turn, error) {
		start := time.Now()
		st, err := snapshot(ctx)
		if err != nil {
			return nil, err
		}
		chain := st.chain

		chain.Start()
		r := t.Routing
		chain.Add(trace.StepAgentSelection,
			fmt.Sprintf("Selected %d services", len(r.Requirements)),
			fmt.Sprintf("Services: %v", r.Services()),
			recovery.IntentConfidence(blendInputs(r)),
			map[string]any{"path": r.Path})

		t.Plan = planner.BuildPlan(r.Requirements)
		chain.Add(trace.StepDependencyAnalysis,
			"Resolved service dependencies",
			fmt.Sprintf("%v", t.Plan.Dependencies),
			agentSelection(r, t.Plan.Forced),
			map[string]any{"forced": t.Plan.Forced})
		chain.Add(trace.StepExecutionPlanning,
			fmt.Sprintf("Planned %d batches", len(t.Plan.Batches)),
			fmt.Sprintf("Batches: %v", t.Plan.Batches),
			1.0,
			map[string]any{"estimated_ms": t.Plan.EstimatedTime.Milliseconds()})
		return t, record(ctx, "planning", start, 0)
	})
}

// NewPlanPostHandler moves Routing -> Executing once a plan exists.
func NewPlanPostHandler() func(context.Context, *model.Turn, *model.RunState) (*model.Turn, error) {
	return func(ctx context.Context, out *model.Turn, s *model.RunState) (*model.Turn, error) {
		return out, s.Machine.Transition(model.StateExecuting, model.TriggerPlanCreated)
	}
}

// ================ Execute ================

func NewExecuteNode(d *Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, t *model.Turn) (*model.Turn, error) {
		start := time.Now()
		st, err := snapshot(ctx)
		if err != nil {
			return nil, err
		}
		seed := map[string]string{}
		if t.Query.UserID != "" {
			seed[model.CtxUserID] = t.Query.UserID
		}
		d.resolveKnown(ctx, t, seed, st.chain)
		out := d.Executor.Run(ctx, t.Plan, executor.Input{
			Query:    t.Query.Text,
			Seed:     seed,
			Entities: t.Routing.Entities,
			Chain:    st.chain,
		})
		t.Results = out.Results
		t.Completed = out.Completed
		t.Context = out.Context
		if out.Successes() == 0 {
			t.Failure = fmt.Errorf("%w: %s", errx.ErrAllServicesFailed, failureSummary(t))
		}
		logx.Info().Str("run_id", st.runID).Int("succeeded", out.Successes()).Int("executed", len(out.Completed)).
			Msg("plan executed")
		return t, record(ctx, "execution", start, 0)
	})
}

// resolveKnown re-fetches entities the session already references and seeds
// the identifiers of the fresh records. Values already in seed are kept.
func (d *Deps) resolveKnown(ctx context.Context, t *model.Turn, seed map[string]string, chain *trace.Chain) {
	w, ok := d.Sessions.Get(t.Query.SessionID)
	if !ok {
		return
	}
	chain.Start()
	var resolved []string
	for _, id := range memory.Identifiers {
		e, found := model.FirstEntity(t.Routing.Entities, id.Type)
		if !found {
			continue
		}
		rec, ok := w.GetEntity(ctx, id.Type, e.Value)
		if !ok {
			continue
		}
		if seed[id.Field] == "" {
			seed[id.Field] = e.Value
		}
		for _, k := range model.FoldedKeys {
			if v := rec.Get(k); v != "" && seed[k] == "" {
				seed[k] = v
			}
		}
		resolved = append(resolved, string(id.Type)+"="+e.Value)
	}
	if len(resolved) == 0 {
		return
	}
	chain.Add(trace.StepEntityExtraction,
		fmt.Sprintf("Re-resolved %d known session entities", len(resolved)),
		strings.Join(resolved, ", "),
		1.0,
		map[string]any{"seeded": len(seed)})
	logx.Debug().Str("session_id", t.Query.SessionID).Strs("entities", resolved).Msg("known entities re-resolved")
}

// NewExecuteCondition sends total failures to Fail.
func NewExecuteCondition() func(context.Context, *model.Turn) (string, error) {
	return func(ctx context.Context, t *model.Turn) (string, error) {
		if t.Failure != nil {
			return NodeFail, nil
		}
		return NodeAnswer, nil
	}
}

// ================ Answer ================

// NewAnswerPreHandler moves Executing -> Answering.
func NewAnswerPreHandler() func(context.Context, *model.Turn, *model.RunState) (*model.Turn, error) {
	return func(ctx context.Context, in *model.Turn, s *model.RunState) (*model.Turn, error) {
		return in, s.Machine.Transition(model.StateAnswering, model.TriggerExecutionComplete)
	}
}

func NewAnswerNode(d *Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, t *model.Turn) (model.QueryResponse, error) {
		start := time.Now()
		st, err := snapshot(ctx)
		if err != nil {
			return model.QueryResponse{}, err
		}

		st.chain.Start()
		ans := d.Synth.Answer(ctx, t.Query.Text, t.Results)
		st.chain.Add(trace.StepDataExtraction,
			fmt.Sprintf("Extracted relevant fields from %d services", len(ans.Sections)),
			fmt.Sprintf("%d services had data", len(ans.Sections)),
			1.0, nil)
		decision, conf := "Model answer", 0.9
		if ans.Fallback {
			decision, conf = "Template answer", 0.7
		}
		st.chain.Add(trace.StepResponseSynthesis, "Synthesized the final answer", decision, conf,
			map[string]any{"fallback": ans.Fallback})

		d.remember(ctx, t, ans.Text)
		resp := baseResponse(t)
		resp.Response = ans.Text
		resp.Success = true
		return resp, record(ctx, "synthesis", start, ans.Usage.CostUSD)
	})
}

// ================ Fail ================

// NewFailPreHandler moves the machine to Error from wherever it stopped.
func NewFailPreHandler() func(context.Context, *model.Turn, *model.RunState) (*model.Turn, error) {
	return func(ctx context.Context, in *model.Turn, s *model.RunState) (*model.Turn, error) {
		return in, s.Machine.Transition(model.StateError, model.TriggerErrorOccurred)
	}
}

func NewFailNode(d *Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, t *model.Turn) (model.QueryResponse, error) {
		reason := "Unknown error occurred"
		if t.Failure != nil {
			reason = t.Failure.Error()
		}
		logx.Warn().Str("run_id", t.RunID).Str("session_id", t.Query.SessionID).Str("error", reason).Msg("run failed")

		resp := baseResponse(t)
		resp.Response = synth.ErrorMessage(reason)
		resp.Error = reason
		d.remember(ctx, t, resp.Response)
		return resp, nil
	})
}

// ================ Finish ================

// NewFinishPostHandler completes the machine and attaches the audit trail,
// timings and trace to the response.
func NewFinishPostHandler() func(context.Context, model.QueryResponse, *model.RunState) (model.QueryResponse, error) {
	return func(ctx context.Context, out model.QueryResponse, s *model.RunState) (model.QueryResponse, error) {
		if err := s.Machine.Transition(model.StateComplete, model.TriggerResponseReady); err != nil {
			return out, err
		}
		out.RunID = s.RunID
		out.Details.Transitions = s.Machine.Transitions()
		out.Details.TimingsMS = make(map[string]float64, len(s.Timings)+1)
		for k, v := range s.Timings {
			out.Details.TimingsMS[k] = ms(v)
		}
		out.Details.TimingsMS["total"] = ms(time.Since(s.StartedAt))
		out.CostUSD = s.TotalCostUSD
		if s.Chain != nil {
			logx.Debug().Str("run_id", s.RunID).Msg(s.Chain.Summary())
			if out.WithTrace {
				tr := s.Chain.Snapshot()
				out.Trace = &tr
			}
		}
		logx.Info().Str("run_id", s.RunID).Bool("success", out.Success).Str("final_state", string(s.Machine.State())).
			Bool("terminal", s.Machine.Terminal()).Bool("via_error", s.Machine.Visited(model.StateError)).
			Float64("total_ms", out.Details.TimingsMS["total"]).Msg("run complete")
		return out, nil
	}
}

// ================ helpers ================

type stateView struct {
	runID string
	chain *trace.Chain
}

func snapshot(ctx context.Context) (stateView, error) {
	var v stateView
	err := compose.ProcessState(ctx, func(_ context.Context, s *model.RunState) error {
		v = stateView{runID: s.RunID, chain: s.Chain}
		return nil
	})
	if err != nil {
		return v, fmt.Errorf("failed to access state: %w", err)
	}
	if v.chain == nil {
		v.chain = trace.New("", "")
	}
	return v, nil
}

func record(ctx context.Context, phase string, start time.Time, cost float64) error {
	return compose.ProcessState(ctx, func(_ context.Context, s *model.RunState) error {
		s.Timings[phase] = time.Since(start)
		s.TotalCostUSD += cost
		return nil
	})
}

func baseResponse(t *model.Turn) model.QueryResponse {
	r := t.Routing
	resp := model.QueryResponse{
		RunID:        t.RunID,
		SessionID:    t.Query.SessionID,
		ServicesUsed: append([]model.ServiceName{}, t.Completed...),
		Intent:       r.Intent,
		Confidence:   r.Confidence,
		WithTrace:    t.Query.WithTrace,
		Details: model.ExecutionDetails{
			Path:        r.Path,
			Pattern:     r.Pattern,
			Batches:     t.Plan.Batches,
			ForcedBatch: t.Plan.Forced,
			EstimatedMS: t.Plan.EstimatedTime.Milliseconds(),
		},
	}
	if len(t.Results) > 0 {
		resp.Details.LatencyMS = make(map[model.ServiceName]float64, len(t.Results))
		resp.Details.ResultConfidence = make(map[model.ServiceName]float64, len(t.Results))
		for name, res := range t.Results {
			resp.Details.LatencyMS[name] = ms(res.Latency)
			resp.Details.ResultConfidence[name] = resultConfidence(name, res)
			if !res.Success {
				if resp.Details.Failures == nil {
					resp.Details.Failures = map[model.ServiceName]string{}
				}
				resp.Details.Failures[name] = res.Error
			}
		}
	}
	return resp
}

var primaryField = map[model.ServiceName]string{
	model.ServiceOrder:     model.CtxOrderID,
	model.ServiceLogistics: model.CtxTrackingNumber,
	model.ServicePayment:   model.CtxTransactionID,
	model.ServiceSupport:   model.CtxTicketID,
}

func resultConfidence(name model.ServiceName, res model.ServiceResult) float64 {
	fields := len(res.Data) == 0
	if len(res.Data) > 0 {
		_, fields = res.Data[0][primaryField[name]]
	}
	return recovery.ResultConfidence(res.Success, len(res.Data), fields)
}

// blendInputs splits the routing confidence into the pattern, entity and
// classifier inputs of the blended intent confidence.
func blendInputs(r model.Routing) (pattern, entity, classifier float64) {
	entity = entityConfidence(r.Entities)
	if r.Path == model.PathClassifier {
		return 0, entity, r.Confidence
	}
	return r.Confidence, entity, 0
}

func failureSummary(t *model.Turn) string {
	parts := make([]string, 0, len(t.Completed))
	for _, s := range t.Completed {
		parts = append(parts, fmt.Sprintf("%s: %s", s, t.Results[s].Error))
	}
	return strings.Join(parts, "; ")
}

// remember appends the turn to the session window and the history
// repository. History errors are logged, never returned.
func (d *Deps) remember(ctx context.Context, t *model.Turn, answer string) {
	w := d.Sessions.GetOrCreate(t.Query.SessionID)

	mentioned := make([]string, 0, len(t.Routing.Entities))
	for _, e := range t.Routing.Entities {
		mentioned = append(mentioned, string(e.Type)+":"+e.Value)
		w.AddEntity(e.Type, e.Value, "mentioned by the customer")
	}
	for _, key := range model.FoldedKeys {
		if v := t.Context[key]; v != "" {
			w.AddEntity(model.EntityType(key), v, "returned by a service")
		}
	}
	w.AddMessage(schema.User, t.Query.Text, map[string]any{memory.MetaEntities: mentioned})
	w.AddMessage(schema.Assistant, answer, map[string]any{memory.MetaServices: t.Completed})

	if d.History == nil {
		return
	}
	for _, m := range []*schema.Message{schema.UserMessage(t.Query.Text), schema.AssistantMessage(answer, nil)} {
		if err := d.History.AddMessage(ctx, t.Query.SessionID, m); err != nil {
			logx.Error().Err(err).Str("session_id", t.Query.SessionID).Msg("failed to save turn to history")
			return
		}
	}
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
