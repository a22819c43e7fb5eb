// Package executor runs an execution plan batch by batch, calling every
// service of a batch concurrently and folding identifiers forward.
package executor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/model"
	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/recovery"
	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/services"
	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/trace"
	logx "github.com/Chative-core-poc-v1/orchestrator/pkg/logger"
)

const DefaultCallTimeout = 10 * time.Second

// Observer receives one event per finished service invocation.
type Observer interface {
	ObserveServiceCall(service model.ServiceName, success bool, latency time.Duration)
}

// Executor is safe for concurrent runs.
type Executor struct {
	registry  *services.Registry
	recoverer *recovery.Recoverer
	timeout   time.Duration
	observer  Observer
}

type Option func(*Executor)

// WithCallTimeout sets the deadline applied to every service attempt.
func WithCallTimeout(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

func WithObserver(o Observer) Option {
	return func(e *Executor) { e.observer = o }
}

func New(reg *services.Registry, rec *recovery.Recoverer, opts ...Option) *Executor {
	if rec == nil {
		rec = recovery.New(recovery.DefaultMaxRetries)
	}
	e := &Executor{registry: reg, recoverer: rec, timeout: DefaultCallTimeout}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Input is everything a run needs besides the plan.
type Input struct {
	Query    string
	Seed     map[string]string
	Entities []model.ExtractedEntity
	// Chain is optional.
	Chain *trace.Chain
}

// Output collects a run's results. Completed lists executed services in
// batch order, not completion order.
type Output struct {
	Results   map[model.ServiceName]model.ServiceResult
	Completed []model.ServiceName
	Context   map[string]string
}

// Successes counts successful results.
func (o Output) Successes() int {
	n := 0
	for _, r := range o.Results {
		if r.Success {
			n++
		}
	}
	return n
}

// Run executes batches sequentially. A batch starts only after every call of
// the previous batch returned, failed calls included.
func (e *Executor) Run(ctx context.Context, plan model.ExecutionPlan, in Input) Output {
	out := Output{
		Results: make(map[model.ServiceName]model.ServiceResult, len(plan.Services())),
		Context: make(map[string]string, len(in.Seed)+len(model.FoldedKeys)),
	}
	for k, v := range in.Seed {
		if v != "" {
			out.Context[k] = v
		}
	}

	for i, batch := range plan.Batches {
		if in.Chain != nil {
			in.Chain.Start()
		}
		batchCtx := mergeEntities(out.Context, in.Entities)
		results := e.runBatch(ctx, batch, model.ServiceRequest{
			Query:    in.Query,
			Context:  batchCtx,
			Entities: in.Entities,
			Mode:     model.ModeStandard,
		}, in.Chain)

		succeeded := 0
		for j, s := range batch {
			res := results[j]
			out.Results[s] = res
			out.Completed = append(out.Completed, s)
			if res.Success {
				succeeded++
				fold(out.Context, res)
			}
		}

		logx.Debug().Int("batch", i).Interface("services", batch).Int("succeeded", succeeded).
			Interface("context", out.Context).Msg("batch complete")
		if in.Chain != nil {
			in.Chain.Add(trace.StepAgentExecution,
				fmt.Sprintf("Batch %d: %s", i+1, joinNames(batch)),
				fmt.Sprintf("%d/%d succeeded", succeeded, len(batch)),
				float64(succeeded)/float64(len(batch)),
				map[string]any{"batch": i, "services": batch})
		}
	}
	return out
}

func (e *Executor) runBatch(ctx context.Context, batch []model.ServiceName, req model.ServiceRequest, chain *trace.Chain) []model.ServiceResult {
	results := make([]model.ServiceResult, len(batch))
	var wg sync.WaitGroup
	for i, name := range batch {
		wg.Add(1)
		go func(i int, name model.ServiceName) {
			defer wg.Done()
			results[i] = e.execute(ctx, name, req.Clone(), chain)
		}(i, name)
	}
	wg.Wait()
	return results
}

func (e *Executor) execute(ctx context.Context, name model.ServiceName, req model.ServiceRequest, chain *trace.Chain) model.ServiceResult {
	svc, ok := e.registry.Get(name)
	if !ok {
		return model.Failed(name, "service not registered: "+string(name), 0)
	}

	var hook recovery.Hook
	if chain != nil {
		hook = func(attempt int, errText string, c recovery.Classification, next model.ServiceRequest) {
			chain.Add(trace.StepErrorRecovery,
				fmt.Sprintf("%s attempt %d failed: %s", name, attempt, truncate(errText, 50)),
				"Recovery: "+c.Strategy, 0.7,
				map[string]any{"attempt": attempt, "error_type": c.ErrorType, "action": string(c.Action), "mode": string(next.Mode)})
		}
	}

	res := e.recoverer.Execute(ctx, name, func(ctx context.Context, r model.ServiceRequest) model.ServiceResult {
		return e.call(ctx, svc, r)
	}, req, hook)

	if e.observer != nil {
		e.observer.ObserveServiceCall(name, res.Success, res.Latency)
	}
	ev := logx.Debug()
	if !res.Success {
		ev = logx.Warn().Str("error", res.Error)
	}
	ev.Str("service", string(name)).Bool("success", res.Success).Int("rows", len(res.Data)).
		Int("attempts", len(res.Attempts)).Int64("latency_ms", res.Latency.Milliseconds()).Msg("service call finished")
	return res
}

type outcome struct {
	res model.ServiceResult
}

// call runs one attempt under its own deadline. A service that ignores its
// context is abandoned when the deadline passes; a panic becomes a failure.
func (e *Executor) call(ctx context.Context, svc services.Service, req model.ServiceRequest) model.ServiceResult {
	started := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				logx.Error().Str("service", string(svc.Name())).Interface("panic", p).Msg("service panicked")
				done <- outcome{model.Failed(svc.Name(), fmt.Sprintf("service fault: %v", p), time.Since(started))}
			}
		}()
		done <- outcome{svc.Execute(callCtx, req)}
	}()

	select {
	case o := <-done:
		if o.res.Service == "" {
			o.res.Service = svc.Name()
		}
		return o.res
	case <-callCtx.Done():
		msg := fmt.Sprintf("call timed out after %s", e.timeout)
		if ctx.Err() != nil {
			msg = "call cancelled: " + ctx.Err().Error()
		}
		return model.Failed(svc.Name(), msg, time.Since(started))
	}
}

var entityKeys = map[model.EntityType]string{
	model.EntityOrderID:        model.CtxOrderID,
	model.EntityUserID:         model.CtxUserID,
	model.EntityProductName:    model.CtxProductName,
	model.EntityTrackingNumber: model.CtxTrackingNumber,
	model.EntityTicketID:       model.CtxTicketID,
	model.EntityTransactionID:  model.CtxTransactionID,
	model.EntityDateRange:      model.CtxDate,
}

// mergeEntities copies ctx and fills keys it lacks from the first entity of
// each mapped type.
func mergeEntities(ctx map[string]string, entities []model.ExtractedEntity) map[string]string {
	out := make(map[string]string, len(ctx)+len(entities))
	for k, v := range ctx {
		out[k] = v
	}
	for _, e := range entities {
		key, ok := entityKeys[e.Type]
		if !ok || e.Value == "" {
			continue
		}
		if _, set := out[key]; !set {
			out[key] = e.Value
		}
	}
	return out
}

// fold copies identifiers from the first record of a successful result into
// ctx. Values already present are kept.
func fold(ctx map[string]string, res model.ServiceResult) {
	if len(res.Data) == 0 {
		return
	}
	first := res.Data[0]
	for _, k := range model.FoldedKeys {
		if _, set := ctx[k]; set {
			continue
		}
		if v := first.Get(k); v != "" {
			ctx[k] = v
		}
	}
}

func joinNames(batch []model.ServiceName) string {
	names := make([]string, len(batch))
	for i, s := range batch {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
