package recovery

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/orchestrator/pkg/logger"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMaxRetries bounds retries after the first attempt.
const DefaultMaxRetries = 2

const lastGoodSize = 256

// Call performs one service invocation.
type Call func(ctx context.Context, req model.ServiceRequest) model.ServiceResult

// Hook observes each recovery decision.
type Hook func(attempt int, errText string, c Classification, req model.ServiceRequest)

// Recoverer runs calls with bounded, non-repeating retries and remembers
// the last good result per service and identifiers for the cache action.
type Recoverer struct {
	maxRetries int
	lastGood   *lru.Cache[string, model.ServiceResult]
}

func New(maxRetries int) *Recoverer {
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	c, _ := lru.New[string, model.ServiceResult](lastGoodSize)
	return &Recoverer{maxRetries: maxRetries, lastGood: c}
}

// MaxRetries reports the retry bound.
func (r *Recoverer) MaxRetries() int { return r.maxRetries }

// Execute makes the normal call, then up to maxRetries recovery attempts.
// Every retry uses a request that differs from all earlier ones; when no
// unused variant is left the loop stops early instead of repeating a call.
func (r *Recoverer) Execute(ctx context.Context, name model.ServiceName, call Call, req model.ServiceRequest, hook Hook) model.ServiceResult {
	started := time.Now()
	if req.Mode == "" {
		req.Mode = model.ModeStandard
	}
	tried := map[string]bool{}
	var attempts []model.Attempt
	var lastErr string
	current := req

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		var action Action
		if attempt > 0 {
			if ctx.Err() != nil {
				lastErr = fmt.Sprintf("%s (%v)", lastErr, ctx.Err())
				break
			}
			c := Classify(lastErr)
			action = c.Action

			if action == ActionCache {
				if res, ok := r.lastGood.Get(cacheKey(name, req)); ok {
					attempts = append(attempts, model.Attempt{Number: attempt + 1, Mode: model.ModeCached, Action: string(action)})
					if hook != nil {
						hook(attempt, lastErr, c, current)
					}
					res.Attempts = attempts
					res.Latency = time.Since(started)
					return res
				}
			}

			next, ok := nextRequest(req, action, tried)
			if !ok {
				logx.Warn().Str("service", string(name)).Int("attempt", attempt).
					Msg("no unused recovery request left; stopping retries")
				break
			}
			current = next
			if hook != nil {
				hook(attempt, lastErr, c, current)
			}
		}
		tried[signature(current)] = true

		res := call(ctx, current)
		if res.Success {
			attempts = append(attempts, model.Attempt{Number: attempt + 1, Mode: current.Mode, Action: string(action)})
			res.Service = name
			res.Attempts = attempts
			res.Latency = time.Since(started)
			r.lastGood.Add(cacheKey(name, req), withoutAttempts(res))
			return res
		}
		lastErr = res.Error
		if lastErr == "" {
			lastErr = "unknown error"
		}
		attempts = append(attempts, model.Attempt{Number: attempt + 1, Mode: current.Mode, Action: string(action), Error: lastErr})
	}

	out := model.Failed(name, fmt.Sprintf("All %d attempts failed. Last error: %s", len(attempts), lastErr), time.Since(started))
	out.Attempts = attempts
	return out
}

// ladder is the escalation order used when the classified action's request
// was already tried.
var ladder = []Action{ActionDirect, ActionBroaden, ActionSimplify}

func nextRequest(orig model.ServiceRequest, action Action, tried map[string]bool) (model.ServiceRequest, bool) {
	candidates := []Action{action}
	if action == ActionCache {
		candidates = nil
	}
	candidates = append(candidates, ladder...)
	for _, a := range candidates {
		next := Transform(orig, a)
		if !tried[signature(next)] {
			return next, true
		}
	}
	return model.ServiceRequest{}, false
}

// Transform builds the request for a recovery action from the original.
func Transform(req model.ServiceRequest, action Action) model.ServiceRequest {
	out := req.Clone()
	switch action {
	case ActionBroaden:
		out.Mode = model.ModeBroad
		delete(out.Context, model.CtxStatus)
		delete(out.Context, model.CtxDate)
	case ActionSimplify:
		out.Mode = model.ModeSimple
		out.Limit = 5
	default:
		out.Mode = model.ModeDirect
	}
	return out
}

func signature(req model.ServiceRequest) string {
	keys := make([]string, 0, len(req.Context))
	for k := range req.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%d|%s", req.Mode, req.Limit, req.Query)
	for _, k := range keys {
		fmt.Fprintf(&b, "|%s=%s", k, req.Context[k])
	}
	for _, e := range req.Entities {
		fmt.Fprintf(&b, "|%s:%s", e.Type, e.Value)
	}
	return b.String()
}

func cacheKey(name model.ServiceName, req model.ServiceRequest) string {
	var b strings.Builder
	b.WriteString(string(name))
	for _, k := range []string{model.CtxOrderID, model.CtxUserID, model.CtxTrackingNumber, model.CtxTicketID, model.CtxProductName} {
		b.WriteString("|")
		b.WriteString(req.Context[k])
	}
	return b.String()
}

func withoutAttempts(res model.ServiceResult) model.ServiceResult {
	res.Attempts = nil
	return res
}
