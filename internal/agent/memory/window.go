// Package memory keeps bounded per-session conversational context: recent
// full messages, rolling summaries and entity references.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/orchestrator/pkg/logger"
	"github.com/Chative-core-poc-v1/orchestrator/pkg/tokens"
	"github.com/cloudwego/eino/schema"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Metadata keys read during compaction.
const (
	MetaEntities = "entities"
	MetaServices = "services"
)

const (
	maxIntentChars   = 100
	maxEntityMention = 10
	maxFindings      = 3
	relevantMessages = 3
	relevantEntities = 5
)

// Message is one full conversational turn.
type Message struct {
	Role     schema.RoleType `json:"role"`
	Content  string          `json:"content"`
	Metadata map[string]any  `json:"metadata,omitempty"`
	At       time.Time       `json:"at"`
	Tokens   int             `json:"tokens"`
}

// Summary replaces a run of compacted messages.
type Summary struct {
	UserIntent        string    `json:"user_intent"`
	EntitiesMentioned []string  `json:"entities_mentioned"`
	ServicesConsulted []string  `json:"services_consulted"`
	KeyFindings       []string  `json:"key_findings"`
	Messages          int       `json:"messages"`
	At                time.Time `json:"at"`
}

// EntityRef stands in for data owned by a service; it never holds the data.
type EntityRef struct {
	Type    model.EntityType `json:"type"`
	ID      string           `json:"id"`
	Summary string           `json:"summary,omitempty"`
	At      time.Time        `json:"at"`
}

// Resolver fetches current data for an entity reference from its owner.
type Resolver interface {
	Resolve(ctx context.Context, t model.EntityType, id string) (model.Record, error)
}

// View is the bounded context handed to the reasoner.
type View struct {
	SessionID string      `json:"session_id"`
	Messages  []Message   `json:"messages"`
	Summaries []Summary   `json:"summaries"`
	Entities  []EntityRef `json:"entity_references"`
	Tokens    int         `json:"token_estimate"`
}

// Window is one session's memory. Methods are safe for concurrent use;
// concurrent turns of the same session interleave with last-writer-wins.
type Window struct {
	mu         sync.Mutex
	sessionID  string
	cfg        model.ContextConfig
	count      func(string) int
	resolver   Resolver
	now        func() time.Time
	messages   []Message
	summaries  []Summary
	entities   *lru.Cache[string, EntityRef]
	total      int
	lastActive time.Time
}

type Option func(*Window)

// WithCounter replaces the tiktoken counter.
func WithCounter(count func(string) int) Option {
	return func(w *Window) { w.count = count }
}

func WithResolver(r Resolver) Option {
	return func(w *Window) { w.resolver = r }
}

func WithClock(now func() time.Time) Option {
	return func(w *Window) { w.now = now }
}

func NewWindow(sessionID string, cfg model.ContextConfig, opts ...Option) *Window {
	cfg = withDefaults(cfg)
	w := &Window{sessionID: sessionID, cfg: cfg, now: time.Now}
	for _, o := range opts {
		o(w)
	}
	if w.count == nil {
		w.count = tokens.NewCounter().Count
	}
	w.entities, _ = lru.New[string, EntityRef](cfg.MaxEntities)
	w.lastActive = w.now()
	return w
}

func withDefaults(cfg model.ContextConfig) model.ContextConfig {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4000
	}
	if cfg.KeepMessages <= 0 {
		cfg.KeepMessages = 5
	}
	if cfg.MaxEntities <= 0 {
		cfg.MaxEntities = 20
	}
	if cfg.ViewEntities <= 0 {
		cfg.ViewEntities = 10
	}
	if cfg.ViewSummary <= 0 {
		cfg.ViewSummary = 3
	}
	return cfg
}

func (w *Window) SessionID() string { return w.sessionID }

// LastActive is the time of the last write.
func (w *Window) LastActive() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastActive
}

// AddMessage appends a message and compacts when over budget.
func (w *Window) AddMessage(role schema.RoleType, content string, meta map[string]any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := w.count(content)
	w.messages = append(w.messages, Message{Role: role, Content: content, Metadata: meta, At: w.now(), Tokens: n})
	w.total += n
	w.lastActive = w.now()
	w.compact()
}

// compact folds everything but the last KeepMessages into one summary once
// the running total exceeds the budget, then recounts from what is left.
func (w *Window) compact() {
	if w.total <= w.cfg.MaxTokens || len(w.messages) <= w.cfg.KeepMessages {
		return
	}
	before := w.total
	cut := len(w.messages) - w.cfg.KeepMessages
	old := w.messages[:cut]
	w.summaries = append(w.summaries, summarize(old, w.now()))
	w.messages = append([]Message(nil), w.messages[cut:]...)

	w.total = 0
	for _, m := range w.messages {
		w.total += m.Tokens
	}
	logx.Info().Str("session_id", w.sessionID).Int("tokens_before", before).Int("tokens_after", w.total).
		Int("compacted", len(old)).Msg("context compacted")
}

func summarize(msgs []Message, at time.Time) Summary {
	s := Summary{Messages: len(msgs), At: at}
	entities := newOrderedSet()
	services := newOrderedSet()
	for _, m := range msgs {
		switch m.Role {
		case schema.User:
			if s.UserIntent == "" {
				s.UserIntent = truncate(m.Content, maxIntentChars)
			}
		case schema.Assistant:
			if len(s.KeyFindings) < maxFindings && m.Content != "" {
				s.KeyFindings = append(s.KeyFindings, truncate(m.Content, maxIntentChars))
			}
		}
		entities.addAll(stringsOf(m.Metadata[MetaEntities]))
		services.addAll(stringsOf(m.Metadata[MetaServices]))
	}
	s.EntitiesMentioned = entities.first(maxEntityMention)
	s.ServicesConsulted = services.first(0)
	if len(s.KeyFindings) == 0 {
		s.KeyFindings = []string{"Conversation summarized to stay within the context budget"}
	}
	return s
}

// AddEntity records a reference, evicting the least recently used one when
// the map is full.
func (w *Window) AddEntity(t model.EntityType, id, summary string) {
	if id == "" {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entities.Add(entityKey(t, id), EntityRef{Type: t, ID: id, Summary: summary, At: w.now()})
	w.lastActive = w.now()
}

// GetEntity re-resolves a known reference through its owning service. Data
// is never served from memory.
func (w *Window) GetEntity(ctx context.Context, t model.EntityType, id string) (model.Record, bool) {
	w.mu.Lock()
	_, ok := w.entities.Get(entityKey(t, id))
	resolver := w.resolver
	w.mu.Unlock()
	if !ok || resolver == nil {
		return nil, false
	}
	rec, err := resolver.Resolve(ctx, t, id)
	if err != nil {
		logx.Warn().Err(err).Str("session_id", w.sessionID).Str("entity_type", string(t)).Str("entity_id", id).
			Msg("entity re-resolution failed")
		return nil, false
	}
	return rec, rec != nil
}

// ContextForReasoning returns the last KeepMessages messages, the last
// ViewSummary summaries and the ViewEntities most recent references.
func (w *Window) ContextForReasoning() View {
	w.mu.Lock()
	defer w.mu.Unlock()
	return View{
		SessionID: w.sessionID,
		Messages:  tail(w.messages, w.cfg.KeepMessages),
		Summaries: tail(w.summaries, w.cfg.ViewSummary),
		Entities:  tail(w.entityRefs(), w.cfg.ViewEntities),
		Tokens:    w.total,
	}
}

// RelevantContext keeps only messages sharing a word with query (last 3)
// plus the 5 most recent references.
func (w *Window) RelevantContext(query string) View {
	keywords := map[string]bool{}
	for _, f := range strings.Fields(strings.ToLower(query)) {
		keywords[f] = true
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	var hits []Message
	for _, m := range w.messages {
		for _, f := range strings.Fields(strings.ToLower(m.Content)) {
			if keywords[f] {
				hits = append(hits, m)
				break
			}
		}
	}
	return View{
		SessionID: w.sessionID,
		Messages:  tail(hits, relevantMessages),
		Entities:  tail(w.entityRefs(), relevantEntities),
		Tokens:    w.total,
	}
}

// Tokens is the running size cost of the full messages.
func (w *Window) Tokens() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.total
}

// Messages returns a copy of the full messages.
func (w *Window) Messages() []Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Message(nil), w.messages...)
}

func (w *Window) Summaries() []Summary {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Summary(nil), w.summaries...)
}

// entityRefs lists references oldest to most recently used.
func (w *Window) entityRefs() []EntityRef {
	keys := w.entities.Keys()
	out := make([]EntityRef, 0, len(keys))
	for _, k := range keys {
		if ref, ok := w.entities.Peek(k); ok {
			out = append(out, ref)
		}
	}
	return out
}

func entityKey(t model.EntityType, id string) string {
	return string(t) + ":" + id
}

func tail[T any](in []T, n int) []T {
	if len(in) > n {
		in = in[len(in)-n:]
	}
	return append([]T(nil), in...)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func stringsOf(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, x := range t {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []model.ServiceName:
		out := make([]string, len(t))
		for i, s := range t {
			out[i] = string(s)
		}
		return out
	}
	return nil
}

type orderedSet struct {
	seen  map[string]bool
	items []string
}

func newOrderedSet() *orderedSet { return &orderedSet{seen: map[string]bool{}} }

func (s *orderedSet) addAll(vals []string) {
	for _, v := range vals {
		if v == "" || s.seen[v] {
			continue
		}
		s.seen[v] = true
		s.items = append(s.items, v)
	}
}

// first returns up to n items; n <= 0 means all.
func (s *orderedSet) first(n int) []string {
	if n > 0 && len(s.items) > n {
		return s.items[:n]
	}
	if s.items == nil {
		return []string{}
	}
	return s.items
}
