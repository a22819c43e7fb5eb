// Package services holds the closed set of domain services the orchestrator
// can call, and the SQLite-backed reference implementations.
package services

import (
	"context"
	"fmt"

	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/orchestrator/internal/core/error"
)

// Service answers part of a customer query. Execute never returns an error:
// faults are reported in the result so sibling calls keep running.
type Service interface {
	Name() model.ServiceName
	Execute(ctx context.Context, req model.ServiceRequest) model.ServiceResult
	Ping(ctx context.Context) error
}

// Func adapts plain functions to Service.
type Func struct {
	N      model.ServiceName
	Run    func(ctx context.Context, req model.ServiceRequest) model.ServiceResult
	PingFn func(ctx context.Context) error
}

func (f Func) Name() model.ServiceName { return f.N }

func (f Func) Execute(ctx context.Context, req model.ServiceRequest) model.ServiceResult {
	return f.Run(ctx, req)
}

func (f Func) Ping(ctx context.Context) error {
	if f.PingFn == nil {
		return nil
	}
	return f.PingFn(ctx)
}

// Registry is the name → service table, fixed at construction.
type Registry struct {
	byName map[model.ServiceName]Service
}

// NewRegistry rejects names outside the known set and duplicates.
func NewRegistry(svcs ...Service) (*Registry, error) {
	r := &Registry{byName: make(map[model.ServiceName]Service, len(svcs))}
	for _, s := range svcs {
		name := s.Name()
		if !name.Valid() {
			return nil, fmt.Errorf("register %q: %w", name, errx.ErrUnknownService)
		}
		if _, dup := r.byName[name]; dup {
			return nil, fmt.Errorf("register %q: duplicate service", name)
		}
		r.byName[name] = s
	}
	return r, nil
}

// Get returns the service registered under name.
func (r *Registry) Get(name model.ServiceName) (Service, bool) {
	s, ok := r.byName[name]
	return s, ok
}

// Names lists registered services in canonical order.
func (r *Registry) Names() []model.ServiceName {
	out := make([]model.ServiceName, 0, len(r.byName))
	for _, n := range model.AllServices() {
		if _, ok := r.byName[n]; ok {
			out = append(out, n)
		}
	}
	return out
}

// Readiness is one service's health check outcome.
type Readiness struct {
	Service model.ServiceName `json:"service"`
	Ready   bool              `json:"ready"`
	Error   string            `json:"error,omitempty"`
}

// Ping checks every registered service.
func (r *Registry) Ping(ctx context.Context) []Readiness {
	out := make([]Readiness, 0, len(r.byName))
	for _, n := range r.Names() {
		rd := Readiness{Service: n, Ready: true}
		if err := r.byName[n].Ping(ctx); err != nil {
			rd.Ready = false
			rd.Error = err.Error()
		}
		out = append(out, rd)
	}
	return out
}
