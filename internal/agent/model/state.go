package model

import (
	"fmt"
	"time"
)

// AgentState is a state of the orchestration machine.
type AgentState string

const (
	StateListening AgentState = "listening"
	StateRouting   AgentState = "routing"
	StateExecuting AgentState = "executing"
	StateAnswering AgentState = "answering"
	StateError     AgentState = "error"
	StateComplete  AgentState = "complete"
)

// Trigger names the event that caused a transition.
type Trigger string

const (
	TriggerSessionStart      Trigger = "session_start"
	TriggerQueryReceived     Trigger = "query_received"
	TriggerPlanCreated       Trigger = "plan_created"
	TriggerExecutionComplete Trigger = "execution_complete"
	TriggerErrorOccurred     Trigger = "error_occurred"
	TriggerResponseReady     Trigger = "response_ready"
)

// allowedTransitions holds the one-directional edges of the machine.
var allowedTransitions = map[AgentState][]AgentState{
	StateListening: {StateRouting},
	StateRouting:   {StateExecuting, StateError},
	StateExecuting: {StateAnswering, StateError},
	StateAnswering: {StateComplete},
	StateError:     {StateComplete},
}

// Transition is one audit-trail entry.
type Transition struct {
	From    AgentState `json:"from"`
	To      AgentState `json:"to"`
	Trigger Trigger    `json:"trigger"`
	At      time.Time  `json:"at"`
}

// Machine tracks the current state and the append-only audit trail.
type Machine struct {
	state       AgentState
	transitions []Transition
	now         func() time.Time
}

// NewMachine starts in Listening with a session_start entry.
func NewMachine() *Machine {
	m := &Machine{state: StateListening, now: time.Now}
	m.transitions = append(m.transitions, Transition{To: StateListening, Trigger: TriggerSessionStart, At: m.now()})
	return m
}

// State returns the current state.
func (m *Machine) State() AgentState {
	return m.state
}

// Terminal reports whether the machine reached Complete.
func (m *Machine) Terminal() bool {
	return m.state == StateComplete
}

// Transition moves to `to` if the edge exists.
func (m *Machine) Transition(to AgentState, trigger Trigger) error {
	for _, next := range allowedTransitions[m.state] {
		if next == to {
			m.transitions = append(m.transitions, Transition{From: m.state, To: to, Trigger: trigger, At: m.now()})
			m.state = to
			return nil
		}
	}
	return fmt.Errorf("illegal transition %s -> %s (%s)", m.state, to, trigger)
}

// Transitions returns a copy of the audit trail.
func (m *Machine) Transitions() []Transition {
	out := make([]Transition, len(m.transitions))
	copy(out, m.transitions)
	return out
}

// Visited reports whether the machine has ever been in s.
func (m *Machine) Visited(s AgentState) bool {
	for _, t := range m.transitions {
		if t.To == s {
			return true
		}
	}
	return false
}
