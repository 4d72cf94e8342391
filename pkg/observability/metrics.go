package observability

import (
	"fmt"

	"github.com/muhammadut/Finite-State-Machine/pkg/automaton"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the automaton collectors.
type Metrics struct {
	Transitions *prometheus.CounterVec
	StepErrors  *prometheus.CounterVec
	Resets      *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fsm_transitions_total",
				Help: "Total number of accepted symbols, by edge",
			},
			[]string{"machine", "from", "symbol", "to"},
		),
		StepErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fsm_step_errors_total",
				Help: "Total number of rejected symbols, by error kind",
			},
			[]string{"machine", "kind"},
		),
		Resets: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fsm_resets_total",
				Help: "Total number of automaton resets",
			},
			[]string{"machine"},
		),
	}
	for _, c := range []prometheus.Collector{m.Transitions, m.StepErrors, m.Resets} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}
	return m, nil
}

// Hooks records the events of one machine's automata.
func Hooks[S, A comparable](m *Metrics, machine string) automaton.Hooks[S, A] {
	return automaton.Hooks[S, A]{
		OnTransition: func(ev automaton.TransitionEvent[S, A]) {
			m.Transitions.WithLabelValues(machine, label(ev.From), label(ev.Symbol), label(ev.To)).Inc()
		},
		OnReject: func(ev automaton.RejectEvent[S, A]) {
			m.StepErrors.WithLabelValues(machine, automaton.Kind(ev.Err)).Inc()
		},
		OnReset: func(S) {
			m.Resets.WithLabelValues(machine).Inc()
		},
	}
}

func label(v any) string {
	if r, ok := v.(rune); ok {
		return string(r)
	}
	return fmt.Sprint(v)
}
