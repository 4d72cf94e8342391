package observability

import (
	"log/slog"

	"github.com/muhammadut/Finite-State-Machine/pkg/automaton"
)

// LogHooks logs accepted symbols at Debug and rejected symbols at Warn.
func LogHooks[S, A comparable](logger *slog.Logger, machine string) automaton.Hooks[S, A] {
	return automaton.Hooks[S, A]{
		OnTransition: func(ev automaton.TransitionEvent[S, A]) {
			logger.Debug("transition",
				"machine", machine,
				"from", label(ev.From),
				"symbol", label(ev.Symbol),
				"to", label(ev.To),
				"step", ev.Step,
			)
		},
		OnReject: func(ev automaton.RejectEvent[S, A]) {
			logger.Warn("symbol rejected",
				"machine", machine,
				"state", label(ev.State),
				"symbol", label(ev.Symbol),
				"kind", automaton.Kind(ev.Err),
			)
		},
	}
}

// Options returns, per machine name, the hooks to attach to every string automaton built for it:
// LogHooks always and metric Hooks when m is not nil.
// The result fits session.WithAutomatonOptions.
func Options(logger *slog.Logger, m *Metrics) func(machine string) []automaton.Option[string, string] {
	return func(machine string) []automaton.Option[string, string] {
		opts := []automaton.Option[string, string]{
			automaton.WithHooks(LogHooks[string, string](logger, machine)),
		}
		if m != nil {
			opts = append(opts, automaton.WithHooks(Hooks[string, string](m, machine)))
		}
		return opts
	}
}
