/*
Package observability turns automaton lifecycle hooks into metrics and structured logs.

Hooks and LogHooks return automaton.Hooks values; register them with automaton.WithHooks.
Metrics are plain Prometheus collectors registered on a caller-supplied Registerer.
*/
package observability
