/*
Package fsm is a generic deterministic finite automaton library with a mod-three application on top.

An automaton is the 5-tuple (Q, Σ, q0, F, δ): a finite set of states, an input alphabet, an initial
state, a set of final states and a transition relation. The engine validates the tuple once at
construction and then drives a single cursor through the input, recording every state it visits.

# Packages

  - pkg/automaton: the generic engine, Automaton[S, A], with table or function relations.
  - pkg/modthree: remainder of a binary number divided by three, built on the engine.
  - pkg/definition and pkg/registry: automata described as YAML or JSON and looked up by name.
  - pkg/session: persisted runs, serialised per session, over memory, file or Redis stores.
  - pkg/adapters/http and pkg/adapters/mcp: the same operations over HTTP and the Model Context Protocol.

The fsm command (cmd/fsm) exposes all of the above from the terminal.

# Usage

	package main

	import (
		"fmt"
		"log"

		"github.com/muhammadut/Finite-State-Machine/pkg/automaton"
		"github.com/muhammadut/Finite-State-Machine/pkg/modthree"
	)

	func main() {
		// The packaged application.
		r, err := modthree.Compute("1101")
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(r) // 1

		// A machine of your own.
		light, err := automaton.New(
			[]string{"red", "green", "yellow"},
			[]string{"tick"},
			"red",
			[]string{"red"},
			automaton.Table[string, string]{
				{State: "red", Symbol: "tick"}:    "green",
				{State: "green", Symbol: "tick"}:  "yellow",
				{State: "yellow", Symbol: "tick"}: "red",
			},
		)
		if err != nil {
			log.Fatal(err)
		}
		state, _ := light.Run([]string{"tick", "tick"})
		fmt.Println(state) // yellow
	}

# Concurrency

An Automaton is not safe for concurrent use. Share runs between goroutines or processes through
session.Manager, which locks per session.
*/
package fsm
