/*
Package domain contains the persisted entities of the automaton service.

It is kept free of I/O: stores, transports and the session manager exchange these values, while
the automaton engine itself lives in package automaton.

# Key Entities

  - Session: a named machine together with its run cursor (current state and history).
*/
package domain
