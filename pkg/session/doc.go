/*
Package session runs automata on behalf of many callers.

An automaton is a single-threaded cursor. Manager keeps each run in a ports.SessionStore and
serialises every operation on a session ID, in-process with a reference-counted mutex and, when a
ports.DistributedLocker is configured, across replicas. Each operation rebuilds the machine from
its definition, restores the stored cursor, applies the change and saves the result.
*/
package session
