// Package modthree computes the remainder of a binary number divided by three with a three-state
// automaton.
//
// Reading the number most significant bit first, the remainder r of the prefix seen so far becomes
// (2r + bit) mod 3 after each bit. The states R0, R1 and R2 hold that running remainder:
//
//	state | on '0' | on '1'
//	------+--------+-------
//	  S0  |   S0   |   S1
//	  S1  |   S2   |   S0
//	  S2  |   S1   |   S2
//
// All three states are final, so every well-formed input is accepted and the final state is the
// answer.
package modthree
