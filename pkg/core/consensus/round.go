// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package consensus

// RoundUpdate is the immutable context passed to every handler for the
// lifetime of one round.
type RoundUpdate struct {
	Round         uint64
	PubKeyBLS     []byte
	PrevBlockHash [32]byte
	Seed          []byte
}

// Status is a message's temporal relation to the context's current
// position, computed lexicographically over (round, iteration, step).
type Status uint8

const (
	// Past: msg belongs to an earlier (round, iteration, step).
	Past Status = iota
	// Present: msg belongs to exactly the current (round, iteration, step).
	Present
	// Future: msg belongs to a later (round, iteration, step).
	Future
)

// Compare positions (msgRound, msgIteration, msgStep) against
// (round, iteration, step), lexicographically, yielding the message's
// temporal Status relative to that position.
func Compare(msgRound uint64, msgIteration uint8, msgStep StepName, round uint64, iteration uint8, step StepName) Status {
	switch {
	case msgRound != round:
		if msgRound < round {
			return Past
		}
		return Future
	case msgIteration != iteration:
		if msgIteration < iteration {
			return Past
		}
		return Future
	case msgStep != step:
		if msgStep < step {
			return Past
		}
		return Future
	default:
		return Present
	}
}
