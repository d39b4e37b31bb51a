// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

// Package msghandler defines the phase-handler contract (spec.md §4.C)
// every one of Proposal, Validation and Ratification implements, and the
// shared gate (IsValid) the execution context runs before dispatching to
// any of them.
package msghandler

import (
	"gitlab.dusk.network/vota/consensus/pkg/core/consensus"
)

// HandleOutput is what a handler hands back to the execution context
// after processing one message or a timeout.
type HandleOutput struct {
	// Ready is true once this step has produced its final result — the
	// loop must stop feeding it further messages for the current
	// (iteration, step).
	Ready bool
	// Message is the step's result, meaningful only when Ready is true:
	// the outbound vote/quorum to gossip, or the empty message on timeout.
	Message consensus.Message
	// TimeoutIncrease signals the iteration's timeout for this step name
	// should double (capped), per spec.md §5's adaptive-timeout rule —
	// set on a NilQuorum or a bare timeout, never on a ValidQuorum.
	TimeoutIncrease bool
}

// Handler is the per-phase contract the execution context drives. Each of
// Proposal, Validation and Ratification implements it once per iteration.
type Handler interface {
	// IsValid is the structural gate run before any phase-specific work:
	// it rejects malformed payloads and wrong-topic messages outright,
	// independent of whether the message is Past, Present or Future.
	IsValid(msg consensus.Message) error

	// Verify performs the phase's cryptographic/identity check (BLS
	// signature, committee membership) without mutating any tally.
	Verify(msg consensus.Message) error

	// VerifyStateless pre-validates a Future message against a committee
	// that already exists for its target step — membership and payload
	// shape only, no cryptographic check requiring this phase's live
	// state — before it is parked in the future-message queue. Returns
	// nil if no such committee exists yet (msg is parked blind).
	VerifyStateless(msg consensus.Message) error

	// Collect folds an already-verified Present message into this
	// phase's running state and reports whether the phase is done.
	Collect(msg consensus.Message) (HandleOutput, error)

	// CollectFromPast folds a verified message belonging to an earlier
	// iteration into that iteration's already-closed tally — the
	// catch-up voting path (spec.md §9, §12): a straggling vote can
	// still complete a certificate for a round that hasn't moved on.
	CollectFromPast(msg consensus.Message) (HandleOutput, error)

	// HandleTimeout is invoked when the step's deadline fires before
	// Collect ever returned Ready.
	HandleTimeout() HandleOutput
}
