// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

// Package validation implements the Validation phase handler (spec.md
// §4.C, step 1 of each iteration): committee members vote on the
// iteration's candidate (or on the zero hash), and the step concludes as
// soon as one hash's accumulated power crosses the committee's quorum
// threshold.
package validation

import (
	"gitlab.dusk.network/vota/consensus/pkg/core/block"
	"gitlab.dusk.network/vota/consensus/pkg/core/consensus"
	"gitlab.dusk.network/vota/consensus/pkg/core/consensus/aggregator"
	"gitlab.dusk.network/vota/consensus/pkg/core/consensus/logging"
	"gitlab.dusk.network/vota/consensus/pkg/core/consensus/msghandler"
	"gitlab.dusk.network/vota/consensus/pkg/core/consensus/registry"
	"gitlab.dusk.network/vota/consensus/pkg/core/consensus/user"
)

var lg = logging.WithProcess("validation")

// Handler drives one iteration's Validation step. A fresh instance (and a
// fresh Aggregator) is built per iteration, matching spec.md §3's
// "Lifecycles" note that Validation's tally does not carry across
// iterations.
type Handler struct {
	ru        consensus.RoundUpdate
	committee *user.Committee
	agg       *aggregator.Aggregator
	reg       *registry.Registry

	done   bool
	result consensus.ValidationResult
}

// New builds a Validation handler for one iteration's committee. reg may
// be nil in tests that don't care about certificate assembly.
func New(ru consensus.RoundUpdate, committee *user.Committee, reg *registry.Registry) *Handler {
	return &Handler{ru: ru, committee: committee, agg: aggregator.New(), reg: reg}
}

// IsValid rejects anything that isn't a Validation-topic vote.
func (h *Handler) IsValid(msg consensus.Message) error {
	if msg.Header.Topic != consensus.TopicValidation {
		return consensus.NewError(consensus.ErrInvalidMsgType, nil)
	}
	return nil
}

// Verify checks the signer holds a seat on this step's committee. The BLS
// signature's cryptographic validity is a capability outside this core's
// scope (spec.md §1): it is trusted to have been checked upstream of
// Collect, the same boundary the teacher's own handler draws around
// `agreement.ReconstructApk`-style verification.
func (h *Handler) Verify(msg consensus.Message) error {
	if !h.committee.IsMember(msg.Header.Signer) {
		return consensus.NewError(consensus.ErrNotCommitteeMember, nil)
	}
	return nil
}

// VerifyStateless is the same membership check as Verify — Validation has
// no additional live state a Future message's pre-check could use.
func (h *Handler) VerifyStateless(msg consensus.Message) error {
	return h.Verify(msg)
}

// Collect folds a verified vote into the aggregator and concludes the step
// the instant any hash (including the zero hash) crosses quorum.
func (h *Handler) Collect(msg consensus.Message) (msghandler.HandleOutput, error) {
	if h.done {
		return msghandler.HandleOutput{}, nil
	}

	sv, quorumReached, ok := h.agg.CollectVote(h.committee, msg.Header, msg.Vote.Signature[:])
	if !ok || !quorumReached {
		return msghandler.HandleOutput{}, nil
	}

	qType := consensus.ValidQuorum
	var zero [32]byte
	if msg.Header.BlockHash == zero {
		qType = consensus.NilQuorum
	}

	h.done = true
	h.result = consensus.ValidationResult{SV: sv, Hash: msg.Header.BlockHash, Quorum: qType}

	lg.WithField("round", h.ru.Round).
		WithField("step", msg.Header.StepID()).
		WithField("hash", block.ToStr(msg.Header.BlockHash)).
		WithField("quorum", qType.String()).
		Debug("validation quorum reached")

	if h.reg != nil {
		h.reg.AddStepVotes(msg.Header.StepID(), msg.Header.BlockHash, sv, registry.PhaseValidation, true)
	}

	return msghandler.HandleOutput{
		Ready:           true,
		Message:         consensus.Message{Header: msg.Header, Vote: msg.Vote},
		TimeoutIncrease: qType == consensus.NilQuorum,
	}, nil
}

// CollectFromPast folds a straggling vote into a prior iteration's already
// -cached Validation handler instance — the catch-up voting path (spec.md
// §9, §12). It shares Collect's aggregation logic but never requests a
// timeout adjustment: that iteration's schedule has already moved on.
func (h *Handler) CollectFromPast(msg consensus.Message) (msghandler.HandleOutput, error) {
	out, err := h.Collect(msg)
	out.TimeoutIncrease = false
	return out, err
}

// HandleTimeout concludes the step with NoQuorum if no hash ever crossed
// threshold, and flags the next iteration's Validation timeout to double
// (spec.md §5).
func (h *Handler) HandleTimeout() msghandler.HandleOutput {
	if h.done {
		return msghandler.HandleOutput{Ready: true, Message: consensus.Empty()}
	}
	h.done = true
	h.result = consensus.ValidationResult{Quorum: consensus.NoQuorum}
	return msghandler.HandleOutput{Ready: true, Message: consensus.Empty(), TimeoutIncrease: true}
}

// Result exposes the step's outcome for the round driver to hand to
// Ratification.
func (h *Handler) Result() consensus.ValidationResult {
	return h.result
}
