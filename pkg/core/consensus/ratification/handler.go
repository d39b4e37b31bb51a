// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

// Package ratification implements the Ratification phase handler
// (spec.md §4.C, step 2 of each iteration): committee members vote on
// Validation's outcome, and — once both phases agree on the same
// non-zero hash — the registry assembles and emits a Quorum certificate.
// The committee-intersection/BLS-reconstruction shape here is adapted
// from the teacher's agreement handler (ReconstructApk over a bitset
// subcommittee), applied to this core's single-step Ratification tally
// instead of the teacher's two-step VotesPerStep accumulation.
package ratification

import (
	"gitlab.dusk.network/vota/consensus/pkg/core/block"
	"gitlab.dusk.network/vota/consensus/pkg/core/consensus"
	"gitlab.dusk.network/vota/consensus/pkg/core/consensus/aggregator"
	"gitlab.dusk.network/vota/consensus/pkg/core/consensus/logging"
	"gitlab.dusk.network/vota/consensus/pkg/core/consensus/msghandler"
	"gitlab.dusk.network/vota/consensus/pkg/core/consensus/registry"
	"gitlab.dusk.network/vota/consensus/pkg/core/consensus/user"
)

var lg = logging.WithProcess("ratification")

// Handler drives one iteration's Ratification step.
type Handler struct {
	ru        consensus.RoundUpdate
	committee *user.Committee
	agg       *aggregator.Aggregator
	reg       *registry.Registry

	// validation is the Validation step's own outcome for this
	// iteration, carrying the Validation-phase StepVotes the eventual
	// certificate pairs with this step's Ratification StepVotes.
	validation consensus.ValidationResult

	done bool
}

// New builds a Ratification handler for one iteration's committee, given
// the Validation step's already-concluded result.
func New(ru consensus.RoundUpdate, committee *user.Committee, validationResult consensus.ValidationResult, reg *registry.Registry) *Handler {
	return &Handler{ru: ru, committee: committee, agg: aggregator.New(), reg: reg, validation: validationResult}
}

// IsValid rejects anything that isn't a Ratification-topic vote.
func (h *Handler) IsValid(msg consensus.Message) error {
	if msg.Header.Topic != consensus.TopicRatification {
		return consensus.NewError(consensus.ErrInvalidMsgType, nil)
	}
	return nil
}

// Verify checks the signer holds a seat on this step's committee, and
// that the vote is cast over the same hash Validation actually concluded
// on — a Ratification vote for any other hash is a protocol violation,
// not merely a stale message.
func (h *Handler) Verify(msg consensus.Message) error {
	if !h.committee.IsMember(msg.Header.Signer) {
		return consensus.NewError(consensus.ErrNotCommitteeMember, nil)
	}
	if msg.Ratify.Result.Hash != h.validation.Hash {
		return consensus.NewError(consensus.ErrInvalidMsgType, nil)
	}
	return nil
}

// VerifyStateless checks only committee membership — the hash-agreement
// check in Verify needs this step's live Validation result, unavailable
// to a message parked ahead of arrival.
func (h *Handler) VerifyStateless(msg consensus.Message) error {
	if msg.Header.Topic != consensus.TopicRatification {
		return consensus.NewError(consensus.ErrInvalidMsgType, nil)
	}
	if !h.committee.IsMember(msg.Header.Signer) {
		return consensus.NewError(consensus.ErrNotCommitteeMember, nil)
	}
	return nil
}

// Collect folds a verified Ratification vote into the aggregator and, on
// every accepted vote, records both StepVotes into the registry — which
// yields the certificate once this step's tally crosses quorum and
// Validation's half reached quorum on the same non-zero hash. The step
// concludes on that certificate, or on a quorum without one.
func (h *Handler) Collect(msg consensus.Message) (msghandler.HandleOutput, error) {
	if h.done {
		return msghandler.HandleOutput{}, nil
	}

	sv, quorumReached, ok := h.agg.CollectVote(h.committee, msg.Header, msg.Ratify.Signature)
	if !ok {
		return msghandler.HandleOutput{}, nil
	}

	if h.reg != nil {
		quorumMsg, emitted := h.reg.AddStepVotes(msg.Header.StepID(), msg.Header.BlockHash, h.validation.SV, registry.PhaseValidation, h.validation.Quorum != consensus.NoQuorum)
		if emitted {
			h.done = true
			lg.WithField("hash", block.ToStr(msg.Header.BlockHash)).Info("certificate emitted")
			return msghandler.HandleOutput{Ready: true, Message: *quorumMsg}, nil
		}

		quorumMsg, emitted = h.reg.AddStepVotes(msg.Header.StepID(), msg.Header.BlockHash, sv, registry.PhaseRatification, quorumReached)
		if emitted {
			h.done = true
			lg.WithField("hash", block.ToStr(msg.Header.BlockHash)).Info("certificate emitted")
			return msghandler.HandleOutput{Ready: true, Message: *quorumMsg}, nil
		}
	}

	if !quorumReached {
		return msghandler.HandleOutput{}, nil
	}

	h.done = true
	return msghandler.HandleOutput{
		Ready:           true,
		Message:         consensus.Message{Header: msg.Header, Ratify: msg.Ratify},
		TimeoutIncrease: msg.Header.BlockHash == [32]byte{},
	}, nil
}

// CollectFromPast folds a straggling Ratification vote into a prior
// iteration's cached handler instance, without requesting a timeout
// adjustment for a schedule that has already moved on.
func (h *Handler) CollectFromPast(msg consensus.Message) (msghandler.HandleOutput, error) {
	out, err := h.Collect(msg)
	out.TimeoutIncrease = false
	return out, err
}

// HandleTimeout concludes the step without a certificate: no quorum was
// reached before the deadline, so the round driver moves to the next
// iteration.
func (h *Handler) HandleTimeout() msghandler.HandleOutput {
	if h.done {
		return msghandler.HandleOutput{Ready: true, Message: consensus.Empty()}
	}
	h.done = true
	return msghandler.HandleOutput{Ready: true, Message: consensus.Empty(), TimeoutIncrease: true}
}
