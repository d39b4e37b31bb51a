// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

// Package proposal implements the Proposal phase handler (spec.md §4.C,
// step 0 of each iteration): a single-member committee either produces a
// Candidate or, on timeout, nothing.
package proposal

import (
	"context"

	"gitlab.dusk.network/vota/consensus/pkg/core/block"
	"gitlab.dusk.network/vota/consensus/pkg/core/consensus"
	"gitlab.dusk.network/vota/consensus/pkg/core/consensus/msghandler"
	"gitlab.dusk.network/vota/consensus/pkg/core/consensus/user"
)

// Database is the subset of the external persistence collaborator this
// handler needs: storing a freshly received candidate so later phases (and
// a hash-only Quorum) can retrieve it by hash.
type Database interface {
	StoreCandidate(ctx context.Context, c block.Candidate) error
}

// Handler drives one iteration's Proposal step. A fresh instance is built
// per iteration by the round driver, matching this step's single-shot
// lifecycle (spec.md §3 "Lifecycles").
type Handler struct {
	ru        consensus.RoundUpdate
	iteration uint8
	committee *user.Committee
	db        Database

	received bool
	result   block.Candidate
}

// New builds a Proposal handler for one iteration, given the (single
// member) committee sortition already produced for this step.
func New(ru consensus.RoundUpdate, iteration uint8, committee *user.Committee, db Database) *Handler {
	return &Handler{ru: ru, iteration: iteration, committee: committee, db: db}
}

// IsValid rejects anything that isn't a well-formed Candidate message for
// this step.
func (h *Handler) IsValid(msg consensus.Message) error {
	if msg.Header.Topic != consensus.TopicCandidate {
		return consensus.NewError(consensus.ErrInvalidMsgType, nil)
	}
	if msg.Candidate.Candidate.IsZero() {
		return consensus.NewError(consensus.ErrInvalidMsgType, nil)
	}
	return nil
}

// Verify checks the candidate's generator is this step's sole committee
// member and its PrevBlockHash matches the round's chain tip.
func (h *Handler) Verify(msg consensus.Message) error {
	generator := msg.Candidate.Candidate.Header.Generator
	if !h.committee.IsMember(generator) {
		return consensus.NewError(consensus.ErrNotCommitteeMember, nil)
	}
	if msg.Candidate.Candidate.Header.PrevHash != h.ru.PrevBlockHash {
		return consensus.NewInvalidPrevBlockHash(msg.Candidate.Candidate.Header.PrevHash)
	}
	return nil
}

// VerifyStateless checks only committee membership of the generator —
// cheap enough to run against a message parked ahead of this step's
// arrival, without touching h's mutable state.
func (h *Handler) VerifyStateless(msg consensus.Message) error {
	if msg.Header.Topic != consensus.TopicCandidate {
		return consensus.NewError(consensus.ErrInvalidMsgType, nil)
	}
	generator := msg.Candidate.Candidate.Header.Generator
	if !h.committee.IsMember(generator) {
		return consensus.NewError(consensus.ErrNotCommitteeMember, nil)
	}
	return nil
}

// Collect accepts the first valid candidate seen this iteration; every
// subsequent one is ignored (the step is single-shot, spec.md §3).
func (h *Handler) Collect(msg consensus.Message) (msghandler.HandleOutput, error) {
	if h.received {
		return msghandler.HandleOutput{}, nil
	}

	h.received = true
	h.result = msg.Candidate.Candidate

	if h.db != nil {
		if err := h.db.StoreCandidate(context.Background(), h.result); err != nil {
			return msghandler.HandleOutput{}, consensus.NewError(consensus.ErrChannelClosed, err)
		}
	}

	return msghandler.HandleOutput{
		Ready:   true,
		Message: consensus.Message{Header: msg.Header, Candidate: consensus.CandidatePayload{Candidate: h.result}},
	}, nil
}

// CollectFromPast folds a straggling candidate belonging to a prior
// iteration's Proposal step — accepted under the same single-shot rule as
// Collect, but never itself re-emitted: an earlier iteration has already
// moved past needing a result.
func (h *Handler) CollectFromPast(msg consensus.Message) (msghandler.HandleOutput, error) {
	return h.Collect(msg)
}

// HandleTimeout reports the step produced nothing: Ready with the empty
// message, no candidate arrived before the deadline.
func (h *Handler) HandleTimeout() msghandler.HandleOutput {
	return msghandler.HandleOutput{Ready: true, Message: consensus.Empty()}
}

// Result exposes the accepted candidate (zero value if none arrived). The
// round driver does not read it; Validation votes on whatever hash its
// committee signs.
func (h *Handler) Result() block.Candidate {
	return h.result
}
