// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

// Package registry implements the step-votes / certificate registry:
// cross-phase assembly of certificates (spec.md §4.E). It is shared
// across phase handlers and past-event processing via a mutex, because a
// past-iteration Validation vote and a current-iteration Ratification
// vote may complete a certificate asynchronously.
package registry

import (
	"sync"

	"gitlab.dusk.network/vota/consensus/pkg/core/consensus"
)

// Phase identifies which half of a certificate a StepVotes belongs to.
type Phase uint8

const (
	// PhaseValidation tags a Validation StepVotes.
	PhaseValidation Phase = iota
	// PhaseRatification tags a Ratification StepVotes.
	PhaseRatification
)

type certKey struct {
	stepID uint16
	hash   [32]byte
}

type cert struct {
	validation       *consensus.StepVotes
	validationQuorum bool

	ratification       *consensus.StepVotes
	ratificationQuorum bool
}

// Registry holds per-round certificate-in-progress state. A fresh
// Registry is created per round and discarded at round end.
type Registry struct {
	mu      sync.Mutex
	certs   map[certKey]*cert
	emitted map[certKey]bool // (stepID, hash) -> already emitted a Quorum for it
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		certs:   make(map[certKey]*cert),
		emitted: make(map[certKey]bool),
	}
}

// AddStepVotes implements spec.md §4.E's add_step_votes operation: it
// records sv under (stepID, hash) for the given phase, and — if both
// Validation and Ratification have now reached quorum on the same
// non-zero hash at that stepID — returns the completed Quorum message,
// exactly once per (stepID, hash) pair.
func (r *Registry) AddStepVotes(stepID uint16, hash [32]byte, sv consensus.StepVotes, phase Phase, quorumReached bool) (*consensus.Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := certKey{stepID: stepID, hash: hash}
	c, found := r.certs[key]
	if !found {
		c = &cert{}
		r.certs[key] = c
	}

	switch phase {
	case PhaseValidation:
		c.validation = &sv
		c.validationQuorum = c.validationQuorum || quorumReached
	case PhaseRatification:
		c.ratification = &sv
		c.ratificationQuorum = c.ratificationQuorum || quorumReached
	}

	var zero [32]byte
	if hash == zero {
		return nil, false
	}

	if !(c.validationQuorum && c.ratificationQuorum) {
		return nil, false
	}

	if r.emitted[key] {
		return nil, false
	}
	r.emitted[key] = true

	msg := consensus.Message{
		Header: consensus.Header{
			Iteration: consensus.IterationOf(stepID),
			Step:      consensus.Ratification,
			BlockHash: hash,
			Topic:     consensus.TopicQuorum,
		},
		Quorum: consensus.QuorumPayload{
			Certificate: consensus.Certificate{
				Validation:   *c.validation,
				Ratification: *c.ratification,
				Iteration:    consensus.IterationOf(stepID),
				Hash:         hash,
			},
		},
	}

	return &msg, true
}
