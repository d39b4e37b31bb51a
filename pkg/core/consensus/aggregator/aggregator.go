// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

// Package aggregator implements the per-(step, block-hash) BLS signature
// aggregation and weight tally described in spec.md §4.B.
package aggregator

import (
	"sync"

	bn256 "gitlab.dusk.network/dusk-core/bn256"
	"gitlab.dusk.network/vota/consensus/pkg/core/consensus"
	"gitlab.dusk.network/vota/consensus/pkg/core/consensus/user"
)

// entry is the running tally for one block-hash within a single
// Aggregator instance.
type entry struct {
	point    *bn256.G1
	bitset   uint64
	power    uint64
	quorumAt bool // true once this entry has already crossed threshold once
}

// Aggregator is a per-(step, phase) tally: (block-hash) -> { aggregated
// signature, signer bitset, accumulated power }. One instance is created
// per phase handler per iteration (spec.md §3 "Lifecycles").
type Aggregator struct {
	mu      sync.Mutex
	entries map[[32]byte]*entry
}

// New returns an empty, ready-to-use Aggregator.
func New() *Aggregator {
	return &Aggregator{entries: make(map[[32]byte]*entry)}
}

// CollectVote implements spec.md §4.B's collect_vote operation: it
// BLS-aggregates hdr's signature into the entry for hdr.BlockHash and
// credits committee.Power(hdr.Signer).
//
// ok is false if the signer is not a committee member or has already
// voted for this hash — spec.md: "Fail silently" — these are expected,
// non-error outcomes, not something the caller should log as a failure.
//
// quorumReached is true once accumulated power first reaches or exceeds
// committee.QuorumThreshold(); later votes for the same hash keep
// aggregating (strengthening the certificate) without re-signalling, but
// quorumReached stays true on every subsequent call for that hash too —
// callers that only care about the edge should track it themselves.
func (a *Aggregator) CollectVote(committee *user.Committee, hdr consensus.Header, signature []byte) (sv consensus.StepVotes, quorumReached bool, ok bool) {
	signer := hdr.Signer
	if !committee.IsMember(signer) {
		return sv, false, false
	}

	bit, has := committee.BitOf(signer)
	if !has {
		return sv, false, false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	e, found := a.entries[hdr.BlockHash]
	if !found {
		e = &entry{point: new(bn256.G1)}
		a.entries[hdr.BlockHash] = e
	}

	if e.bitset&bit != 0 {
		// Signer already counted for this hash: no double counting
		// (spec.md §3 invariant).
		return stepVotesOf(e), e.power >= committee.QuorumThreshold(), false
	}

	aggregateInto(e.point, signature)
	e.bitset |= bit
	e.power += uint64(committee.Power(signer))
	e.quorumAt = e.quorumAt || e.power >= committee.QuorumThreshold()

	return stepVotesOf(e), e.power >= committee.QuorumThreshold(), true
}

// aggregateInto BLS-aggregates raw into acc by elliptic-curve point
// addition — the "BLS-aggregate the incoming signature" step of spec.md
// §4.B, using the curve arithmetic gitlab.dusk.network/dusk-core/bn256
// provides.
func aggregateInto(acc *bn256.G1, raw []byte) {
	p := new(bn256.G1)
	if _, ok := p.Unmarshal(raw); !ok {
		// Malformed or zero signature (e.g. the empty-signature sentinel
		// cast for a nil vote): nothing to add, the accumulator is
		// unchanged.
		return
	}
	acc.Add(acc, p)
}

func stepVotesOf(e *entry) consensus.StepVotes {
	var sv consensus.StepVotes
	sv.BitSet = e.bitset
	copy(sv.Signature[:], e.point.Marshal())
	return sv
}

// Reset clears all tallies. Used at iteration boundaries for handlers
// whose aggregator state does not carry across iterations (Validation;
// see spec.md §3 "Lifecycles").
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = make(map[[32]byte]*entry)
}
