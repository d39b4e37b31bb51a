// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package consensus

import "gitlab.dusk.network/vota/consensus/pkg/core/block"

// Topic identifies a message's payload shape on the wire. The core never
// deserializes wire bytes itself (that belongs to the gossip layer); it
// only dispatches on Topic once a Message has already been materialized.
type Topic uint8

// The topics this core exchanges.
const (
	TopicCandidate Topic = iota
	TopicValidation
	TopicRatification
	TopicQuorum
	TopicEmpty
)

func (t Topic) String() string {
	switch t {
	case TopicCandidate:
		return "candidate"
	case TopicValidation:
		return "validation"
	case TopicRatification:
		return "ratification"
	case TopicQuorum:
		return "quorum"
	default:
		return "empty"
	}
}

// Header is the common envelope every message carries, regardless of
// payload.
type Header struct {
	Round         uint64
	Iteration     uint8
	Step          StepName
	PrevBlockHash [32]byte
	// BlockHash is the hash being voted on (Validation/Ratification) or
	// proposed (Candidate). Zero for messages that don't carry a vote.
	BlockHash [32]byte
	Signer    []byte
	Topic     Topic
}

// StepID flattens this header's (iteration, step) into the sortable key
// used by the committee cache, future-queue and registry.
func (h Header) StepID() uint16 {
	return StepID(h.Iteration, h.Step)
}

// CandidatePayload carries a proposed block.
type CandidatePayload struct {
	Candidate block.Candidate
}

// ValidationPayload carries one committee member's signed vote for (or
// against, via the zero hash) a candidate.
type ValidationPayload struct {
	Signature [48]byte
}

// RatificationPayload carries one committee member's signed vote over
// (hash, quorum-type) — the Validation step's outcome.
type RatificationPayload struct {
	Signature []byte
	Result    ValidationResult
}

// QuorumPayload carries a completed certificate, ready for gossip.
type QuorumPayload struct {
	Certificate Certificate
}

// Message is the wire unit this core exchanges: a Header plus exactly one
// of the payload shapes above. Which field is meaningful is determined by
// Header.Topic.
type Message struct {
	Header    Header
	Candidate CandidatePayload
	Vote      ValidationPayload
	Ratify    RatificationPayload
	Quorum    QuorumPayload
}

// Empty returns the sentinel "no result" message a timed-out step
// produces.
func Empty() Message {
	return Message{Header: Header{Topic: TopicEmpty}}
}

// IsEmpty reports whether m is the sentinel empty message.
func (m Message) IsEmpty() bool {
	return m.Header.Topic == TopicEmpty
}

// Compare is a convenience wrapper around the package-level Compare,
// positioning this message against (round, iteration, step).
func (m Message) Compare(round uint64, iteration uint8, step StepName) Status {
	return Compare(m.Header.Round, m.Header.Iteration, m.Header.Step, round, iteration, step)
}
