// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

// Package queue implements the future-message queue of spec.md §4.F: a
// (round, step-id) keyed buffer for messages that arrived ahead of the
// context's current position.
package queue

import (
	"sync"

	"gitlab.dusk.network/vota/consensus/pkg/core/consensus"
)

// DefaultCapPerKey is used when a Queue is built with New instead of
// NewWithCap; it mirrors spec.md §6's future_queue_cap_per_step default.
const DefaultCapPerKey = 1000

type key struct {
	round  uint64
	stepID uint16
}

// Queue buffers messages whose (round, step) is still ahead of the
// current context, bounded per key to resist an adversarial flood
// (spec.md §4.F).
type Queue struct {
	mu      sync.Mutex
	capacity int
	buckets map[key][]consensus.Message
}

// New returns a Queue with the default per-key capacity.
func New() *Queue {
	return NewWithCap(DefaultCapPerKey)
}

// NewWithCap returns a Queue bounded to capPerKey entries per (round,
// step-id) key.
func NewWithCap(capPerKey int) *Queue {
	return &Queue{capacity: capPerKey, buckets: make(map[key][]consensus.Message)}
}

// PutEvent parks msg under (round, stepID). If the bucket is already at
// capacity the oldest entry is dropped to make room — spec.md §4.F:
// "Bounded by a per-key cap (drops oldest on overflow)".
func (q *Queue) PutEvent(round uint64, stepID uint16, msg consensus.Message) {
	q.mu.Lock()
	defer q.mu.Unlock()

	k := key{round: round, stepID: stepID}
	bucket := q.buckets[k]
	if len(bucket) >= q.capacity {
		bucket = bucket[1:]
	}
	q.buckets[k] = append(bucket, msg)
}

// DrainEvents removes and returns all messages parked under (round,
// stepID). A second call with the same key returns nothing — drain is
// idempotent (spec.md §8).
func (q *Queue) DrainEvents(round uint64, stepID uint16) ([]consensus.Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	k := key{round: round, stepID: stepID}
	bucket, found := q.buckets[k]
	if !found {
		return nil, false
	}
	delete(q.buckets, k)
	return bucket, true
}

// ClearRound drops every bucket belonging to a round other than keep —
// invoked when the round advances (spec.md §3 invariant: "Future-queue
// entries whose round is not equal to the current round are dropped when
// the round advances").
func (q *Queue) ClearRound(keep uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for k := range q.buckets {
		if k.round != keep {
			delete(q.buckets, k)
		}
	}
}
