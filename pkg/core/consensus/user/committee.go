// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package user

import "gitlab.dusk.network/vota/consensus/pkg/core/consensus"

// member is one committee seat: a provisioner and how many of the K draws
// landed on it.
type member struct {
	pubKeyBLS []byte
	power     uint32
}

// Committee is the ordered, immutable result of one sortition run: a set
// of { public-key -> voting-power } with a fixed total power. Once built
// it is cached for the entire round (spec.md §3 invariant) and never
// mutated.
type Committee struct {
	members    []member
	index      map[string]int
	totalPower uint64
}

// NewCommittee assembles a Committee from accumulated per-key draw counts,
// in the exact order supplied — sortition callers pass provisioner
// iteration order so index assignment (and therefore StepVotes bitsets)
// is reproducible.
func NewCommittee(order [][]byte, draws map[string]uint32) *Committee {
	c := &Committee{index: make(map[string]int)}
	for _, pk := range order {
		n, ok := draws[string(pk)]
		if !ok || n == 0 {
			continue
		}
		c.index[string(pk)] = len(c.members)
		c.members = append(c.members, member{pubKeyBLS: pk, power: n})
		c.totalPower += uint64(n)
	}
	return c
}

// IsMember reports whether pubKeyBLS holds a seat on this committee.
func (c *Committee) IsMember(pubKeyBLS []byte) bool {
	_, ok := c.index[string(pubKeyBLS)]
	return ok
}

// Power returns how many of the committee's draws landed on pubKeyBLS, 0
// if it is not a member.
func (c *Committee) Power(pubKeyBLS []byte) uint32 {
	idx, ok := c.index[string(pubKeyBLS)]
	if !ok {
		return 0
	}
	return c.members[idx].power
}

// TotalPower is the fixed sum of all seats' power, Σ in spec.md's
// terminology.
func (c *Committee) TotalPower() uint64 {
	return c.totalPower
}

// QuorumThreshold is ⌈2·Σ/3⌉ + 1, the supermajority spec.md §3 requires.
func (c *Committee) QuorumThreshold() uint64 {
	return (2*c.totalPower+2)/3 + 1
}

// Size returns the number of distinct seat-holders (not the sum of their
// power).
func (c *Committee) Size() int {
	return len(c.members)
}

// BitOf returns the single-bit mask identifying pubKeyBLS's seat, and
// whether it holds one at all. Bits are assigned by construction order,
// capped at consensus.MaxCommitteeSize seats.
func (c *Committee) BitOf(pubKeyBLS []byte) (uint64, bool) {
	idx, ok := c.index[string(pubKeyBLS)]
	if !ok || idx >= consensus.MaxCommitteeSize {
		return 0, false
	}
	return 1 << uint(idx), true
}

// Keys returns the committee's seat-holders in index order.
func (c *Committee) Keys() [][]byte {
	keys := make([][]byte, len(c.members))
	for i, m := range c.members {
		keys[i] = m.pubKeyBLS
	}
	return keys
}

// Intersect returns the public keys whose bit is set in bitset, in index
// order — used to reconstruct an aggregate BLS public key from a
// StepVotes bitset for signature verification.
func (c *Committee) Intersect(bitset uint64) [][]byte {
	var keys [][]byte
	for i, m := range c.members {
		if i >= consensus.MaxCommitteeSize {
			break
		}
		if bitset&(1<<uint(i)) != 0 {
			keys = append(keys, m.pubKeyBLS)
		}
	}
	return keys
}
