// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

// Package user holds the provisioner set and committee types sortition
// draws from.
package user

import (
	"fmt"
	"sort"
)

type (
	// Member contains the bytes of a provisioner's BLS public key, and
	// how much it has staked.
	Member struct {
		PublicKeyBLS []byte
		Stakes       []Stake
	}

	// Provisioners is the current set of staked members eligible for
	// sortition.
	Provisioners struct {
		order   [][]byte
		Members map[string]*Member
	}

	// Stake represents one of a provisioner's active stakes.
	Stake struct {
		Amount      uint64
		StartHeight uint64
		EndHeight   uint64
	}
)

// AddStake appends a stake to the stake set.
func (m *Member) AddStake(stake Stake) {
	m.Stakes = append(m.Stakes, stake)
}

// RemoveStake removes a Stake (most likely because it expired).
func (m *Member) RemoveStake(idx int) {
	m.Stakes[idx] = m.Stakes[len(m.Stakes)-1]
	m.Stakes = m.Stakes[:len(m.Stakes)-1]
}

// TotalAmount sums a member's active stakes.
func (m Member) TotalAmount() uint64 {
	var total uint64
	for _, s := range m.Stakes {
		total += s.Amount
	}
	return total
}

// NewProvisioners instantiates an empty provisioner set.
func NewProvisioners() *Provisioners {
	return &Provisioners{
		Members: make(map[string]*Member),
	}
}

// Add inserts or replaces a member. Provisioners are exposed sorted by
// public key so MemberAt (and therefore sortition, which draws by
// cumulative-stake interval over this same ordering) is reproducible
// regardless of insertion order — spec.md §4.A invariant: identical
// inputs must yield identical committees.
func (p *Provisioners) Add(m Member) {
	key := string(m.PublicKeyBLS)
	if _, found := p.Members[key]; !found {
		p.order = append(p.order, m.PublicKeyBLS)
		sort.Slice(p.order, func(i, j int) bool {
			return string(p.order[i]) < string(p.order[j])
		})
	}
	cp := m
	p.Members[key] = &cp
}

// SubsetSizeAt returns how many provisioners are active on a given round.
func (p *Provisioners) SubsetSizeAt(round uint64) int {
	var size int
	for _, member := range p.Members {
		for _, stake := range member.Stakes {
			if stake.StartHeight <= round && round <= stake.EndHeight {
				size++
				break
			}
		}
	}
	return size
}

// Len returns the number of distinct provisioners.
func (p *Provisioners) Len() int {
	return len(p.order)
}

// MemberAt returns the Member at ordinal position i in the deterministic
// (sorted-by-key) ordering.
func (p *Provisioners) MemberAt(i int) (*Member, error) {
	if i < 0 || i >= len(p.order) {
		return nil, fmt.Errorf("index %d out of bound (%d provisioners)", i, len(p.order))
	}
	return p.Members[string(p.order[i])], nil
}

// GetMember returns a member of the provisioners from its BLS public key.
func (p *Provisioners) GetMember(pubKeyBLS []byte) *Member {
	return p.Members[string(pubKeyBLS)]
}

// GetStake finds a provisioner by BLS public key and returns its total
// active stake.
func (p *Provisioners) GetStake(pubKeyBLS []byte) (uint64, error) {
	m, found := p.Members[string(pubKeyBLS)]
	if !found {
		return 0, fmt.Errorf("public key not found among provisioner set")
	}
	return m.TotalAmount(), nil
}

// TotalWeight is the sum of all stakes of the provisioners.
func (p *Provisioners) TotalWeight() (totalWeight uint64) {
	for _, member := range p.Members {
		totalWeight += member.TotalAmount()
	}
	return totalWeight
}

// Clone returns a deep-enough copy safe for sortition to decrement working
// stake totals on without mutating the canonical set (spec.md §4.A step
// 3: "decrement a working copy of that provisioner's remaining stake").
func (p *Provisioners) Clone() *Provisioners {
	clone := NewProvisioners()
	for _, key := range p.order {
		m := p.Members[string(key)]
		stakes := make([]Stake, len(m.Stakes))
		copy(stakes, m.Stakes)
		clone.Add(Member{PublicKeyBLS: m.PublicKeyBLS, Stakes: stakes})
	}
	return clone
}
