// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

// Package sortition implements deterministic, stake-weighted committee
// selection (spec.md §4.A).
package sortition

import (
	"bytes"
	"encoding/binary"
	"math/big"

	ristretto "github.com/bwesterb/go-ristretto"
	"gitlab.dusk.network/vota/consensus/pkg/core/consensus"
	"gitlab.dusk.network/vota/consensus/pkg/core/consensus/user"
	"golang.org/x/crypto/blake2b"
)

// VotingUnit is the fixed amount subtracted from a provisioner's working
// stake after each draw that lands on it, so a single heavy stake cannot
// monopolize every seat in one committee (spec.md §4.A step 3).
const VotingUnit = 1000

// Config is the deterministic input to one committee derivation: a
// function purely of (seed, round, iteration, step-name), with an
// optional excluded key.
type Config struct {
	Seed      []byte
	Round     uint64
	Iteration uint8
	Step      consensus.StepName
	Exclude   []byte
}

// seedStream derives the i-th pseudorandom scalar of the draw sequence
// for cfg, as a big.Int in [0, ℓ), ℓ being the order of the ristretto
// scalar field (about 2^252). blake2b is the house hash
// this pack reaches for (dusk's own sortition seed is blake2b-derived);
// go-ristretto's Scalar.SetReduced folds the 64 digest bytes into the
// ristretto scalar field before we take it back out as a big.Int, giving
// the draw a bias-free reduction step instead of a raw modulo on the
// digest.
func seedStream(cfg Config, i uint32) *big.Int {
	buf := new(bytes.Buffer)
	buf.Write(cfg.Seed)
	_ = binary.Write(buf, binary.LittleEndian, cfg.Round)
	buf.WriteByte(cfg.Iteration)
	buf.WriteByte(byte(cfg.Step))
	_ = binary.Write(buf, binary.LittleEndian, i)

	digest := blake2b.Sum512(buf.Bytes())

	var s ristretto.Scalar
	s.SetReduced(&digest)

	return s.BigInt()
}

// drawCount returns how many sortition draws step-name gets: 1 for
// Proposal (the generator is the sole committee member), size otherwise.
func drawCount(step consensus.StepName, size int) int {
	if step == consensus.Proposal {
		return 1
	}
	return size
}

// Select runs deterministic sortition over provisioners for cfg, drawing
// `size` scalars (ignored for Proposal, which always draws exactly one).
// Identical (provisioners, cfg, size) always yields a byte-identical
// Committee — spec.md §3's reproducibility invariant.
func Select(provisioners *user.Provisioners, cfg Config, size int) *user.Committee {
	working := provisioners.Clone()
	if cfg.Exclude != nil {
		delete(working.Members, string(cfg.Exclude))
	}

	order := orderedKeys(working)
	total := working.TotalWeight()
	draws := make(map[string]uint32)

	if total == 0 || len(order) == 0 {
		return user.NewCommittee(provisionerOrder(provisioners), draws)
	}

	n := drawCount(cfg.Step, size)
	for i := 0; i < n; i++ {
		remaining := remainingTotal(working, order)
		if remaining == 0 {
			break
		}

		scalar := seedStream(cfg, uint32(i))
		target := new(big.Int).Mod(scalar, new(big.Int).SetUint64(remaining))

		pk := pickByInterval(working, order, target.Uint64())
		if pk == nil {
			break
		}

		draws[string(pk)]++
		subtractStake(working, pk, VotingUnit)
	}

	return user.NewCommittee(provisionerOrder(provisioners), draws)
}

func orderedKeys(p *user.Provisioners) [][]byte {
	return provisionerOrder(p)
}

func provisionerOrder(p *user.Provisioners) [][]byte {
	var order [][]byte
	for i := 0; ; i++ {
		m, err := p.MemberAt(i)
		if err != nil {
			break
		}
		if m == nil {
			// Key removed from the working copy (Config.Exclude).
			continue
		}
		order = append(order, m.PublicKeyBLS)
	}
	return order
}

func remainingTotal(p *user.Provisioners, order [][]byte) uint64 {
	var total uint64
	for _, pk := range order {
		if m := p.GetMember(pk); m != nil {
			total += m.TotalAmount()
		}
	}
	return total
}

// pickByInterval selects the provisioner whose cumulative-stake interval
// contains target, walking provisioners in deterministic order.
func pickByInterval(p *user.Provisioners, order [][]byte, target uint64) []byte {
	var cumulative uint64
	for _, pk := range order {
		m := p.GetMember(pk)
		if m == nil {
			continue
		}
		amount := m.TotalAmount()
		if amount == 0 {
			continue
		}
		cumulative += amount
		if target < cumulative {
			return pk
		}
	}
	return nil
}

func subtractStake(p *user.Provisioners, pubKeyBLS []byte, amount uint64) {
	m := p.GetMember(pubKeyBLS)
	if m == nil {
		return
	}
	remaining := amount
	for i := range m.Stakes {
		if remaining == 0 {
			break
		}
		if m.Stakes[i].Amount >= remaining {
			m.Stakes[i].Amount -= remaining
			remaining = 0
			break
		}
		remaining -= m.Stakes[i].Amount
		m.Stakes[i].Amount = 0
	}
}
