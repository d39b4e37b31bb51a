// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package aggregator_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bn256 "gitlab.dusk.network/dusk-core/bn256"
	"gitlab.dusk.network/vota/consensus/pkg/core/consensus"
	"gitlab.dusk.network/vota/consensus/pkg/core/consensus/aggregator"
	"gitlab.dusk.network/vota/consensus/pkg/core/consensus/user"
)

// fakeSignature stands in for a BLS signature: a deterministic curve
// point derived from the signer index, distinct per signer so aggregation
// is observable without a real signing capability (out of this core's
// scope per spec.md §1).
func fakeSignature(i int) []byte {
	p := new(bn256.G1).ScalarBaseMult(big.NewInt(int64(i + 1)))
	return p.Marshal()
}

func committeeOf(n int, power uint32) (*user.Committee, [][]byte) {
	order := make([][]byte, n)
	draws := make(map[string]uint32)
	for i := 0; i < n; i++ {
		pk := []byte{byte(i), 0xBB}
		order[i] = pk
		draws[string(pk)] = power
	}
	return user.NewCommittee(order, draws), order
}

func TestQuorumCrossing(t *testing.T) {
	committee, keys := committeeOf(9, 100) // total 900, threshold 601
	agg := aggregator.New()

	hash := [32]byte{0xAA}
	var lastQuorum bool
	var lastOK bool
	var sv consensus.StepVotes

	for i := 0; i < 8; i++ {
		hdr := consensus.Header{Signer: keys[i], BlockHash: hash}
		sv, lastQuorum, lastOK = agg.CollectVote(committee, hdr, fakeSignature(i))
		require.True(t, lastOK)
	}

	assert.True(t, lastQuorum, "8/9 members at power 100 must cross the 601 threshold")
	assert.Equal(t, 8, sv.Count())
}

func TestDuplicateSignerDoesNotDoubleCount(t *testing.T) {
	committee, keys := committeeOf(9, 100)
	agg := aggregator.New()
	hash := [32]byte{0xAA}

	hdr := consensus.Header{Signer: keys[0], BlockHash: hash}
	_, _, ok1 := agg.CollectVote(committee, hdr, fakeSignature(0))
	sv, quorum, ok2 := agg.CollectVote(committee, hdr, fakeSignature(0))

	assert.True(t, ok1)
	assert.False(t, ok2, "resubmitting the same signer must be a no-op")
	assert.False(t, quorum)
	assert.Equal(t, 1, sv.Count())
}

func TestNonMemberIsRejectedSilently(t *testing.T) {
	committee, _ := committeeOf(9, 100)
	agg := aggregator.New()

	hdr := consensus.Header{Signer: []byte("not-a-member"), BlockHash: [32]byte{0xAA}}
	_, quorum, ok := agg.CollectVote(committee, hdr, fakeSignature(0))

	assert.False(t, ok)
	assert.False(t, quorum)
}

func TestZeroHashIsSegregatedFromRealHash(t *testing.T) {
	committee, keys := committeeOf(9, 100)
	agg := aggregator.New()

	var zero [32]byte
	real := [32]byte{0xAA}

	for i := 0; i < 5; i++ {
		hdr := consensus.Header{Signer: keys[i], BlockHash: zero}
		_, _, ok := agg.CollectVote(committee, hdr, fakeSignature(i))
		require.True(t, ok)
	}
	for i := 5; i < 9; i++ {
		hdr := consensus.Header{Signer: keys[i], BlockHash: real}
		_, _, ok := agg.CollectVote(committee, hdr, fakeSignature(i))
		require.True(t, ok)
	}

	hdr := consensus.Header{Signer: keys[0], BlockHash: zero}
	svZero, quorumZero, _ := agg.CollectVote(committee, hdr, fakeSignature(0))
	hdrReal := consensus.Header{Signer: keys[5], BlockHash: real}
	svReal, quorumReal, _ := agg.CollectVote(committee, hdrReal, fakeSignature(5))

	assert.False(t, quorumZero, "5/9 for the nil hash must not cross the 601 threshold")
	assert.False(t, quorumReal, "4/9 for the real hash must not cross the 601 threshold")
	assert.NotEqual(t, svZero.BitSet, svReal.BitSet)
}

func TestSplitVoteYieldsNoQuorum(t *testing.T) {
	// 4 signatures for hash A (power 400), 4 for hash B (power 400),
	// committee of Σ=900: neither crosses 601 (spec.md §8 scenario 6).
	committee, keys := committeeOf(9, 100)
	agg := aggregator.New()

	a := [32]byte{0xAA}
	b := [32]byte{0xBB}

	var quorumA, quorumB bool
	for i := 0; i < 4; i++ {
		hdr := consensus.Header{Signer: keys[i], BlockHash: a}
		_, quorumA, _ = agg.CollectVote(committee, hdr, fakeSignature(i))
	}
	for i := 4; i < 8; i++ {
		hdr := consensus.Header{Signer: keys[i], BlockHash: b}
		_, quorumB, _ = agg.CollectVote(committee, hdr, fakeSignature(i))
	}

	assert.False(t, quorumA)
	assert.False(t, quorumB)
}
