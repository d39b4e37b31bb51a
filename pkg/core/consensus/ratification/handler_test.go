// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package ratification_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bn256 "gitlab.dusk.network/dusk-core/bn256"
	"gitlab.dusk.network/vota/consensus/pkg/core/consensus"
	"gitlab.dusk.network/vota/consensus/pkg/core/consensus/ratification"
	"gitlab.dusk.network/vota/consensus/pkg/core/consensus/registry"
	"gitlab.dusk.network/vota/consensus/pkg/core/consensus/user"
)

func committeeOf(n int, power uint32) (*user.Committee, [][]byte) {
	order := make([][]byte, n)
	draws := make(map[string]uint32)
	for i := 0; i < n; i++ {
		pk := []byte{byte(i), 0xDD}
		order[i] = pk
		draws[string(pk)] = power
	}
	return user.NewCommittee(order, draws), order
}

func sigOf(i int) []byte {
	p := new(bn256.G1).ScalarBaseMult(big.NewInt(int64(i + 1)))
	return p.Marshal()
}

func ratifyMsg(iteration uint8, signer []byte, hash [32]byte, i int) consensus.Message {
	return consensus.Message{
		Header: consensus.Header{
			Iteration: iteration,
			Step:      consensus.Ratification,
			BlockHash: hash,
			Signer:    signer,
			Topic:     consensus.TopicRatification,
		},
		Ratify: consensus.RatificationPayload{
			Signature: sigOf(i),
			Result:    consensus.ValidationResult{Hash: hash, Quorum: consensus.ValidQuorum},
		},
	}
}

func TestRatificationEmitsQuorumOnceBothPhasesAgree(t *testing.T) {
	committee, keys := committeeOf(9, 100) // threshold 601
	reg := registry.New()
	hash := [32]byte{0xCD}

	validationOutcome := consensus.ValidationResult{
		SV:     consensus.StepVotes{BitSet: 0x1FF},
		Hash:   hash,
		Quorum: consensus.ValidQuorum,
	}

	h := ratification.New(consensus.RoundUpdate{}, committee, validationOutcome, reg)

	var ready bool
	for i := 0; i < 8; i++ {
		msg := ratifyMsg(0, keys[i], hash, i)
		require.NoError(t, h.Verify(msg))
		out, err := h.Collect(msg)
		require.NoError(t, err)
		ready = out.Ready
		if ready {
			assert.Equal(t, consensus.TopicQuorum, out.Message.Header.Topic)
			assert.Equal(t, hash, out.Message.Quorum.Certificate.Hash)
			break
		}
	}

	assert.True(t, ready, "8/9 ratification votes must cross quorum and emit a certificate")
}

func TestRatificationRejectsVoteForDifferentHash(t *testing.T) {
	committee, keys := committeeOf(9, 100)
	validationOutcome := consensus.ValidationResult{Hash: [32]byte{0xAA}, Quorum: consensus.ValidQuorum}
	h := ratification.New(consensus.RoundUpdate{}, committee, validationOutcome, nil)

	msg := ratifyMsg(0, keys[0], [32]byte{0xBB}, 0)
	err := h.Verify(msg)
	require.Error(t, err)
}

func TestRatificationWithoutQuorumDoesNotConclude(t *testing.T) {
	committee, keys := committeeOf(9, 100)
	hash := [32]byte{0xCD}
	validationOutcome := consensus.ValidationResult{Hash: hash, Quorum: consensus.ValidQuorum}
	h := ratification.New(consensus.RoundUpdate{}, committee, validationOutcome, registry.New())

	out, err := h.Collect(ratifyMsg(0, keys[0], hash, 0))
	require.NoError(t, err)
	assert.False(t, out.Ready)
}

func TestHandleTimeoutConcludesWithoutCertificate(t *testing.T) {
	committee, _ := committeeOf(9, 100)
	h := ratification.New(consensus.RoundUpdate{}, committee, consensus.ValidationResult{}, nil)

	out := h.HandleTimeout()
	assert.True(t, out.Ready)
	assert.True(t, out.TimeoutIncrease)
	assert.True(t, out.Message.IsEmpty())
}
