// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package iteration_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.dusk.network/vota/consensus/pkg/core/consensus"
	"gitlab.dusk.network/vota/consensus/pkg/core/consensus/iteration"
	"gitlab.dusk.network/vota/consensus/pkg/core/consensus/msghandler"
	"gitlab.dusk.network/vota/consensus/pkg/core/consensus/user"
)

func mockProvisioners(n int, stake uint64) *user.Provisioners {
	p := user.NewProvisioners()
	for i := 0; i < n; i++ {
		p.Add(user.Member{
			PublicKeyBLS: []byte{byte(i), 0xEE},
			Stakes:       []user.Stake{{Amount: stake, StartHeight: 0, EndHeight: 1000}},
		})
	}
	return p
}

func defaultTable() iteration.TimeoutTable {
	return iteration.TimeoutTable{
		Base: map[consensus.StepName]time.Duration{
			consensus.Proposal:     5 * time.Second,
			consensus.Validation:   5 * time.Second,
			consensus.Ratification: 5 * time.Second,
		},
		Max: 40 * time.Second,
	}
}

func TestCommitteeForIsCachedAcrossCalls(t *testing.T) {
	ctx := iteration.New(consensus.RoundUpdate{Round: 1}, mockProvisioners(10, 1000), 0, []byte("seed"),
		map[consensus.StepName]int{consensus.Validation: 5}, defaultTable(), nil)

	first := ctx.CommitteeFor(consensus.Validation)
	second := ctx.CommitteeFor(consensus.Validation)

	assert.Same(t, first, second, "the same committee instance must be returned on repeat calls")
}

func TestIncreaseTimeoutDoublesAndCaps(t *testing.T) {
	table := iteration.TimeoutTable{
		Base: map[consensus.StepName]time.Duration{consensus.Validation: 5 * time.Second},
		Max:  15 * time.Second,
	}
	ctx := iteration.New(consensus.RoundUpdate{}, mockProvisioners(5, 1000), 0, []byte("seed"), nil, table, nil)

	assert.Equal(t, 5*time.Second, ctx.TimeoutFor(consensus.Validation))

	ctx.IncreaseTimeout(consensus.Validation)
	assert.Equal(t, 10*time.Second, ctx.TimeoutFor(consensus.Validation))

	ctx.IncreaseTimeout(consensus.Validation)
	assert.Equal(t, 15*time.Second, ctx.TimeoutFor(consensus.Validation), "must cap at Max, not reach 20s")
}

type stubHandler struct {
	collected []consensus.Message
}

func (s *stubHandler) IsValid(consensus.Message) error         { return nil }
func (s *stubHandler) Verify(consensus.Message) error          { return nil }
func (s *stubHandler) VerifyStateless(consensus.Message) error { return nil }
func (s *stubHandler) Collect(msg consensus.Message) (msghandler.HandleOutput, error) {
	s.collected = append(s.collected, msg)
	return msghandler.HandleOutput{}, nil
}
func (s *stubHandler) CollectFromPast(msg consensus.Message) (msghandler.HandleOutput, error) {
	s.collected = append(s.collected, msg)
	return msghandler.HandleOutput{Ready: true}, nil
}
func (s *stubHandler) HandleTimeout() msghandler.HandleOutput { return msghandler.HandleOutput{} }

func TestCollectPastEventRoutesToCachedHandler(t *testing.T) {
	ctx := iteration.New(consensus.RoundUpdate{}, mockProvisioners(5, 1000), 0, []byte("seed"), nil, defaultTable(), nil)

	h := &stubHandler{}
	ctx.CacheHandler(consensus.Validation, h)

	msg := consensus.Message{Header: consensus.Header{Step: consensus.Validation}}
	out, routed, err := ctx.CollectPastEvent(msg)

	require.NoError(t, err)
	assert.True(t, routed)
	assert.True(t, out.Ready)
	assert.Len(t, h.collected, 1)
}

func TestCollectPastEventWithNoCachedHandlerIsNotRouted(t *testing.T) {
	ctx := iteration.New(consensus.RoundUpdate{}, mockProvisioners(5, 1000), 0, []byte("seed"), nil, defaultTable(), nil)

	msg := consensus.Message{Header: consensus.Header{Step: consensus.Ratification}}
	_, routed, err := ctx.CollectPastEvent(msg)

	require.NoError(t, err)
	assert.False(t, routed)
}

type stubSigner struct {
	pub []byte
}

func (s *stubSigner) PublicKey() []byte { return s.pub }
func (s *stubSigner) Sign(round uint64, stepID uint16, hash [32]byte) ([]byte, error) {
	return []byte("sig"), nil
}

func TestTryVoteSignsWhenLocalKeyIsMember(t *testing.T) {
	provisioners := mockProvisioners(3, 1000)
	allKeys := make([][]byte, 0, 3)
	for i := 0; i < 3; i++ {
		allKeys = append(allKeys, []byte{byte(i), 0xEE})
	}
	signer := &stubSigner{pub: allKeys[0]}

	ctx := iteration.New(consensus.RoundUpdate{Round: 7}, provisioners, 0, []byte("seed"),
		map[consensus.StepName]int{consensus.Validation: 3}, defaultTable(), signer)

	h := &stubHandler{}
	ctx.CacheHandler(consensus.Validation, h)

	// Force a committee draw first so membership can be determined.
	committee := ctx.CommitteeFor(consensus.Validation)
	require.NotNil(t, committee)

	require.True(t, committee.IsMember(signer.pub), "3 draws over 3 stakes of one VotingUnit each seat every provisioner")

	_, routed, err := ctx.TryVote(consensus.Validation, [32]byte{0xAB}, consensus.TopicValidation)
	require.NoError(t, err)
	assert.True(t, routed)
	require.Len(t, h.collected, 1)
	assert.Equal(t, signer.pub, h.collected[0].Header.Signer)
}

func TestTryVoteWithoutSignerIsNoop(t *testing.T) {
	ctx := iteration.New(consensus.RoundUpdate{}, mockProvisioners(3, 1000), 0, []byte("seed"), nil, defaultTable(), nil)
	_, routed, err := ctx.TryVote(consensus.Validation, [32]byte{0xAB}, consensus.TopicValidation)
	require.NoError(t, err)
	assert.False(t, routed)
}
