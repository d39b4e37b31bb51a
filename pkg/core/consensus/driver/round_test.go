// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package driver_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.dusk.network/vota/consensus/pkg/core/consensus"
	"gitlab.dusk.network/vota/consensus/pkg/core/consensus/config"
	"gitlab.dusk.network/vota/consensus/pkg/core/consensus/driver"
	"gitlab.dusk.network/vota/consensus/pkg/core/consensus/queue"
	"gitlab.dusk.network/vota/consensus/pkg/core/consensus/user"
)

func mockProvisioners(n int, stake uint64) *user.Provisioners {
	p := user.NewProvisioners()
	for i := 0; i < n; i++ {
		p.Add(user.Member{
			PublicKeyBLS: []byte{byte(i), 0xFE},
			Stakes:       []user.Stake{{Amount: stake, StartHeight: 0, EndHeight: 1000}},
		})
	}
	return p
}

func fastConfig() config.Config {
	cfg := config.Default()
	cfg.ProposalTimeoutBase = 5 * time.Millisecond
	cfg.ValidationTimeoutBase = 5 * time.Millisecond
	cfg.RatificationTimeoutBase = 5 * time.Millisecond
	cfg.TimeoutMax = 10 * time.Millisecond
	cfg.CommitteeSizeValidation = 5
	cfg.CommitteeSizeRatification = 5
	return cfg
}

func TestRunReturnsImmediatelyWhenContextAlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	inbound := make(chan consensus.Message)
	outbound := make(chan consensus.Message, 8)
	quorum := make(chan consensus.Message, 8)
	d := driver.New(consensus.RoundUpdate{Round: 1, Seed: []byte("seed")}, mockProvisioners(5, 1000), nil, nil, fastConfig(), queue.New(), inbound, outbound, quorum)

	_, err := d.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunAbortsPromptlyOnMidFlightCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	inbound := make(chan consensus.Message)
	outbound := make(chan consensus.Message, 8)
	quorum := make(chan consensus.Message, 8)
	d := driver.New(consensus.RoundUpdate{Round: 1, Seed: []byte("seed")}, mockProvisioners(5, 1000), nil, nil, fastConfig(), queue.New(), inbound, outbound, quorum)

	done := make(chan error, 1)
	go func() {
		_, err := d.Run(ctx)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not abort within a reasonable time after cancellation")
	}
}
