// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.dusk.network/vota/consensus/pkg/core/consensus/config"
)

func TestDefaultMatchesSpecTable(t *testing.T) {
	cfg := config.Default()

	assert.Equal(t, 5*time.Second, cfg.ProposalTimeoutBase)
	assert.Equal(t, 5*time.Second, cfg.ValidationTimeoutBase)
	assert.Equal(t, 5*time.Second, cfg.RatificationTimeoutBase)
	assert.Equal(t, 60*time.Second, cfg.TimeoutMax)
	assert.Equal(t, 2, cfg.QuorumNumerator)
	assert.Equal(t, 3, cfg.QuorumDenominator)
}

func TestLoadTOMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "consensus.toml")

	content := `
committee_size_validation = 48
committee_size_ratification = 48
future_queue_cap_per_step = 500
validation_timeout_base_secs = 7
timeout_max_secs = 90
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := config.LoadTOML(path)
	require.NoError(t, err)

	assert.Equal(t, 48, cfg.CommitteeSizeValidation)
	assert.Equal(t, 48, cfg.CommitteeSizeRatification)
	assert.Equal(t, 500, cfg.FutureQueueCapPerStep)
	assert.Equal(t, 7*time.Second, cfg.ValidationTimeoutBase)
	assert.Equal(t, 90*time.Second, cfg.TimeoutMax)
}

func TestApplyPropertiesOverlayOverridesSelectedKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "overlay.properties")
	require.NoError(t, os.WriteFile(path, []byte("committee_size_validation=32\n"), 0o644))

	cfg, err := config.ApplyPropertiesOverlay(config.Default(), path)
	require.NoError(t, err)

	assert.Equal(t, 32, cfg.CommitteeSizeValidation)
	assert.Equal(t, config.Default().CommitteeSizeRatification, cfg.CommitteeSizeRatification, "keys absent from the overlay must keep their prior value")
}
