// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

// Package config loads the options table of spec.md §6 from a TOML file,
// with an optional .properties overlay for per-key operator overrides —
// the same two-loader posture the teacher's own configuration takes.
package config

import (
	"time"

	"github.com/BurntSushi/toml"
	"github.com/magiconair/properties"
	"github.com/pkg/errors"
)

// Config is the options table of spec.md §6. The round driver reads the
// timeout and committee-size fields. QuorumNumerator and QuorumDenominator
// are not read by any code in this module: the quorum threshold is fixed
// at ⌈2·Σ/3⌉+1 in user.Committee. FutureQueueCapPerStep is not applied
// automatically either; a queue's cap is whatever it was built with
// (queue.NewWithCap).
type Config struct {
	ProposalTimeoutBase     time.Duration `toml:"-"`
	ValidationTimeoutBase   time.Duration `toml:"-"`
	RatificationTimeoutBase time.Duration `toml:"-"`
	TimeoutMax              time.Duration `toml:"-"`

	CommitteeSizeValidation   int `toml:"committee_size_validation"`
	CommitteeSizeRatification int `toml:"committee_size_ratification"`

	QuorumNumerator   int `toml:"quorum_numerator"`
	QuorumDenominator int `toml:"quorum_denominator"`

	FutureQueueCapPerStep int `toml:"future_queue_cap_per_step"`

	// raw seconds read from TOML, converted into the Duration fields
	// above after decoding — toml.Decode doesn't natively round-trip
	// time.Duration from a bare integer.
	ProposalTimeoutBaseSecs     int64 `toml:"proposal_timeout_base_secs"`
	ValidationTimeoutBaseSecs   int64 `toml:"validation_timeout_base_secs"`
	RatificationTimeoutBaseSecs int64 `toml:"ratification_timeout_base_secs"`
	TimeoutMaxSecs              int64 `toml:"timeout_max_secs"`
}

// Default matches the teacher's own reduction-step defaults
// (firststep/secondstep both ran a 5s base timeout, doubling to a 60s
// cap), extended to all three of this core's steps.
func Default() Config {
	return Config{
		ProposalTimeoutBase:       5 * time.Second,
		ValidationTimeoutBase:     5 * time.Second,
		RatificationTimeoutBase:   5 * time.Second,
		TimeoutMax:                60 * time.Second,
		CommitteeSizeValidation:   64,
		CommitteeSizeRatification: 64,
		QuorumNumerator:           2,
		QuorumDenominator:         3,
		FutureQueueCapPerStep:     1000,
	}
}

// LoadTOML decodes path into cfg, starting from Default() and overwriting
// whichever fields the file sets.
func LoadTOML(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "decoding consensus toml config")
	}
	applySeconds(&cfg)
	return cfg, nil
}

// ApplyPropertiesOverlay lets an operator override individual keys from a
// .properties file without touching the TOML source — mirroring the
// teacher's side-by-side use of BurntSushi/toml and magiconair/properties.
func ApplyPropertiesOverlay(cfg Config, path string) (Config, error) {
	p, err := properties.LoadFile(path, properties.UTF8)
	if err != nil {
		return Config{}, errors.Wrap(err, "loading properties overlay")
	}

	if n := p.GetInt("committee_size_validation", cfg.CommitteeSizeValidation); n != cfg.CommitteeSizeValidation {
		cfg.CommitteeSizeValidation = n
	}
	if n := p.GetInt("committee_size_ratification", cfg.CommitteeSizeRatification); n != cfg.CommitteeSizeRatification {
		cfg.CommitteeSizeRatification = n
	}
	if n := p.GetInt("future_queue_cap_per_step", cfg.FutureQueueCapPerStep); n != cfg.FutureQueueCapPerStep {
		cfg.FutureQueueCapPerStep = n
	}
	if secs := p.GetInt64("timeout_max_secs", 0); secs != 0 {
		cfg.TimeoutMax = time.Duration(secs) * time.Second
	}

	return cfg, nil
}

func applySeconds(cfg *Config) {
	if cfg.ProposalTimeoutBaseSecs > 0 {
		cfg.ProposalTimeoutBase = time.Duration(cfg.ProposalTimeoutBaseSecs) * time.Second
	}
	if cfg.ValidationTimeoutBaseSecs > 0 {
		cfg.ValidationTimeoutBase = time.Duration(cfg.ValidationTimeoutBaseSecs) * time.Second
	}
	if cfg.RatificationTimeoutBaseSecs > 0 {
		cfg.RatificationTimeoutBase = time.Duration(cfg.RatificationTimeoutBaseSecs) * time.Second
	}
	if cfg.TimeoutMaxSecs > 0 {
		cfg.TimeoutMax = time.Duration(cfg.TimeoutMaxSecs) * time.Second
	}
}
