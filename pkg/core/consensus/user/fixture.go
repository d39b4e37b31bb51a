// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package user

import (
	"os"

	"gopkg.in/yaml.v2"
)

// fixtureStake mirrors Stake in a form yaml.v2 can decode directly.
type fixtureStake struct {
	Amount      uint64 `yaml:"amount"`
	StartHeight uint64 `yaml:"start_height"`
	EndHeight   uint64 `yaml:"end_height"`
}

// fixtureMember mirrors Member for a human-editable testdata/*.yaml file.
// The BLS key is given as a short ASCII tag rather than real key bytes —
// fixtures exist to pin sortition/committee behavior against a readable,
// reviewable set of stakes, not to exercise real key material.
type fixtureMember struct {
	Key    string         `yaml:"key"`
	Stakes []fixtureStake `yaml:"stakes"`
}

type fixtureSet struct {
	Members []fixtureMember `yaml:"members"`
}

// LoadFixture reads a YAML-described provisioner set from path, for use by
// tests that want a reviewable, hand-editable stake distribution instead of
// one built up with repeated Add calls.
func LoadFixture(path string) (*Provisioners, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var fs fixtureSet
	if err := yaml.Unmarshal(raw, &fs); err != nil {
		return nil, err
	}

	p := NewProvisioners()
	for _, fm := range fs.Members {
		stakes := make([]Stake, 0, len(fm.Stakes))
		for _, fs := range fm.Stakes {
			stakes = append(stakes, Stake{Amount: fs.Amount, StartHeight: fs.StartHeight, EndHeight: fs.EndHeight})
		}
		p.Add(Member{PublicKeyBLS: []byte(fm.Key), Stakes: stakes})
	}

	return p, nil
}
