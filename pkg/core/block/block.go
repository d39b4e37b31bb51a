// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

// Package block holds the header-only block/candidate types the consensus
// core needs identity for. Body contents, transaction formats and state
// transitions are owned by collaborators outside this module's scope.
package block

import "encoding/hex"

// ZeroHash is the all-zero 32 byte hash representing "nil" — the
// committee agreed no candidate is acceptable.
var ZeroHash [32]byte

// Header carries the fields this core needs to identify a candidate block.
// Body contents are irrelevant to consensus bookkeeping.
type Header struct {
	Hash      [32]byte
	Height    uint64
	Seed      []byte
	Timestamp int64
	Generator []byte
	PrevHash  [32]byte
	StateRoot [32]byte
}

// Candidate is a block proposed during the Proposal step. Only the header
// is consulted by this core; Body is opaque payload carried for whoever
// eventually executes it.
type Candidate struct {
	Header Header
	Body   []byte
}

// IsZero reports whether c is the zero-value placeholder used when a step
// produces no candidate (timeout, nil quorum).
func (c Candidate) IsZero() bool {
	return c.Header.Hash == ZeroHash
}

// ToStr renders a hash as the shortened hex form used in log fields
// throughout this core, matching the teacher's to_str helper.
func ToStr(hash [32]byte) string {
	s := hex.EncodeToString(hash[:])
	if len(s) > 16 {
		return s[:16]
	}
	return s
}
