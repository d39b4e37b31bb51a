// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package consensus

import (
	"context"

	"gitlab.dusk.network/vota/consensus/pkg/core/block"
)

// Database is the external persistence collaborator (spec.md §6), held by
// reference and never implemented within this core.
type Database interface {
	// GetCandidateBlockByHash retrieves a candidate by hash. No code in
	// this module calls it: a quorum on a hash whose Candidate was never
	// observed locally does not trigger a lookup.
	GetCandidateBlockByHash(ctx context.Context, hash [32]byte) (block.Candidate, error)
	// StoreCandidate write-through persists a candidate on receipt.
	StoreCandidate(ctx context.Context, c block.Candidate) error
}

// Executor is the external VM/state-transition collaborator (spec.md
// §6). This core holds it but never calls it — invoking it belongs to
// whichever layer executes a block after a certificate is produced.
type Executor interface {
	VerifyStateTransition(ctx context.Context, c block.Candidate) error
}
