// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package consensus

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Error is the semantic taxonomy a MsgHandler reports back to the event
// loop. Past and Future are routing signals, not failures — the event
// loop never logs them as errors.
type Error struct {
	kind ErrorKind
	hash [32]byte
	err  error
}

// ErrorKind enumerates the classes of per-message outcome the event loop
// dispatches on.
type ErrorKind uint8

const (
	// ErrInvalidMsgType: payload does not match the phase expectation.
	ErrInvalidMsgType ErrorKind = iota
	// ErrInvalidSignature: BLS check failed.
	ErrInvalidSignature
	// ErrNotCommitteeMember: signer absent from the relevant committee.
	ErrNotCommitteeMember
	// ErrInvalidPrevBlockHash: fork divergence.
	ErrInvalidPrevBlockHash
	// ErrPastEvent: message belongs to an earlier (round, step).
	ErrPastEvent
	// ErrFutureEvent: message belongs to a later (round, step).
	ErrFutureEvent
	// ErrCommitteeNotFound: internal invariant violation, fatal to the step.
	ErrCommitteeNotFound
	// ErrChannelClosed: outbound/quorum channel closed unexpectedly.
	ErrChannelClosed
)

func (k ErrorKind) String() string {
	switch k {
	case ErrInvalidMsgType:
		return "invalid-msg-type"
	case ErrInvalidSignature:
		return "invalid-signature"
	case ErrNotCommitteeMember:
		return "not-committee-member"
	case ErrInvalidPrevBlockHash:
		return "invalid-prev-block-hash"
	case ErrPastEvent:
		return "past-event"
	case ErrFutureEvent:
		return "future-event"
	case ErrCommitteeNotFound:
		return "committee-not-found"
	case ErrChannelClosed:
		return "channel-closed"
	default:
		return "unknown-error"
	}
}

// Error implements error.
func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.kind, e.err)
	}
	return e.kind.String()
}

// Kind returns the semantic class of this error.
func (e *Error) Kind() ErrorKind {
	return e.kind
}

// Unwrap supports errors.Is/errors.As against the wrapped cause.
func (e *Error) Unwrap() error {
	return e.err
}

// NewError builds a taxonomy error of the given kind, optionally wrapping
// a lower-level cause with pkg/errors so a stack trace survives up to the
// log call site.
func NewError(kind ErrorKind, cause error) *Error {
	if cause != nil {
		cause = pkgerrors.Wrap(cause, kind.String())
	}
	return &Error{kind: kind, err: cause}
}

// NewInvalidPrevBlockHash builds the one taxonomy member that also carries
// data (the offending hash), matching spec.md's InvalidPrevBlockHash(h).
func NewInvalidPrevBlockHash(hash [32]byte) *Error {
	return &Error{kind: ErrInvalidPrevBlockHash, hash: hash}
}

// Hash returns the offending hash for ErrInvalidPrevBlockHash errors.
func (e *Error) Hash() [32]byte {
	return e.hash
}

// IsPast reports whether err is the PastEvent routing signal.
func IsPast(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.kind == ErrPastEvent
}

// IsFuture reports whether err is the FutureEvent routing signal.
func IsFuture(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.kind == ErrFutureEvent
}
