// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

// Package iteration implements the per-iteration context (spec.md §4.D):
// a committee cache keyed by step-id, per-step adaptive timeouts, and the
// past-event routing (including catch-up voting) a running round's
// execution context delegates to.
package iteration

import (
	"sync"
	"time"

	"gitlab.dusk.network/vota/consensus/pkg/core/consensus"
	"gitlab.dusk.network/vota/consensus/pkg/core/consensus/msghandler"
	"gitlab.dusk.network/vota/consensus/pkg/core/consensus/sortition"
	"gitlab.dusk.network/vota/consensus/pkg/core/consensus/user"
)

// Signer is the local signing capability this core holds by reference
// (spec.md §6): producing this node's own vote for catch-up voting and,
// ordinarily, for the live steps a handler drives.
type Signer interface {
	Sign(round uint64, stepID uint16, hash [32]byte) ([]byte, error)
	PublicKey() []byte
}

// TimeoutTable holds the per-step-name timeout schedule: a base duration
// per step name and a shared cap, doubled on TimeoutIncrease up to that
// cap (spec.md §5).
type TimeoutTable struct {
	Base map[consensus.StepName]time.Duration
	Max  time.Duration
}

// Context is the per-iteration state an execution context consults: the
// committee for each step-id (sortition run once, cached thereafter), the
// adaptive timeout for each step name, and the handler instances past
// events must be routed back to.
type Context struct {
	mu sync.Mutex

	ru          consensus.RoundUpdate
	provisioners *user.Provisioners
	iteration   uint8
	seed        []byte
	sizes       map[consensus.StepName]int
	signer      Signer

	committees map[uint16]*user.Committee
	timeouts   map[consensus.StepName]time.Duration
	timeoutMax time.Duration

	handlers map[uint16]msghandler.Handler
}

// New builds an iteration Context. sizes gives the committee size for
// each step name (Proposal is conventionally 1, enforced by the sortition
// package regardless of what's passed here).
func New(ru consensus.RoundUpdate, provisioners *user.Provisioners, iteration uint8, seed []byte, sizes map[consensus.StepName]int, table TimeoutTable, signer Signer) *Context {
	timeouts := make(map[consensus.StepName]time.Duration, len(table.Base))
	for k, v := range table.Base {
		timeouts[k] = v
	}

	return &Context{
		ru:           ru,
		provisioners: provisioners,
		iteration:    iteration,
		seed:         seed,
		sizes:        sizes,
		signer:       signer,
		committees:   make(map[uint16]*user.Committee),
		timeouts:     timeouts,
		timeoutMax:   table.Max,
		handlers:     make(map[uint16]msghandler.Handler),
	}
}

// CommitteeFor returns the committee for stepID, running sortition the
// first time it's asked for and caching the result — spec.md §4.A:
// "computed once per (round, iteration, step) and cached for its
// lifetime".
func (c *Context) CommitteeFor(step consensus.StepName) *user.Committee {
	stepID := consensus.StepID(c.iteration, step)

	c.mu.Lock()
	defer c.mu.Unlock()

	if committee, ok := c.committees[stepID]; ok {
		return committee
	}

	cfg := sortition.Config{
		Seed:      c.seed,
		Round:     c.ru.Round,
		Iteration: c.iteration,
		Step:      step,
	}

	committee := sortition.Select(c.provisioners, cfg, c.sizes[step])
	c.committees[stepID] = committee
	return committee
}

// Iteration returns the iteration number this context belongs to.
func (c *Context) Iteration() uint8 {
	return c.iteration
}

// TimeoutFor returns the current (possibly doubled) timeout for step.
func (c *Context) TimeoutFor(step consensus.StepName) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timeouts[step]
}

// IncreaseTimeout doubles step's timeout, capped at the table's Max —
// spec.md §5's adaptive-timeout rule, triggered by a handler's
// HandleOutput.TimeoutIncrease.
func (c *Context) IncreaseTimeout(step consensus.StepName) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.timeouts[step] * 2
	if c.timeoutMax > 0 && next > c.timeoutMax {
		next = c.timeoutMax
	}
	c.timeouts[step] = next
}

// CacheHandler registers h as the live handler instance for stepID, so a
// later past-event or catch-up vote for this same (still-open) step can
// be routed to it instead of being silently dropped.
func (c *Context) CacheHandler(step consensus.StepName, h msghandler.Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[consensus.StepID(c.iteration, step)] = h
}

// HandlerFor returns the cached handler for step, if one was registered.
func (c *Context) HandlerFor(step consensus.StepName) (msghandler.Handler, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.handlers[consensus.StepID(c.iteration, step)]
	return h, ok
}

// CollectPastEvent routes msg — already positioned as Past by
// consensus.Compare — to this iteration's cached handler for its step, if
// one exists. Returns false if no handler was ever cached for that step
// (the iteration never reached it).
func (c *Context) CollectPastEvent(msg consensus.Message) (msghandler.HandleOutput, bool, error) {
	h, ok := c.HandlerFor(msg.Header.Step)
	if !ok {
		return msghandler.HandleOutput{}, false, nil
	}

	if err := h.Verify(msg); err != nil {
		return msghandler.HandleOutput{}, true, err
	}

	out, err := h.CollectFromPast(msg)
	return out, true, err
}

// TryVote implements catch-up voting (spec.md §9, §12): if the local key
// holds a seat on step's committee, it signs (round, step-id, hash) and
// feeds the resulting vote to that step's cached handler as if it had
// arrived over the wire. Returns false if this node isn't a member, or no
// handler is cached yet for that step.
func (c *Context) TryVote(step consensus.StepName, hash [32]byte, topic consensus.Topic) (msghandler.HandleOutput, bool, error) {
	if c.signer == nil {
		return msghandler.HandleOutput{}, false, nil
	}

	committee := c.CommitteeFor(step)
	pub := c.signer.PublicKey()
	if !committee.IsMember(pub) {
		return msghandler.HandleOutput{}, false, nil
	}

	h, ok := c.HandlerFor(step)
	if !ok {
		return msghandler.HandleOutput{}, false, nil
	}

	stepID := consensus.StepID(c.iteration, step)
	sig, err := c.signer.Sign(c.ru.Round, stepID, hash)
	if err != nil {
		return msghandler.HandleOutput{}, true, err
	}

	msg := consensus.Message{Header: consensus.Header{
		Round:     c.ru.Round,
		Iteration: c.iteration,
		Step:      step,
		BlockHash: hash,
		Signer:    pub,
		Topic:     topic,
	}}

	switch topic {
	case consensus.TopicValidation:
		copy(msg.Vote.Signature[:], sig)
	case consensus.TopicRatification:
		msg.Ratify.Signature = sig
	}

	out, err := h.CollectFromPast(msg)
	return out, true, err
}
