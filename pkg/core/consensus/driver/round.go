// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

// Package driver implements the round driver (spec.md §4.H): it sequences
// an iteration's three steps, advances to the next iteration when a step
// times out without a certificate, and returns the finalized Certificate
// the instant Ratification emits one.
package driver

import (
	"context"
	"time"

	"gitlab.dusk.network/vota/consensus/pkg/core/consensus"
	"gitlab.dusk.network/vota/consensus/pkg/core/consensus/config"
	"gitlab.dusk.network/vota/consensus/pkg/core/consensus/execution"
	"gitlab.dusk.network/vota/consensus/pkg/core/consensus/iteration"
	"gitlab.dusk.network/vota/consensus/pkg/core/consensus/logging"
	"gitlab.dusk.network/vota/consensus/pkg/core/consensus/msghandler"
	"gitlab.dusk.network/vota/consensus/pkg/core/consensus/proposal"
	"gitlab.dusk.network/vota/consensus/pkg/core/consensus/queue"
	"gitlab.dusk.network/vota/consensus/pkg/core/consensus/ratification"
	"gitlab.dusk.network/vota/consensus/pkg/core/consensus/registry"
	"gitlab.dusk.network/vota/consensus/pkg/core/consensus/user"
	"gitlab.dusk.network/vota/consensus/pkg/core/consensus/validation"
)

var lg = logging.WithProcess("round-driver")

// maxIteration bounds the driver's loop; a uint8 iteration counter
// naturally never exceeds this, but the explicit constant keeps the
// intent readable at the call site.
const maxIteration = 255

// catchUpTargets enumerates, in order, the steps spec.md §4.H process_past
// step 3 attempts a catch-up vote for once a previous iteration's Candidate
// message is seen again: that iteration's own Validation, then its own
// Ratification.
var catchUpTargets = []struct {
	step  consensus.StepName
	topic consensus.Topic
}{
	{consensus.Validation, consensus.TopicValidation},
	{consensus.Ratification, consensus.TopicRatification},
}

// Driver sequences one round's iterations to a finalized certificate.
// Exactly one Driver exists per running round — abandoned the instant the
// round advances (spec.md §5 "Cancellation").
type Driver struct {
	ru           consensus.RoundUpdate
	provisioners *user.Provisioners
	db           proposal.Database
	signer       iteration.Signer
	cfg          config.Config
	queue        *queue.Queue

	inbound  <-chan consensus.Message
	outbound chan<- consensus.Message
	quorum   chan<- consensus.Message
}

// New builds a round Driver. fq is shared across the lifetime of the
// round (and beyond, if the caller reuses it across rounds — spec.md §5:
// "shared across all steps of a round"); the caller is responsible for
// calling fq.ClearRound on round advance. outbound and quorum are the
// sinks spec.md §6 names "Outbound message channel" and "Quorum channel"
// — either may be nil, in which case the corresponding sends are simply
// dropped (spec.md §5 "Backpressure": best-effort, never blocking).
func New(ru consensus.RoundUpdate, provisioners *user.Provisioners, db proposal.Database, signer iteration.Signer, cfg config.Config, fq *queue.Queue, inbound <-chan consensus.Message, outbound chan<- consensus.Message, quorum chan<- consensus.Message) *Driver {
	return &Driver{ru: ru, provisioners: provisioners, db: db, signer: signer, cfg: cfg, queue: fq, inbound: inbound, outbound: outbound, quorum: quorum}
}

// Run drives the round to completion: it returns the finalized
// Certificate the first iteration to reach full quorum produces, or an
// error if ctx is cancelled first (spec.md §5: "no step output is
// produced" on abort).
func (d *Driver) Run(ctx context.Context) (consensus.Certificate, error) {
	table := iteration.TimeoutTable{
		Base: map[consensus.StepName]time.Duration{
			consensus.Proposal:     d.cfg.ProposalTimeoutBase,
			consensus.Validation:   d.cfg.ValidationTimeoutBase,
			consensus.Ratification: d.cfg.RatificationTimeoutBase,
		},
		Max: d.cfg.TimeoutMax,
	}
	sizes := map[consensus.StepName]int{
		consensus.Validation:   d.cfg.CommitteeSizeValidation,
		consensus.Ratification: d.cfg.CommitteeSizeRatification,
	}

	reg := registry.New()
	iterations := make(map[uint8]*iteration.Context)

	var pastRouter execution.PastRouter = func(msg consensus.Message) (msghandler.HandleOutput, bool, error) {
		itCtx, ok := iterations[msg.Header.Iteration]
		if !ok {
			return msghandler.HandleOutput{}, false, nil
		}
		return itCtx.CollectPastEvent(msg)
	}

	// catchUpVoter implements spec.md §4.H process_past step 3: a stray
	// Candidate from a previous iteration is a chance for this node to
	// cast the Validation/Ratification votes it may have missed for that
	// iteration — but only for steps that haven't themselves moved past
	// the current position.
	var catchUpVoter execution.CatchUpVoter = func(msg consensus.Message, currentStepID uint16) []consensus.Message {
		itCtx, ok := iterations[msg.Header.Iteration]
		if !ok {
			return nil
		}

		hash := msg.Candidate.Candidate.Header.Hash
		var produced []consensus.Message

		for _, target := range catchUpTargets {
			targetStepID := consensus.StepID(msg.Header.Iteration, target.step)
			if targetStepID > currentStepID {
				continue
			}

			out, routed, err := itCtx.TryVote(target.step, hash, target.topic)
			if err != nil {
				lg.WithError(err).WithField("step", target.step.String()).Debug("catch-up vote failed")
				continue
			}
			if !routed {
				continue
			}
			if out.Ready && out.Message.Header.Topic == consensus.TopicQuorum {
				produced = append(produced, out.Message)
			}
		}

		return produced
	}

	for it := uint8(0); it < maxIteration; it++ {
		if ctx.Err() != nil {
			return consensus.Certificate{}, ctx.Err()
		}

		itCtx := iteration.New(d.ru, d.provisioners, it, d.ru.Seed, sizes, table, d.signer)
		iterations[it] = itCtx

		cert, done, err := d.runIteration(ctx, itCtx, pastRouter, catchUpVoter, reg)
		if err != nil {
			return consensus.Certificate{}, err
		}
		if done {
			lg.WithField("round", d.ru.Round).WithField("iteration", it).Info("round finalized")
			return cert, nil
		}

		// Carry this iteration's timeouts, including any increase its
		// steps signalled, into the next iteration of the round.
		for step := range table.Base {
			table.Base[step] = itCtx.TimeoutFor(step)
		}
	}

	return consensus.Certificate{}, consensus.NewError(consensus.ErrCommitteeNotFound, nil)
}

func (d *Driver) runIteration(ctx context.Context, itCtx *iteration.Context, pastRouter execution.PastRouter, catchUpVoter execution.CatchUpVoter, reg *registry.Registry) (consensus.Certificate, bool, error) {
	deps := execution.Deps{
		Queue:         d.queue,
		PastRouter:    pastRouter,
		CatchUpVoter:  catchUpVoter,
		PrevBlockHash: d.ru.PrevBlockHash,
		Outbound:      d.outbound,
		Quorum:        d.quorum,
	}
	it := itCtx.Iteration()

	// Proposal
	propCommittee := itCtx.CommitteeFor(consensus.Proposal)
	propHandler := proposal.New(d.ru, it, propCommittee, d.db)
	itCtx.CacheHandler(consensus.Proposal, propHandler)

	propCtx, cancelProp := context.WithTimeout(ctx, itCtx.TimeoutFor(consensus.Proposal))
	_, err := execution.Run(propCtx, d.inbound, deps, propHandler, d.ru.Round, it, consensus.Proposal)
	cancelProp()
	if err != nil {
		return consensus.Certificate{}, false, err
	}

	// Validation
	valCommittee := itCtx.CommitteeFor(consensus.Validation)
	valHandler := validation.New(d.ru, valCommittee, reg)
	itCtx.CacheHandler(consensus.Validation, valHandler)

	valCtx, cancelVal := context.WithTimeout(ctx, itCtx.TimeoutFor(consensus.Validation))
	valOut, err := execution.Run(valCtx, d.inbound, deps, valHandler, d.ru.Round, it, consensus.Validation)
	cancelVal()
	if err != nil {
		return consensus.Certificate{}, false, err
	}
	if valOut.TimeoutIncrease {
		itCtx.IncreaseTimeout(consensus.Validation)
	}

	// Ratification
	ratCommittee := itCtx.CommitteeFor(consensus.Ratification)
	ratHandler := ratification.New(d.ru, ratCommittee, valHandler.Result(), reg)
	itCtx.CacheHandler(consensus.Ratification, ratHandler)

	ratCtx, cancelRat := context.WithTimeout(ctx, itCtx.TimeoutFor(consensus.Ratification))
	ratOut, err := execution.Run(ratCtx, d.inbound, deps, ratHandler, d.ru.Round, it, consensus.Ratification)
	cancelRat()
	if err != nil {
		return consensus.Certificate{}, false, err
	}
	if ratOut.TimeoutIncrease {
		itCtx.IncreaseTimeout(consensus.Ratification)
	}

	if ratOut.Ready && ratOut.Message.Header.Topic == consensus.TopicQuorum {
		return ratOut.Message.Quorum.Certificate, true, nil
	}

	return consensus.Certificate{}, false, nil
}
