// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

// Package execution implements the execution context (spec.md §4.G/§4.H): the
// event loop multiplexing one step's inbound message channel against its
// deadline timer and a single MsgHandler, routing Past messages to
// catch-up voting, Future messages to the future queue, and Present
// messages into the handler's tally. Grounded on
// original_source/consensus/src/execution_ctx.rs's select-over-inbound
// pattern.
package execution

import (
	"context"

	"github.com/sirupsen/logrus"
	"gitlab.dusk.network/vota/consensus/pkg/core/consensus"
	"gitlab.dusk.network/vota/consensus/pkg/core/consensus/logging"
	"gitlab.dusk.network/vota/consensus/pkg/core/consensus/msghandler"
	"gitlab.dusk.network/vota/consensus/pkg/core/consensus/queue"
)

var lg = logging.WithProcess("execution-ctx")

// PastRouter delivers a Past message to whichever prior iteration's
// context can still fold it into an already-closed tally (catch-up
// voting, spec.md §9/§12). It returns routed=false if no iteration ever
// reached that message's step.
type PastRouter func(msg consensus.Message) (out msghandler.HandleOutput, routed bool, err error)

// CatchUpVoter implements spec.md §4.H process_past step 3: when msg is a
// Candidate from a previous iteration of the current round, it attempts a
// Validation vote for that iteration's step+1 and a Ratification vote for
// step+2, for each target step whose absolute step-id does not exceed
// currentStepID, provided the local key holds a seat on that step's
// committee. Any Quorum messages those catch-up votes complete are
// returned for the caller to forward to the quorum sink.
type CatchUpVoter func(msg consensus.Message, currentStepID uint16) []consensus.Message

// Deps bundles a step's collaborators beyond its own handler: the shared
// future-message queue, the callback that reaches back into prior
// iterations for Past messages and catch-up voting, and the outbound/
// quorum sinks spec.md §4.H/§6 hold this context responsible for feeding.
type Deps struct {
	Queue        *queue.Queue
	PastRouter   PastRouter
	CatchUpVoter CatchUpVoter

	// PrevBlockHash is the round's expected chain tip, checked against
	// every Present message's Header.PrevBlockHash before any
	// phase-specific Verify runs (spec.md §4.C common is_valid gate).
	PrevBlockHash [32]byte

	// Outbound re-publishes valid-and-processed messages for gossip
	// convergence (spec.md §6 "Outbound message channel"). Sends are
	// best-effort: a full or nil channel never blocks the event loop.
	Outbound chan<- consensus.Message
	// Quorum is the dedicated sink for completed Certificate/Quorum
	// messages (spec.md §6 "Quorum channel"), fed both by the current
	// step's own conclusion and by past-event/catch-up processing.
	Quorum chan<- consensus.Message
}

// Run drives one (round, iteration, step) to conclusion: it multiplexes
// inbound against timeout, until the handler reports Ready or the
// deadline fires first.
//
// Deadline-wins tie-break (spec.md §8 boundary case, §9 open question
// #2): ctx.Err() is checked before the select reads inbound, so a message
// that arrives in the same instant the deadline elapses never pre-empts
// the timeout — the loop always prefers Done() over a simultaneously
// ready channel.
func Run(parent context.Context, inbound <-chan consensus.Message, deps Deps, h msghandler.Handler, round uint64, it uint8, step consensus.StepName) (msghandler.HandleOutput, error) {
	stepID := consensus.StepID(it, step)

	if deps.Queue != nil {
		if queued, found := deps.Queue.DrainEvents(round, stepID); found {
			for _, msg := range queued {
				out, err := processPresent(deps, h, msg)
				if err != nil {
					lg.WithError(err).WithField("step", step.String()).Debug("dropping queued message")
					continue
				}
				if out.Ready {
					return out, nil
				}
			}
		}
	}

	for {
		if parent.Err() != nil {
			return h.HandleTimeout(), nil
		}

		select {
		case <-parent.Done():
			return h.HandleTimeout(), nil
		case msg, ok := <-inbound:
			if !ok {
				return msghandler.HandleOutput{}, consensus.NewError(consensus.ErrChannelClosed, nil)
			}

			out, err := dispatch(deps, h, msg, round, it, step)
			if err != nil {
				lg.WithError(err).WithFields(logrus.Fields{
					"round": round, "iteration": it, "step": step.String(),
				}).Debug("message rejected")
				continue
			}
			if out.Ready {
				return out, nil
			}
		}
	}
}

// sendBestEffort forwards msg on out without ever blocking the event
// loop — a full or nil channel just drops the send, logged at debug
// (spec.md §5 "Backpressure": "Outbound channel sends are best-effort;
// failures are logged but never block the event loop").
func sendBestEffort(out chan<- consensus.Message, msg consensus.Message) {
	if out == nil {
		return
	}
	select {
	case out <- msg:
	default:
		lg.WithField("topic", msg.Header.Topic.String()).Debug("best-effort send dropped: channel full")
	}
}

// dispatch positions msg against (round, it, step) and routes it to the
// Present/Past/Future path.
func dispatch(deps Deps, h msghandler.Handler, msg consensus.Message, round uint64, it uint8, step consensus.StepName) (msghandler.HandleOutput, error) {
	switch consensus.Compare(msg.Header.Round, msg.Header.Iteration, msg.Header.Step, round, it, step) {
	case consensus.Present:
		return processPresent(deps, h, msg)
	case consensus.Past:
		return processPast(deps, msg, round, it, step)
	default: // consensus.Future
		if err := h.VerifyStateless(msg); err != nil {
			return msghandler.HandleOutput{}, err
		}
		if deps.Queue != nil {
			deps.Queue.PutEvent(msg.Header.Round, msg.Header.StepID(), msg)
		}
		return msghandler.HandleOutput{}, nil
	}
}

// processPresent implements spec.md §4.H process_inbound's Ok path: the
// common prev-block-hash gate runs before any phase-specific Verify, a
// successful message is re-broadcast on outbound before collect runs (so
// a message that only reaches Pending still converges the network), and
// the result is returned to the event loop.
func processPresent(deps Deps, h msghandler.Handler, msg consensus.Message) (msghandler.HandleOutput, error) {
	if err := h.IsValid(msg); err != nil {
		return msghandler.HandleOutput{}, err
	}
	if msg.Header.PrevBlockHash != deps.PrevBlockHash {
		return msghandler.HandleOutput{}, consensus.NewInvalidPrevBlockHash(msg.Header.PrevBlockHash)
	}
	if err := h.Verify(msg); err != nil {
		return msghandler.HandleOutput{}, err
	}

	sendBestEffort(deps.Outbound, msg)

	out, err := h.Collect(msg)
	if err != nil {
		return out, err
	}
	if out.Ready && out.Message.Header.Topic == consensus.TopicQuorum {
		sendBestEffort(deps.Quorum, out.Message)
	}
	return out, nil
}

// processPast implements spec.md §4.H process_past: cross-round past
// messages are dropped outright (step 1); everything else is
// re-broadcast for peer convergence (step 2), attempted as catch-up
// votes if it's a Candidate (step 3), and finally routed to the owning
// iteration's cached handler (step 4) — whose own completion, if it
// yields a Quorum message, goes to the quorum sink, never back to this
// step's event loop: past events never "finish" the current step.
func processPast(deps Deps, msg consensus.Message, round uint64, it uint8, step consensus.StepName) (msghandler.HandleOutput, error) {
	if msg.Header.Round != round {
		return msghandler.HandleOutput{}, nil
	}

	sendBestEffort(deps.Outbound, msg)

	if msg.Header.Topic == consensus.TopicCandidate && deps.CatchUpVoter != nil {
		currentStepID := consensus.StepID(it, step)
		for _, quorumMsg := range deps.CatchUpVoter(msg, currentStepID) {
			sendBestEffort(deps.Quorum, quorumMsg)
		}
	}

	if deps.PastRouter == nil {
		return msghandler.HandleOutput{}, nil
	}

	out, routed, err := deps.PastRouter(msg)
	if !routed {
		return msghandler.HandleOutput{}, nil
	}
	if err != nil {
		return msghandler.HandleOutput{}, err
	}

	if out.Ready && out.Message.Header.Topic == consensus.TopicQuorum {
		sendBestEffort(deps.Quorum, out.Message)
	}

	return msghandler.HandleOutput{}, nil
}
