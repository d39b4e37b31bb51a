// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package consensus

import "fmt"

// StepName identifies one of the three phases an iteration is made of.
type StepName uint8

// The three steps of an iteration, in execution order.
const (
	Proposal StepName = iota
	Validation
	Ratification
)

// stepsPerIteration is the fixed number of steps making up one iteration.
const stepsPerIteration = 3

// String implements fmt.Stringer.
func (s StepName) String() string {
	switch s {
	case Proposal:
		return "proposal"
	case Validation:
		return "validation"
	case Ratification:
		return "ratification"
	default:
		return fmt.Sprintf("unknown-step(%d)", uint8(s))
	}
}

// StepID flattens (iteration, step-name) into a single sortable key:
// iteration*3 + step-ordinal. It is used throughout the core wherever a
// single comparable key is needed (committee cache, future-queue, registry).
func StepID(iteration uint8, step StepName) uint16 {
	return uint16(iteration)*stepsPerIteration + uint16(step)
}

// IterationOf recovers the iteration number a step-id belongs to.
func IterationOf(stepID uint16) uint8 {
	return uint8(stepID / stepsPerIteration)
}

// StepNameOf recovers the step-name a step-id belongs to.
func StepNameOf(stepID uint16) StepName {
	return StepName(stepID % stepsPerIteration)
}
