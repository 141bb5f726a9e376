package metrics

import (
	"math"

	"github.com/mvp-joe/bytemetrics/internal/classfile"
)

// InstructionSize accumulates the ABC complexity counts across a batch.
//
// Per method it tallies assignments (array and local stores), branches
// (jumps, calls, and distinct switch targets) and conditions (switch keys or
// range sizes). Method tallies are folded into batch-wide totals at method
// end; they are never reset per class.
type InstructionSize struct {
	countJumps bool

	methodA, methodB, methodC int64
	totalA, totalB, totalC    int64
}

// NewInstructionSize creates an accumulator. When countUnconditionalJumps is
// set, goto/jsr instructions count as branches alongside conditional jumps.
func NewInstructionSize(countUnconditionalJumps bool) *InstructionSize {
	return &InstructionSize{countJumps: countUnconditionalJumps}
}

// Handle implements Listener.
func (s *InstructionSize) Handle(ev classfile.Event) {
	switch ev.Kind {
	case classfile.EventMethodStart:
		s.methodA, s.methodB, s.methodC = 0, 0, 0
	case classfile.EventInstruction:
		switch ev.Instruction.Category {
		case classfile.CategoryArrayStore, classfile.CategoryLocalStore:
			s.OnAssignment()
		case classfile.CategoryConditionalJump, classfile.CategoryCall:
			s.OnBranch()
		case classfile.CategoryJump:
			if s.countJumps {
				s.OnBranch()
			}
		case classfile.CategoryMultiBranch:
			b := ev.Instruction.Branch
			s.OnMultiBranch(b.CaseCount(), b.Targets)
		}
	case classfile.EventMethodEnd:
		s.OnMethodEnd()
	}
}

func (s *InstructionSize) OnAssignment() { s.methodA++ }

func (s *InstructionSize) OnBranch() { s.methodB++ }

// OnMultiBranch records a switch: its jump targets are branches and its
// cases are conditions.
func (s *InstructionSize) OnMultiBranch(caseCount, targetCount int) {
	s.methodB += int64(targetCount)
	s.methodC += int64(caseCount)
}

// OnMethodEnd folds the current method's counts into the batch totals.
func (s *InstructionSize) OnMethodEnd() {
	s.totalA += s.methodA
	s.totalB += s.methodB
	s.totalC += s.methodC
	s.methodA, s.methodB, s.methodC = 0, 0, 0
}

// Totals returns the batch-wide counts.
func (s *InstructionSize) Totals() ABC {
	return ABC{Assignments: s.totalA, Branches: s.totalB, Conditions: s.totalC}
}

// Magnitude returns sqrt(A² + B² + C²) over the batch totals.
func (s *InstructionSize) Magnitude() float64 {
	a, b, c := float64(s.totalA), float64(s.totalB), float64(s.totalC)
	return math.Sqrt(a*a + b*b + c*c)
}
