package classfile

import "strings"

// EventKind identifies the variant carried by an Event.
type EventKind int

const (
	EventClassStart EventKind = iota + 1
	EventFieldDeclared
	EventMethodStart
	EventInstruction
	EventMethodEnd
	EventClassEnd
)

func (k EventKind) String() string {
	switch k {
	case EventClassStart:
		return "class_start"
	case EventFieldDeclared:
		return "field_declared"
	case EventMethodStart:
		return "method_start"
	case EventInstruction:
		return "instruction"
	case EventMethodEnd:
		return "method_end"
	case EventClassEnd:
		return "class_end"
	default:
		return "unknown"
	}
}

// Category classifies an instruction for complexity counting.
// Instructions that fall into no category are not emitted.
type Category int

const (
	CategoryArrayStore Category = iota + 1
	CategoryLocalStore
	CategoryConditionalJump
	CategoryJump // goto, goto_w, jsr, jsr_w
	CategoryCall
	CategoryMultiBranch
)

func (c Category) String() string {
	switch c {
	case CategoryArrayStore:
		return "array_store"
	case CategoryLocalStore:
		return "local_store"
	case CategoryConditionalJump:
		return "conditional_jump"
	case CategoryJump:
		return "jump"
	case CategoryCall:
		return "call"
	case CategoryMultiBranch:
		return "multi_branch"
	default:
		return "unknown"
	}
}

// SwitchKind distinguishes lookupswitch from tableswitch.
type SwitchKind int

const (
	SwitchLookup SwitchKind = iota + 1
	SwitchRange
)

// MultiBranch describes a tableswitch or lookupswitch instruction.
type MultiBranch struct {
	Kind SwitchKind
	// Keys is the number of explicit match keys (lookupswitch only).
	Keys int
	// Low and High bound the contiguous key range (tableswitch only).
	Low  int32
	High int32
	// Targets is the number of distinct case jump targets, default excluded.
	Targets int
}

// CaseCount returns the number of keys for a lookup switch or the size of
// the inclusive range for a table switch.
func (m MultiBranch) CaseCount() int {
	if m.Kind == SwitchRange {
		return int(int64(m.High) - int64(m.Low) + 1)
	}
	return m.Keys
}

// Instruction is the payload of an EventInstruction.
type Instruction struct {
	Category Category
	Opcode   byte
	Branch   MultiBranch // set when Category == CategoryMultiBranch
}

// MethodSignature identifies a method by name and descriptor.
// Two methods are the same member iff both fields match exactly.
type MethodSignature struct {
	Name       string
	Descriptor string
}

func (s MethodSignature) String() string {
	return s.Name + s.Descriptor
}

// MethodFlags carries the access properties relevant to override counting.
type MethodFlags struct {
	Static          bool
	Private         bool
	ConstructorLike bool // <init> or <clinit>
}

// Event is one notification in the stream produced by decoding a class.
// Class is set on every event; the remaining fields depend on Kind.
type Event struct {
	Kind  EventKind
	Class string

	// EventClassStart
	Super      string // empty when the class has no superclass
	Interfaces []string

	// EventMethodStart
	Method MethodSignature
	Flags  MethodFlags

	// EventInstruction
	Instruction Instruction
}

// InternalName normalizes a class name to the JVM internal form used as the
// engine's key: dots become slashes and a trailing ".class" is dropped.
func InternalName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimSuffix(name, ".class")
	return strings.ReplaceAll(name, ".", "/")
}

// BinaryName converts an internal name to its dotted form.
func BinaryName(name string) string {
	return strings.ReplaceAll(InternalName(name), "/", ".")
}
