package classfile

import (
	"encoding/binary"
	"fmt"
)

// Opcodes referenced by the walker.
const (
	opIStore       = 0x36
	opAStore       = 0x3a
	opIStore0      = 0x3b
	opAStore3      = 0x4e
	opIAStore      = 0x4f
	opSAStore      = 0x56
	opIinc         = 0x84
	opIfEq         = 0x99
	opIfACmpNe     = 0xa6
	opGoto         = 0xa7
	opJsr          = 0xa8
	opTableSwitch  = 0xaa
	opLookupSwitch = 0xab
	opInvokeVirt   = 0xb6
	opInvokeIface  = 0xb9
	opWide         = 0xc4
	opIfNull       = 0xc6
	opIfNonNull    = 0xc7
	opGotoW        = 0xc8
	opJsrW         = 0xc9
)

// operandBytes is the fixed operand length of each opcode, or -1 for
// opcodes that are undefined or variable-length.
var operandBytes = func() [256]int8 {
	var t [256]int8
	for i := range t {
		t[i] = -1
	}
	set := func(from, to int, n int8) {
		for op := from; op <= to; op++ {
			t[op] = n
		}
	}
	set(0x00, 0x0f, 0) // nop, constants
	set(0x10, 0x10, 1) // bipush
	set(0x11, 0x11, 2) // sipush
	set(0x12, 0x12, 1) // ldc
	set(0x13, 0x14, 2) // ldc_w, ldc2_w
	set(0x15, 0x19, 1) // xload
	set(0x1a, 0x35, 0) // xload_n, xaload
	set(0x36, 0x3a, 1) // xstore
	set(0x3b, 0x83, 0) // xstore_n, xastore, stack, arithmetic
	set(0x84, 0x84, 2) // iinc
	set(0x85, 0x98, 0) // conversions, comparisons
	set(0x99, 0xa8, 2) // if*, goto, jsr
	set(0xa9, 0xa9, 1) // ret
	set(0xac, 0xb1, 0) // returns
	set(0xb2, 0xb8, 2) // field access, invokevirtual/special/static
	set(0xb9, 0xba, 4) // invokeinterface, invokedynamic
	set(0xbb, 0xbb, 2) // new
	set(0xbc, 0xbc, 1) // newarray
	set(0xbd, 0xbd, 2) // anewarray
	set(0xbe, 0xbf, 0) // arraylength, athrow
	set(0xc0, 0xc1, 2) // checkcast, instanceof
	set(0xc2, 0xc3, 0) // monitorenter, monitorexit
	set(0xc5, 0xc5, 3) // multianewarray
	set(0xc6, 0xc7, 2) // ifnull, ifnonnull
	set(0xc8, 0xc9, 4) // goto_w, jsr_w
	set(0xca, 0xca, 0) // breakpoint
	set(0xfe, 0xff, 0) // impdep1, impdep2
	return t
}()

// categorize maps a fixed-length opcode to its counting category.
// The second result is false for opcodes that are not counted.
func categorize(op byte) (Category, bool) {
	switch {
	case op >= opIStore && op <= opAStore, op >= opIStore0 && op <= opAStore3:
		return CategoryLocalStore, true
	case op >= opIAStore && op <= opSAStore:
		return CategoryArrayStore, true
	case op >= opIfEq && op <= opIfACmpNe, op == opIfNull, op == opIfNonNull:
		return CategoryConditionalJump, true
	case op == opGoto, op == opJsr, op == opGotoW, op == opJsrW:
		return CategoryJump, true
	case op >= opInvokeVirt && op <= opInvokeIface:
		return CategoryCall, true
	}
	return 0, false
}

// walkCode scans a method's bytecode and calls emit for every counted
// instruction, in code order.
func walkCode(code []byte, emit func(Instruction)) error {
	for pc := 0; pc < len(code); {
		op := code[pc]
		switch op {
		case opTableSwitch:
			next, branch, err := readTableSwitch(code, pc)
			if err != nil {
				return err
			}
			emit(Instruction{Category: CategoryMultiBranch, Opcode: op, Branch: branch})
			pc = next

		case opLookupSwitch:
			next, branch, err := readLookupSwitch(code, pc)
			if err != nil {
				return err
			}
			emit(Instruction{Category: CategoryMultiBranch, Opcode: op, Branch: branch})
			pc = next

		case opWide:
			if pc+1 >= len(code) {
				return fmt.Errorf("%w: truncated wide at pc %d", ErrBadBytecode, pc)
			}
			inner := code[pc+1]
			width := 4 // wide, opcode, u2 index
			if inner == opIinc {
				width = 6 // plus s2 constant
			}
			if pc+width > len(code) {
				return fmt.Errorf("%w: truncated wide %#x at pc %d", ErrBadBytecode, inner, pc)
			}
			if inner >= opIStore && inner <= opAStore {
				emit(Instruction{Category: CategoryLocalStore, Opcode: inner})
			}
			pc += width

		default:
			n := operandBytes[op]
			if n < 0 {
				return fmt.Errorf("%w: undefined opcode %#x at pc %d", ErrBadBytecode, op, pc)
			}
			if pc+1+int(n) > len(code) {
				return fmt.Errorf("%w: truncated opcode %#x at pc %d", ErrBadBytecode, op, pc)
			}
			if cat, ok := categorize(op); ok {
				emit(Instruction{Category: cat, Opcode: op})
			}
			pc += 1 + int(n)
		}
	}
	return nil
}

// switchBase returns the offset of the first 4-byte-aligned operand after
// the switch opcode at pc.
func switchBase(pc int) int {
	return pc + 1 + (4-(pc+1)%4)%4
}

func s4(code []byte, off int) int32 {
	return int32(binary.BigEndian.Uint32(code[off : off+4]))
}

func readTableSwitch(code []byte, pc int) (int, MultiBranch, error) {
	base := switchBase(pc)
	if base+12 > len(code) {
		return 0, MultiBranch{}, fmt.Errorf("%w: truncated tableswitch at pc %d", ErrBadBytecode, pc)
	}
	low, high := s4(code, base+4), s4(code, base+8)
	if high < low {
		return 0, MultiBranch{}, fmt.Errorf("%w: tableswitch high %d < low %d at pc %d", ErrBadBytecode, high, low, pc)
	}
	n := int64(high) - int64(low) + 1
	end := int64(base) + 12 + 4*n
	if end > int64(len(code)) {
		return 0, MultiBranch{}, fmt.Errorf("%w: truncated tableswitch jump table at pc %d", ErrBadBytecode, pc)
	}
	targets := make(map[int32]struct{}, n)
	for i := int64(0); i < n; i++ {
		targets[s4(code, base+12+int(4*i))] = struct{}{}
	}
	return int(end), MultiBranch{Kind: SwitchRange, Low: low, High: high, Targets: len(targets)}, nil
}

func readLookupSwitch(code []byte, pc int) (int, MultiBranch, error) {
	base := switchBase(pc)
	if base+8 > len(code) {
		return 0, MultiBranch{}, fmt.Errorf("%w: truncated lookupswitch at pc %d", ErrBadBytecode, pc)
	}
	npairs := s4(code, base+4)
	if npairs < 0 {
		return 0, MultiBranch{}, fmt.Errorf("%w: negative lookupswitch npairs at pc %d", ErrBadBytecode, pc)
	}
	end := int64(base) + 8 + 8*int64(npairs)
	if end > int64(len(code)) {
		return 0, MultiBranch{}, fmt.Errorf("%w: truncated lookupswitch pairs at pc %d", ErrBadBytecode, pc)
	}
	keys := make(map[int32]struct{}, npairs)
	targets := make(map[int32]struct{}, npairs)
	for i := 0; i < int(npairs); i++ {
		off := base + 8 + 8*i
		keys[s4(code, off)] = struct{}{}
		targets[s4(code, off+4)] = struct{}{}
	}
	return int(end), MultiBranch{Kind: SwitchLookup, Keys: len(keys), Targets: len(targets)}, nil
}
