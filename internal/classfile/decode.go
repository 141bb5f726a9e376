package classfile

import (
	"errors"
	"fmt"
)

const magic = 0xCAFEBABE

// Access flags.
const (
	accPrivate = 0x0002
	accStatic  = 0x0008
)

var (
	// ErrBadMagic indicates the input does not start with 0xCAFEBABE.
	ErrBadMagic = errors.New("not a class file")

	// ErrTruncated indicates the input ended before a structure was complete.
	ErrTruncated = errors.New("truncated class file")

	// ErrBadConstantPool indicates a malformed or inconsistent constant pool.
	ErrBadConstantPool = errors.New("malformed constant pool")

	// ErrBadBytecode indicates a Code attribute that cannot be walked.
	ErrBadBytecode = errors.New("malformed bytecode")
)

// Decode parses a class file and returns its full event stream: the class
// declaration, one event per field, and for each method its start event,
// counted instructions, and end event.
//
// Decoding is all-or-nothing. On error no events are returned, so a caller
// never feeds a partial class to its listeners.
func Decode(data []byte) ([]Event, error) {
	return decode(data, false)
}

// DecodeStructure parses a class file without walking Code attributes.
// It is used for ancestors that are only consulted for their method
// signatures.
func DecodeStructure(data []byte) ([]Event, error) {
	return decode(data, true)
}

func decode(data []byte, skipCode bool) ([]Event, error) {
	r := &reader{data: data}

	m := r.u4()
	if r.err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadMagic, r.err)
	}
	if m != magic {
		return nil, fmt.Errorf("%w: magic %#x", ErrBadMagic, m)
	}
	r.skip(4) // minor_version, major_version

	pool, err := readConstantPool(r)
	if err != nil {
		return nil, err
	}

	r.skip(2) // access_flags
	name, err := pool.className(r.u2())
	if err != nil {
		return nil, fmt.Errorf("failed to read this_class: %w", err)
	}
	super, err := pool.className(r.u2())
	if err != nil {
		return nil, fmt.Errorf("failed to read super_class of %s: %w", name, err)
	}

	ifaceCount := int(r.u2())
	interfaces := make([]string, 0, ifaceCount)
	for i := 0; i < ifaceCount && r.err == nil; i++ {
		iface, err := pool.className(r.u2())
		if err != nil {
			return nil, fmt.Errorf("failed to read interface %d of %s: %w", i, name, err)
		}
		interfaces = append(interfaces, iface)
	}
	if r.err != nil {
		return nil, r.err
	}

	events := []Event{{
		Kind:       EventClassStart,
		Class:      name,
		Super:      super,
		Interfaces: interfaces,
	}}

	fieldCount := int(r.u2())
	for i := 0; i < fieldCount && r.err == nil; i++ {
		r.skip(6) // access_flags, name_index, descriptor_index
		if err := skipAttributes(r); err != nil {
			return nil, err
		}
		events = append(events, Event{Kind: EventFieldDeclared, Class: name})
	}

	methodCount := int(r.u2())
	for i := 0; i < methodCount && r.err == nil; i++ {
		events, err = decodeMethod(r, pool, name, skipCode, events)
		if err != nil {
			return nil, err
		}
	}
	if r.err != nil {
		return nil, r.err
	}

	events = append(events, Event{Kind: EventClassEnd, Class: name})
	return events, nil
}

func decodeMethod(r *reader, pool constantPool, class string, skipCode bool, events []Event) ([]Event, error) {
	access := r.u2()
	methodName, err := pool.utf8(r.u2())
	if err != nil {
		return nil, fmt.Errorf("failed to read method name in %s: %w", class, err)
	}
	descriptor, err := pool.utf8(r.u2())
	if err != nil {
		return nil, fmt.Errorf("failed to read descriptor of %s.%s: %w", class, methodName, err)
	}

	sig := MethodSignature{Name: methodName, Descriptor: descriptor}
	events = append(events, Event{
		Kind:   EventMethodStart,
		Class:  class,
		Method: sig,
		Flags: MethodFlags{
			Static:          access&accStatic != 0,
			Private:         access&accPrivate != 0,
			ConstructorLike: methodName == "<init>" || methodName == "<clinit>",
		},
	})

	attrCount := int(r.u2())
	for i := 0; i < attrCount && r.err == nil; i++ {
		attrName, err := pool.utf8(r.u2())
		if err != nil {
			return nil, fmt.Errorf("failed to read attribute name in %s.%s: %w", class, methodName, err)
		}
		length := int(r.u4())
		body := r.take(length)
		if r.err != nil {
			return nil, r.err
		}
		if attrName != "Code" || skipCode {
			continue
		}
		code, err := codeBytes(body)
		if err != nil {
			return nil, fmt.Errorf("failed to read code of %s.%s%s: %w", class, methodName, descriptor, err)
		}
		err = walkCode(code, func(insn Instruction) {
			events = append(events, Event{Kind: EventInstruction, Class: class, Method: sig, Instruction: insn})
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk code of %s.%s%s: %w", class, methodName, descriptor, err)
		}
	}
	if r.err != nil {
		return nil, r.err
	}

	events = append(events, Event{Kind: EventMethodEnd, Class: class, Method: sig})
	return events, nil
}

// codeBytes extracts the bytecode array from a Code attribute body.
func codeBytes(body []byte) ([]byte, error) {
	r := &reader{data: body}
	r.skip(4) // max_stack, max_locals
	n := int(r.u4())
	code := r.take(n)
	if r.err != nil {
		return nil, r.err
	}
	return code, nil
}

func skipAttributes(r *reader) error {
	count := int(r.u2())
	for i := 0; i < count && r.err == nil; i++ {
		r.skip(2)
		r.skip(int(r.u4()))
	}
	return r.err
}
