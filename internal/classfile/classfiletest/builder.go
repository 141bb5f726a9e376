// Package classfiletest assembles minimal class files for tests.
//
// The output is structurally valid for the decoder: a constant pool holding
// only Utf8 and Class entries, fields without attributes, and methods with an
// optional Code attribute. It is not verifiable by a JVM.
package classfiletest

import (
	"bytes"
	"encoding/binary"
)

// Access flags.
const (
	AccPublic    = 0x0001
	AccPrivate   = 0x0002
	AccStatic    = 0x0008
	AccInterface = 0x0200
	AccAbstract  = 0x0400
)

// Method describes one method. A nil Code produces no Code attribute
// (abstract or native methods).
type Method struct {
	Name       string
	Descriptor string
	Access     uint16
	Code       []byte
}

// Class describes a class to assemble. Names use internal (slash) form.
type Class struct {
	Name       string
	Super      string // empty for no superclass
	Interfaces []string
	Access     uint16
	Fields     []string
	Methods    []Method
}

// Bytes assembles the class file.
func (c Class) Bytes() []byte {
	p := &pool{index: make(map[string]uint16)}

	thisIdx := p.class(c.Name)
	var superIdx uint16
	if c.Super != "" {
		superIdx = p.class(c.Super)
	}
	ifaceIdx := make([]uint16, len(c.Interfaces))
	for i, iface := range c.Interfaces {
		ifaceIdx[i] = p.class(iface)
	}
	fieldDesc := p.utf8("I")
	fieldNames := make([]uint16, len(c.Fields))
	for i, f := range c.Fields {
		fieldNames[i] = p.utf8(f)
	}
	codeIdx := p.utf8("Code")
	type methodIdx struct{ name, desc uint16 }
	methodIdxs := make([]methodIdx, len(c.Methods))
	for i, m := range c.Methods {
		methodIdxs[i] = methodIdx{p.utf8(m.Name), p.utf8(m.Descriptor)}
	}

	var out bytes.Buffer
	w := func(v any) { _ = binary.Write(&out, binary.BigEndian, v) }

	w(uint32(0xCAFEBABE))
	w(uint16(0))  // minor
	w(uint16(52)) // major (Java 8)
	w(uint16(len(p.entries) + 1))
	for _, e := range p.entries {
		out.Write(e)
	}

	access := c.Access
	if access == 0 {
		access = AccPublic
	}
	w(access)
	w(thisIdx)
	w(superIdx)
	w(uint16(len(ifaceIdx)))
	for _, idx := range ifaceIdx {
		w(idx)
	}

	w(uint16(len(fieldNames)))
	for _, idx := range fieldNames {
		w(uint16(AccPrivate))
		w(idx)
		w(fieldDesc)
		w(uint16(0)) // attributes
	}

	w(uint16(len(c.Methods)))
	for i, m := range c.Methods {
		w(m.Access)
		w(methodIdxs[i].name)
		w(methodIdxs[i].desc)
		if m.Code == nil {
			w(uint16(0))
			continue
		}
		w(uint16(1))
		w(codeIdx)
		w(uint32(2 + 2 + 4 + len(m.Code) + 2 + 2))
		w(uint16(8)) // max_stack
		w(uint16(8)) // max_locals
		w(uint32(len(m.Code)))
		out.Write(m.Code)
		w(uint16(0)) // exception_table_length
		w(uint16(0)) // attributes_count
	}

	w(uint16(0)) // class attributes
	return out.Bytes()
}

type pool struct {
	entries [][]byte
	index   map[string]uint16
}

func (p *pool) add(key string, entry []byte) uint16 {
	if idx, ok := p.index[key]; ok {
		return idx
	}
	p.entries = append(p.entries, entry)
	idx := uint16(len(p.entries))
	p.index[key] = idx
	return idx
}

func (p *pool) utf8(s string) uint16 {
	entry := make([]byte, 3+len(s))
	entry[0] = 1
	binary.BigEndian.PutUint16(entry[1:], uint16(len(s)))
	copy(entry[3:], s)
	return p.add("u:"+s, entry)
}

func (p *pool) class(name string) uint16 {
	nameIdx := p.utf8(name)
	entry := []byte{7, 0, 0}
	binary.BigEndian.PutUint16(entry[1:], nameIdx)
	return p.add("c:"+name, entry)
}

// TableSwitch encodes a tableswitch instruction located at pc, including
// alignment padding. Offsets are relative to pc, one per key in [low, high].
func TableSwitch(pc int, def, low, high int32, offsets ...int32) []byte {
	b := []byte{0xaa}
	for (pc+len(b))%4 != 0 {
		b = append(b, 0)
	}
	b = appendS4(b, def, low, high)
	return appendS4(b, offsets...)
}

// LookupSwitch encodes a lookupswitch instruction located at pc. Pairs are
// given as key, offset, key, offset, ...
func LookupSwitch(pc int, def int32, pairs ...int32) []byte {
	b := []byte{0xab}
	for (pc+len(b))%4 != 0 {
		b = append(b, 0)
	}
	b = appendS4(b, def, int32(len(pairs)/2))
	return appendS4(b, pairs...)
}

func appendS4(b []byte, vs ...int32) []byte {
	for _, v := range vs {
		b = binary.BigEndian.AppendUint32(b, uint32(v))
	}
	return b
}

// Concat joins bytecode fragments.
func Concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
