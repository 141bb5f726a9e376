package classfile

import (
	"encoding/binary"
	"fmt"
	"unicode/utf16"
)

// Constant pool tags.
const (
	tagUtf8               = 1
	tagInteger            = 3
	tagFloat              = 4
	tagLong               = 5
	tagDouble             = 6
	tagClass              = 7
	tagString             = 8
	tagFieldref           = 9
	tagMethodref          = 10
	tagInterfaceMethodref = 11
	tagNameAndType        = 12
	tagMethodHandle       = 15
	tagMethodType         = 16
	tagDynamic            = 17
	tagInvokeDynamic      = 18
	tagModule             = 19
	tagPackage            = 20
)

// reader is a big-endian cursor over class-file bytes. The first
// out-of-bounds read sets err and all later reads return zero values.
type reader struct {
	data []byte
	pos  int
	err  error
}

func (r *reader) fail(n int) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncated, n, r.pos, len(r.data)-r.pos)
	}
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.pos+n > len(r.data) {
		r.fail(n)
		return nil
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *reader) u1() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u2() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (r *reader) u4() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (r *reader) skip(n int) {
	r.take(n)
}

type constant struct {
	tag  uint8
	utf8 string
	ref  uint16 // name_index for Class entries
}

// constantPool holds the decoded pool. Index 0 and the second slot of
// long/double entries are unused.
type constantPool []constant

func readConstantPool(r *reader) (constantPool, error) {
	count := int(r.u2())
	if r.err != nil {
		return nil, r.err
	}
	pool := make(constantPool, count)
	for i := 1; i < count; i++ {
		tag := r.u1()
		pool[i].tag = tag
		switch tag {
		case tagUtf8:
			n := int(r.u2())
			pool[i].utf8 = decodeModifiedUTF8(r.take(n))
		case tagClass, tagModule, tagPackage:
			pool[i].ref = r.u2()
		case tagString, tagMethodType:
			r.skip(2)
		case tagInteger, tagFloat, tagFieldref, tagMethodref, tagInterfaceMethodref,
			tagNameAndType, tagDynamic, tagInvokeDynamic:
			r.skip(4)
		case tagMethodHandle:
			r.skip(3)
		case tagLong, tagDouble:
			r.skip(8)
			i++
		default:
			if r.err != nil {
				return nil, r.err
			}
			return nil, fmt.Errorf("%w: unknown tag %d at index %d", ErrBadConstantPool, tag, i)
		}
		if r.err != nil {
			return nil, r.err
		}
	}
	return pool, nil
}

func (p constantPool) utf8(index uint16) (string, error) {
	if int(index) <= 0 || int(index) >= len(p) || p[index].tag != tagUtf8 {
		return "", fmt.Errorf("%w: index %d is not a Utf8 entry", ErrBadConstantPool, index)
	}
	return p[index].utf8, nil
}

// className resolves a CONSTANT_Class index. Index 0 yields "".
func (p constantPool) className(index uint16) (string, error) {
	if index == 0 {
		return "", nil
	}
	if int(index) >= len(p) || p[index].tag != tagClass {
		return "", fmt.Errorf("%w: index %d is not a Class entry", ErrBadConstantPool, index)
	}
	return p.utf8(p[index].ref)
}

// decodeModifiedUTF8 decodes the JVM's modified UTF-8, including the
// two-byte NUL form and surrogate pairs encoded as separate 3-byte units.
func decodeModifiedUTF8(b []byte) string {
	ascii := true
	for _, c := range b {
		if c >= 0x80 || c == 0 {
			ascii = false
			break
		}
	}
	if ascii {
		return string(b)
	}

	units := make([]uint16, 0, len(b))
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c < 0x80:
			units = append(units, uint16(c))
			i++
		case c&0xE0 == 0xC0 && i+1 < len(b):
			units = append(units, uint16(c&0x1F)<<6|uint16(b[i+1]&0x3F))
			i += 2
		case c&0xF0 == 0xE0 && i+2 < len(b):
			units = append(units, uint16(c&0x0F)<<12|uint16(b[i+1]&0x3F)<<6|uint16(b[i+2]&0x3F))
			i += 3
		default:
			units = append(units, 0xFFFD)
			i++
		}
	}
	return string(utf16.Decode(units))
}
