package protocol

import (
	"errors"
	"io"
	"math"
)

// MaxStringLength bounds every length-prefixed field so a corrupt prefix
// cannot force a large allocation.
const MaxStringLength = 64 * 1024

// Decoding errors.
var (
	ErrBufferTooShort   = errors.New("protocol: buffer too short")
	ErrVarintOverflow   = errors.New("protocol: varint overflow")
	ErrInvalidBool      = errors.New("protocol: invalid boolean value")
	ErrFieldTooLarge    = errors.New("protocol: length prefix exceeds limit")
	ErrCollectionTooBig = errors.New("protocol: collection count exceeds limit")
)

// Encoder appends big-endian fields to a growable buffer.
type Encoder struct {
	buf []byte
}

// NewEncoder creates an encoder sized for one MTU-bounded packet.
func NewEncoder() *Encoder {
	return &Encoder{buf: make([]byte, 0, 1280)}
}

// Bytes returns the encoded bytes. The slice is valid until the next write.
func (e *Encoder) Bytes() []byte { return e.buf }

// Len returns the number of bytes encoded so far.
func (e *Encoder) Len() int { return len(e.buf) }

// Reset empties the encoder, keeping its buffer.
func (e *Encoder) Reset() { e.buf = e.buf[:0] }

// Truncate drops everything written after n bytes.
func (e *Encoder) Truncate(n int) {
	if n < len(e.buf) {
		e.buf = e.buf[:n]
	}
}

func (e *Encoder) WriteByte(b byte)       { e.buf = append(e.buf, b) }
func (e *Encoder) WriteBytes(b []byte)    { e.buf = append(e.buf, b...) }
func (e *Encoder) WriteInt32(v int32)     { e.WriteUint32(uint32(v)) }
func (e *Encoder) WriteFloat32(v float32) { e.WriteUint32(math.Float32bits(v)) }

func (e *Encoder) WriteBool(b bool) {
	if b {
		e.buf = append(e.buf, 0x01)
	} else {
		e.buf = append(e.buf, 0x00)
	}
}

func (e *Encoder) WriteUint16(v uint16) {
	e.buf = append(e.buf, byte(v>>8), byte(v))
}

func (e *Encoder) WriteUint32(v uint32) {
	e.buf = append(e.buf, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func (e *Encoder) WriteUint64(v uint64) {
	e.WriteUint32(uint32(v >> 32))
	e.WriteUint32(uint32(v))
}

func (e *Encoder) WriteUvarint(v uint64) {
	for v >= 0x80 {
		e.buf = append(e.buf, byte(v)|0x80)
		v >>= 7
	}
	e.buf = append(e.buf, byte(v))
}

// WriteString appends a uvarint length followed by the string bytes.
func (e *Encoder) WriteString(s string) {
	e.WriteUvarint(uint64(len(s)))
	e.buf = append(e.buf, s...)
}

// WriteLenBytes appends a uvarint length followed by the bytes.
func (e *Encoder) WriteLenBytes(b []byte) {
	e.WriteUvarint(uint64(len(b)))
	e.buf = append(e.buf, b...)
}

// PatchByte overwrites a previously written byte.
func (e *Encoder) PatchByte(at int, b byte) {
	e.buf[at] = b
}

// PatchUint16 overwrites a previously written uint16.
func (e *Encoder) PatchUint16(at int, v uint16) {
	e.buf[at] = byte(v >> 8)
	e.buf[at+1] = byte(v)
}

// Decoder reads fields written by Encoder.
type Decoder struct {
	buf []byte
	pos int
}

// NewDecoder creates a decoder over buf. The decoder never copies buf.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

func (d *Decoder) Position() int  { return d.pos }
func (d *Decoder) Remaining() int { return len(d.buf) - d.pos }
func (d *Decoder) EOF() bool      { return d.pos >= len(d.buf) }

// Skip advances the position by n bytes.
func (d *Decoder) Skip(n int) error {
	if n < 0 || d.pos+n > len(d.buf) {
		return io.ErrUnexpectedEOF
	}
	d.pos += n
	return nil
}

func (d *Decoder) ReadByte() (byte, error) {
	if d.pos >= len(d.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

// ReadBytes returns the next n bytes without copying.
func (d *Decoder) ReadBytes(n int) ([]byte, error) {
	if n < 0 || d.pos+n > len(d.buf) {
		return nil, io.ErrUnexpectedEOF
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *Decoder) ReadBool() (bool, error) {
	b, err := d.ReadByte()
	if err != nil {
		return false, err
	}
	switch b {
	case 0x00:
		return false, nil
	case 0x01:
		return true, nil
	default:
		return false, ErrInvalidBool
	}
}

func (d *Decoder) ReadUint16() (uint16, error) {
	b, err := d.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return uint16(b[0])<<8 | uint16(b[1]), nil
}

func (d *Decoder) ReadUint32() (uint32, error) {
	b, err := d.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), nil
}

func (d *Decoder) ReadUint64() (uint64, error) {
	hi, err := d.ReadUint32()
	if err != nil {
		return 0, err
	}
	lo, err := d.ReadUint32()
	if err != nil {
		return 0, err
	}
	return uint64(hi)<<32 | uint64(lo), nil
}

func (d *Decoder) ReadInt32() (int32, error) {
	v, err := d.ReadUint32()
	return int32(v), err
}

func (d *Decoder) ReadFloat32() (float32, error) {
	v, err := d.ReadUint32()
	return math.Float32frombits(v), err
}

func (d *Decoder) ReadUvarint() (uint64, error) {
	var v uint64
	var shift uint
	for {
		b, err := d.ReadByte()
		if err != nil {
			return 0, err
		}
		v |= uint64(b&0x7F) << shift
		if b < 0x80 {
			return v, nil
		}
		shift += 7
		if shift >= 64 {
			return 0, ErrVarintOverflow
		}
	}
}

func (d *Decoder) readLength() (int, error) {
	n, err := d.ReadUvarint()
	if err != nil {
		return 0, err
	}
	if n > MaxStringLength {
		return 0, ErrFieldTooLarge
	}
	if n > uint64(d.Remaining()) {
		return 0, io.ErrUnexpectedEOF
	}
	return int(n), nil
}

func (d *Decoder) ReadString() (string, error) {
	n, err := d.readLength()
	if err != nil {
		return "", err
	}
	b, _ := d.ReadBytes(n)
	return string(b), nil
}

// ReadLenBytes returns a copy of a length-prefixed byte field.
func (d *Decoder) ReadLenBytes() ([]byte, error) {
	n, err := d.readLength()
	if err != nil {
		return nil, err
	}
	b, _ := d.ReadBytes(n)
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

// readCount reads a collection count and checks it against limit.
func (d *Decoder) readCount(limit int) (int, error) {
	n, err := d.ReadUvarint()
	if err != nil {
		return 0, err
	}
	if n > uint64(limit) {
		return 0, ErrCollectionTooBig
	}
	return int(n), nil
}
