// Package wire implements the snapshot message framing named in the
// external-interfaces section: a one-flag-octet header followed by 0-8
// payload octets, used to frame the ISTEP/NEIGH/PARTS records the engine
// streams to a downstream consumer. It is nominally an external
// collaborator's concern, but the framing is fully specified and is the
// subject of a testable round-trip property, so it is implemented here
// rather than stubbed.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Priority is the header's priority bit.
type Priority uint8

const (
	Low Priority = iota
	High
)

// Endian is the header's endianness selector.
type Endian uint8

const (
	Little Endian = iota
	Big
)

// Tag selects the framing discipline: SP (size-prefixed) carries an
// explicit payload length; LT (literal-terminated) carries a fixed
// sentinel byte pattern up to 3 bytes (the variable-length field is 2
// bits wide, hence term lengths 0-3, matching the 4 terminator widths
// exercised by the round-trip property).
type Tag uint8

const (
	SP Tag = iota
	LT
)

// Spec is the decoded form of one header: priority, endianness, framing
// tag, and either a byte-count (SP) or a literal terminator pattern (LT).
type Spec struct {
	Prio   Priority
	Endian Endian
	Tag    Tag
	Size   uint64 // meaningful when Tag == SP
	Term   []byte // meaningful when Tag == LT; length 0-3
}

const (
	flagPrioBit   = 7
	flagEndianBit = 4
	// bit 2 is the high bit of the 3-bit length field in fixed (SP) mode
	// and unused in variable (LT) mode; there is no standalone tag bit.
)

// minimalBytes returns the fewest bytes needed to hold size, collapsing
// anything past 6 bytes to the reserved "8 bytes" sentinel (field value
// 7) since the 3-bit fixed-width length field cannot address 7
// unambiguously alongside 8.
func minimalBytes(size uint64) int {
	if size == 0 {
		return 0
	}
	n := 0
	for v := size; v != 0; v >>= 8 {
		n++
	}
	if n >= 7 {
		return 8
	}
	return n
}

func encodeSize(size uint64, nbytes int, endian Endian) []byte {
	var buf [8]byte
	switch endian {
	case Little:
		binary.LittleEndian.PutUint64(buf[:], size)
		return append([]byte(nil), buf[:nbytes]...)
	default:
		binary.BigEndian.PutUint64(buf[:], size)
		return append([]byte(nil), buf[8-nbytes:]...)
	}
}

func decodeSize(b []byte, endian Endian) uint64 {
	var buf [8]byte
	switch endian {
	case Little:
		copy(buf[:], b)
		return binary.LittleEndian.Uint64(buf[:])
	default:
		copy(buf[8-len(b):], b)
		return binary.BigEndian.Uint64(buf[:])
	}
}

// WriteSpec emits a header for spec to w: the flag octet, then either the
// size-prefix bytes (SP) or the literal terminator bytes (LT).
func WriteSpec(w io.Writer, spec Spec) error {
	var flag byte
	if spec.Prio == High {
		flag |= 1 << flagPrioBit
	}
	if spec.Endian == Big {
		flag |= 1 << flagEndianBit
	}

	// The tag is not a separate bit: bit 3 (variability) alone tells SP
	// from LT apart. Fixed mode (bit3=0) gives SP the full 3-bit field in
	// bits 0-2; variable mode (bit3=1) gives LT a 2-bit field in bits
	// 0-1, which is exactly what frees bit 2 from double duty.
	var payload []byte
	switch spec.Tag {
	case SP:
		n := minimalBytes(spec.Size)
		field := n
		if n == 8 {
			field = 7
		}
		flag |= byte(field & 0x7)
		payload = encodeSize(spec.Size, n, spec.Endian)
	case LT:
		flag |= 1 << 3 // variable-length field selector
		if len(spec.Term) > 3 {
			return fmt.Errorf("wire: LT terminator longer than 3 bytes")
		}
		flag |= byte(len(spec.Term) & 0x3)
		payload = spec.Term
	default:
		return fmt.Errorf("wire: unsupported tag %d", spec.Tag)
	}

	if _, err := w.Write([]byte{flag}); err != nil {
		return fmt.Errorf("wire: write flag octet: %w", err)
	}
	if len(payload) > 0 {
		if _, err := w.Write(payload); err != nil {
			return fmt.Errorf("wire: write payload octets: %w", err)
		}
	}
	return nil
}

// ReadSpec reads and decodes a header previously written by WriteSpec.
func ReadSpec(r io.Reader) (Spec, error) {
	var flagBuf [1]byte
	if _, err := io.ReadFull(r, flagBuf[:]); err != nil {
		return Spec{}, fmt.Errorf("wire: read flag octet: %w", err)
	}
	flag := flagBuf[0]

	spec := Spec{}
	if flag&(1<<flagPrioBit) != 0 {
		spec.Prio = High
	}
	if flag&(1<<flagEndianBit) != 0 {
		spec.Endian = Big
	}

	variable := flag&(1<<3) != 0
	if variable {
		spec.Tag = LT
		termLen := int(flag & 0x3)
		buf := make([]byte, termLen)
		if termLen > 0 {
			if _, err := io.ReadFull(r, buf); err != nil {
				return Spec{}, fmt.Errorf("wire: read LT terminator: %w", err)
			}
		}
		spec.Term = buf
		return spec, nil
	}

	spec.Tag = SP
	field := int(flag & 0x7)
	nbytes := field
	if field == 7 {
		nbytes = 8
	}
	buf := make([]byte, nbytes)
	if nbytes > 0 {
		if _, err := io.ReadFull(r, buf); err != nil {
			return Spec{}, fmt.Errorf("wire: read SP size prefix: %w", err)
		}
	}
	spec.Size = decodeSize(buf, spec.Endian)
	return spec, nil
}

// MsgKind is the one-byte message-kind tag emitted by WriteNum, naming
// which of the three snapshot record kinds follows.
type MsgKind uint8

// Values are grounded on the original implementation's message-id
// enumeration (NOP, NSTEP, NPART/PARTS, NEIGH); only Nop and the three
// kinds this engine actually emits are named here.
const (
	Nop   MsgKind = 0
	Istep MsgKind = 60
	Parts MsgKind = 144
	Neigh MsgKind = 168
)

// WriteNum emits num's one-byte tag to w.
func WriteNum(w io.Writer, num MsgKind) error {
	if _, err := w.Write([]byte{byte(num)}); err != nil {
		return fmt.Errorf("wire: write message kind: %w", err)
	}
	return nil
}

// ReadNum reads a one-byte message-kind tag from r. At a clean end of
// stream it returns io.EOF itself, unwrapped.
func ReadNum(r io.Reader) (MsgKind, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if err == io.EOF {
			return 0, io.EOF
		}
		return 0, fmt.Errorf("wire: read message kind: %w", err)
	}
	return MsgKind(buf[0]), nil
}

// Sink wraps an io.Writer with the fixed-width field writers a record
// payload is built from, grounded on the original implementation's
// bmm_dem_puts_stuff family (bmm_dem_puts being the single-field
// primitive each of the wider Put* methods here generalizes).
type Sink struct {
	w io.Writer
}

// NewSink wraps w for field-at-a-time payload writing.
func NewSink(w io.Writer) *Sink { return &Sink{w: w} }

// PutUint8 writes a single byte.
func (s *Sink) PutUint8(v uint8) error {
	if _, err := s.w.Write([]byte{v}); err != nil {
		return fmt.Errorf("wire: put uint8: %w", err)
	}
	return nil
}

// PutUint32 writes v as 4 bytes in the given byte order.
func (s *Sink) PutUint32(v uint32, endian Endian) error {
	var buf [4]byte
	if endian == Big {
		binary.BigEndian.PutUint32(buf[:], v)
	} else {
		binary.LittleEndian.PutUint32(buf[:], v)
	}
	if _, err := s.w.Write(buf[:]); err != nil {
		return fmt.Errorf("wire: put uint32: %w", err)
	}
	return nil
}

// PutUint64 writes v as 8 bytes in the given byte order.
func (s *Sink) PutUint64(v uint64, endian Endian) error {
	var buf [8]byte
	if endian == Big {
		binary.BigEndian.PutUint64(buf[:], v)
	} else {
		binary.LittleEndian.PutUint64(buf[:], v)
	}
	if _, err := s.w.Write(buf[:]); err != nil {
		return fmt.Errorf("wire: put uint64: %w", err)
	}
	return nil
}

// PutFloat64 writes v's IEEE 754 bit pattern as 8 bytes in the given byte
// order.
func (s *Sink) PutFloat64(v float64, endian Endian) error {
	return s.PutUint64(math.Float64bits(v), endian)
}

// Source wraps an io.Reader with the Get* counterparts to Sink's Put*
// methods, for decoding a payload previously written by a Sink.
type Source struct {
	r io.Reader
}

// NewSource wraps r for field-at-a-time payload reading.
func NewSource(r io.Reader) *Source { return &Source{r: r} }

// GetUint8 reads a single byte.
func (s *Source) GetUint8() (uint8, error) {
	var buf [1]byte
	if _, err := io.ReadFull(s.r, buf[:]); err != nil {
		return 0, fmt.Errorf("wire: get uint8: %w", err)
	}
	return buf[0], nil
}

// GetUint32 reads 4 bytes in the given byte order.
func (s *Source) GetUint32(endian Endian) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(s.r, buf[:]); err != nil {
		return 0, fmt.Errorf("wire: get uint32: %w", err)
	}
	if endian == Big {
		return binary.BigEndian.Uint32(buf[:]), nil
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// GetUint64 reads 8 bytes in the given byte order.
func (s *Source) GetUint64(endian Endian) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(s.r, buf[:]); err != nil {
		return 0, fmt.Errorf("wire: get uint64: %w", err)
	}
	if endian == Big {
		return binary.BigEndian.Uint64(buf[:]), nil
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// GetFloat64 reads 8 bytes in the given byte order and reinterprets them
// as an IEEE 754 double.
func (s *Source) GetFloat64(endian Endian) (float64, error) {
	bits, err := s.GetUint64(endian)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(bits), nil
}

// SizeOf returns the encoded byte width of a payload built from the given
// field-count tally, mirroring bmm_dem_sniff_size's pre-flight size
// accounting so a caller can size a header's Size field before writing
// the fields it covers.
func SizeOf(nUint8, nUint32, nUint64, nFloat64 int) uint64 {
	return uint64(nUint8) + uint64(nUint32)*4 + uint64(nUint64)*8 + uint64(nFloat64)*8
}
