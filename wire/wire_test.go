package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSpecRoundTripSP(t *testing.T) {
	sizes := []uint64{0, 1, 255, 65535, 1 << 20, 1 << 40, 1<<64 - 1}
	for _, prio := range []Priority{Low, High} {
		for _, endian := range []Endian{Little, Big} {
			for _, size := range sizes {
				spec := Spec{Prio: prio, Endian: endian, Tag: SP, Size: size}
				var buf bytes.Buffer
				require.NoError(t, WriteSpec(&buf, spec))
				got, err := ReadSpec(&buf)
				require.NoError(t, err)
				require.Equal(t, spec.Prio, got.Prio)
				require.Equal(t, spec.Endian, got.Endian)
				require.Equal(t, spec.Tag, got.Tag)
				require.Equal(t, spec.Size, got.Size)
			}
		}
	}
}

func TestSpecRoundTripLT(t *testing.T) {
	for _, prio := range []Priority{Low, High} {
		for _, endian := range []Endian{Little, Big} {
			for termLen := 0; termLen <= 3; termLen++ {
				term := make([]byte, termLen)
				for k := range term {
					term[k] = byte(0xA0 + k)
				}
				spec := Spec{Prio: prio, Endian: endian, Tag: LT, Term: term}
				var buf bytes.Buffer
				require.NoError(t, WriteSpec(&buf, spec))
				got, err := ReadSpec(&buf)
				require.NoError(t, err)
				require.Equal(t, spec.Prio, got.Prio)
				require.Equal(t, spec.Endian, got.Endian)
				require.Equal(t, spec.Tag, got.Tag)
				require.Equal(t, term, got.Term)
			}
		}
	}
}

func TestNumRoundTrip(t *testing.T) {
	for _, kind := range []MsgKind{Nop, Istep, Parts, Neigh} {
		var buf bytes.Buffer
		require.NoError(t, WriteNum(&buf, kind))
		got, err := ReadNum(&buf)
		require.NoError(t, err)
		require.Equal(t, kind, got)
	}
}

func TestSinkSourceRoundTrip(t *testing.T) {
	for _, endian := range []Endian{Little, Big} {
		var buf bytes.Buffer
		sink := NewSink(&buf)
		require.NoError(t, sink.PutUint8(0xAB))
		require.NoError(t, sink.PutUint32(0xDEADBEEF, endian))
		require.NoError(t, sink.PutUint64(1<<63+7, endian))
		require.NoError(t, sink.PutFloat64(-3.5, endian))

		source := NewSource(&buf)
		u8, err := source.GetUint8()
		require.NoError(t, err)
		require.Equal(t, uint8(0xAB), u8)

		u32, err := source.GetUint32(endian)
		require.NoError(t, err)
		require.Equal(t, uint32(0xDEADBEEF), u32)

		u64, err := source.GetUint64(endian)
		require.NoError(t, err)
		require.Equal(t, uint64(1<<63+7), u64)

		f64, err := source.GetFloat64(endian)
		require.NoError(t, err)
		require.Equal(t, -3.5, f64)
	}
}

func TestSizeOf(t *testing.T) {
	require.Equal(t, uint64(1+4+8+8), SizeOf(1, 1, 1, 1))
	require.Equal(t, uint64(0), SizeOf(0, 0, 0, 0))
}
