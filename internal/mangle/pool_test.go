package mangle

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInternStringDedupesIdenticalContent(t *testing.T) {
	p := NewPool()
	a := p.InternString([]uint16{'h', 'i'})
	b := p.InternString([]uint16{'h', 'i'})
	require.Equal(t, a, b)
	require.Len(t, p.Strings(), 1)
}

func TestInternStringDistinguishesContent(t *testing.T) {
	p := NewPool()
	a := p.InternString([]uint16{'h', 'i'})
	b := p.InternString([]uint16{'y', 'o'})
	require.NotEqual(t, a, b)
}

func TestInternStringIDIsStableAcrossPools(t *testing.T) {
	p1 := NewPool()
	p2 := NewPool()
	require.Equal(t, p1.InternString([]uint16{'x'}), p2.InternString([]uint16{'x'}))
}

func TestInternBlobDedupesIdenticalBytes(t *testing.T) {
	p := NewPool()
	a := p.InternBlob([]byte{1, 2, 3})
	b := p.InternBlob([]byte{1, 2, 3})
	require.Equal(t, a, b)
	require.Len(t, p.Blobs(), 1)
}

func TestStringAndBlobIDsUseDistinctPrefixes(t *testing.T) {
	p := NewPool()
	s := p.InternString([]uint16{'a'})
	b := p.InternBlob([]byte{'a'})
	require.Contains(t, s, stringIDPrefix)
	require.Contains(t, b, blobIDPrefix)
	require.NotEqual(t, s, b)
}
