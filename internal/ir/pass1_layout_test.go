package ir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSizeAndAlignPrimitive(t *testing.T) {
	size, align := sizeAndAlign(&SigType{Kind: ElemI8})
	require.Equal(t, 8, size)
	require.Equal(t, 8, align)

	size, align = sizeAndAlign(&SigType{Kind: ElemBoolean})
	require.Equal(t, 1, size)
	require.Equal(t, 1, align)
}

func TestSizeAndAlignReferenceIsPointerWidth(t *testing.T) {
	size, align := sizeAndAlign(&SigType{Kind: ElemString})
	require.Equal(t, 8, size)
	require.Equal(t, 8, align)
}

func TestSizeAndAlignValueTypeFallsBackToPointerWidth(t *testing.T) {
	size, align := sizeAndAlign(&SigType{Kind: ElemValueType})
	require.Equal(t, 8, size)
	require.Equal(t, 8, align)
}

func TestAlignUp(t *testing.T) {
	require.Equal(t, 0, alignUp(0, 8))
	require.Equal(t, 8, alignUp(1, 8))
	require.Equal(t, 8, alignUp(8, 8))
	require.Equal(t, 16, alignUp(9, 8))
	require.Equal(t, 5, alignUp(5, 1))
	require.Equal(t, 5, alignUp(5, 0))
}
