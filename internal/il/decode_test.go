package il

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeSimpleArithmetic(t *testing.T) {
	// ldarg.0; ldarg.1; add; ret
	body := []byte{0x02, 0x03, 0x58, 0x2A}

	insts, err := Decode(body)
	require.NoError(t, err)
	require.Len(t, insts, 4)

	require.Equal(t, Ldarg0, insts[0].Op)
	require.Equal(t, 0, insts[0].Offset)
	require.Equal(t, Ldarg1, insts[1].Op)
	require.Equal(t, 1, insts[1].Offset)
	require.Equal(t, Add, insts[2].Op)
	require.Equal(t, Ret, insts[3].Op)
	require.True(t, IsTerminator(insts[3].Op))
	require.False(t, IsTerminator(insts[2].Op))
}

func TestDecodeLdcI4S(t *testing.T) {
	// ldc.i4.s -5; ret
	body := []byte{0x1F, 0xFB, 0x2A}

	insts, err := Decode(body)
	require.NoError(t, err)
	require.Len(t, insts, 2)
	require.Equal(t, LdcI4S, insts[0].Op)
	require.EqualValues(t, -5, insts[0].I64)
}

func TestDecodeBrTargetResolvesAbsoluteOffset(t *testing.T) {
	// br.s +2 (at offset 0, 2-byte instruction, target = 2+2=4); nop; nop; ret
	body := []byte{0x2B, 0x02, 0x00, 0x00, 0x2A}

	insts, err := Decode(body)
	require.NoError(t, err)
	require.Equal(t, BrS, insts[0].Op)
	require.Equal(t, []int{4}, insts[0].Targets)
	require.True(t, IsTerminator(BrS))
	require.False(t, IsConditionalBranch(BrS))
}

func TestDecodeConditionalBranchIsConditional(t *testing.T) {
	require.True(t, IsConditionalBranch(Brtrue))
	require.True(t, IsConditionalBranch(Switch))
	require.False(t, IsConditionalBranch(Br))
}

func TestDecodeTwoByteOpcode(t *testing.T) {
	// ceq; ret
	body := []byte{0xFE, 0x01, 0x2A}

	insts, err := Decode(body)
	require.NoError(t, err)
	require.Len(t, insts, 2)
	require.Equal(t, Ceq, insts[0].Op)
}

func TestDecodeSwitchTable(t *testing.T) {
	// switch with 2 targets: the table occupies bytes [1,13) (1 opcode byte
	// + 4-byte count + 2*4-byte deltas), so deltas are relative to offset
	// 13: +0 -> 13 (the following ret), +4 -> 17.
	body := []byte{
		0x45,                   // switch
		0x02, 0x00, 0x00, 0x00, // count = 2
		0x00, 0x00, 0x00, 0x00, // target[0] delta = 0
		0x04, 0x00, 0x00, 0x00, // target[1] delta = 4
		0x2A,
	}

	insts, err := Decode(body)
	require.NoError(t, err)
	require.Equal(t, Switch, insts[0].Op)
	require.Equal(t, []int{13, 17}, insts[0].Targets)
}

func TestDecodeUnknownOpcodeErrors(t *testing.T) {
	_, err := Decode([]byte{0xF4})
	require.Error(t, err)
}

func TestDecodeTruncatedOperandErrors(t *testing.T) {
	_, err := Decode([]byte{0x20, 0x01, 0x02}) // ldc.i4 needs 4 bytes, only has 2
	require.Error(t, err)
}
