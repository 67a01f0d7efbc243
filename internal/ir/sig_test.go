package ir

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cil2cpp/aotc/internal/assembly"
)

func TestDecodeFieldSignaturePrimitive(t *testing.T) {
	blob := []byte{0x06, byte(ElemI4)}
	st, err := DecodeFieldSignature(nil, nil, blob)
	require.NoError(t, err)
	require.Equal(t, ElemI4, st.Kind)
	require.True(t, st.IsPrimitive())
	require.Equal(t, 4, st.PrimitiveSize())
}

func TestDecodeFieldSignatureRejectsWrongTag(t *testing.T) {
	blob := []byte{0x07, byte(ElemI4)}
	_, err := DecodeFieldSignature(nil, nil, blob)
	require.Error(t, err)
}

func TestDecodeFieldSignatureSZArray(t *testing.T) {
	blob := []byte{0x06, byte(ElemSZArray), byte(ElemI4)}
	st, err := DecodeFieldSignature(nil, nil, blob)
	require.NoError(t, err)
	require.Equal(t, ElemSZArray, st.Kind)
	require.Equal(t, ElemI4, st.Elem.Kind)
	require.Equal(t, "int32[]", st.String())
}

func TestDecodeFieldSignatureMultiDimArraySkipsShape(t *testing.T) {
	// ARRAY I4, rank 2, sizes [3,4], lobounds [0]
	blob := []byte{
		0x06, byte(ElemArray), byte(ElemI4),
		0x02,       // rank
		0x02, 3, 4, // numsizes=2, sizes
		0x01, 0x00, // numlobounds=1, lobound 0 (compressed signed: 0 -> 0x00)
	}
	st, err := DecodeFieldSignature(nil, nil, blob)
	require.NoError(t, err)
	require.Equal(t, ElemArray, st.Kind)
	require.Equal(t, 2, st.ArrayRank)
	require.Equal(t, "int32[2]", st.String())
}

func TestDecodeFieldSignaturePointerAndByRefAndPinned(t *testing.T) {
	ptr, err := DecodeFieldSignature(nil, nil, []byte{0x06, byte(ElemPtr), byte(ElemU1)})
	require.NoError(t, err)
	require.Equal(t, "uint8*", ptr.String())

	pinned, err := DecodeFieldSignature(nil, nil, []byte{0x06, byte(ElemPinned), byte(ElemObject)})
	require.NoError(t, err)
	require.Equal(t, ElemObject, pinned.Kind)
}

func TestDecodeFieldSignatureGenericVarAndMVar(t *testing.T) {
	v, err := DecodeFieldSignature(nil, nil, []byte{0x06, byte(ElemVar), 0x02})
	require.NoError(t, err)
	require.Equal(t, "!2", v.String())

	mv, err := DecodeFieldSignature(nil, nil, []byte{0x06, byte(ElemMVar), 0x01})
	require.NoError(t, err)
	require.Equal(t, "!!1", mv.String())
}

func TestDecodeFieldSignatureClassUnresolvedOwner(t *testing.T) {
	// TypeDefOrRefOrSpecEncoded: tag 0 (TypeDef), row 1 -> compressed
	// value (1<<2)|0 = 4.
	owner := &assembly.Assembly{CanonicalName: "Empty"}
	blob := []byte{0x06, byte(ElemClass), 0x04}
	st, err := DecodeFieldSignature(&assembly.AssemblySet{}, owner, blob)
	require.NoError(t, err)
	require.Equal(t, ElemClass, st.Kind)
	require.Nil(t, st.Class)
	require.Equal(t, "<unresolved>", st.String())
}

func TestDecodeMethodSignatureInstanceWithParams(t *testing.T) {
	// HASTHIS, 2 params, ret VOID, params (I4, STRING)
	blob := []byte{0x20, 0x02, byte(ElemVoid), byte(ElemI4), byte(ElemString)}
	sig, err := DecodeMethodSignature(nil, nil, blob)
	require.NoError(t, err)
	require.True(t, sig.HasThis)
	require.False(t, sig.ExplicitThis)
	require.Len(t, sig.Params, 2)
	require.Equal(t, ElemI4, sig.Params[0].Kind)
	require.Equal(t, ElemString, sig.Params[1].Kind)
	require.Equal(t, ElemVoid, sig.Ret.Kind)
	require.False(t, sig.RetByRef)
}

func TestDecodeMethodSignatureByRefParamAndRet(t *testing.T) {
	// static, 1 param, ret BYREF I4, param BYREF I4
	blob := []byte{0x00, 0x01, byte(ElemByRef), byte(ElemI4), byte(ElemByRef), byte(ElemI4)}
	sig, err := DecodeMethodSignature(nil, nil, blob)
	require.NoError(t, err)
	require.False(t, sig.HasThis)
	require.True(t, sig.RetByRef)
	require.Len(t, sig.ByRefParam, 1)
	require.True(t, sig.ByRefParam[0])
}

func TestDecodeMethodSignatureGenericParamCount(t *testing.T) {
	// GENERIC|HASTHIS flag, 1 type param, 0 params, ret VOID
	blob := []byte{0x20 | 0x10, 0x01, 0x00, byte(ElemVoid)}
	sig, err := DecodeMethodSignature(nil, nil, blob)
	require.NoError(t, err)
	require.EqualValues(t, 1, sig.GenericParamCount)
	require.Empty(t, sig.Params)
}

func TestDecodeMethodSignatureSentinelStopsParams(t *testing.T) {
	// static, paramCount=2, ret VOID, SENTINEL then a would-be vararg param.
	blob := []byte{0x00, 0x02, byte(ElemVoid), byte(ElemSentinel), byte(ElemI4)}
	sig, err := DecodeMethodSignature(nil, nil, blob)
	require.NoError(t, err)
	require.Empty(t, sig.Params)
}

func TestDecodeMethodSignatureGenericInstArgs(t *testing.T) {
	// static, 1 param, ret VOID, param GENERICINST CLASS <tag 0 row 1> argc=1 I4
	blob := []byte{0x00, 0x01, byte(ElemVoid), byte(ElemGenericInst), byte(ElemClass), 0x04, 0x01, byte(ElemI4)}
	set := &assembly.AssemblySet{}
	owner := &assembly.Assembly{CanonicalName: "Empty"}
	sig, err := DecodeMethodSignature(set, owner, blob)
	require.NoError(t, err)
	require.Len(t, sig.Params, 1)
	require.Equal(t, ElemGenericInst, sig.Params[0].Kind)
	require.Len(t, sig.Params[0].GenericArgs, 1)
	require.Equal(t, ElemI4, sig.Params[0].GenericArgs[0].Kind)
}

func TestCompressedUintOneByte(t *testing.T) {
	d := &sigDecoder{blob: []byte{0x03}}
	v, err := d.compressedUint()
	require.NoError(t, err)
	require.EqualValues(t, 3, v)
	require.Equal(t, 1, d.off)
}

func TestCompressedUintTwoByte(t *testing.T) {
	d := &sigDecoder{blob: []byte{0x92, 0x34}}
	v, err := d.compressedUint()
	require.NoError(t, err)
	require.EqualValues(t, 0x1234, v)
	require.Equal(t, 2, d.off)
}

func TestCompressedUintFourByte(t *testing.T) {
	d := &sigDecoder{blob: []byte{0xC1, 0x23, 0x45, 0x67}}
	v, err := d.compressedUint()
	require.NoError(t, err)
	require.EqualValues(t, 0x01234567, v)
	require.Equal(t, 4, d.off)
}

func TestCompressedUintTruncated(t *testing.T) {
	d := &sigDecoder{blob: []byte{0x92}}
	_, err := d.compressedUint()
	require.Error(t, err)
}

func TestCompressedSignedNegative(t *testing.T) {
	// -1 encoded in one byte: 0x7F (6-bit two's complement 0x3F rotated
	// left, sign bit in bit 0).
	d := &sigDecoder{blob: []byte{0x7F}}
	v, err := d.compressedSigned()
	require.NoError(t, err)
	require.EqualValues(t, -1, v)
}

func TestCompressedSignedPositive(t *testing.T) {
	// 3 encoded: u = 3<<1 = 6.
	d := &sigDecoder{blob: []byte{0x06}}
	v, err := d.compressedSigned()
	require.NoError(t, err)
	require.EqualValues(t, 3, v)
}

func TestSigTypeStringNilIsNilLiteral(t *testing.T) {
	var st *SigType
	require.Equal(t, "<nil>", st.String())
}

func TestSigTypePrimitiveSizeZeroForNonPrimitive(t *testing.T) {
	st := &SigType{Kind: ElemString}
	require.False(t, st.IsPrimitive())
	require.Equal(t, 0, st.PrimitiveSize())
}
