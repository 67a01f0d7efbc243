// Signature decoding: ECMA-335 II.23.2 blob grammars for fields and
// methods. Every pass that needs a type shape (Pass 1 field layout, Pass 2
// method signatures, Pass 6 generic substitution) goes through SigType
// rather than re-walking blob bytes itself.
package ir

import (
	"fmt"

	"github.com/cil2cpp/aotc/internal/assembly"
	"github.com/cil2cpp/aotc/internal/metadata"
)

// ElementType is an ECMA-335 II.23.1.16 ELEMENT_TYPE_* tag.
type ElementType byte

const (
	ElemEnd         ElementType = 0x00
	ElemVoid        ElementType = 0x01
	ElemBoolean     ElementType = 0x02
	ElemChar        ElementType = 0x03
	ElemI1          ElementType = 0x04
	ElemU1          ElementType = 0x05
	ElemI2          ElementType = 0x06
	ElemU2          ElementType = 0x07
	ElemI4          ElementType = 0x08
	ElemU4          ElementType = 0x09
	ElemI8          ElementType = 0x0A
	ElemU8          ElementType = 0x0B
	ElemR4          ElementType = 0x0C
	ElemR8          ElementType = 0x0D
	ElemString      ElementType = 0x0E
	ElemPtr         ElementType = 0x0F
	ElemByRef       ElementType = 0x10
	ElemValueType   ElementType = 0x11
	ElemClass       ElementType = 0x12
	ElemVar         ElementType = 0x13
	ElemArray       ElementType = 0x14
	ElemGenericInst ElementType = 0x15
	ElemTypedByRef  ElementType = 0x16
	ElemI           ElementType = 0x18
	ElemU           ElementType = 0x19
	ElemFnPtr       ElementType = 0x1B
	ElemObject      ElementType = 0x1C
	ElemSZArray     ElementType = 0x1D
	ElemMVar        ElementType = 0x1E
	ElemCModReqd    ElementType = 0x1F
	ElemCModOpt     ElementType = 0x20
	ElemInternal    ElementType = 0x21
	ElemPinned      ElementType = 0x45
	ElemSentinel    ElementType = 0x41
)

// SigType is a decoded type expression from a field or method signature.
// Only one of Class/Elem/GenericArgs/Index is meaningful, depending on Kind.
type SigType struct {
	Kind ElementType

	// Class is the resolved type for ElemClass/ElemValueType, when
	// resolvable without a TypeSpec (a TypeSpec reference leaves Class nil,
	// and GenericArgs stays empty).
	Class *assembly.Type

	// Elem is the pointee/element type for ElemPtr/ElemByRef/ElemSZArray
	// and ElemArray.
	Elem *SigType

	// ArrayRank is set for ElemArray (ElemSZArray is always rank 1).
	ArrayRank int

	// Generic is the open generic type definition for ElemGenericInst,
	// and GenericArgs its type arguments.
	Generic     *assembly.Type
	GenericArgs []*SigType

	// Index is the zero-based type/method parameter number for
	// ElemVar/ElemMVar.
	Index uint32
}

func (t *SigType) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case ElemClass, ElemValueType:
		if t.Class != nil {
			return t.Class.FullName
		}
		return "<unresolved>"
	case ElemSZArray:
		return t.Elem.String() + "[]"
	case ElemArray:
		return fmt.Sprintf("%s[%d]", t.Elem.String(), t.ArrayRank)
	case ElemPtr:
		return t.Elem.String() + "*"
	case ElemByRef:
		return t.Elem.String() + "&"
	case ElemGenericInst:
		s := "<generic>"
		if t.Generic != nil {
			s = t.Generic.FullName
		}
		return s + "<...>"
	case ElemVar:
		return fmt.Sprintf("!%d", t.Index)
	case ElemMVar:
		return fmt.Sprintf("!!%d", t.Index)
	default:
		return primitiveName(t.Kind)
	}
}

func primitiveName(k ElementType) string {
	switch k {
	case ElemVoid:
		return "void"
	case ElemBoolean:
		return "bool"
	case ElemChar:
		return "char"
	case ElemI1:
		return "int8"
	case ElemU1:
		return "uint8"
	case ElemI2:
		return "int16"
	case ElemU2:
		return "uint16"
	case ElemI4:
		return "int32"
	case ElemU4:
		return "uint32"
	case ElemI8:
		return "int64"
	case ElemU8:
		return "uint64"
	case ElemR4:
		return "float32"
	case ElemR8:
		return "float64"
	case ElemString:
		return "string"
	case ElemI:
		return "intptr"
	case ElemU:
		return "uintptr"
	case ElemObject:
		return "object"
	case ElemTypedByRef:
		return "typedref"
	default:
		return fmt.Sprintf("elem_%#x", byte(k))
	}
}

// IsPrimitive reports whether t is one of the ECMA-335 built-in primitive
// kinds with a fixed width (as opposed to a class, array or generic
// parameter reference).
func (t *SigType) IsPrimitive() bool {
	switch t.Kind {
	case ElemBoolean, ElemChar, ElemI1, ElemU1, ElemI2, ElemU2, ElemI4, ElemU4,
		ElemI8, ElemU8, ElemR4, ElemR8, ElemI, ElemU:
		return true
	default:
		return false
	}
}

// PrimitiveSize returns the in-memory width of a primitive kind in bytes,
// or 0 if t is not a fixed-width primitive (pointer-sized I/U report 8,
// matching a 64-bit AOT target).
func (t *SigType) PrimitiveSize() int {
	switch t.Kind {
	case ElemBoolean, ElemI1, ElemU1:
		return 1
	case ElemChar, ElemI2, ElemU2:
		return 2
	case ElemI4, ElemU4, ElemR4:
		return 4
	case ElemI8, ElemU8, ElemR8, ElemI, ElemU:
		return 8
	default:
		return 0
	}
}

// MethodSig is a fully decoded method or field signature.
type MethodSig struct {
	HasThis    bool
	ExplicitThis bool
	GenericParamCount uint32
	Params     []*SigType
	ByRefParam []bool
	Ret        *SigType
	RetByRef   bool
}

type sigDecoder struct {
	blob []byte
	off  int
	set  *assembly.AssemblySet
	home *assembly.Assembly
}

func (d *sigDecoder) byte() (byte, error) {
	if d.off >= len(d.blob) {
		return 0, fmt.Errorf("signature truncated")
	}
	b := d.blob[d.off]
	d.off++
	return b, nil
}

func (d *sigDecoder) compressedUint() (uint32, error) {
	if d.off >= len(d.blob) {
		return 0, fmt.Errorf("signature truncated reading compressed uint")
	}
	b0 := d.blob[d.off]
	switch {
	case b0&0x80 == 0:
		d.off++
		return uint32(b0), nil
	case b0&0xC0 == 0x80:
		if d.off+2 > len(d.blob) {
			return 0, fmt.Errorf("signature truncated reading 2-byte compressed uint")
		}
		v := (uint32(b0&0x3F) << 8) | uint32(d.blob[d.off+1])
		d.off += 2
		return v, nil
	case b0&0xE0 == 0xC0:
		if d.off+4 > len(d.blob) {
			return 0, fmt.Errorf("signature truncated reading 4-byte compressed uint")
		}
		v := (uint32(b0&0x1F) << 24) | (uint32(d.blob[d.off+1]) << 16) |
			(uint32(d.blob[d.off+2]) << 8) | uint32(d.blob[d.off+3])
		d.off += 4
		return v, nil
	default:
		return 0, fmt.Errorf("invalid compressed uint prefix %#x", b0)
	}
}

// typeDefOrRefEncoded decodes a II.23.2.8 TypeDefOrRefOrSpecEncoded token:
// a compressed uint whose low 2 bits select TypeDef/TypeRef/TypeSpec and
// whose remaining bits are the 1-based row.
func (d *sigDecoder) typeDefOrRefEncoded() (metadata.TableIndex, uint32, error) {
	v, err := d.compressedUint()
	if err != nil {
		return 0, 0, err
	}
	tag := v & 0x3
	row := v >> 2
	var table metadata.TableIndex
	switch tag {
	case 0:
		table = metadata.TableTypeDef
	case 1:
		table = metadata.TableTypeRef
	case 2:
		table = metadata.TableTypeSpec
	default:
		return 0, 0, fmt.Errorf("invalid TypeDefOrRefOrSpec tag %d", tag)
	}
	return table, row, nil
}

// decodeType decodes one type expression, skipping custom modifiers and
// the PINNED prefix (Pass 1 has no use for either).
func (d *sigDecoder) decodeType() (*SigType, error) {
	for {
		b, err := d.byte()
		if err != nil {
			return nil, err
		}
		et := ElementType(b)
		switch et {
		case ElemCModReqd, ElemCModOpt:
			if _, _, err := d.typeDefOrRefEncoded(); err != nil {
				return nil, err
			}
			continue
		case ElemPinned:
			continue
		}

		switch et {
		case ElemClass, ElemValueType:
			table, row, err := d.typeDefOrRefEncoded()
			if err != nil {
				return nil, err
			}
			st := &SigType{Kind: et}
			if table == metadata.TableTypeSpec {
				return st, nil
			}
			ty, err := d.set.ResolveTypeRef(d.home, table, row)
			if err == nil {
				st.Class = ty
			}
			return st, nil

		case ElemSZArray:
			elem, err := d.decodeType()
			if err != nil {
				return nil, err
			}
			return &SigType{Kind: ElemSZArray, Elem: elem}, nil

		case ElemArray:
			elem, err := d.decodeType()
			if err != nil {
				return nil, err
			}
			rank, err := d.compressedUint()
			if err != nil {
				return nil, err
			}
			if err := d.skipArrayShape(); err != nil {
				return nil, err
			}
			return &SigType{Kind: ElemArray, Elem: elem, ArrayRank: int(rank)}, nil

		case ElemPtr:
			elem, err := d.decodeType()
			if err != nil {
				return nil, err
			}
			return &SigType{Kind: ElemPtr, Elem: elem}, nil

		case ElemByRef:
			elem, err := d.decodeType()
			if err != nil {
				return nil, err
			}
			return &SigType{Kind: ElemByRef, Elem: elem}, nil

		case ElemVar, ElemMVar:
			idx, err := d.compressedUint()
			if err != nil {
				return nil, err
			}
			return &SigType{Kind: et, Index: idx}, nil

		case ElemGenericInst:
			genElemByte, err := d.byte()
			if err != nil {
				return nil, err
			}
			table, row, err := d.typeDefOrRefEncoded()
			if err != nil {
				return nil, err
			}
			argc, err := d.compressedUint()
			if err != nil {
				return nil, err
			}
			st := &SigType{Kind: ElemGenericInst}
			if table != metadata.TableTypeSpec {
				if ty, err := d.set.ResolveTypeRef(d.home, table, row); err == nil {
					st.Generic = ty
				}
			}
			_ = genElemByte // ElemClass or ElemValueType; not needed beyond Generic resolution
			for i := uint32(0); i < argc; i++ {
				arg, err := d.decodeType()
				if err != nil {
					return nil, err
				}
				st.GenericArgs = append(st.GenericArgs, arg)
			}
			return st, nil

		case ElemFnPtr:
			if _, err := d.decodeMethodSigBody(); err != nil {
				return nil, err
			}
			return &SigType{Kind: ElemFnPtr}, nil

		default:
			return &SigType{Kind: et}, nil
		}
	}
}

// skipArrayShape consumes a II.23.2.13 ArrayShape's size/lobound lists,
// which Pass 1 does not need (multi-dimensional array element layout is
// runtime-computed, not statically laid out).
func (d *sigDecoder) skipArrayShape() error {
	numSizes, err := d.compressedUint()
	if err != nil {
		return err
	}
	for i := uint32(0); i < numSizes; i++ {
		if _, err := d.compressedUint(); err != nil {
			return err
		}
	}
	numLoBounds, err := d.compressedUint()
	if err != nil {
		return err
	}
	for i := uint32(0); i < numLoBounds; i++ {
		if _, err := d.compressedSigned(); err != nil {
			return err
		}
	}
	return nil
}

// compressedSigned decodes a II.23.2.2 compressed signed integer (used
// only by ArrayShape lobounds); the sign-extension/rotate trick is spelled
// out verbatim from the spec since nothing upstream needs the value.
func (d *sigDecoder) compressedSigned() (int32, error) {
	u, err := d.compressedUint()
	if err != nil {
		return 0, err
	}
	negative := u&1 != 0
	u >>= 1
	if negative {
		switch {
		case u < 0x40:
			u |= 0xFFFFFFC0
		case u < 0x2000:
			u |= 0xFFFFE000
		default:
			u |= 0xF0000000
		}
	}
	return int32(u), nil
}

func (d *sigDecoder) decodeMethodSigBody() (*MethodSig, error) {
	flags, err := d.byte()
	if err != nil {
		return nil, err
	}
	sig := &MethodSig{
		HasThis:      flags&0x20 != 0,
		ExplicitThis: flags&0x40 != 0,
	}
	if flags&0x10 != 0 { // GENERIC
		gpc, err := d.compressedUint()
		if err != nil {
			return nil, err
		}
		sig.GenericParamCount = gpc
	}
	paramCount, err := d.compressedUint()
	if err != nil {
		return nil, err
	}
	retByRef, ret, err := d.decodeParamOrRet()
	if err != nil {
		return nil, err
	}
	sig.Ret, sig.RetByRef = ret, retByRef

	for i := uint32(0); i < paramCount; i++ {
		byRef, pt, err := d.decodeParamOrRet()
		if err != nil {
			return nil, err
		}
		if pt == nil {
			break // SENTINEL: remaining params are vararg-site-only
		}
		sig.Params = append(sig.Params, pt)
		sig.ByRefParam = append(sig.ByRefParam, byRef)
	}
	return sig, nil
}

// decodeParamOrRet handles the shared Param/RetType grammar: an optional
// BYREF prefix (or TYPEDBYREF/VOID standing alone for a return), or a
// SENTINEL marking the vararg boundary.
func (d *sigDecoder) decodeParamOrRet() (byRef bool, t *SigType, err error) {
	for {
		if d.off >= len(d.blob) {
			return false, nil, fmt.Errorf("signature truncated in param/ret")
		}
		et := ElementType(d.blob[d.off])
		switch et {
		case ElemCModReqd, ElemCModOpt:
			d.off++
			if _, _, err := d.typeDefOrRefEncoded(); err != nil {
				return false, nil, err
			}
			continue
		case ElemByRef:
			d.off++
			byRef = true
			continue
		case ElemSentinel:
			d.off++
			return false, nil, nil
		}
		t, err = d.decodeType()
		return byRef, t, err
	}
}

// DecodeFieldSignature decodes a FieldSig blob (II.23.2.4): a leading
// 0x06 tag followed by a single type.
func DecodeFieldSignature(set *assembly.AssemblySet, home *assembly.Assembly, blob []byte) (*SigType, error) {
	d := &sigDecoder{blob: blob, set: set, home: home}
	tag, err := d.byte()
	if err != nil {
		return nil, err
	}
	if tag != 0x06 {
		return nil, fmt.Errorf("field signature: expected FIELD tag 0x06, got %#x", tag)
	}
	return d.decodeType()
}

// DecodeMethodSignature decodes a MethodDefSig/MethodRefSig blob
// (II.23.2.1/.2).
func DecodeMethodSignature(set *assembly.AssemblySet, home *assembly.Assembly, blob []byte) (*MethodSig, error) {
	d := &sigDecoder{blob: blob, set: set, home: home}
	return d.decodeMethodSigBody()
}

// DecodeLocalVarSig decodes a LocalVarSig blob (II.23.2.6): a leading 0x07
// tag, a compressed count, then one type per local slot. BYREF and PINNED
// prefixes are handled the same way decodeType already handles them inside
// a field or parameter type, so a pinned or by-ref local needs no separate
// case here.
func DecodeLocalVarSig(set *assembly.AssemblySet, home *assembly.Assembly, blob []byte) ([]*SigType, error) {
	d := &sigDecoder{blob: blob, set: set, home: home}
	tag, err := d.byte()
	if err != nil {
		return nil, err
	}
	if tag != 0x07 {
		return nil, fmt.Errorf("local variable signature: expected LOCAL_SIG tag 0x07, got %#x", tag)
	}
	count, err := d.compressedUint()
	if err != nil {
		return nil, err
	}
	locals := make([]*SigType, 0, count)
	for i := uint32(0); i < count; i++ {
		t, err := d.decodeType()
		if err != nil {
			return nil, err
		}
		locals = append(locals, t)
	}
	return locals, nil
}
