package codegen

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cil2cpp/aotc/internal/assembly"
	"github.com/cil2cpp/aotc/internal/icall"
	"github.com/cil2cpp/aotc/internal/il"
	"github.com/cil2cpp/aotc/internal/ir"
	"github.com/cil2cpp/aotc/internal/namemap"
	"github.com/cil2cpp/aotc/internal/runtimetypes"
)

func newTestGenerator(t *testing.T) *generator {
	t.Helper()
	icalls, err := icall.Load()
	require.NoError(t, err)
	runtime, err := runtimetypes.Load()
	require.NoError(t, err)
	mod := &ir.Module{Names: namemap.NewMapper()}
	return &generator{
		mod:          mod,
		icalls:       icalls,
		runtime:      runtime,
		opts:         Options{ModuleName: "test", PartitionThreshold: DefaultPartitionThreshold},
		methodByDecl: map[*assembly.Method]*ir.MethodIR{},
	}
}

func testAssembly() *assembly.Assembly {
	return &assembly.Assembly{CanonicalName: "TestAsm"}
}

func testType(a *assembly.Assembly, row uint32, fullName string, kind assembly.Kind) *assembly.Type {
	return &assembly.Type{Assembly: a, Row: row, FullName: fullName, Kind: kind}
}

func TestCppPrimitive(t *testing.T) {
	name, ok := cppPrimitive(ir.ElemI4)
	require.True(t, ok)
	require.Equal(t, "int32_t", name)

	name, ok = cppPrimitive(ir.ElemString)
	require.True(t, ok)
	require.Equal(t, "rtg_String*", name)

	_, ok = cppPrimitive(ir.ElemClass)
	require.False(t, ok)
}

func TestTypeNamePrimitive(t *testing.T) {
	g := newTestGenerator(t)
	name, err := g.typeName(&ir.SigType{Kind: ir.ElemBoolean})
	require.NoError(t, err)
	require.Equal(t, "rtg_bool", name)
}

func TestTypeNameNilIsVoid(t *testing.T) {
	g := newTestGenerator(t)
	name, err := g.typeName(nil)
	require.NoError(t, err)
	require.Equal(t, "void", name)
}

func TestTypeNameClassNotRuntimeProvided(t *testing.T) {
	g := newTestGenerator(t)
	asm := testAssembly()
	ty := testType(asm, 1, "Game.Player", assembly.KindClass)
	name, err := g.typeName(&ir.SigType{Kind: ir.ElemClass, Class: ty})
	require.NoError(t, err)
	require.Equal(t, "T_Game_Player*", name)
}

func TestTypeNameClassRuntimeProvided(t *testing.T) {
	g := newTestGenerator(t)
	asm := testAssembly()
	ty := testType(asm, 1, "System.String", assembly.KindClass)
	name, err := g.typeName(&ir.SigType{Kind: ir.ElemClass, Class: ty})
	require.NoError(t, err)
	require.Equal(t, "rtg_T_System_String*", name)
}

func TestTypeNameValueTypeHasNoPointer(t *testing.T) {
	g := newTestGenerator(t)
	asm := testAssembly()
	ty := testType(asm, 2, "Game.Vector3", assembly.KindValueType)
	name, err := g.typeName(&ir.SigType{Kind: ir.ElemValueType, Class: ty})
	require.NoError(t, err)
	require.Equal(t, "T_Game_Vector3", name)
}

func TestTypeNameOpenGenericParamErrors(t *testing.T) {
	g := newTestGenerator(t)
	_, err := g.typeName(&ir.SigType{Kind: ir.ElemVar, Index: 0})
	require.Error(t, err)
}

func TestTypeNameSZArray(t *testing.T) {
	g := newTestGenerator(t)
	name, err := g.typeName(&ir.SigType{Kind: ir.ElemSZArray, Elem: &ir.SigType{Kind: ir.ElemI4}})
	require.NoError(t, err)
	require.Equal(t, "T_int32_t_Arr1*", name)
}

func TestTypeNameByRefIsPointerToElem(t *testing.T) {
	g := newTestGenerator(t)
	name, err := g.typeName(&ir.SigType{Kind: ir.ElemByRef, Elem: &ir.SigType{Kind: ir.ElemI4}})
	require.NoError(t, err)
	require.Equal(t, "int32_t*", name)
}

func TestTypeNameGenericInstanceDistinctFromPlainType(t *testing.T) {
	g := newTestGenerator(t)
	asm := testAssembly()
	listTy := testType(asm, 3, "System.Collections.Generic.List", assembly.KindClass)
	plainTy := testType(asm, 4, "System.Collections.Generic.List_G1_T_int32_t", assembly.KindClass)

	generic, err := g.typeName(&ir.SigType{
		Kind:        ir.ElemGenericInst,
		Generic:     listTy,
		GenericArgs: []*ir.SigType{{Kind: ir.ElemI4}},
	})
	require.NoError(t, err)

	plain, err := g.typeName(&ir.SigType{Kind: ir.ElemClass, Class: plainTy})
	require.NoError(t, err)
	require.NotEqual(t, generic, plain)
}

func TestMethodNameDisambiguatesOverloads(t *testing.T) {
	g := newTestGenerator(t)
	asm := testAssembly()
	ty := testType(asm, 5, "Game.Math", assembly.KindClass)

	miInt := &ir.MethodIR{
		Method: &assembly.Method{DeclaringType: ty, Name: "Add", Row: 1},
		Params: []ir.ParamInfo{{Type: &ir.SigType{Kind: ir.ElemI4}}},
	}
	miFloat := &ir.MethodIR{
		Method: &assembly.Method{DeclaringType: ty, Name: "Add", Row: 2},
		Params: []ir.ParamInfo{{Type: &ir.SigType{Kind: ir.ElemR4}}},
	}

	nameInt, err := g.methodName(miInt)
	require.NoError(t, err)
	nameFloat, err := g.methodName(miFloat)
	require.NoError(t, err)
	require.NotEqual(t, nameInt, nameFloat)
}

func TestMethodSignatureInstanceHasSelfParam(t *testing.T) {
	g := newTestGenerator(t)
	asm := testAssembly()
	ty := testType(asm, 6, "Game.Player", assembly.KindClass)
	mi := &ir.MethodIR{
		Method:   &assembly.Method{DeclaringType: ty, Name: "Heal", Row: 1},
		IsStatic: false,
		Ret:      nil,
		Params: []ir.ParamInfo{
			{Name: "amount", Type: &ir.SigType{Kind: ir.ElemI4}},
		},
	}
	sig, err := g.methodSignature(mi)
	require.NoError(t, err)
	require.Contains(t, sig, "T_Game_Player* self")
	require.Contains(t, sig, "p_amount")
}

func TestMethodSignatureByRefParamIsPointer(t *testing.T) {
	g := newTestGenerator(t)
	asm := testAssembly()
	ty := testType(asm, 7, "Game.Util", assembly.KindClass)
	mi := &ir.MethodIR{
		Method:   &assembly.Method{DeclaringType: ty, Name: "TryParse", Row: 1},
		IsStatic: true,
		Ret:      &ir.SigType{Kind: ir.ElemBoolean},
		Params: []ir.ParamInfo{
			{Name: "result", Type: &ir.SigType{Kind: ir.ElemI4}, ByRef: true},
		},
	}
	sig, err := g.methodSignature(mi)
	require.NoError(t, err)
	require.Contains(t, sig, "int32_t* p_result")
	require.NotContains(t, sig, "self")
}

func TestZeroValue(t *testing.T) {
	require.Equal(t, "nullptr", zeroValue("rtg_String*"))
	require.Equal(t, "0.0", zeroValue("float"))
	require.Equal(t, "false", zeroValue("rtg_bool"))
	require.Equal(t, "0", zeroValue("int32_t"))
}

func TestUtf16Literal(t *testing.T) {
	require.Equal(t, "{0x0048, 0x0069}", utf16Literal([]uint16{0x48, 0x69}))
	require.Equal(t, "{}", utf16Literal(nil))
}

func TestByteArrayLiteral(t *testing.T) {
	require.Equal(t, "{0x01, 0xFF}", byteArrayLiteral([]byte{0x01, 0xFF}))
}

func TestEscapeCString(t *testing.T) {
	require.Equal(t, `line1 line2`, escapeCString("line1\nline2"))
	require.Equal(t, `say \"hi\"`, escapeCString(`say "hi"`))
	require.Equal(t, `back\\slash`, escapeCString(`back\slash`))
}

func TestNormalizeStubKind(t *testing.T) {
	require.Equal(t, "ClrInternalType", normalizeStubKind("clr-internal-type"))
	require.Equal(t, "UnknownParameterTypes", normalizeStubKind("unresolvable-signature"))
	require.Equal(t, "MissingBody", normalizeStubKind("unreadable-body"))
	require.Equal(t, "MissingBody", normalizeStubKind("undecodable-body"))
	require.Equal(t, "UnknownBodyReferences", normalizeStubKind("missing-reference"))
	require.Equal(t, "RenderedBodyError", normalizeStubKind("something-unmapped"))
}

func TestIsCallOpcode(t *testing.T) {
	require.True(t, isCallOpcode(il.Call))
	require.True(t, isCallOpcode(il.Callvirt))
	require.True(t, isCallOpcode(il.Newobj))
	require.False(t, isCallOpcode(il.Add))
	require.False(t, isCallOpcode(il.Nop))
}

func TestGateOneHonorsExistingStubReason(t *testing.T) {
	g := newTestGenerator(t)
	asm := testAssembly()
	ty := testType(asm, 8, "Game.Broken", assembly.KindClass)
	mi := &ir.MethodIR{
		Method:     &assembly.Method{DeclaringType: ty, Name: "Foo", Row: 1},
		StubReason: &ir.StubReason{Kind: "clr-internal-type", Detail: "no managed body"},
	}
	d := g.gateOne(mi)
	require.False(t, d.render)
	require.Equal(t, "ClrInternalType", d.kind)
}

func TestGateOneDeclaredOnlyRenders(t *testing.T) {
	g := newTestGenerator(t)
	asm := testAssembly()
	ty := testType(asm, 9, "Game.Native", assembly.KindClass)
	mi := &ir.MethodIR{
		Method: &assembly.Method{DeclaringType: ty, Name: "Bar", Row: 1},
		Blocks: nil,
	}
	d := g.gateOne(mi)
	require.True(t, d.render)
}

func TestGateOneUnknownReturnTypeIsRejected(t *testing.T) {
	g := newTestGenerator(t)
	asm := testAssembly()
	ty := testType(asm, 10, "Game.Weird", assembly.KindClass)
	mi := &ir.MethodIR{
		Method: &assembly.Method{DeclaringType: ty, Name: "Baz", Row: 1},
		Ret:    &ir.SigType{Kind: ir.ElemVar, Index: 0},
		Blocks: []*ir.BasicBlock{{}},
	}
	d := g.gateOne(mi)
	require.False(t, d.render)
	require.Equal(t, "UnknownParameterTypes", d.kind)
}

func TestGateOneKnownBrokenPattern(t *testing.T) {
	g := newTestGenerator(t)
	asm := testAssembly()
	ty := testType(asm, 11, "Game.Simd", assembly.KindClass)
	mi := &ir.MethodIR{
		Method: &assembly.Method{DeclaringType: ty, Name: "__SIMDIntrinsic_Add", Row: 1},
		Blocks: []*ir.BasicBlock{{}},
	}
	d := g.gateOne(mi)
	require.False(t, d.render)
	require.Equal(t, "KnownBrokenPattern", d.kind)
}

func TestInstructionCount(t *testing.T) {
	mi := &ir.MethodIR{
		Blocks: []*ir.BasicBlock{
			{Instrs: []*ir.Instruction{{}, {}}},
			{Instrs: []*ir.Instruction{{}}},
		},
	}
	require.Equal(t, 3, instructionCount(mi))
}

func TestEmitMethodPartitionsAlwaysEmitsAtLeastOne(t *testing.T) {
	g := newTestGenerator(t)
	parts, err := g.emitMethodPartitions(map[*ir.MethodIR]gateDecision{})
	require.NoError(t, err)
	require.Len(t, parts, 1)
}

func TestEmitMethodPartitionsSplitsOnThreshold(t *testing.T) {
	g := newTestGenerator(t)
	g.opts.PartitionThreshold = 1
	asm := testAssembly()
	ty := testType(asm, 12, "Game.Many", assembly.KindClass)

	decisions := map[*ir.MethodIR]gateDecision{}
	var methods []*ir.MethodIR
	for i := 0; i < 3; i++ {
		mi := &ir.MethodIR{
			Method:   &assembly.Method{DeclaringType: ty, Name: "M", Row: uint32(i + 1)},
			IsStatic: true,
			Blocks: []*ir.BasicBlock{
				{Instrs: []*ir.Instruction{{Op: int(il.Nop)}}},
			},
		}
		decisions[mi] = gateDecision{render: true}
		methods = append(methods, mi)
	}
	g.mod.Methods = methods
	for _, mi := range methods {
		g.methodByDecl[mi.Method] = mi
	}

	parts, err := g.emitMethodPartitions(decisions)
	require.NoError(t, err)
	require.Greater(t, len(parts), 1)
}

func TestDefaultObjectVirtualFallsBackForUnknownName(t *testing.T) {
	require.Equal(t, "rtg_object_default_tostring", defaultObjectVirtual("ToString"))
	require.Equal(t, "rtg_object_default_virtual", defaultObjectVirtual("SomethingElse"))
}

func TestLdcShortValue(t *testing.T) {
	require.Equal(t, -1, ldcShortValue(il.LdcI4M1))
	require.Equal(t, 0, ldcShortValue(il.LdcI40))
	require.Equal(t, 8, ldcShortValue(il.LdcI48))
}

func TestArgIndex(t *testing.T) {
	require.Equal(t, 0, argIndex(il.Ldarg0, nil))
	require.Equal(t, 3, argIndex(il.Ldarg3, nil))
	require.Equal(t, 7, argIndex(il.LdargS, int64(7)))
}

func TestLocIndex(t *testing.T) {
	require.Equal(t, 0, locIndex(il.Ldloc0, nil))
	require.Equal(t, 2, locIndex(il.Stloc2, nil))
	require.Equal(t, 9, locIndex(il.LdlocS, int64(9)))
}

func TestBranchIf(t *testing.T) {
	require.Equal(t, "if (rtg_pop()) goto L4;", branchIf("rtg_pop()", []int{4}))
	require.Equal(t, "", branchIf("rtg_pop()", nil))
}

func TestArgIdentReceiverIsSelf(t *testing.T) {
	mi := &ir.MethodIR{HasThis: true, Params: []ir.ParamInfo{{Name: "amount"}}}
	require.Equal(t, "self", argIdent(mi, 0))
	require.Equal(t, "p_amount", argIdent(mi, 1))
}

func TestArgIdentStaticMethodHasNoSelfSlot(t *testing.T) {
	mi := &ir.MethodIR{HasThis: false, Params: []ir.ParamInfo{{Name: "x"}, {Name: "y"}}}
	require.Equal(t, "p_x", argIdent(mi, 0))
	require.Equal(t, "p_y", argIdent(mi, 1))
}

func TestArgIdentOutOfRangeFallsBackToArgN(t *testing.T) {
	mi := &ir.MethodIR{HasThis: false, Params: nil}
	require.Equal(t, "arg3", argIdent(mi, 3))
}

func TestLocalCppTypeResolvesDeclaredSlot(t *testing.T) {
	g := newTestGenerator(t)
	mi := &ir.MethodIR{Locals: []*ir.SigType{{Kind: ir.ElemI4}, {Kind: ir.ElemBoolean}}}
	ty, err := g.localCppType(mi, 1)
	require.NoError(t, err)
	require.Equal(t, "rtg_bool", ty)
}

func TestLocalCppTypeOutOfRangeFallsBackToIntptr(t *testing.T) {
	g := newTestGenerator(t)
	mi := &ir.MethodIR{Locals: nil}
	ty, err := g.localCppType(mi, 0)
	require.NoError(t, err)
	require.Equal(t, "intptr_t", ty)
}

func TestIsVoidRet(t *testing.T) {
	require.True(t, isVoidRet(nil))
	require.True(t, isVoidRet(&ir.SigType{Kind: ir.ElemVoid}))
	require.False(t, isVoidRet(&ir.SigType{Kind: ir.ElemI4}))
}

func TestMaxInt(t *testing.T) {
	require.Equal(t, 5, maxInt(5, 3))
	require.Equal(t, 5, maxInt(3, 5))
}

func TestCalleeArgTypesInstanceMethodIncludesReceiver(t *testing.T) {
	g := newTestGenerator(t)
	asm := testAssembly()
	ty := testType(asm, 20, "Game.Player", assembly.KindClass)
	method := &assembly.Method{DeclaringType: ty, Name: "Heal"}
	callee := &calleeInfo{
		target: method,
		sig: &ir.MethodSig{
			HasThis: true,
			Params:  []*ir.SigType{{Kind: ir.ElemI4}},
		},
	}
	types, err := g.calleeArgTypes(callee)
	require.NoError(t, err)
	require.Equal(t, []string{"T_Game_Player*", "int32_t"}, types)
}

func TestCalleeArgTypesStaticMethodHasNoReceiver(t *testing.T) {
	g := newTestGenerator(t)
	asm := testAssembly()
	ty := testType(asm, 21, "Game.Math", assembly.KindClass)
	method := &assembly.Method{DeclaringType: ty, Name: "Add"}
	callee := &calleeInfo{
		target: method,
		sig: &ir.MethodSig{
			HasThis: false,
			Params:  []*ir.SigType{{Kind: ir.ElemI4}, {Kind: ir.ElemI4}},
		},
	}
	types, err := g.calleeArgTypes(callee)
	require.NoError(t, err)
	require.Equal(t, []string{"int32_t", "int32_t"}, types)
}

func TestEmitMethodBodyDeclaresTypedLocals(t *testing.T) {
	g := newTestGenerator(t)
	asm := testAssembly()
	ty := testType(asm, 22, "Game.Counter", assembly.KindClass)
	mi := &ir.MethodIR{
		Method:   &assembly.Method{DeclaringType: ty, Name: "Tick", Row: 1},
		IsStatic: true,
		Ret:      nil,
		Locals:   []*ir.SigType{{Kind: ir.ElemI4}},
		Blocks: []*ir.BasicBlock{
			{Start: 0, Instrs: []*ir.Instruction{
				{Op: int(il.Stloc0)},
				{Op: int(il.Ret)},
			}},
		},
	}
	body, err := g.emitMethodBody(mi)
	require.NoError(t, err)
	require.Contains(t, body, "int32_t loc0 = 0;")
	require.Contains(t, body, "loc0 = (int32_t)rtg_pop();")
	require.Contains(t, body, "return;")
}

func TestRenderRetVoidMethod(t *testing.T) {
	g := newTestGenerator(t)
	mi := &ir.MethodIR{Ret: nil}
	line, err := g.renderRet(mi)
	require.NoError(t, err)
	require.Equal(t, "return;", line)
}

func TestRenderRetTypedMethod(t *testing.T) {
	g := newTestGenerator(t)
	mi := &ir.MethodIR{Ret: &ir.SigType{Kind: ir.ElemI4}}
	line, err := g.renderRet(mi)
	require.NoError(t, err)
	require.Equal(t, "return (int32_t)rtg_return_value();", line)
}
