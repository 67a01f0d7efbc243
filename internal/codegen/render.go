package codegen

import (
	"fmt"
	"strings"

	"github.com/cil2cpp/aotc/internal/assembly"
	"github.com/cil2cpp/aotc/internal/il"
	"github.com/cil2cpp/aotc/internal/ir"
	"github.com/cil2cpp/aotc/internal/reach"
)

// methodSignature renders one method's C++ declaration (no trailing
// semicolon handling left to the caller), matching Pass 2's parameter
// list exactly (spec.md §4.6.5).
func (g *generator) methodSignature(mi *ir.MethodIR) (string, error) {
	name, err := g.methodName(mi)
	if err != nil {
		return "", err
	}
	ret, err := g.typeName(mi.Ret)
	if err != nil {
		return "", err
	}
	var params []string
	if !mi.IsStatic {
		recvType, err := g.typeName(&ir.SigType{Kind: ir.ElemClass, Class: mi.Method.DeclaringType})
		if err != nil {
			recvType = "void*"
		}
		params = append(params, recvType+" self")
	}
	for i, p := range mi.Params {
		pt, err := g.typeName(p.Type)
		if err != nil {
			return "", err
		}
		if p.ByRef {
			pt += "*"
		}
		params = append(params, fmt.Sprintf("%s %s", pt, paramIdent(p.Name, i)))
	}
	return fmt.Sprintf("%s %s(%s)", ret, name, strings.Join(params, ", ")), nil
}

func paramIdent(name string, index int) string {
	if name == "" {
		return fmt.Sprintf("arg%d", index)
	}
	return "p_" + name
}

// argIdent returns the C++ identifier methodSignature declared for CIL
// argument slot idx (0 is the instance receiver when the method HasThis),
// so Ldarg* renders a reference to an identifier the signature actually
// declares instead of a parallel argN scheme (spec.md §8 #2).
func argIdent(mi *ir.MethodIR, idx int) string {
	if mi.HasThis {
		if idx == 0 {
			return "self"
		}
		idx--
	}
	if idx >= 0 && idx < len(mi.Params) {
		return paramIdent(mi.Params[idx].Name, idx)
	}
	return fmt.Sprintf("arg%d", idx)
}

// localCppType resolves local slot idx's declared C++ type (from the
// method's LocalVarSig, Pass 2).
func (g *generator) localCppType(mi *ir.MethodIR, idx int) (string, error) {
	if idx < 0 || idx >= len(mi.Locals) {
		return "intptr_t", nil
	}
	return g.typeName(mi.Locals[idx])
}

// emitMethodBody renders one non-stub method's block-by-block body
// (spec.md §4.6.5): a typed, zero-initialized local for every LocalVarSig
// slot, then each BasicBlock as a labeled block, each instruction one or
// more C++ statements preserving its exact semantics.
func (g *generator) emitMethodBody(mi *ir.MethodIR) (string, error) {
	sig, err := g.methodSignature(mi)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s {\n", sig)
	for i, lt := range mi.Locals {
		ltype, err := g.typeName(lt)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "  %s loc%d = %s;\n", ltype, i, zeroValue(ltype))
	}
	for _, blk := range mi.Blocks {
		fmt.Fprintf(&b, " L%d:\n", blk.Start)
		for _, inst := range blk.Instrs {
			line, err := g.renderInstruction(mi, inst)
			if err != nil {
				return "", err
			}
			if line != "" {
				fmt.Fprintf(&b, "  %s\n", line)
			}
		}
	}
	b.WriteString("}\n\n")
	return b.String(), nil
}

// renderInstruction lowers one IL instruction to its C++ statement form.
// Arithmetic, comparisons, and stack-shape opcodes map to templates
// mirroring the runtime's checked/unchecked helper macros; anything this
// switch does not cover by name falls back to a runtime dispatch call
// named after the opcode mnemonic, which keeps the renderer total without
// silently mis-translating an instruction this build has not special-
// cased yet.
func (g *generator) renderInstruction(mi *ir.MethodIR, inst *ir.Instruction) (string, error) {
	op := il.Opcode(inst.Op)
	switch op {
	case il.Nop, il.Break:
		return "", nil
	case il.Add:
		return "rtg_push(rtg_pop() + rtg_pop());", nil
	case il.AddOvf:
		return "rtg_push(rtg_checked_add(rtg_pop(), rtg_pop()));", nil
	case il.Sub:
		return "rtg_push(-rtg_pop() + rtg_pop());", nil
	case il.SubOvf:
		return "rtg_push(rtg_checked_sub(rtg_pop(), rtg_pop()));", nil
	case il.Mul:
		return "rtg_push(rtg_pop() * rtg_pop());", nil
	case il.MulOvf:
		return "rtg_push(rtg_checked_mul(rtg_pop(), rtg_pop()));", nil
	case il.Div:
		return "rtg_push(rtg_checked_div(rtg_pop(), rtg_pop()));", nil
	case il.DivUn:
		return "rtg_push(rtg_checked_div_un(rtg_pop(), rtg_pop()));", nil
	case il.Rem:
		return "rtg_push(rtg_checked_rem(rtg_pop(), rtg_pop()));", nil
	case il.Neg:
		return "rtg_push(-rtg_pop());", nil
	case il.And:
		return "rtg_push(rtg_pop() & rtg_pop());", nil
	case il.Or:
		return "rtg_push(rtg_pop() | rtg_pop());", nil
	case il.Xor:
		return "rtg_push(rtg_pop() ^ rtg_pop());", nil
	case il.Shl:
		return "rtg_push(rtg_pop() << rtg_pop());", nil
	case il.Shr:
		return "rtg_push(rtg_pop() >> rtg_pop());", nil
	case il.ShrUn:
		return "rtg_push((uintptr_t)rtg_pop() >> rtg_pop());", nil
	case il.Not:
		return "rtg_push(~rtg_pop());", nil
	case il.Dup:
		return "rtg_dup();", nil
	case il.Pop:
		return "rtg_drop();", nil

	case il.Ceq:
		return "rtg_push(rtg_pop() == rtg_pop());", nil
	case il.Cgt:
		return "rtg_push(rtg_pop() < rtg_pop());", nil // operands popped in reverse: pop() < pop() == a>b
	case il.CgtUn:
		return "rtg_push(rtg_cmp_gt_un(rtg_pop(), rtg_pop()));", nil
	case il.Clt:
		return "rtg_push(rtg_pop() > rtg_pop());", nil
	case il.CltUn:
		return "rtg_push(rtg_cmp_lt_un(rtg_pop(), rtg_pop()));", nil

	case il.LdcI4M1, il.LdcI40, il.LdcI41, il.LdcI42, il.LdcI43, il.LdcI44, il.LdcI45, il.LdcI46, il.LdcI47, il.LdcI48:
		return fmt.Sprintf("rtg_push((int32_t)%d);", ldcShortValue(op)), nil
	case il.LdcI4S, il.LdcI4:
		return fmt.Sprintf("rtg_push((int32_t)%d);", inst.Operand), nil
	case il.LdcI8:
		return fmt.Sprintf("rtg_push((int64_t)%dLL);", inst.Operand), nil
	case il.LdcR4, il.LdcR8:
		return fmt.Sprintf("rtg_push_f(%v);", inst.Operand), nil
	case il.LdnullOp:
		return "rtg_push(nullptr);", nil

	case il.Ldarg0, il.Ldarg1, il.Ldarg2, il.Ldarg3, il.LdargS, il.LdargOp:
		ident := argIdent(mi, argIndex(op, inst.Operand))
		return fmt.Sprintf("rtg_push((intptr_t)%s);", ident), nil
	case il.Ldloc0, il.Ldloc1, il.Ldloc2, il.Ldloc3, il.LdlocS, il.LdlocOp:
		idx := locIndex(op, inst.Operand)
		return fmt.Sprintf("rtg_push((intptr_t)loc%d);", idx), nil
	case il.Stloc0, il.Stloc1, il.Stloc2, il.Stloc3, il.StlocS:
		idx := locIndex(op, inst.Operand)
		lt, err := g.localCppType(mi, idx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("loc%d = (%s)rtg_pop();", idx, lt), nil

	case il.Ldfld:
		return g.renderLdfld(mi, inst)
	case il.Stfld:
		return g.renderStfld(mi, inst)
	case il.Ldsfld:
		return g.renderLdsfld(mi, inst)
	case il.Stsfld:
		return g.renderStsfld(mi, inst)

	case il.Ldstr:
		return fmt.Sprintf("rtg_push((intptr_t)%v);", inst.Operand), nil

	case il.Newobj:
		return g.renderNewobj(mi, inst)
	case il.Newarr:
		return g.renderNewarr(mi, inst)
	case il.Ldlen:
		return "rtg_push(rtg_array_length(rtg_pop()));", nil

	case il.Box:
		return g.renderBox(mi, inst)
	case il.Unbox, il.UnboxAny:
		return "rtg_push(rtg_unbox(rtg_pop()));", nil
	case il.Castclass:
		return g.renderCastOrIsinst(mi, inst, true)
	case il.Isinst:
		return g.renderCastOrIsinst(mi, inst, false)

	case il.Call:
		return g.renderCall(mi, inst, false)
	case il.Callvirt:
		return g.renderCall(mi, inst, true)
	case il.Ret:
		return g.renderRet(mi)
	case il.Throw:
		return "rtg_throw(rtg_pop());", nil

	case il.Br, il.BrS:
		if len(inst.Branches) == 1 {
			return fmt.Sprintf("goto L%d;", inst.Branches[0]), nil
		}
		return "", nil
	case il.Brfalse, il.BrfalseS:
		return branchIf("!rtg_pop()", inst.Branches), nil
	case il.Brtrue, il.BrtrueS:
		return branchIf("rtg_pop()", inst.Branches), nil
	case il.Beq, il.BeqS:
		return branchIf("rtg_pop() == rtg_pop()", inst.Branches), nil
	case il.Bge, il.BgeS, il.BgeUn, il.BgeUnS:
		return branchIf("rtg_pop() <= rtg_pop()", inst.Branches), nil
	case il.Bgt, il.BgtS, il.BgtUn, il.BgtUnS:
		return branchIf("rtg_pop() < rtg_pop()", inst.Branches), nil
	case il.Ble, il.BleS, il.BleUn, il.BleUnS:
		return branchIf("rtg_pop() >= rtg_pop()", inst.Branches), nil
	case il.Blt, il.BltS, il.BltUn, il.BltUnS:
		return branchIf("rtg_pop() > rtg_pop()", inst.Branches), nil
	case il.BneUn, il.BneUnS:
		return branchIf("rtg_pop() != rtg_pop()", inst.Branches), nil

	case il.Leave, il.LeaveS:
		if len(inst.Branches) == 1 {
			return fmt.Sprintf("rtg_leave(); goto L%d;", inst.Branches[0]), nil
		}
		return "rtg_leave();", nil
	case il.Endfinally:
		return "rtg_endfinally();", nil

	default:
		return fmt.Sprintf("rtg_dispatch_%d();", int(op)), nil
	}
}

// calleeInfo is one resolved Call/Callvirt/Newobj target: its rendered
// name, its freshly-decoded real signature (so casts and void-detection
// never depend on whether the callee happens to have its own MethodIR),
// and — when the callee is itself emitted by this build — the MethodIR
// carrying its Pass 5 v-table slot.
type calleeInfo struct {
	name   string
	sig    *ir.MethodSig
	target *assembly.Method
	mi     *ir.MethodIR
}

// resolveCallee resolves inst's call token the same way gate 4 already
// does (spec.md §4.6.6) — any target gate 4 accepted is guaranteed to
// resolve here the same way, so this never introduces a new rejection
// path — and decodes the chosen target's own signature blob so the
// caller has real parameter/return types to cast against regardless of
// whether the callee is a lowered method or an internal call.
func (g *generator) resolveCallee(mi *ir.MethodIR, inst *ir.Instruction) (*calleeInfo, error) {
	token, ok := inst.Operand.(int64)
	if !ok {
		return nil, fmt.Errorf("codegen: call instruction missing token operand")
	}
	owner := mi.Method.DeclaringType.Assembly
	targets, err := reach.ResolveCallToken(g.set, owner, uint32(token))
	if err != nil || len(targets) == 0 {
		return nil, fmt.Errorf("codegen: unresolved call token %#x", token)
	}

	var target *assembly.Method
	var name string
	var mi2 *ir.MethodIR
	for _, t := range targets {
		if m, ok := g.methodByDecl[t]; ok {
			n, err := g.methodName(m)
			if err != nil {
				return nil, err
			}
			target, name, mi2 = t, n, m
			break
		}
	}
	if target == nil {
		for _, t := range targets {
			if n, ok := g.icalls.Lookup(t.DeclaringType.FullName, t.Name, len(t.Params), ""); ok {
				target, name = t, n
				break
			}
		}
	}
	if target == nil {
		return nil, fmt.Errorf("codegen: call target not emitted and not an internal call")
	}

	blob, err := target.DeclaringType.Assembly.Root().BlobAt(target.SignatureBlob)
	if err != nil {
		return nil, err
	}
	sig, err := ir.DecodeMethodSignature(g.set, target.DeclaringType.Assembly, blob)
	if err != nil {
		return nil, err
	}
	return &calleeInfo{name: name, sig: sig, target: target, mi: mi2}, nil
}

// calleeArgTypes returns the C++ type of every positional argument a call
// to callee takes, with the implicit receiver (when HasThis) at index 0.
func (g *generator) calleeArgTypes(callee *calleeInfo) ([]string, error) {
	n := len(callee.sig.Params)
	if callee.sig.HasThis {
		n++
	}
	types := make([]string, n)
	idx := 0
	if callee.sig.HasThis {
		selfType, err := g.typeName(&ir.SigType{Kind: ir.ElemClass, Class: callee.target.DeclaringType})
		if err != nil || selfType == "" {
			selfType = "void*"
		}
		types[0] = selfType
		idx = 1
	}
	for _, pt := range callee.sig.Params {
		n, err := g.typeName(pt)
		if err != nil {
			return nil, err
		}
		types[idx] = n
		idx++
	}
	return types, nil
}

func isVoidRet(t *ir.SigType) bool {
	return t == nil || t.Kind == ir.ElemVoid
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// renderCall renders a Call or Callvirt instruction (spec.md §4.6.5): it
// pops exactly the resolved callee's arity in reverse order into a typed
// argument buffer, then either invokes the callee directly by its
// mangled name or — for a Callvirt target that actually occupies a
// Pass-5 v-table slot — loads the function pointer through the
// receiver's own rtg_TypeInfo.vtable entry, so an overridden method on a
// more-derived runtime type dispatches to the override rather than the
// statically-resolved declaration.
func (g *generator) renderCall(mi *ir.MethodIR, inst *ir.Instruction, virtual bool) (string, error) {
	callee, err := g.resolveCallee(mi, inst)
	if err != nil {
		return "", err
	}
	argTypes, err := g.calleeArgTypes(callee)
	if err != nil {
		return "", err
	}
	argc := len(argTypes)

	var b strings.Builder
	fmt.Fprintf(&b, "{ intptr_t __a%d[%d];\n", inst.Offset, maxInt(argc, 1))
	for i := argc - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "    __a%d[%d] = (intptr_t)rtg_pop();\n", inst.Offset, i)
	}

	args := make([]string, argc)
	for i := 0; i < argc; i++ {
		args[i] = fmt.Sprintf("(%s)__a%d[%d]", argTypes[i], inst.Offset, i)
	}

	target := callee.name
	dispatchable := callee.target.DeclaringType.Kind == assembly.KindClass
	if virtual && dispatchable && callee.mi != nil && callee.mi.VTableSlot >= 0 && argc > 0 {
		retType, err := g.typeName(callee.sig.Ret)
		if err != nil {
			return "", err
		}
		fnType := fmt.Sprintf("%s(*)(%s)", retType, strings.Join(argTypes, ", "))
		target = fmt.Sprintf("((%s)((rtg_Object*)__a%d[0])->__typeinfo->vtable[%d])", fnType, inst.Offset, callee.mi.VTableSlot)
	}

	call := fmt.Sprintf("%s(%s)", target, strings.Join(args, ", "))
	if isVoidRet(callee.sig.Ret) {
		fmt.Fprintf(&b, "    %s;\n", call)
	} else {
		fmt.Fprintf(&b, "    rtg_push((intptr_t)%s);\n", call)
	}
	b.WriteString("  }")
	return b.String(), nil
}

// renderNewobj renders a Newobj instruction: allocate through the GC with
// the constructed type's own TypeInfo, then invoke its resolved
// constructor with the allocation as the receiver (spec.md §4.6.5's
// "allocate through the runtime's GC with the correct TypeInfo pointer").
func (g *generator) renderNewobj(mi *ir.MethodIR, inst *ir.Instruction) (string, error) {
	callee, err := g.resolveCallee(mi, inst)
	if err != nil {
		return "", err
	}
	typeIdent, err := g.mod.Names.TypeName(callee.target.DeclaringType.FullName)
	if err != nil {
		return "", err
	}
	argTypes, err := g.calleeArgTypes(callee)
	if err != nil {
		return "", err
	}
	ctorArgTypes := argTypes
	if callee.sig.HasThis && len(argTypes) > 0 {
		ctorArgTypes = argTypes[1:]
	}
	n := len(ctorArgTypes)

	var b strings.Builder
	fmt.Fprintf(&b, "{ intptr_t __a%d[%d];\n", inst.Offset, maxInt(n, 1))
	for i := n - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "    __a%d[%d] = (intptr_t)rtg_pop();\n", inst.Offset, i)
	}
	fmt.Fprintf(&b, "    %s* __o%d = (%s*)rtg_gc_alloc(&%s_TypeInfo);\n", typeIdent, inst.Offset, typeIdent, typeIdent)

	args := make([]string, n+1)
	args[0] = fmt.Sprintf("__o%d", inst.Offset)
	for i := 0; i < n; i++ {
		args[i+1] = fmt.Sprintf("(%s)__a%d[%d]", ctorArgTypes[i], inst.Offset, i)
	}
	fmt.Fprintf(&b, "    %s(%s);\n", callee.name, strings.Join(args, ", "))
	fmt.Fprintf(&b, "    rtg_push((intptr_t)__o%d);\n", inst.Offset)
	b.WriteString("  }")
	return b.String(), nil
}

// renderNewarr resolves the element type so the allocated array carries
// its own TypeInfo; an unresolvable element (an open generic parameter,
// for instance) falls back to the untyped runtime entry point rather
// than failing the whole method, since Newarr's element token is not one
// gate 2/4 pre-validates.
func (g *generator) renderNewarr(mi *ir.MethodIR, inst *ir.Instruction) (string, error) {
	const fallback = "rtg_push((intptr_t)rtg_newarr(rtg_pop()));"
	token, ok := inst.Operand.(int64)
	if !ok {
		return fallback, nil
	}
	owner := mi.Method.DeclaringType.Assembly
	ty, err := reach.ResolveTypeToken(g.set, owner, uint32(token))
	if err != nil {
		return fallback, nil
	}
	typeIdent, err := g.mod.Names.TypeName(ty.FullName)
	if err != nil {
		return fallback, nil
	}
	return fmt.Sprintf("rtg_push((intptr_t)rtg_newarr(rtg_pop(), &%s_TypeInfo));", typeIdent), nil
}

// renderBox resolves the boxed value type so the allocation carries its
// real TypeInfo (spec.md §4.6.5); the same graceful fallback as Newarr
// applies to an unresolvable (e.g. open generic) box target.
func (g *generator) renderBox(mi *ir.MethodIR, inst *ir.Instruction) (string, error) {
	const fallback = "rtg_push((intptr_t)rtg_box(rtg_pop()));"
	token, ok := inst.Operand.(int64)
	if !ok {
		return fallback, nil
	}
	owner := mi.Method.DeclaringType.Assembly
	ty, err := reach.ResolveTypeToken(g.set, owner, uint32(token))
	if err != nil {
		return fallback, nil
	}
	typeIdent, err := g.mod.Names.TypeName(ty.FullName)
	if err != nil {
		return fallback, nil
	}
	return fmt.Sprintf("rtg_push((intptr_t)rtg_box(rtg_pop(), &%s_TypeInfo));", typeIdent), nil
}

// renderCastOrIsinst resolves the cast target type for Castclass/Isinst
// so the runtime check is against the real TypeInfo rather than an
// opaque, type-erased helper; same fallback policy as Box/Newarr.
func (g *generator) renderCastOrIsinst(mi *ir.MethodIR, inst *ir.Instruction, checked bool) (string, error) {
	fn, fallback := "rtg_castclass", "rtg_push(rtg_castclass(rtg_pop()));"
	if !checked {
		fn, fallback = "rtg_isinst", "rtg_push(rtg_isinst(rtg_pop()));"
	}
	token, ok := inst.Operand.(int64)
	if !ok {
		return fallback, nil
	}
	owner := mi.Method.DeclaringType.Assembly
	ty, err := reach.ResolveTypeToken(g.set, owner, uint32(token))
	if err != nil {
		return fallback, nil
	}
	typeIdent, err := g.mod.Names.TypeName(ty.FullName)
	if err != nil {
		return fallback, nil
	}
	return fmt.Sprintf("rtg_push((intptr_t)%s(rtg_pop(), &%s_TypeInfo));", fn, typeIdent), nil
}

// resolveField resolves a Ldfld/Stfld/Ldsfld/Stsfld instruction's field
// token to its declaring type's mangled identifier and its own decoded
// field type, so accessors can emit a direct, offset-specific struct
// member reference instead of a generic boxed accessor (spec.md §4.6.5).
func (g *generator) resolveField(mi *ir.MethodIR, inst *ir.Instruction) (f *assembly.Field, declIdent, fieldType string, err error) {
	token, ok := inst.Operand.(int64)
	if !ok {
		return nil, "", "", fmt.Errorf("codegen: field instruction missing token operand")
	}
	owner := mi.Method.DeclaringType.Assembly
	f, err = reach.ResolveFieldToken(g.set, owner, uint32(token))
	if err != nil {
		return nil, "", "", err
	}
	declIdent, err = g.mod.Names.TypeName(f.DeclaringType.FullName)
	if err != nil {
		return nil, "", "", err
	}
	blob, err := f.DeclaringType.Assembly.Root().BlobAt(f.SignatureBlob)
	if err != nil {
		return nil, "", "", err
	}
	ft, err := ir.DecodeFieldSignature(g.set, f.DeclaringType.Assembly, blob)
	if err != nil {
		return nil, "", "", err
	}
	fieldType, err = g.typeName(ft)
	if err != nil {
		return nil, "", "", err
	}
	return f, declIdent, fieldType, nil
}

func (g *generator) renderLdfld(mi *ir.MethodIR, inst *ir.Instruction) (string, error) {
	f, declIdent, _, err := g.resolveField(mi, inst)
	if err != nil {
		return "rtg_push(rtg_ldfld(rtg_pop()));", nil
	}
	return fmt.Sprintf("rtg_push((intptr_t)((%s*)rtg_pop())->%s);", declIdent, f.Name), nil
}

func (g *generator) renderStfld(mi *ir.MethodIR, inst *ir.Instruction) (string, error) {
	f, declIdent, ftype, err := g.resolveField(mi, inst)
	if err != nil {
		return "rtg_stfld(rtg_pop(), rtg_pop());", nil
	}
	return fmt.Sprintf("{ %s __v = (%s)rtg_pop(); ((%s*)rtg_pop())->%s = __v; }", ftype, ftype, declIdent, f.Name), nil
}

func (g *generator) renderLdsfld(mi *ir.MethodIR, inst *ir.Instruction) (string, error) {
	f, declIdent, _, err := g.resolveField(mi, inst)
	if err != nil {
		return "rtg_push(rtg_ldsfld());", nil
	}
	return fmt.Sprintf("rtg_push((intptr_t)%s_%s_static);", declIdent, f.Name), nil
}

func (g *generator) renderStsfld(mi *ir.MethodIR, inst *ir.Instruction) (string, error) {
	f, declIdent, ftype, err := g.resolveField(mi, inst)
	if err != nil {
		return "rtg_stsfld(rtg_pop());", nil
	}
	return fmt.Sprintf("%s_%s_static = (%s)rtg_pop();", declIdent, f.Name, ftype), nil
}

// renderRet renders a Ret instruction typed against the enclosing
// method's own declared return (spec.md §4.6.5): a bare return for a void
// method, otherwise a cast of the popped return value to the real return
// type.
func (g *generator) renderRet(mi *ir.MethodIR) (string, error) {
	if isVoidRet(mi.Ret) {
		return "return;", nil
	}
	retType, err := g.typeName(mi.Ret)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("return (%s)rtg_return_value();", retType), nil
}

func branchIf(cond string, targets []int) string {
	if len(targets) == 0 {
		return ""
	}
	return fmt.Sprintf("if (%s) goto L%d;", cond, targets[0])
}

func ldcShortValue(op il.Opcode) int {
	if op == il.LdcI4M1 {
		return -1
	}
	return int(op - il.LdcI40)
}

func argIndex(op il.Opcode, operand interface{}) int {
	switch op {
	case il.Ldarg0:
		return 0
	case il.Ldarg1:
		return 1
	case il.Ldarg2:
		return 2
	case il.Ldarg3:
		return 3
	default:
		if n, ok := operand.(int64); ok {
			return int(n)
		}
		return 0
	}
}

func locIndex(op il.Opcode, operand interface{}) int {
	switch op {
	case il.Ldloc0, il.Stloc0:
		return 0
	case il.Ldloc1, il.Stloc1:
		return 1
	case il.Ldloc2, il.Stloc2:
		return 2
	case il.Ldloc3, il.Stloc3:
		return 3
	default:
		if n, ok := operand.(int64); ok {
			return int(n)
		}
		return 0
	}
}
