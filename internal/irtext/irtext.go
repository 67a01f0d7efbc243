// Package irtext renders a finished internal/ir.Module as human-readable
// text, one line per instruction, independent of the C++ code generator —
// for --emit-ir-text debugging and for the golden tests to assert against.
// Grounded on tinyrange-rtg/std/compiler/backend_ir.go's generateIRText/
// opcodeName, generalized from the self-hosted Go subset's opcode space to
// ECMA-335's CIL instruction set.
package irtext

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cil2cpp/aotc/internal/il"
	"github.com/cil2cpp/aotc/internal/ir"
)

// Render produces the full textual dump of mod: a module summary, every
// type's layout, then every method's signature, locals, and instructions
// in deterministic (declaring-type, row) order, matching the determinism
// invariant the rest of the pipeline holds to.
func Render(mod *ir.Module) string {
	var b strings.Builder

	fmt.Fprintf(&b, "; IR module\n")
	fmt.Fprintf(&b, "; types: %d, methods: %d, strings: %d, blobs: %d\n\n",
		len(mod.Types), len(mod.Methods), len(mod.Strings), len(mod.Blobs))

	types := append([]*ir.TypeLayout(nil), mod.Types...)
	sort.Slice(types, func(i, j int) bool { return typeKey(types[i]) < typeKey(types[j]) })
	if len(types) > 0 {
		b.WriteString("; === Types ===\n")
		for _, t := range types {
			fmt.Fprintf(&b, "type %s size=%d align=%d refs=%d\n",
				quote(t.Type.FullName), t.Size, t.Align, len(t.RefOffsets))
			for _, fl := range sortedFields(t.Fields) {
				kind := "field"
				if fl.Field.IsStatic {
					kind = "static"
				}
				fmt.Fprintf(&b, "  %s %s : %s offset=%d\n", kind, fl.Field.Name, formatSigType(fl.Type), fl.Offset)
			}
		}
		b.WriteByte('\n')
	}

	methods := append([]*ir.MethodIR(nil), mod.Methods...)
	sort.Slice(methods, func(i, j int) bool { return methodKey(methods[i]) < methodKey(methods[j]) })
	if len(methods) > 0 {
		b.WriteString("; === Functions ===\n")
		for _, mi := range methods {
			renderFunc(&b, mi)
		}
	}

	return b.String()
}

func renderFunc(b *strings.Builder, mi *ir.MethodIR) {
	fmt.Fprintf(b, "func %s.%s (params=%d, locals=%d) : %s\n",
		mi.Method.DeclaringType.FullName, mi.Method.Name, len(mi.Params), len(mi.Locals), formatSigType(mi.Ret))

	for i, p := range mi.Params {
		fmt.Fprintf(b, "  param %d %s : %s\n", i, quote(p.Name), formatSigType(p.Type))
	}
	for i, lt := range mi.Locals {
		fmt.Fprintf(b, "  local %d : %s\n", i, formatSigType(lt))
	}

	if mi.StubReason != nil {
		fmt.Fprintf(b, "  ; stub: %s (%s)\n", mi.StubReason.Kind, mi.StubReason.Detail)
		b.WriteString("end\n\n")
		return
	}
	if mi.Blocks == nil {
		b.WriteString("  ; declared only\n")
		b.WriteString("end\n\n")
		return
	}

	for _, blk := range mi.Blocks {
		fmt.Fprintf(b, "  L%d:\n", blk.Start)
		for _, inst := range blk.Instrs {
			fmt.Fprintf(b, "    %04d: %s%s\n", inst.Offset, opcodeName(il.Opcode(inst.Op)), instArgs(inst))
		}
	}
	b.WriteString("end\n\n")
}

func instArgs(inst *ir.Instruction) string {
	var parts []string
	if inst.Operand != nil {
		parts = append(parts, fmt.Sprintf("%v", inst.Operand))
	}
	if len(inst.Branches) > 0 {
		targets := make([]string, len(inst.Branches))
		for i, t := range inst.Branches {
			targets[i] = fmt.Sprintf("L%d", t)
		}
		parts = append(parts, strings.Join(targets, ","))
	}
	if inst.Result != nil {
		parts = append(parts, "-> "+formatSigType(inst.Result))
	}
	if len(parts) == 0 {
		return ""
	}
	return " " + strings.Join(parts, " ")
}

func typeKey(t *ir.TypeLayout) string {
	return fmt.Sprintf("%s\x00%08d", t.Type.Assembly.CanonicalName, t.Type.Row)
}

func methodKey(m *ir.MethodIR) string {
	return fmt.Sprintf("%s\x00%08d\x00%08d", m.Method.DeclaringType.Assembly.CanonicalName, m.Method.DeclaringType.Row, m.Method.Row)
}

func sortedFields(fields []ir.FieldLayout) []ir.FieldLayout {
	out := append([]ir.FieldLayout(nil), fields...)
	sort.Slice(out, func(i, j int) bool { return out[i].Offset < out[j].Offset })
	return out
}

func formatSigType(t *ir.SigType) string {
	if t == nil {
		return "void"
	}
	return t.String()
}

func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// opcodeName renders op's CIL mnemonic in lowercase, falling back to a
// numeric placeholder for any opcode this dump has not named explicitly —
// never a hard error, since a text dump must never be less total than the
// code generator it is meant to help debug.
func opcodeName(op il.Opcode) string {
	switch op {
	case il.Nop:
		return "nop"
	case il.Break:
		return "break"
	case il.Ldarg0, il.Ldarg1, il.Ldarg2, il.Ldarg3, il.LdargS, il.LdargOp:
		return "ldarg"
	case il.LdargaS, il.LdargaOp:
		return "ldarga"
	case il.StargS, il.StargOp:
		return "starg"
	case il.Ldloc0, il.Ldloc1, il.Ldloc2, il.Ldloc3, il.LdlocS, il.LdlocOp:
		return "ldloc"
	case il.LdlocaS, il.LdlocaOp:
		return "ldloca"
	case il.Stloc0, il.Stloc1, il.Stloc2, il.Stloc3, il.StlocS, il.StlocOp:
		return "stloc"
	case il.LdnullOp:
		return "ldnull"
	case il.LdcI4M1, il.LdcI40, il.LdcI41, il.LdcI42, il.LdcI43, il.LdcI44, il.LdcI45, il.LdcI46, il.LdcI47, il.LdcI48, il.LdcI4S, il.LdcI4:
		return "ldc.i4"
	case il.LdcI8:
		return "ldc.i8"
	case il.LdcR4:
		return "ldc.r4"
	case il.LdcR8:
		return "ldc.r8"
	case il.Dup:
		return "dup"
	case il.Pop:
		return "pop"
	case il.Jmp:
		return "jmp"
	case il.Call:
		return "call"
	case il.Calli:
		return "calli"
	case il.Callvirt:
		return "callvirt"
	case il.Ret:
		return "ret"
	case il.Br, il.BrS:
		return "br"
	case il.Brfalse, il.BrfalseS:
		return "brfalse"
	case il.Brtrue, il.BrtrueS:
		return "brtrue"
	case il.Beq, il.BeqS:
		return "beq"
	case il.Bge, il.BgeS, il.BgeUn, il.BgeUnS:
		return "bge"
	case il.Bgt, il.BgtS, il.BgtUn, il.BgtUnS:
		return "bgt"
	case il.Ble, il.BleS, il.BleUn, il.BleUnS:
		return "ble"
	case il.Blt, il.BltS, il.BltUn, il.BltUnS:
		return "blt"
	case il.BneUn, il.BneUnS:
		return "bne.un"
	case il.Switch:
		return "switch"
	case il.Add:
		return "add"
	case il.AddOvf, il.AddOvfUn:
		return "add.ovf"
	case il.Sub:
		return "sub"
	case il.SubOvf, il.SubOvfUn:
		return "sub.ovf"
	case il.Mul:
		return "mul"
	case il.MulOvf, il.MulOvfUn:
		return "mul.ovf"
	case il.Div:
		return "div"
	case il.DivUn:
		return "div.un"
	case il.Rem:
		return "rem"
	case il.RemUn:
		return "rem.un"
	case il.And:
		return "and"
	case il.Or:
		return "or"
	case il.Xor:
		return "xor"
	case il.Shl:
		return "shl"
	case il.Shr:
		return "shr"
	case il.ShrUn:
		return "shr.un"
	case il.Neg:
		return "neg"
	case il.Not:
		return "not"
	case il.Ceq:
		return "ceq"
	case il.Cgt:
		return "cgt"
	case il.CgtUn:
		return "cgt.un"
	case il.Clt:
		return "clt"
	case il.CltUn:
		return "clt.un"
	case il.Ldfld:
		return "ldfld"
	case il.Ldflda:
		return "ldflda"
	case il.Stfld:
		return "stfld"
	case il.Ldsfld:
		return "ldsfld"
	case il.Ldsflda:
		return "ldsflda"
	case il.Stsfld:
		return "stsfld"
	case il.Ldstr:
		return "ldstr"
	case il.Newobj:
		return "newobj"
	case il.Newarr:
		return "newarr"
	case il.Ldlen:
		return "ldlen"
	case il.Castclass:
		return "castclass"
	case il.Isinst:
		return "isinst"
	case il.Box:
		return "box"
	case il.Unbox:
		return "unbox"
	case il.UnboxAny:
		return "unbox.any"
	case il.Throw:
		return "throw"
	case il.Rethrow:
		return "rethrow"
	case il.Leave, il.LeaveS:
		return "leave"
	case il.Endfinally:
		return "endfinally"
	case il.Endfilter:
		return "endfilter"
	case il.Ldtoken:
		return "ldtoken"
	case il.Ldftn:
		return "ldftn"
	case il.Ldvirtftn:
		return "ldvirtftn"
	case il.Initobj:
		return "initobj"
	case il.Constrained:
		return "constrained."
	case il.Sizeof:
		return "sizeof"
	default:
		return fmt.Sprintf("op_%d", int(op))
	}
}
