package il

import (
	"encoding/binary"
	"fmt"
	"math"
)

type opInfo struct {
	op      Opcode
	operand OperandKind
}

// singleByteOps maps a single-byte CIL opcode (ECMA-335 III.1 Table of all
// opcodes, excluding the 0xFE two-byte family) to its Opcode and operand
// shape.
var singleByteOps = map[byte]opInfo{
	0x00: {Nop, OperandNone},
	0x01: {Break, OperandNone},
	0x02: {Ldarg0, OperandNone},
	0x03: {Ldarg1, OperandNone},
	0x04: {Ldarg2, OperandNone},
	0x05: {Ldarg3, OperandNone},
	0x06: {Ldloc0, OperandNone},
	0x07: {Ldloc1, OperandNone},
	0x08: {Ldloc2, OperandNone},
	0x09: {Ldloc3, OperandNone},
	0x0A: {Stloc0, OperandNone},
	0x0B: {Stloc1, OperandNone},
	0x0C: {Stloc2, OperandNone},
	0x0D: {Stloc3, OperandNone},
	0x0E: {LdargS, OperandVarIdx1},
	0x0F: {LdargaS, OperandVarIdx1},
	0x10: {StargS, OperandVarIdx1},
	0x11: {LdlocS, OperandVarIdx1},
	0x12: {LdlocaS, OperandVarIdx1},
	0x13: {StlocS, OperandVarIdx1},
	0x14: {LdnullOp, OperandNone},
	0x15: {LdcI4M1, OperandNone},
	0x16: {LdcI40, OperandNone},
	0x17: {LdcI41, OperandNone},
	0x18: {LdcI42, OperandNone},
	0x19: {LdcI43, OperandNone},
	0x1A: {LdcI44, OperandNone},
	0x1B: {LdcI45, OperandNone},
	0x1C: {LdcI46, OperandNone},
	0x1D: {LdcI47, OperandNone},
	0x1E: {LdcI48, OperandNone},
	0x1F: {LdcI4S, OperandI1},
	0x20: {LdcI4, OperandI4},
	0x21: {LdcI8, OperandI8},
	0x22: {LdcR4, OperandR4},
	0x23: {LdcR8, OperandR8},
	0x25: {Dup, OperandNone},
	0x26: {Pop, OperandNone},
	0x27: {Jmp, OperandToken},
	0x28: {Call, OperandToken},
	0x29: {Calli, OperandToken},
	0x2A: {Ret, OperandNone},
	0x2B: {BrS, OperandBrTarget1},
	0x2C: {BrfalseS, OperandBrTarget1},
	0x2D: {BrtrueS, OperandBrTarget1},
	0x2E: {BeqS, OperandBrTarget1},
	0x2F: {BgeS, OperandBrTarget1},
	0x30: {BgtS, OperandBrTarget1},
	0x31: {BleS, OperandBrTarget1},
	0x32: {BltS, OperandBrTarget1},
	0x33: {BneUnS, OperandBrTarget1},
	0x34: {BgeUnS, OperandBrTarget1},
	0x35: {BgtUnS, OperandBrTarget1},
	0x36: {BleUnS, OperandBrTarget1},
	0x37: {BltUnS, OperandBrTarget1},
	0x38: {Br, OperandBrTarget4},
	0x39: {Brfalse, OperandBrTarget4},
	0x3A: {Brtrue, OperandBrTarget4},
	0x3B: {Beq, OperandBrTarget4},
	0x3C: {Bge, OperandBrTarget4},
	0x3D: {Bgt, OperandBrTarget4},
	0x3E: {Ble, OperandBrTarget4},
	0x3F: {Blt, OperandBrTarget4},
	0x40: {BneUn, OperandBrTarget4},
	0x41: {BgeUn, OperandBrTarget4},
	0x42: {BgtUn, OperandBrTarget4},
	0x43: {BleUn, OperandBrTarget4},
	0x44: {BltUn, OperandBrTarget4},
	0x45: {Switch, OperandSwitch},
	0x46: {LdindI1, OperandNone},
	0x47: {LdindU1, OperandNone},
	0x48: {LdindI2, OperandNone},
	0x49: {LdindU2, OperandNone},
	0x4A: {LdindI4, OperandNone},
	0x4B: {LdindU4, OperandNone},
	0x4C: {LdindI8, OperandNone},
	0x4D: {LdindI, OperandNone},
	0x4E: {LdindR4, OperandNone},
	0x4F: {LdindR8, OperandNone},
	0x50: {LdindRef, OperandNone},
	0x51: {StindRef, OperandNone},
	0x52: {StindI1, OperandNone},
	0x53: {StindI2, OperandNone},
	0x54: {StindI4, OperandNone},
	0x55: {StindI8, OperandNone},
	0x56: {StindR4, OperandNone},
	0x57: {StindR8, OperandNone},
	0x58: {Add, OperandNone},
	0x59: {Sub, OperandNone},
	0x5A: {Mul, OperandNone},
	0x5B: {Div, OperandNone},
	0x5C: {DivUn, OperandNone},
	0x5D: {Rem, OperandNone},
	0x5E: {RemUn, OperandNone},
	0x5F: {And, OperandNone},
	0x60: {Or, OperandNone},
	0x61: {Xor, OperandNone},
	0x62: {Shl, OperandNone},
	0x63: {Shr, OperandNone},
	0x64: {ShrUn, OperandNone},
	0x65: {Neg, OperandNone},
	0x66: {Not, OperandNone},
	0x67: {ConvI1, OperandNone},
	0x68: {ConvI2, OperandNone},
	0x69: {ConvI4, OperandNone},
	0x6A: {ConvI8, OperandNone},
	0x6B: {ConvR4, OperandNone},
	0x6C: {ConvR8, OperandNone},
	0x6D: {ConvU4, OperandNone},
	0x6E: {ConvU8, OperandNone},
	0x6F: {Callvirt, OperandToken},
	0x70: {Cpobj, OperandToken},
	0x71: {Ldobj, OperandToken},
	0x72: {Ldstr, OperandToken},
	0x73: {Newobj, OperandToken},
	0x74: {Castclass, OperandToken},
	0x75: {Isinst, OperandToken},
	0x76: {ConvRUn, OperandNone},
	0x79: {Unbox, OperandToken},
	0x7A: {Throw, OperandNone},
	0x7B: {Ldfld, OperandToken},
	0x7C: {Ldflda, OperandToken},
	0x7D: {Stfld, OperandToken},
	0x7E: {Ldsfld, OperandToken},
	0x7F: {Ldsflda, OperandToken},
	0x80: {Stsfld, OperandToken},
	0x81: {Stobj, OperandToken},
	0x82: {ConvOvfI1Un, OperandNone},
	0x83: {ConvOvfI2Un, OperandNone},
	0x84: {ConvOvfI4Un, OperandNone},
	0x85: {ConvOvfI8Un, OperandNone},
	0x86: {ConvOvfU1Un, OperandNone},
	0x87: {ConvOvfU2Un, OperandNone},
	0x88: {ConvOvfU4Un, OperandNone},
	0x89: {ConvOvfU8Un, OperandNone},
	0x8A: {ConvOvfIUn, OperandNone},
	0x8B: {ConvOvfUUn, OperandNone},
	0x8C: {Box, OperandToken},
	0x8D: {Newarr, OperandToken},
	0x8E: {Ldlen, OperandNone},
	0x8F: {Ldelema, OperandToken},
	0x90: {LdelemI1, OperandNone},
	0x91: {LdelemU1, OperandNone},
	0x92: {LdelemI2, OperandNone},
	0x93: {LdelemU2, OperandNone},
	0x94: {LdelemI4, OperandNone},
	0x95: {LdelemU4, OperandNone},
	0x96: {LdelemI8, OperandNone},
	0x97: {LdelemI, OperandNone},
	0x98: {LdelemR4, OperandNone},
	0x99: {LdelemR8, OperandNone},
	0x9A: {LdelemRef, OperandNone},
	0x9B: {StelemI, OperandNone},
	0x9C: {StelemI1, OperandNone},
	0x9D: {StelemI2, OperandNone},
	0x9E: {StelemI4, OperandNone},
	0x9F: {StelemI8, OperandNone},
	0xA0: {StelemR4, OperandNone},
	0xA1: {StelemR8, OperandNone},
	0xA2: {StelemRef, OperandNone},
	0xA3: {Ldelem, OperandToken},
	0xA4: {Stelem, OperandToken},
	0xA5: {UnboxAny, OperandToken},
	0xB3: {ConvOvfI1, OperandNone},
	0xB4: {ConvOvfU1, OperandNone},
	0xB5: {ConvOvfI2, OperandNone},
	0xB6: {ConvOvfU2, OperandNone},
	0xB7: {ConvOvfI4, OperandNone},
	0xB8: {ConvOvfU4, OperandNone},
	0xB9: {ConvOvfI8, OperandNone},
	0xBA: {ConvOvfU8, OperandNone},
	0xC2: {Refanyval, OperandToken},
	0xC3: {Ckfinite, OperandNone},
	0xC6: {Mkrefany, OperandToken},
	0xD0: {Ldtoken, OperandToken},
	0xD1: {ConvU2, OperandNone},
	0xD2: {ConvU1, OperandNone},
	0xD3: {ConvI, OperandNone},
	0xD4: {ConvOvfI, OperandNone},
	0xD5: {ConvOvfU, OperandNone},
	0xD6: {AddOvf, OperandNone},
	0xD7: {AddOvfUn, OperandNone},
	0xD8: {MulOvf, OperandNone},
	0xD9: {MulOvfUn, OperandNone},
	0xDA: {SubOvf, OperandNone},
	0xDB: {SubOvfUn, OperandNone},
	0xDC: {Endfinally, OperandNone},
	0xDD: {Leave, OperandBrTarget4},
	0xDE: {LeaveS, OperandBrTarget1},
	0xDF: {StindI, OperandNone},
	0xE0: {ConvU, OperandNone},
}

// twoByteOps maps the second byte of a 0xFE-prefixed opcode.
var twoByteOps = map[byte]opInfo{
	0x00: {Arglist, OperandNone},
	0x01: {Ceq, OperandNone},
	0x02: {Cgt, OperandNone},
	0x03: {CgtUn, OperandNone},
	0x04: {Clt, OperandNone},
	0x05: {CltUn, OperandNone},
	0x06: {Ldftn, OperandToken},
	0x07: {Ldvirtftn, OperandToken},
	0x09: {LdargOp, OperandVarIdx2},
	0x0A: {LdargaOp, OperandVarIdx2},
	0x0B: {StargOp, OperandVarIdx2},
	0x0C: {LdlocOp, OperandVarIdx2},
	0x0D: {LdlocaOp, OperandVarIdx2},
	0x0E: {StlocOp, OperandVarIdx2},
	0x0F: {Localloc, OperandNone},
	0x11: {Endfilter, OperandNone},
	0x12: {Unaligned, OperandI1},
	0x13: {Volatile, OperandNone},
	0x14: {Tail, OperandNone},
	0x15: {Initobj, OperandToken},
	0x16: {Constrained, OperandToken},
	0x17: {Cpblk, OperandNone},
	0x18: {Initblk, OperandNone},
	0x1A: {Rethrow, OperandNone},
	0x1C: {Sizeof, OperandToken},
	0x1D: {Refanytype, OperandNone},
}

// Decode parses a method body's IL byte stream (the part following the tiny
// or fat method header, i.e. just the instructions — header parsing lives
// in internal/assembly alongside RVA resolution) into a flat instruction
// list. Branch targets and switch case targets are resolved to absolute
// byte offsets within body immediately, since basic-block construction
// (internal/ir Pass 3) needs them as offsets, not signed deltas.
func Decode(body []byte) ([]Instruction, error) {
	var out []Instruction
	off := 0
	for off < len(body) {
		start := off
		b := body[off]
		off++
		var info opInfo
		var ok bool
		if b == 0xFE {
			if off >= len(body) {
				return nil, fmt.Errorf("il: truncated two-byte opcode at %d", start)
			}
			b2 := body[off]
			off++
			info, ok = twoByteOps[b2]
			if !ok {
				return nil, fmt.Errorf("il: unknown two-byte opcode 0xFE%02X at %d", b2, start)
			}
		} else {
			info, ok = singleByteOps[b]
			if !ok {
				return nil, fmt.Errorf("il: unknown opcode 0x%02X at %d", b, start)
			}
		}

		inst := Instruction{Offset: start, Op: info.op}
		switch info.operand {
		case OperandNone:
		case OperandI1:
			if off+1 > len(body) {
				return nil, fmt.Errorf("il: truncated i1 operand at %d", start)
			}
			inst.I64 = int64(int8(body[off]))
			off++
		case OperandVarIdx1:
			if off+1 > len(body) {
				return nil, fmt.Errorf("il: truncated varidx1 operand at %d", start)
			}
			inst.I64 = int64(body[off])
			off++
		case OperandVarIdx2:
			if off+2 > len(body) {
				return nil, fmt.Errorf("il: truncated varidx2 operand at %d", start)
			}
			inst.I64 = int64(binary.LittleEndian.Uint16(body[off : off+2]))
			off += 2
		case OperandI4, OperandToken:
			if off+4 > len(body) {
				return nil, fmt.Errorf("il: truncated i4/token operand at %d", start)
			}
			inst.I64 = int64(int32(binary.LittleEndian.Uint32(body[off : off+4])))
			off += 4
		case OperandI8:
			if off+8 > len(body) {
				return nil, fmt.Errorf("il: truncated i8 operand at %d", start)
			}
			inst.I64 = int64(binary.LittleEndian.Uint64(body[off : off+8]))
			off += 8
		case OperandR4:
			if off+4 > len(body) {
				return nil, fmt.Errorf("il: truncated r4 operand at %d", start)
			}
			inst.F64 = float64(math.Float32frombits(binary.LittleEndian.Uint32(body[off : off+4])))
			off += 4
		case OperandR8:
			if off+8 > len(body) {
				return nil, fmt.Errorf("il: truncated r8 operand at %d", start)
			}
			inst.F64 = math.Float64frombits(binary.LittleEndian.Uint64(body[off : off+8]))
			off += 8
		case OperandBrTarget1:
			if off+1 > len(body) {
				return nil, fmt.Errorf("il: truncated brtarget1 operand at %d", start)
			}
			delta := int64(int8(body[off]))
			off++
			inst.Targets = []int{off + int(delta)}
		case OperandBrTarget4:
			if off+4 > len(body) {
				return nil, fmt.Errorf("il: truncated brtarget4 operand at %d", start)
			}
			delta := int64(int32(binary.LittleEndian.Uint32(body[off : off+4])))
			off += 4
			inst.Targets = []int{off + int(delta)}
		case OperandSwitch:
			if off+4 > len(body) {
				return nil, fmt.Errorf("il: truncated switch count at %d", start)
			}
			n := binary.LittleEndian.Uint32(body[off : off+4])
			off += 4
			baseOff := off + int(n)*4
			targets := make([]int, 0, n)
			for i := uint32(0); i < n; i++ {
				if off+4 > len(body) {
					return nil, fmt.Errorf("il: truncated switch target %d at %d", i, start)
				}
				delta := int64(int32(binary.LittleEndian.Uint32(body[off : off+4])))
				off += 4
				targets = append(targets, baseOff+int(delta))
			}
			inst.Targets = targets
		}
		out = append(out, inst)
	}
	return out, nil
}

// IsTerminator reports whether op ends a basic block (spec.md §3 "Basic
// block": "ending in a terminator (branch, conditional branch, switch,
// return, throw, leave)").
func IsTerminator(op Opcode) bool {
	switch op {
	case Ret, Throw, Rethrow, Br, BrS, Switch, Leave, LeaveS, Endfinally, Endfilter,
		Brfalse, BrfalseS, Brtrue, BrtrueS,
		Beq, BeqS, Bge, BgeS, Bgt, BgtS, Ble, BleS, Blt, BltS,
		BneUn, BneUnS, BgeUn, BgeUnS, BgtUn, BgtUnS, BleUn, BleUnS, BltUn, BltUnS:
		return true
	default:
		return false
	}
}

// IsConditionalBranch reports whether op can fall through as well as branch
// — the block successor set must include both the next instruction and the
// target for these.
func IsConditionalBranch(op Opcode) bool {
	switch op {
	case Brfalse, BrfalseS, Brtrue, BrtrueS,
		Beq, BeqS, Bge, BgeS, Bgt, BgtS, Ble, BleS, Blt, BltS,
		BneUn, BneUnS, BgeUn, BgeUnS, BgtUn, BgtUnS, BleUn, BleUnS, BltUn, BltUnS,
		Switch:
		return true
	default:
		return false
	}
}
