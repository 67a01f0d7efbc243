package ir

import (
	"github.com/cil2cpp/aotc/internal/assembly"
	"github.com/cil2cpp/aotc/internal/il"
	"github.com/cil2cpp/aotc/internal/mangle"
)

// pass7Pool collects every string literal operand into the pool, assigning
// a stable ID by the mangled form of its content hash, and collects every
// RVA-backed static field into an array-init blob (spec.md Pass 7).
// Operand references are rewritten in place to the pool/blob ID so the
// code generator never touches raw tokens or RVAs again.
func (b *Builder) pass7Pool() {
	pool := mangle.NewPool()

	for _, mi := range b.orderedMethodIRs() {
		if mi.StubReason != nil {
			continue
		}
		owner := mi.Method.DeclaringType.Assembly
		for _, blk := range mi.Blocks {
			for _, inst := range blk.Instrs {
				if il.Opcode(inst.Op) != il.Ldstr {
					continue
				}
				token, ok := inst.Operand.(int64)
				if !ok {
					continue
				}
				units, err := owner.Root().USAt(uint32(token) & 0x00FFFFFF)
				if err != nil {
					continue
				}
				inst.Operand = pool.InternString(units)
			}
		}
	}

	for _, t := range sortedTypes(b.Reach.Types) {
		layout := b.layoutOf(t)
		if layout == nil {
			continue
		}
		for i := range layout.Fields {
			fl := &layout.Fields[i]
			if fl.Field.RVA == 0 {
				continue
			}
			size := rvaFieldSize(t.Assembly, fl.Type)
			if size == 0 {
				continue
			}
			data, err := t.Assembly.ReadRVA(fl.Field.RVA, size)
			if err != nil {
				continue
			}
			fl.BlobID = pool.InternBlob(data)
		}
	}

	for _, e := range pool.Strings() {
		b.Mod.Strings = append(b.Mod.Strings, &StringLiteral{ID: e.ID, Value: e.Value})
	}
	for _, e := range pool.Blobs() {
		b.Mod.Blobs = append(b.Mod.Blobs, &ArrayInitBlob{ID: e.ID, Data: e.Data})
	}
}

// rvaFieldSize looks up the explicit ClassLayout size of an RVA-backed
// field's value-type, the only way ECMA-335 records an array-init blob's
// length (compilers emit these as anonymous fixed-size value types under
// <PrivateImplementationDetails>). A field whose type carries no
// ClassLayout row has no derivable length and is skipped.
func rvaFieldSize(a *assembly.Assembly, t *SigType) uint32 {
	if t == nil || t.Kind != ElemValueType || t.Class == nil {
		return 0
	}
	for _, cl := range a.Tables().ClassLayout {
		if cl.Parent-1 == t.Class.Row && t.Class.Assembly == a {
			return cl.ClassSize
		}
	}
	return 0
}
