package ir

import (
	"fmt"
	"sort"

	"github.com/cil2cpp/aotc/internal/assembly"
)

// pass5VTables assigns virtual dispatch slots for every reachable type and
// the per-interface dispatch tables for every implementing type (spec.md
// Pass 5), grounded on backend.go's dispatchEntry/CallFixup pattern:
// a type's v-table is its base's v-table with new virtual methods
// appended and overridden slots replaced in place, the same
// data-plus-fixup shape backend.go uses for native call-site patching,
// adapted here to slot indices rather than byte offsets.
func (b *Builder) pass5VTables() error {
	for _, t := range sortedTypes(b.Reach.Types) {
		if t.Kind == KindInterface {
			continue
		}
		vt, err := b.vtableFor(t, map[*assembly.Type]bool{})
		if err != nil {
			return fmt.Errorf("vtable %s: %w", t.FullName, err)
		}
		b.Mod.VTables = append(b.Mod.VTables, vt)

		for _, slot := range vt.Slots {
			if mi := b.methodOf(slot.Method); mi != nil {
				mi.VTableSlot = slot.Index
			}
		}

		ifaces, err := b.Set.ResolveInterfaces(t)
		if err == nil {
			for _, iface := range ifaces {
				b.Mod.InterfaceTables = append(b.Mod.InterfaceTables, b.interfaceTableFor(t, iface))
			}
		}
	}
	return nil
}

func (b *Builder) vtableFor(t *assembly.Type, visiting map[*assembly.Type]bool) (*VTable, error) {
	if b.vtableCache == nil {
		b.vtableCache = map[*assembly.Type]*VTable{}
	}
	if vt, ok := b.vtableCache[t]; ok {
		return vt, nil
	}
	if visiting[t] {
		return nil, fmt.Errorf("inheritance cycle at %s", t.FullName)
	}
	visiting[t] = true
	defer delete(visiting, t)

	var slots []VTableSlot
	if t.HasBase {
		base, err := b.Set.ResolveTypeRef(t.Assembly, t.ExtendsTable, t.ExtendsRow)
		if err == nil && base != nil {
			baseVT, err := b.vtableFor(base, visiting)
			if err == nil {
				slots = append(slots, baseVT.Slots...)
			}
		}
	}

	for _, m := range sortedVirtualMethods(t) {
		overrideIdx := -1
		for i, s := range slots {
			if s.Method.Name == m.Name && len(s.Method.Params) == len(m.Params) {
				overrideIdx = i
				break
			}
		}
		if overrideIdx >= 0 {
			slots[overrideIdx].Method = m
		} else {
			slots = append(slots, VTableSlot{Index: len(slots), Method: m})
		}
	}

	vt := &VTable{Type: t, Slots: slots}
	b.vtableCache[t] = vt
	return vt, nil
}

func sortedVirtualMethods(t *assembly.Type) []*assembly.Method {
	var out []*assembly.Method
	for _, m := range t.Methods {
		if m.IsVirtual {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Row < out[j].Row })
	return out
}

// interfaceTableFor builds iface's dispatch table as implemented by t: one
// slot per interface method, pointing at whichever of t's methods (by name
// and arity) implements it.
func (b *Builder) interfaceTableFor(t, iface *assembly.Type) *InterfaceTable {
	it := &InterfaceTable{Type: t, Interface: iface}
	for i, im := range sortMethodsByRow(iface.Methods) {
		impl, err := b.Set.LookupMethod(t, im.Name, len(im.Params))
		if err != nil {
			continue
		}
		it.Slots = append(it.Slots, VTableSlot{Index: i, Method: impl})
	}
	return it
}

func sortMethodsByRow(ms []*assembly.Method) []*assembly.Method {
	out := append([]*assembly.Method(nil), ms...)
	sort.Slice(out, func(i, j int) bool { return out[i].Row < out[j].Row })
	return out
}
