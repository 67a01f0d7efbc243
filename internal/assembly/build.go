package assembly

import (
	"fmt"

	"github.com/cil2cpp/aotc/internal/metadata"
)

const (
	typeDefTable   = metadata.TableTypeDef
	methodDefTable = metadata.TableMethodDef
)

// buildTypes materializes Type/Method/Field/GenericParam nodes from the
// assembly's decoded tables. It resolves everything a TypeDef row can
// answer without cross-assembly lookups (name, flags, member ranges,
// RVAs, PInvoke); Extends and InterfaceImpl targets are left as unresolved
// typeRefs for AssemblySet.ResolveTypeRef, since the base or interface may
// live in an assembly not yet open at this point in Open's resolution walk.
func (a *Assembly) buildTypes() error {
	t := a.tables
	nTypes := len(t.TypeDef)
	a.Types = make([]*Type, nTypes)

	fieldEnd := func(i int) uint32 {
		if i+1 < nTypes {
			return t.TypeDef[i+1].FieldList
		}
		return uint32(len(t.Field)) + 1
	}
	methodEnd := func(i int) uint32 {
		if i+1 < nTypes {
			return t.TypeDef[i+1].MethodList
		}
		return uint32(len(t.MethodDef)) + 1
	}
	paramEnd := func(j int) uint32 {
		if j+1 < len(t.MethodDef) {
			return t.MethodDef[j+1].ParamList
		}
		return uint32(len(t.Param)) + 1
	}

	for i, row := range t.TypeDef {
		name, err := a.root.StringAt(row.TypeName)
		if err != nil {
			return fmt.Errorf("TypeDef[%d] name: %w", i, err)
		}
		ns, err := a.root.StringAt(row.TypeNamespace)
		if err != nil {
			return fmt.Errorf("TypeDef[%d] namespace: %w", i, err)
		}

		ty := &Type{
			Assembly:     a,
			Row:          uint32(i),
			row:          row,
			Name:         name,
			Namespace:    ns,
			IsAbstract:   row.Flags&tdAbstract != 0,
			IsSealed:     row.Flags&tdSealed != 0,
			IsPublic:     row.Flags&tdVisibilityMask == tdPublic || row.Flags&tdVisibilityMask == tdNestedPublic,
			ExtendsTable: row.ExtendsTable,
			ExtendsRow:   row.ExtendsRow,
			HasBase:      !(row.ExtendsTable == 0 && row.ExtendsRow == 0),
		}
		if row.Flags&tdInterface != 0 {
			ty.Kind = KindInterface
		}
		a.Types[i] = ty

		for fi := row.FieldList; fi < fieldEnd(i); fi++ {
			frow := t.Field[fi-1]
			fname, err := a.root.StringAt(frow.Name)
			if err != nil {
				return fmt.Errorf("Field[%d] name: %w", fi, err)
			}
			f := &Field{
				DeclaringType: ty,
				Row:           fi - 1,
				Name:          fname,
				IsStatic:      frow.Flags&fdStatic != 0,
				IsLiteral:     frow.Flags&fdLiteral != 0,
				SignatureBlob: frow.Signature,
			}
			ty.Fields = append(ty.Fields, f)
		}

		for mi := row.MethodList; mi < methodEnd(i); mi++ {
			mrow := t.MethodDef[mi-1]
			mname, err := a.root.StringAt(mrow.Name)
			if err != nil {
				return fmt.Errorf("MethodDef[%d] name: %w", mi, err)
			}
			m := &Method{
				DeclaringType:  ty,
				Row:            mi - 1,
				Name:           mname,
				RVA:            mrow.RVA,
				IsStatic:       mrow.Flags&mdStatic != 0,
				IsVirtual:      mrow.Flags&mdVirtual != 0,
				IsAbstract:     mrow.Flags&mdAbstract != 0,
				IsSpecialName:  mrow.Flags&mdSpecialName != 0,
				IsInternalCall: mrow.ImplFlags&miInternalCall != 0,
				IsPInvoke:      mrow.Flags&mdPinvokeImpl != 0,
				SignatureBlob:  mrow.Signature,
			}
			for pi := mrow.ParamList; pi < paramEnd(int(mi-1)); pi++ {
				prow := t.Param[pi-1]
				pname, err := a.root.StringAt(prow.Name)
				if err != nil {
					return fmt.Errorf("Param[%d] name: %w", pi, err)
				}
				m.Params = append(m.Params, &Param{Sequence: prow.Sequence, Name: pname})
			}
			ty.Methods = append(ty.Methods, m)
		}
	}

	// GenericParam/InterfaceImpl/FieldRVA/ImplMap are keyed by coded or
	// simple indices into TypeDef/MethodDef/Field, not owned ranges, so a
	// second pass attaches them once every Type/Method/Field exists.
	a.attachGenericParams()
	a.attachInterfaceImpls()
	a.attachFieldRVAs()
	a.attachImplMaps()
	a.buildNestedIndex()

	return nil
}

func (a *Assembly) attachGenericParams() {
	t := a.tables
	for _, gp := range t.GenericParam {
		name, err := a.root.StringAt(gp.Name)
		if err != nil {
			continue
		}
		p := &GenericParam{Number: gp.Number, Name: name}
		switch gp.OwnerTable {
		case typeDefTable:
			if int(gp.OwnerRow-1) < len(a.Types) {
				ty := a.Types[gp.OwnerRow-1]
				ty.GenericParams = append(ty.GenericParams, p)
			}
		case methodDefTable:
			if m := a.MethodByRow(gp.OwnerRow - 1); m != nil {
				m.GenericParams = append(m.GenericParams, p)
			}
		}
	}
}

func (a *Assembly) attachInterfaceImpls() {
	for _, ii := range a.tables.InterfaceImpl {
		if int(ii.Class-1) >= len(a.Types) {
			continue
		}
		ty := a.Types[ii.Class-1]
		ty.Interfaces = append(ty.Interfaces, typeRef{Table: ii.InterfaceTable, Row: ii.InterfaceRow})
	}
}

func (a *Assembly) attachFieldRVAs() {
	for _, fr := range a.tables.FieldRVA {
		if f := a.FieldByRow(fr.Field - 1); f != nil {
			f.RVA = fr.RVA
		}
	}
}

func (a *Assembly) attachImplMaps() {
	for _, im := range a.tables.ImplMap {
		if im.MemberForwardedTable != methodDefTable {
			continue
		}
		m := a.MethodByRow(im.MemberForwardedRow - 1)
		if m == nil {
			continue
		}
		name, err := a.root.StringAt(im.ImportName)
		if err == nil {
			m.PInvokeEntry = name
		}
		if int(im.ImportScope-1) < len(a.tables.ModuleRef) {
			modName, err := a.root.StringAt(a.tables.ModuleRef[im.ImportScope-1].Name)
			if err == nil {
				m.PInvokeModule = modName
			}
		}
	}
}

// MethodByRow finds the Method wrapping MethodDef row (0-based). Types own
// contiguous method ranges, so this is a linear scan over types; it is
// called once per ImplMap/GenericParam row while building, and once per
// method-token operand while scanning a method body during
// ReachabilityAnalyzer, neither of which is hot enough to need an index.
func (a *Assembly) MethodByRow(row uint32) *Method {
	for _, ty := range a.Types {
		for _, m := range ty.Methods {
			if m.Row == row {
				return m
			}
		}
	}
	return nil
}

// FieldByRow finds the Field wrapping Field row (0-based); see MethodByRow.
func (a *Assembly) FieldByRow(row uint32) *Field {
	for _, ty := range a.Types {
		for _, f := range ty.Fields {
			if f.Row == row {
				return f
			}
		}
	}
	return nil
}
