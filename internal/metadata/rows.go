package metadata

// Row structs mirror the ECMA-335 II.22 table layouts for the subset of
// tables AssemblySet needs (SPEC_FULL.md §4.1). String/GUID/Blob fields hold
// heap offsets, resolved lazily through Root.StringAt/BlobAt/USAt by the
// caller rather than eagerly, since most rows are never visited outside
// their declaring type's reachable closure.

type ModuleRow struct {
	Generation uint16
	Name       uint32
	Mvid       uint32
	EncID      uint32
	EncBaseID  uint32
}

type TypeRefRow struct {
	ResolutionScopeTable TableIndex
	ResolutionScopeRow   uint32
	TypeName             uint32
	TypeNamespace        uint32
}

type TypeDefRow struct {
	Flags         uint32
	TypeName      uint32
	TypeNamespace uint32
	ExtendsTable  TableIndex
	ExtendsRow    uint32
	FieldList     uint32
	MethodList    uint32
}

type FieldRow struct {
	Flags     uint16
	Name      uint32
	Signature uint32
}

type MethodDefRow struct {
	RVA       uint32
	ImplFlags uint16
	Flags     uint16
	Name      uint32
	Signature uint32
	ParamList uint32
}

type ParamRow struct {
	Flags    uint16
	Sequence uint16
	Name     uint32
}

type InterfaceImplRow struct {
	Class           uint32
	InterfaceTable  TableIndex
	InterfaceRow    uint32
}

type MemberRefRow struct {
	ClassTable TableIndex
	ClassRow   uint32
	Name       uint32
	Signature  uint32
}

type ConstantRow struct {
	Type       uint16
	ParentTable TableIndex
	ParentRow   uint32
	Value       uint32
}

type ClassLayoutRow struct {
	PackingSize uint16
	ClassSize   uint32
	Parent      uint32
}

type FieldLayoutRow struct {
	Offset uint32
	Field  uint32
}

type FieldRVARow struct {
	RVA   uint32
	Field uint32
}

type NestedClassRow struct {
	NestedClass    uint32
	EnclosingClass uint32
}

// StandAloneSigRow is a locals or calli-site signature blob not attached to
// any method, field, or member (II.22.36) — the only shape Pass 2/3 resolve
// it for here is a method body's LocalVarSig.
type StandAloneSigRow struct {
	Signature uint32
}

type GenericParamRow struct {
	Number     uint16
	Flags      uint16
	OwnerTable TableIndex
	OwnerRow   uint32
	Name       uint32
}

type MethodSpecRow struct {
	MethodTable   TableIndex
	MethodRow     uint32
	Instantiation uint32
}

type GenericParamConstraintRow struct {
	Owner           uint32
	ConstraintTable TableIndex
	ConstraintRow   uint32
}

type ModuleRefRow struct {
	Name uint32
}

type TypeSpecRow struct {
	Signature uint32
}

func decodeTypeSpecRow(d *tableDecoder) (TypeSpecRow, error) {
	var r TypeSpecRow
	var err error
	if r.Signature, err = d.index(colBlobIdx); err != nil {
		return r, err
	}
	return r, nil
}

type ImplMapRow struct {
	MappingFlags         uint16
	MemberForwardedTable TableIndex
	MemberForwardedRow   uint32
	ImportName           uint32
	ImportScope          uint32
}

type AssemblyRow struct {
	HashAlgID      uint32
	MajorVersion   uint16
	MinorVersion   uint16
	BuildNumber    uint16
	RevisionNumber uint16
	Flags          uint32
	PublicKey      uint32
	Name           uint32
	Culture        uint32
}

type AssemblyRefRow struct {
	MajorVersion     uint16
	MinorVersion     uint16
	BuildNumber      uint16
	RevisionNumber   uint16
	Flags            uint32
	PublicKeyOrToken uint32
	Name             uint32
	Culture          uint32
	HashValue        uint32
}

func decodeModuleRow(d *tableDecoder) (ModuleRow, error) {
	var r ModuleRow
	var err error
	if r.Generation, err = d.u16(); err != nil {
		return r, err
	}
	if r.Name, err = d.index(colStringIdx); err != nil {
		return r, err
	}
	if r.Mvid, err = d.index(colGUIDIdx); err != nil {
		return r, err
	}
	if r.EncID, err = d.index(colGUIDIdx); err != nil {
		return r, err
	}
	if r.EncBaseID, err = d.index(colGUIDIdx); err != nil {
		return r, err
	}
	return r, nil
}

func decodeTypeRefRow(d *tableDecoder) (TypeRefRow, error) {
	var r TypeRefRow
	var err error
	if r.ResolutionScopeTable, r.ResolutionScopeRow, err = d.codedIndex(codedResolutionScope); err != nil {
		return r, err
	}
	if r.TypeName, err = d.index(colStringIdx); err != nil {
		return r, err
	}
	if r.TypeNamespace, err = d.index(colStringIdx); err != nil {
		return r, err
	}
	return r, nil
}

func decodeTypeDefRow(d *tableDecoder) (TypeDefRow, error) {
	var r TypeDefRow
	var err error
	if r.Flags, err = d.u32(); err != nil {
		return r, err
	}
	if r.TypeName, err = d.index(colStringIdx); err != nil {
		return r, err
	}
	if r.TypeNamespace, err = d.index(colStringIdx); err != nil {
		return r, err
	}
	if r.ExtendsTable, r.ExtendsRow, err = d.codedIndex(codedTypeDefOrRef); err != nil {
		return r, err
	}
	if r.FieldList, err = d.simpleIndex(TableField); err != nil {
		return r, err
	}
	if r.MethodList, err = d.simpleIndex(TableMethodDef); err != nil {
		return r, err
	}
	return r, nil
}

func decodeFieldRow(d *tableDecoder) (FieldRow, error) {
	var r FieldRow
	var err error
	if r.Flags, err = d.u16(); err != nil {
		return r, err
	}
	if r.Name, err = d.index(colStringIdx); err != nil {
		return r, err
	}
	if r.Signature, err = d.index(colBlobIdx); err != nil {
		return r, err
	}
	return r, nil
}

func decodeMethodDefRow(d *tableDecoder) (MethodDefRow, error) {
	var r MethodDefRow
	var err error
	if r.RVA, err = d.u32(); err != nil {
		return r, err
	}
	if r.ImplFlags, err = d.u16(); err != nil {
		return r, err
	}
	if r.Flags, err = d.u16(); err != nil {
		return r, err
	}
	if r.Name, err = d.index(colStringIdx); err != nil {
		return r, err
	}
	if r.Signature, err = d.index(colBlobIdx); err != nil {
		return r, err
	}
	if r.ParamList, err = d.simpleIndex(TableParam); err != nil {
		return r, err
	}
	return r, nil
}

func decodeParamRow(d *tableDecoder) (ParamRow, error) {
	var r ParamRow
	var err error
	if r.Flags, err = d.u16(); err != nil {
		return r, err
	}
	if r.Sequence, err = d.u16(); err != nil {
		return r, err
	}
	if r.Name, err = d.index(colStringIdx); err != nil {
		return r, err
	}
	return r, nil
}

func decodeInterfaceImplRow(d *tableDecoder) (InterfaceImplRow, error) {
	var r InterfaceImplRow
	var err error
	if r.Class, err = d.simpleIndex(TableTypeDef); err != nil {
		return r, err
	}
	if r.InterfaceTable, r.InterfaceRow, err = d.codedIndex(codedTypeDefOrRef); err != nil {
		return r, err
	}
	return r, nil
}

func decodeMemberRefRow(d *tableDecoder) (MemberRefRow, error) {
	var r MemberRefRow
	var err error
	if r.ClassTable, r.ClassRow, err = d.codedIndex(codedMemberRefParent); err != nil {
		return r, err
	}
	if r.Name, err = d.index(colStringIdx); err != nil {
		return r, err
	}
	if r.Signature, err = d.index(colBlobIdx); err != nil {
		return r, err
	}
	return r, nil
}

func decodeConstantRow(d *tableDecoder) (ConstantRow, error) {
	var r ConstantRow
	var err error
	if r.Type, err = d.u16(); err != nil { // 1 byte type + 1 byte padding, read as u16
		return r, err
	}
	if r.ParentTable, r.ParentRow, err = d.codedIndex(codedHasConstant); err != nil {
		return r, err
	}
	if r.Value, err = d.index(colBlobIdx); err != nil {
		return r, err
	}
	return r, nil
}

func decodeClassLayoutRow(d *tableDecoder) (ClassLayoutRow, error) {
	var r ClassLayoutRow
	var err error
	if r.PackingSize, err = d.u16(); err != nil {
		return r, err
	}
	if r.ClassSize, err = d.u32(); err != nil {
		return r, err
	}
	if r.Parent, err = d.simpleIndex(TableTypeDef); err != nil {
		return r, err
	}
	return r, nil
}

func decodeStandAloneSigRow(d *tableDecoder) (StandAloneSigRow, error) {
	var r StandAloneSigRow
	var err error
	if r.Signature, err = d.index(colBlobIdx); err != nil {
		return r, err
	}
	return r, nil
}

func decodeFieldLayoutRow(d *tableDecoder) (FieldLayoutRow, error) {
	var r FieldLayoutRow
	var err error
	if r.Offset, err = d.u32(); err != nil {
		return r, err
	}
	if r.Field, err = d.simpleIndex(TableField); err != nil {
		return r, err
	}
	return r, nil
}

func decodeFieldRVARow(d *tableDecoder) (FieldRVARow, error) {
	var r FieldRVARow
	var err error
	if r.RVA, err = d.u32(); err != nil {
		return r, err
	}
	if r.Field, err = d.simpleIndex(TableField); err != nil {
		return r, err
	}
	return r, nil
}

func decodeNestedClassRow(d *tableDecoder) (NestedClassRow, error) {
	var r NestedClassRow
	var err error
	if r.NestedClass, err = d.simpleIndex(TableTypeDef); err != nil {
		return r, err
	}
	if r.EnclosingClass, err = d.simpleIndex(TableTypeDef); err != nil {
		return r, err
	}
	return r, nil
}

func decodeGenericParamRow(d *tableDecoder) (GenericParamRow, error) {
	var r GenericParamRow
	var err error
	if r.Number, err = d.u16(); err != nil {
		return r, err
	}
	if r.Flags, err = d.u16(); err != nil {
		return r, err
	}
	if r.OwnerTable, r.OwnerRow, err = d.codedIndex(codedTypeOrMethodDef); err != nil {
		return r, err
	}
	if r.Name, err = d.index(colStringIdx); err != nil {
		return r, err
	}
	return r, nil
}

func decodeMethodSpecRow(d *tableDecoder) (MethodSpecRow, error) {
	var r MethodSpecRow
	var err error
	if r.MethodTable, r.MethodRow, err = d.codedIndex(codedMethodDefOrRef); err != nil {
		return r, err
	}
	if r.Instantiation, err = d.index(colBlobIdx); err != nil {
		return r, err
	}
	return r, nil
}

func decodeGenericParamConstraintRow(d *tableDecoder) (GenericParamConstraintRow, error) {
	var r GenericParamConstraintRow
	var err error
	if r.Owner, err = d.simpleIndex(TableGenericParam); err != nil {
		return r, err
	}
	if r.ConstraintTable, r.ConstraintRow, err = d.codedIndex(codedTypeDefOrRef); err != nil {
		return r, err
	}
	return r, nil
}

func decodeModuleRefRow(d *tableDecoder) (ModuleRefRow, error) {
	var r ModuleRefRow
	var err error
	if r.Name, err = d.index(colStringIdx); err != nil {
		return r, err
	}
	return r, nil
}

func decodeImplMapRow(d *tableDecoder) (ImplMapRow, error) {
	var r ImplMapRow
	var err error
	if r.MappingFlags, err = d.u16(); err != nil {
		return r, err
	}
	if r.MemberForwardedTable, r.MemberForwardedRow, err = d.codedIndex(codedMemberForwarded); err != nil {
		return r, err
	}
	if r.ImportName, err = d.index(colStringIdx); err != nil {
		return r, err
	}
	if r.ImportScope, err = d.simpleIndex(TableModuleRef); err != nil {
		return r, err
	}
	return r, nil
}

func decodeAssemblyRow(d *tableDecoder) (AssemblyRow, error) {
	var r AssemblyRow
	var err error
	if r.HashAlgID, err = d.u32(); err != nil {
		return r, err
	}
	if r.MajorVersion, err = d.u16(); err != nil {
		return r, err
	}
	if r.MinorVersion, err = d.u16(); err != nil {
		return r, err
	}
	if r.BuildNumber, err = d.u16(); err != nil {
		return r, err
	}
	if r.RevisionNumber, err = d.u16(); err != nil {
		return r, err
	}
	if r.Flags, err = d.u32(); err != nil {
		return r, err
	}
	if r.PublicKey, err = d.index(colBlobIdx); err != nil {
		return r, err
	}
	if r.Name, err = d.index(colStringIdx); err != nil {
		return r, err
	}
	if r.Culture, err = d.index(colStringIdx); err != nil {
		return r, err
	}
	return r, nil
}

func decodeAssemblyRefRow(d *tableDecoder) (AssemblyRefRow, error) {
	var r AssemblyRefRow
	var err error
	if r.MajorVersion, err = d.u16(); err != nil {
		return r, err
	}
	if r.MinorVersion, err = d.u16(); err != nil {
		return r, err
	}
	if r.BuildNumber, err = d.u16(); err != nil {
		return r, err
	}
	if r.RevisionNumber, err = d.u16(); err != nil {
		return r, err
	}
	if r.Flags, err = d.u32(); err != nil {
		return r, err
	}
	if r.PublicKeyOrToken, err = d.index(colBlobIdx); err != nil {
		return r, err
	}
	if r.Name, err = d.index(colStringIdx); err != nil {
		return r, err
	}
	if r.Culture, err = d.index(colStringIdx); err != nil {
		return r, err
	}
	if r.HashValue, err = d.index(colBlobIdx); err != nil {
		return r, err
	}
	return r, nil
}
