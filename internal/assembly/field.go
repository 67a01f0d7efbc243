package assembly

// FieldAttributes bits this package inspects (ECMA-335 II.23.1.5).
const (
	fdStatic  = 0x0010
	fdLiteral = 0x0040
	fdHasRVA  = 0x0100
)

// Field is one Field row owned by a Type.
type Field struct {
	DeclaringType *Type
	Row           uint32
	Name          string
	IsStatic      bool
	IsLiteral     bool
	SignatureBlob uint32 // #Blob offset; internal/ir Pass 1 decodes the field type

	// RVA is the file RVA of this field's initializer data (FieldRVA
	// table), non-zero only for RVA-backed static array initializers.
	// ReachabilityAnalyzer roots any field with RVA != 0 directly
	// (SPEC_FULL.md §4.2).
	RVA uint32
}
