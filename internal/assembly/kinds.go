package assembly

// classifyKinds resolves each type's immediate base (ECMA-335 requires
// value types, enums and delegates to derive directly from
// System.ValueType / System.Enum / System.MulticastDelegate — never
// indirectly — so a single-level check is exact, not a heuristic) and
// sets Kind accordingly. Interfaces were already classified from the
// TypeDef flags during buildTypes; everything else defaults to
// KindClass unless its base says otherwise. Deferred until every
// assembly in the set is open, since a type's base commonly lives in the
// standard library assembly, not its own.
func (s *AssemblySet) classifyKinds() error {
	for _, a := range s.order {
		for _, ty := range a.Types {
			if ty.Kind == KindInterface || !ty.HasBase {
				continue
			}
			base, err := s.ResolveTypeRef(a, ty.ExtendsTable, ty.ExtendsRow)
			if err != nil {
				if err == ErrTypeSpec {
					continue
				}
				return err
			}
			switch base.FullName {
			case "System.ValueType":
				ty.Kind = KindValueType
			case "System.Enum":
				ty.Kind = KindEnum
			case "System.MulticastDelegate":
				ty.Kind = KindDelegate
			}
		}
	}
	return nil
}
