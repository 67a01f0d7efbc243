package assembly

// Canonical full-name construction. Nested types are named
// "Enclosing+Nested" per ECMA-335 I.10.7.2; non-nested types are named
// "Namespace.Name" (or just "Name" for the global namespace). Results are
// memoized per TypeDef row the way tinyrange-rtg's Package.QualName caches
// "Path.name" lookups, since FullName is read repeatedly during
// reachability and name mapping.
func (a *Assembly) FullName(row uint32) string {
	if n, ok := a.qualNames[row]; ok {
		return n
	}
	n := a.computeFullName(row)
	a.qualNames[row] = n
	return n
}

func (a *Assembly) computeFullName(row uint32) string {
	ty := a.Types[row]
	enclosing, ok := a.enclosingRow[row]
	if ok {
		return a.FullName(enclosing) + "+" + ty.Name
	}
	if ty.Namespace == "" {
		return ty.Name
	}
	return ty.Namespace + "." + ty.Name
}

// buildNestedIndex indexes NestedClass rows (NestedClass row -> Enclosing
// row, both 0-based TypeDef indices) so FullName can walk outward without
// a table scan per lookup.
func (a *Assembly) buildNestedIndex() {
	a.enclosingRow = make(map[uint32]uint32, len(a.tables.NestedClass))
	for _, nc := range a.tables.NestedClass {
		a.enclosingRow[nc.NestedClass-1] = nc.EnclosingClass - 1
	}
	a.byFullName = make(map[string]*Type, len(a.Types))
	for i, ty := range a.Types {
		ty.FullName = a.FullName(uint32(i))
		a.byFullName[ty.FullName] = ty
	}
}
