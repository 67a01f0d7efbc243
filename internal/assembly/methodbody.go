package assembly

import (
	"encoding/binary"
	"fmt"
)

// Method header format tags (ECMA-335 II.25.4.1/II.25.4.5), the low two
// bits of the first header byte.
const (
	corILMethodTinyFormat = 0x2
	corILMethodFatFormat  = 0x3
	corILMethodFormatMask = 0x3
)

// MethodBody returns the raw CIL instruction bytes for m, stripping the
// tiny or fat method header. Extra sections (exception clause tables)
// that can follow a fat method's code are not returned, and no compiler
// stage reads them.
func (a *Assembly) MethodBody(m *Method) ([]byte, error) {
	if !m.HasBody() {
		return nil, nil
	}
	header, err := a.image.ReadAt(m.RVA, 1)
	if err != nil {
		return nil, fmt.Errorf("method %s header: %w", m.Name, err)
	}

	switch header[0] & corILMethodFormatMask {
	case corILMethodTinyFormat:
		size := uint32(header[0]) >> 2
		code, err := a.image.ReadAt(m.RVA+1, size)
		if err != nil {
			return nil, fmt.Errorf("method %s tiny body: %w", m.Name, err)
		}
		return code, nil

	case corILMethodFatFormat:
		fat, err := a.image.ReadAt(m.RVA, 12)
		if err != nil {
			return nil, fmt.Errorf("method %s fat header: %w", m.Name, err)
		}
		codeSize := binary.LittleEndian.Uint32(fat[4:8])
		code, err := a.image.ReadAt(m.RVA+12, codeSize)
		if err != nil {
			return nil, fmt.Errorf("method %s fat body: %w", m.Name, err)
		}
		return code, nil

	default:
		return nil, fmt.Errorf("method %s: unrecognized header format %#x", m.Name, header[0])
	}
}

// MethodLocalsSignature returns the raw LocalVarSig blob for m's method
// body, or nil if m has a tiny header (tiny bodies never declare locals,
// ECMA-335 II.25.4.2) or an unset LocalVarSigTok. The fat header's third
// field (II.25.4.3) is a StandAloneSig token; row 0 means no locals.
func (a *Assembly) MethodLocalsSignature(m *Method) ([]byte, error) {
	if !m.HasBody() {
		return nil, nil
	}
	header, err := a.image.ReadAt(m.RVA, 1)
	if err != nil {
		return nil, fmt.Errorf("method %s header: %w", m.Name, err)
	}
	if header[0]&corILMethodFormatMask != corILMethodFatFormat {
		return nil, nil
	}
	fat, err := a.image.ReadAt(m.RVA, 12)
	if err != nil {
		return nil, fmt.Errorf("method %s fat header: %w", m.Name, err)
	}
	tok := binary.LittleEndian.Uint32(fat[8:12])
	row := tok & 0x00FFFFFF
	if row == 0 {
		return nil, nil
	}
	sigs := a.tables.StandAloneSig
	if int(row-1) >= len(sigs) {
		return nil, fmt.Errorf("method %s: LocalVarSigTok row %d out of range", m.Name, row)
	}
	return a.root.BlobAt(sigs[row-1].Signature)
}
