// Package peimage parses the PE/COFF container that wraps the ECMA-335
// metadata root of a managed assembly: the DOS stub, COFF file header,
// PE32/PE32+ optional header, section table, and the CLI header reached
// through data directory 14 (COM descriptor).
//
// This is the minimum a compiler needs to locate the metadata root; it does
// not parse imports, exports, resources, or any of the other PE directories
// AssemblySet never looks at.
package peimage

import (
	"encoding/binary"
	"fmt"

	mmap "github.com/edsrzf/mmap-go"
)

// Data directory indices used by this package (out of the 16 standard
// entries; only the two the compiler core cares about are named).
const (
	DirBaseReloc     = 5
	DirCOMDescriptor = 14 // the CLI header lives here
)

const (
	dosSignature = 0x5A4D // "MZ"
	ntSignature  = 0x00004550
	pe32Magic    = 0x10b
	pe32PlusMagic = 0x20b
)

// DataDirectory is a (virtual address, size) pair, mirroring
// IMAGE_DATA_DIRECTORY.
type DataDirectory struct {
	VirtualAddress uint32
	Size           uint32
}

// FileHeader is the COFF file header (IMAGE_FILE_HEADER).
type FileHeader struct {
	Machine              uint16
	NumberOfSections     uint16
	TimeDateStamp        uint32
	PointerToSymbolTable uint32
	NumberOfSymbols      uint32
	SizeOfOptionalHeader uint16
	Characteristics      uint16
}

// Section is one IMAGE_SECTION_HEADER entry.
type Section struct {
	Name                 string
	VirtualSize          uint32
	VirtualAddress       uint32
	SizeOfRawData        uint32
	PointerToRawData     uint32
	Characteristics      uint32
}

// CLRHeader is the CLI header (IMAGE_COR20_HEADER), spec.md's description
// of the "CLI header" that locates the metadata root.
type CLRHeader struct {
	Cb                   uint32
	MajorRuntimeVersion  uint16
	MinorRuntimeVersion  uint16
	MetaData             DataDirectory
	Flags                uint32
	EntryPointToken      uint32
	Resources            DataDirectory
	StrongNameSignature  DataDirectory
}

// Image is a parsed, read-only view over a managed PE file backed by a
// memory-mapped region. AssemblySet opens each assembly exactly once and
// never mutates it after construction, which is exactly the mmap.RDONLY
// contract.
type Image struct {
	data        mmap.MMap
	closer      func() error
	Is64        bool
	FileHeader  FileHeader
	ImageBase   uint64
	Sections    []Section
	DataDirs    [16]DataDirectory
	CLR         CLRHeader
}

// Open memory-maps path and parses its PE/COFF/CLI headers.
func Open(path string) (*Image, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, err
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}
	img := &Image{data: []byte(m), closer: func() error { err := m.Unmap(); f.Close(); return err }}
	if err := img.parse(); err != nil {
		img.Close()
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return img, nil
}

// Close releases the backing memory map.
func (img *Image) Close() error {
	if img.closer == nil {
		return nil
	}
	err := img.closer()
	img.closer = nil
	return err
}

func (img *Image) u16(off uint32) (uint16, error) {
	if uint64(off)+2 > uint64(len(img.data)) {
		return 0, fmt.Errorf("peimage: read u16 out of range at %#x", off)
	}
	return binary.LittleEndian.Uint16(img.data[off : off+2]), nil
}

func (img *Image) u32(off uint32) (uint32, error) {
	if uint64(off)+4 > uint64(len(img.data)) {
		return 0, fmt.Errorf("peimage: read u32 out of range at %#x", off)
	}
	return binary.LittleEndian.Uint32(img.data[off : off+4]), nil
}

func (img *Image) u64(off uint32) (uint64, error) {
	if uint64(off)+8 > uint64(len(img.data)) {
		return 0, fmt.Errorf("peimage: read u64 out of range at %#x", off)
	}
	return binary.LittleEndian.Uint64(img.data[off : off+8]), nil
}

func (img *Image) bytes(off, n uint32) ([]byte, error) {
	if uint64(off)+uint64(n) > uint64(len(img.data)) {
		return nil, fmt.Errorf("peimage: read %d bytes out of range at %#x", n, off)
	}
	return img.data[off : off+n], nil
}

func (img *Image) parse() error {
	sig, err := img.u16(0)
	if err != nil {
		return err
	}
	if sig != dosSignature {
		return fmt.Errorf("not a PE file: bad DOS signature %#x", sig)
	}
	lfanew, err := img.u32(0x3c)
	if err != nil {
		return err
	}
	ntSig, err := img.u32(lfanew)
	if err != nil {
		return err
	}
	if ntSig != ntSignature {
		return fmt.Errorf("not a PE file: bad NT signature %#x", ntSig)
	}

	fhOff := lfanew + 4
	machine, err := img.u16(fhOff)
	if err != nil {
		return err
	}
	numSections, err := img.u16(fhOff + 2)
	if err != nil {
		return err
	}
	tds, err := img.u32(fhOff + 4)
	if err != nil {
		return err
	}
	ptst, err := img.u32(fhOff + 8)
	if err != nil {
		return err
	}
	nsym, err := img.u32(fhOff + 12)
	if err != nil {
		return err
	}
	soh, err := img.u16(fhOff + 16)
	if err != nil {
		return err
	}
	chars, err := img.u16(fhOff + 18)
	if err != nil {
		return err
	}
	img.FileHeader = FileHeader{
		Machine:              machine,
		NumberOfSections:     numSections,
		TimeDateStamp:        tds,
		PointerToSymbolTable: ptst,
		NumberOfSymbols:      nsym,
		SizeOfOptionalHeader: soh,
		Characteristics:      chars,
	}

	ohOff := fhOff + 20
	magic, err := img.u16(ohOff)
	if err != nil {
		return err
	}
	switch magic {
	case pe32Magic:
		img.Is64 = false
	case pe32PlusMagic:
		img.Is64 = true
	default:
		return fmt.Errorf("unsupported optional header magic %#x", magic)
	}

	var imageBaseOff uint32
	var numRvaOff uint32
	if img.Is64 {
		imageBaseOff = ohOff + 24
		numRvaOff = ohOff + 108
		ib, err := img.u64(imageBaseOff)
		if err != nil {
			return err
		}
		img.ImageBase = ib
	} else {
		imageBaseOff = ohOff + 28
		numRvaOff = ohOff + 92
		ib, err := img.u32(imageBaseOff)
		if err != nil {
			return err
		}
		img.ImageBase = uint64(ib)
	}
	numRva, err := img.u32(numRvaOff)
	if err != nil {
		return err
	}
	if numRva > 16 {
		numRva = 16
	}
	ddOff := numRvaOff + 4
	for i := uint32(0); i < numRva; i++ {
		va, err := img.u32(ddOff + i*8)
		if err != nil {
			return err
		}
		sz, err := img.u32(ddOff + i*8 + 4)
		if err != nil {
			return err
		}
		img.DataDirs[i] = DataDirectory{VirtualAddress: va, Size: sz}
	}

	sectionTableOff := ohOff + uint32(soh)
	img.Sections = make([]Section, 0, numSections)
	for i := uint16(0); i < numSections; i++ {
		base := sectionTableOff + uint32(i)*40
		nameBytes, err := img.bytes(base, 8)
		if err != nil {
			return err
		}
		name := trimNulBytes(nameBytes)
		vsize, err := img.u32(base + 8)
		if err != nil {
			return err
		}
		vaddr, err := img.u32(base + 12)
		if err != nil {
			return err
		}
		rawSize, err := img.u32(base + 16)
		if err != nil {
			return err
		}
		rawPtr, err := img.u32(base + 20)
		if err != nil {
			return err
		}
		chars, err := img.u32(base + 36)
		if err != nil {
			return err
		}
		img.Sections = append(img.Sections, Section{
			Name:             name,
			VirtualSize:      vsize,
			VirtualAddress:   vaddr,
			SizeOfRawData:    rawSize,
			PointerToRawData: rawPtr,
			Characteristics:  chars,
		})
	}

	return img.parseCLRHeader()
}

func (img *Image) parseCLRHeader() error {
	dir := img.DataDirs[DirCOMDescriptor]
	if dir.VirtualAddress == 0 {
		return fmt.Errorf("no CLI header: not a managed assembly")
	}
	off, err := img.RVAToOffset(dir.VirtualAddress)
	if err != nil {
		return err
	}
	cb, err := img.u32(off)
	if err != nil {
		return err
	}
	major, err := img.u16(off + 4)
	if err != nil {
		return err
	}
	minor, err := img.u16(off + 6)
	if err != nil {
		return err
	}
	mdVA, err := img.u32(off + 8)
	if err != nil {
		return err
	}
	mdSize, err := img.u32(off + 12)
	if err != nil {
		return err
	}
	flags, err := img.u32(off + 16)
	if err != nil {
		return err
	}
	entry, err := img.u32(off + 20)
	if err != nil {
		return err
	}
	resVA, err := img.u32(off + 24)
	if err != nil {
		return err
	}
	resSize, err := img.u32(off + 28)
	if err != nil {
		return err
	}
	snVA, err := img.u32(off + 32)
	if err != nil {
		return err
	}
	snSize, err := img.u32(off + 36)
	if err != nil {
		return err
	}
	img.CLR = CLRHeader{
		Cb:                  cb,
		MajorRuntimeVersion: major,
		MinorRuntimeVersion: minor,
		MetaData:            DataDirectory{VirtualAddress: mdVA, Size: mdSize},
		Flags:               flags,
		EntryPointToken:     entry,
		Resources:           DataDirectory{VirtualAddress: resVA, Size: resSize},
		StrongNameSignature: DataDirectory{VirtualAddress: snVA, Size: snSize},
	}
	return nil
}

// RVAToOffset converts a relative virtual address to a file offset by
// locating the containing section.
func (img *Image) RVAToOffset(rva uint32) (uint32, error) {
	for _, s := range img.Sections {
		if rva >= s.VirtualAddress && rva < s.VirtualAddress+sizeOrVirtual(s) {
			return s.PointerToRawData + (rva - s.VirtualAddress), nil
		}
	}
	return 0, fmt.Errorf("rva %#x not contained in any section", rva)
}

func sizeOrVirtual(s Section) uint32 {
	if s.SizeOfRawData > s.VirtualSize {
		return s.SizeOfRawData
	}
	return s.VirtualSize
}

// MetadataRoot returns the raw bytes of the ECMA-335 metadata root pointed
// to by the CLI header's MetaData data directory.
func (img *Image) MetadataRoot() ([]byte, error) {
	off, err := img.RVAToOffset(img.CLR.MetaData.VirtualAddress)
	if err != nil {
		return nil, err
	}
	return img.bytes(off, img.CLR.MetaData.Size)
}

// ReadAt returns n raw bytes starting at the given RVA, for callers (method
// body extraction, RVA-backed field initializers) that need file content
// outside the metadata root.
func (img *Image) ReadAt(rva, n uint32) ([]byte, error) {
	off, err := img.RVAToOffset(rva)
	if err != nil {
		return nil, err
	}
	return img.bytes(off, n)
}

func trimNulBytes(b []byte) string {
	i := 0
	for i < len(b) && b[i] != 0 {
		i++
	}
	return string(b[:i])
}
