// Completion: 100% - PE32+ executable writer: headers, import table, final IAT patch
package main

import "encoding/binary"

// Layout constants for the single-file, single-section-pair executables
// this compiler produces. Unlike a general-purpose linker,
// every RVA here is fixed ahead of time: scratchRVA/stringPoolRVA are
// absolute constants baked into codegen's immediates (stringpool.go)
// before a single instruction is assembled, so the code buffer has a hard
// budget of (scratchRVA - textRVA) bytes to live in.
const (
	textRVA        = 0x1000
	peSectionAlign = 0x1000
	peFileAlign    = 0x200
	numberOfDataDirectories = 16
	importDirIndex = 1

	fileHeaderOffset = 0x80 // e_lfanew: DOS stub padded out to here
	optionalHeaderSize = 112 + 8*numberOfDataDirectories
	coffHeaderSize      = 20
	peSectionHeaderSize   = 40
	numSections         = 2 // .text, .idata

	imageFileExecutable     = 0x0002
	imageFileLargeAddrAware = 0x0020
	imageFileMachineAMD64   = 0x8664

	imageSubsystemWindowsCUI = 3
	imageDllCharNXCompat     = 0x0100

	scnCntCode    = 0x00000020
	scnCntInitData = 0x00000040
	scnMemExecute = 0x20000000
	scnMemRead    = 0x40000000
	scnMemWrite   = 0x80000000
)

var importedFunctions = []string{"GetStdHandle", "WriteFile", "ExitProcess"}

const importedDLL = "KERNEL32.dll"

// WritePE assembles mc's code, the runtime scratch/bool-buffer region, and
// pool's interned string literals into .text, builds a single-DLL import
// table into .idata, patches every ExternCall site to its IAT slot, and
// renders the full PE32+ file.
func WritePE(mc *MachineCode, pool *StringPool) ([]byte, error) {
	if len(mc.Code) > scratchRVA-textRVA {
		return nil, InternalError("pewriter: generated code overflows the fixed scratch-buffer budget")
	}

	textContent := buildTextContent(mc.Code, pool)
	textVirtualSize := uint32(len(textContent))
	textRawSize := alignUp32(textVirtualSize, peFileAlign)

	idataRVA := alignUp32(textRVA+textVirtualSize, peSectionAlign)
	idata, iatOffsets := buildImportSection(idataRVA)
	idataVirtualSize := uint32(len(idata))
	idataRawSize := alignUp32(idataVirtualSize, peFileAlign)

	headersSize := alignUp32(uint32(fileHeaderOffset+4+coffHeaderSize+optionalHeaderSize+numSections*peSectionHeaderSize), peFileAlign)

	textRawOffset := headersSize
	idataRawOffset := textRawOffset + textRawSize

	patchExternCalls(textContent, mc.Syscalls, idataRVA, iatOffsets)

	entryRVA := textRVA + uint32(mc.EntryOffset)
	sizeOfImage := alignUp32(idataRVA+idataVirtualSize, peSectionAlign)

	var out []byte
	out = append(out, dosHeaderAndStub()...)
	out = append(out, 'P', 'E', 0, 0)
	out = append(out, coffHeader()...)
	out = append(out, optionalHeader(entryRVA, textVirtualSize, idataVirtualSize, headersSize, sizeOfImage, idataRVA, idataVirtualSize)...)
	out = append(out, sectionHeader(".text", textVirtualSize, textRVA, textRawSize, textRawOffset,
		scnCntCode|scnMemExecute|scnMemRead|scnMemWrite)...)
	out = append(out, sectionHeader(".idata", idataVirtualSize, idataRVA, idataRawSize, idataRawOffset,
		scnCntInitData|scnMemRead|scnMemWrite)...)

	out = padTo(out, int(textRawOffset))
	out = append(out, textContent...)
	out = padTo(out, int(textRawOffset+textRawSize))
	out = append(out, idata...)
	out = padTo(out, int(idataRawOffset+idataRawSize))

	return out, nil
}

// buildTextContent lays out .text exactly as stringpool.go's RVAs assume:
// the assembled code, zero-padded up to scratchRVA, the itoa/bool scratch
// buffer, and the interned string-literal bytes.
func buildTextContent(code []byte, pool *StringPool) []byte {
	content := make([]byte, 0, stringPoolRVA-textRVA+len(pool.Bytes()))
	content = append(content, code...)
	for len(content) < scratchRVA-textRVA {
		content = append(content, 0)
	}
	content = append(content, make([]byte, decimalBufLen+boolBufLen)...)
	content = append(content, pool.Bytes()...)
	return content
}

// buildImportSection lays out a single-DLL Import Directory Table, ILT,
// IAT, and Hint/Name table. Every thunk and directory field is a full
// image RVA (idataRVA plus the entry's offset within the section — the
// loader resolves them against ImageBase, not the section start).
// Returns the section bytes and each imported function's IAT offset
// within it.
func buildImportSection(idataRVA uint32) ([]byte, map[string]uint32) {
	n := len(importedFunctions)

	dirTableSize := uint32(2 * 20) // one real entry + the null terminator
	iltSize := uint32((n + 1) * 8)
	iatSize := uint32((n + 1) * 8)

	dirTableOff := uint32(0)
	iltOff := dirTableOff + dirTableSize
	iatOff := iltOff + iltSize
	hintNameOff := iatOff + iatSize

	var hintNames []byte
	hintOffsets := make([]uint32, n)
	for i, name := range importedFunctions {
		hintOffsets[i] = hintNameOff + uint32(len(hintNames))
		entry := make([]byte, 2) // Hint, always 0: we don't know the DLL's export ordinal
		entry = append(entry, []byte(name)...)
		entry = append(entry, 0)
		if len(entry)%2 != 0 {
			entry = append(entry, 0)
		}
		hintNames = append(hintNames, entry...)
	}

	dllNameOff := hintNameOff + uint32(len(hintNames))
	dllName := append([]byte(importedDLL), 0)
	if len(dllName)%2 != 0 {
		dllName = append(dllName, 0)
	}

	out := make([]byte, dirTableOff, dllNameOff+uint32(len(dllName)))

	ilt := make([]byte, 0, iltSize)
	for i := 0; i < n; i++ {
		ilt = binary.LittleEndian.AppendUint64(ilt, uint64(idataRVA+hintOffsets[i]))
	}
	ilt = binary.LittleEndian.AppendUint64(ilt, 0)

	iat := make([]byte, 0, iatSize)
	for i := 0; i < n; i++ {
		iat = binary.LittleEndian.AppendUint64(iat, uint64(idataRVA+hintOffsets[i]))
	}
	iat = binary.LittleEndian.AppendUint64(iat, 0)

	dir := make([]byte, 0, dirTableSize)
	dir = binary.LittleEndian.AppendUint32(dir, idataRVA+iltOff) // OriginalFirstThunk
	dir = binary.LittleEndian.AppendUint32(dir, 0)               // TimeDateStamp
	dir = binary.LittleEndian.AppendUint32(dir, 0)               // ForwarderChain
	dir = binary.LittleEndian.AppendUint32(dir, idataRVA+dllNameOff)
	dir = binary.LittleEndian.AppendUint32(dir, idataRVA+iatOff) // FirstThunk
	dir = append(dir, make([]byte, 20)...)                        // null terminator entry

	out = append(out, dir...)
	out = append(out, ilt...)
	out = append(out, iat...)
	out = append(out, hintNames...)
	out = append(out, dllName...)

	iatOffsets := make(map[string]uint32, n)
	for i, name := range importedFunctions {
		iatOffsets[name] = iatOff + uint32(i*8)
	}
	return out, iatOffsets
}

// patchExternCalls fills in every `call [rip+rel32]` placeholder the
// assembler left behind, once the IAT's final RVA is known: the
// displacement is iatRVA - (textVirtualAddr + dispPos + 4).
func patchExternCalls(textContent []byte, syscalls []SyscallPatch, idataRVA uint32, iatOffsets map[string]uint32) {
	for _, p := range syscalls {
		slotOff, ok := iatOffsets[p.Name]
		if !ok {
			panic("pewriter: no IAT slot for imported function " + p.Name)
		}
		iatRVA := idataRVA + slotOff
		dispPos := uint32(p.Offset)
		disp := int32(iatRVA) - int32(textRVA+dispPos+4)
		binary.LittleEndian.PutUint32(textContent[dispPos:dispPos+4], uint32(disp))
	}
}

func dosHeaderAndStub() []byte {
	h := make([]byte, fileHeaderOffset)
	h[0], h[1] = 'M', 'Z'
	binary.LittleEndian.PutUint32(h[0x3C:], fileHeaderOffset) // e_lfanew
	copy(h[0x40:], "This program requires Windows.\r\n$")
	return h
}

func coffHeader() []byte {
	var h []byte
	h = binary.LittleEndian.AppendUint16(h, imageFileMachineAMD64)
	h = binary.LittleEndian.AppendUint16(h, numSections)
	h = binary.LittleEndian.AppendUint32(h, 0) // TimeDateStamp
	h = binary.LittleEndian.AppendUint32(h, 0) // PointerToSymbolTable
	h = binary.LittleEndian.AppendUint32(h, 0) // NumberOfSymbols
	h = binary.LittleEndian.AppendUint16(h, optionalHeaderSize)
	h = binary.LittleEndian.AppendUint16(h, imageFileExecutable|imageFileLargeAddrAware)
	return h
}

func optionalHeader(entryRVA, textVirtualSize, idataVirtualSize, headersSize, sizeOfImage, idataRVA, idataSize uint32) []byte {
	var h []byte
	h = binary.LittleEndian.AppendUint16(h, 0x20B) // PE32+ magic
	h = append(h, 0, 0)                            // linker version
	h = binary.LittleEndian.AppendUint32(h, textVirtualSize)   // SizeOfCode
	h = binary.LittleEndian.AppendUint32(h, idataVirtualSize)  // SizeOfInitializedData
	h = binary.LittleEndian.AppendUint32(h, 0)                 // SizeOfUninitializedData
	h = binary.LittleEndian.AppendUint32(h, entryRVA)
	h = binary.LittleEndian.AppendUint32(h, textRVA) // BaseOfCode
	h = binary.LittleEndian.AppendUint64(h, imageBase)
	h = binary.LittleEndian.AppendUint32(h, peSectionAlign)
	h = binary.LittleEndian.AppendUint32(h, peFileAlign)
	h = binary.LittleEndian.AppendUint16(h, 6) // MajorOSVersion
	h = binary.LittleEndian.AppendUint16(h, 0)
	h = binary.LittleEndian.AppendUint16(h, 0) // MajorImageVersion
	h = binary.LittleEndian.AppendUint16(h, 0)
	h = binary.LittleEndian.AppendUint16(h, 6) // MajorSubsystemVersion
	h = binary.LittleEndian.AppendUint16(h, 0)
	h = binary.LittleEndian.AppendUint32(h, 0) // Win32VersionValue
	h = binary.LittleEndian.AppendUint32(h, sizeOfImage)
	h = binary.LittleEndian.AppendUint32(h, headersSize)
	h = binary.LittleEndian.AppendUint32(h, 0) // CheckSum
	h = binary.LittleEndian.AppendUint16(h, imageSubsystemWindowsCUI)
	h = binary.LittleEndian.AppendUint16(h, imageDllCharNXCompat)
	h = binary.LittleEndian.AppendUint64(h, 0x100000) // SizeOfStackReserve
	h = binary.LittleEndian.AppendUint64(h, 0x1000)   // SizeOfStackCommit
	h = binary.LittleEndian.AppendUint64(h, 0x100000) // SizeOfHeapReserve
	h = binary.LittleEndian.AppendUint64(h, 0x1000)   // SizeOfHeapCommit
	h = binary.LittleEndian.AppendUint32(h, 0)        // LoaderFlags
	h = binary.LittleEndian.AppendUint32(h, numberOfDataDirectories)

	dirs := make([][2]uint32, numberOfDataDirectories)
	dirs[importDirIndex] = [2]uint32{idataRVA, idataSize}
	for _, d := range dirs {
		h = binary.LittleEndian.AppendUint32(h, d[0])
		h = binary.LittleEndian.AppendUint32(h, d[1])
	}
	return h
}

func sectionHeader(name string, virtualSize, virtualAddr, rawSize, rawOffset, characteristics uint32) []byte {
	h := make([]byte, 8)
	copy(h, name)
	h = binary.LittleEndian.AppendUint32(h, virtualSize)
	h = binary.LittleEndian.AppendUint32(h, virtualAddr)
	h = binary.LittleEndian.AppendUint32(h, rawSize)
	h = binary.LittleEndian.AppendUint32(h, rawOffset)
	h = binary.LittleEndian.AppendUint32(h, 0) // PointerToRelocations
	h = binary.LittleEndian.AppendUint32(h, 0) // PointerToLinenumbers
	h = binary.LittleEndian.AppendUint16(h, 0) // NumberOfRelocations
	h = binary.LittleEndian.AppendUint16(h, 0) // NumberOfLinenumbers
	h = binary.LittleEndian.AppendUint32(h, characteristics)
	return h
}

func alignUp32(v, align uint32) uint32 { return (v + align - 1) / align * align }

func padTo(b []byte, size int) []byte {
	for len(b) < size {
		b = append(b, 0)
	}
	return b
}
