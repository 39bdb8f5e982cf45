package proc

import (
	"debug/dwarf"
	"debug/elf"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/derekparker/trie"

	"github.com/Turtel216/cd-debugger/pkg/logflags"
)

var (
	// ErrNoFunction is returned when no function entry of the debug info
	// contains the address. This is a normal outcome for addresses inside
	// code compiled without debug info.
	ErrNoFunction = errors.New("no function found for address")
	// ErrNoSource is returned when the line tables have no entry for the
	// address.
	ErrNoSource = errors.New("no source line information for address")
	// ErrNoLocation is returned when no instruction address corresponds
	// to the requested source location.
	ErrNoLocation = errors.New("could not find instruction for location")
)

// BinaryInfo holds the debug metadata of the tracee's executable, along
// with the translation between the file's static layout and the
// randomized runtime image.
type BinaryInfo struct {
	Path string

	elfFile   *elf.File
	dwarfData *dwarf.Data
	funcs     *trie.Trie

	// staticBase is the load bias of the executable: the offset added to
	// static addresses to obtain runtime addresses. It is zero for fixed
	// load address executables, computed once after the tracee's first
	// stop for position independent ones, and read-only afterwards.
	staticBase    uint64
	staticBaseSet bool
}

// Function represents one subprogram entry of the debug info. Entry and
// End are static addresses.
type Function struct {
	Name            string
	Entry           uint64
	End             uint64
	CompilationUnit string
}

// LoadBinaryInfo opens the executable at path and parses its debug info.
func LoadBinaryInfo(path string) (*BinaryInfo, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %v", path, err)
	}
	if f.Machine != elf.EM_X86_64 {
		f.Close()
		return nil, fmt.Errorf("unsupported architecture %v", f.Machine)
	}
	d, err := f.DWARF()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("could not read debug info of %s: %v", path, err)
	}
	bi := &BinaryInfo{Path: path, elfFile: f, dwarfData: d}
	if err := bi.loadFunctionIndex(); err != nil {
		f.Close()
		return nil, err
	}
	return bi, nil
}

// Close releases the executable file.
func (bi *BinaryInfo) Close() error {
	return bi.elfFile.Close()
}

// SetLoadBias computes the load bias from the runtime entry point of the
// tracee. It runs at most once per session; later calls are no-ops.
func (bi *BinaryInfo) SetLoadBias(runtimeEntry uint64) {
	if bi.staticBaseSet {
		return
	}
	if bi.elfFile.Type == elf.ET_DYN {
		bi.staticBase = runtimeEntry - bi.elfFile.Entry
	}
	bi.staticBaseSet = true
	logflags.DWARFLogger().Debugf("load bias %#x", bi.staticBase)
}

// StaticBase returns the load bias of the executable.
func (bi *BinaryInfo) StaticBase() uint64 {
	return bi.staticBase
}

// ToStatic translates a runtime address to the file's static layout.
func (bi *BinaryInfo) ToStatic(addr uint64) uint64 {
	return addr - bi.staticBase
}

// ToRuntime translates a static address to the tracee's runtime image.
func (bi *BinaryInfo) ToRuntime(addr uint64) uint64 {
	return addr + bi.staticBase
}

// FindFunction returns the function whose address range contains the
// runtime address pc.
func (bi *BinaryInfo) FindFunction(pc uint64) (*Function, error) {
	static := bi.ToStatic(pc)
	cu, err := bi.findCompileUnit(static)
	if err != nil {
		return nil, err
	}
	cuName, _ := cu.Val(dwarf.AttrName).(string)

	rdr := bi.dwarfData.Reader()
	rdr.Seek(cu.Offset)
	if _, err := rdr.Next(); err != nil {
		return nil, err
	}
	for {
		entry, err := rdr.Next()
		if err != nil {
			return nil, err
		}
		if entry == nil || entry.Tag == dwarf.TagCompileUnit {
			break
		}
		if entry.Tag != dwarf.TagSubprogram {
			rdr.SkipChildren()
			continue
		}
		ranges, err := bi.dwarfData.Ranges(entry)
		if err != nil {
			logflags.DWARFLogger().Debugf("malformed ranges for subprogram: %v", err)
			rdr.SkipChildren()
			continue
		}
		for _, rng := range ranges {
			if static >= rng[0] && static < rng[1] {
				name, _ := entry.Val(dwarf.AttrName).(string)
				return &Function{
					Name:            name,
					Entry:           rng[0],
					End:             rng[1],
					CompilationUnit: cuName,
				}, nil
			}
		}
		rdr.SkipChildren()
	}
	return nil, ErrNoFunction
}

// PCToLine returns the source file and line containing the runtime
// address pc.
func (bi *BinaryInfo) PCToLine(pc uint64) (string, int, error) {
	static := bi.ToStatic(pc)
	cu, err := bi.findCompileUnit(static)
	if err != nil {
		return "", 0, ErrNoSource
	}
	lr, err := bi.dwarfData.LineReader(cu)
	if err != nil || lr == nil {
		return "", 0, ErrNoSource
	}
	var le dwarf.LineEntry
	if err := lr.SeekPC(static, &le); err != nil {
		return "", 0, ErrNoSource
	}
	return le.File.Name, le.Line, nil
}

// LineToPC returns the runtime address of the first instruction of the
// given source line.
func (bi *BinaryInfo) LineToPC(file string, line int) (uint64, error) {
	rdr := bi.dwarfData.Reader()
	for {
		cu, err := rdr.Next()
		if err != nil {
			return 0, err
		}
		if cu == nil {
			break
		}
		if cu.Tag != dwarf.TagCompileUnit {
			rdr.SkipChildren()
			continue
		}
		lr, err := bi.dwarfData.LineReader(cu)
		if err != nil || lr == nil {
			rdr.SkipChildren()
			continue
		}
		var le dwarf.LineEntry
		for {
			err := lr.Next(&le)
			if err == io.EOF {
				break
			}
			if err != nil {
				return 0, err
			}
			if le.EndSequence || !le.IsStmt {
				continue
			}
			if le.Line == line && pathMatch(le.File.Name, file) {
				return bi.ToRuntime(le.Address), nil
			}
		}
		rdr.SkipChildren()
	}
	return 0, ErrNoLocation
}

// FindFunctionByName returns the runtime entry address of the named
// function.
func (bi *BinaryInfo) FindFunctionByName(name string) (uint64, error) {
	node, ok := bi.funcs.Find(name)
	if !ok {
		return 0, ErrNoFunction
	}
	return bi.ToRuntime(node.Meta().(uint64)), nil
}

// Functions returns the names of all functions in the debug info matching
// prefix, sorted. An empty prefix matches everything.
func (bi *BinaryInfo) Functions(prefix string) []string {
	var names []string
	if prefix == "" {
		names = bi.funcs.Keys()
	} else {
		names = bi.funcs.PrefixSearch(prefix)
	}
	sort.Strings(names)
	return names
}

// findCompileUnit scans the compilation units for the one whose address
// range contains the static address.
func (bi *BinaryInfo) findCompileUnit(static uint64) (*dwarf.Entry, error) {
	rdr := bi.dwarfData.Reader()
	for {
		entry, err := rdr.Next()
		if err != nil {
			return nil, err
		}
		if entry == nil {
			break
		}
		if entry.Tag != dwarf.TagCompileUnit {
			rdr.SkipChildren()
			continue
		}
		ranges, err := bi.dwarfData.Ranges(entry)
		if err != nil {
			logflags.DWARFLogger().Debugf("malformed ranges for compile unit: %v", err)
			rdr.SkipChildren()
			continue
		}
		for _, rng := range ranges {
			if static >= rng[0] && static < rng[1] {
				return entry, nil
			}
		}
		rdr.SkipChildren()
	}
	return nil, ErrNoFunction
}

// loadFunctionIndex builds the name to entry address index used for
// function name lookup and completion.
func (bi *BinaryInfo) loadFunctionIndex() error {
	bi.funcs = trie.New()
	rdr := bi.dwarfData.Reader()
	for {
		entry, err := rdr.Next()
		if err != nil {
			return err
		}
		if entry == nil {
			return nil
		}
		if entry.Tag != dwarf.TagCompileUnit && entry.Tag != dwarf.TagSubprogram {
			rdr.SkipChildren()
			continue
		}
		if entry.Tag == dwarf.TagSubprogram {
			name, ok := entry.Val(dwarf.AttrName).(string)
			lowpc, okpc := entry.Val(dwarf.AttrLowpc).(uint64)
			if ok && okpc {
				bi.funcs.Add(name, lowpc)
			}
			rdr.SkipChildren()
		}
	}
}

// pathMatch reports whether the line table file name refers to the file
// the user named, allowing the user to omit leading directories.
func pathMatch(tableFile, userFile string) bool {
	if tableFile == userFile {
		return true
	}
	return strings.HasSuffix(tableFile, "/"+userFile)
}
