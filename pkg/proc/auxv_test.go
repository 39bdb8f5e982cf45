package proc

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestEntryPointFromAuxv(t *testing.T) {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, uint64(6)) // AT_PAGESZ
	binary.Write(buf, binary.LittleEndian, uint64(0x1000))
	binary.Write(buf, binary.LittleEndian, uint64(_AT_ENTRY))
	binary.Write(buf, binary.LittleEndian, uint64(0x400890))
	binary.Write(buf, binary.LittleEndian, uint64(_AT_NULL))
	binary.Write(buf, binary.LittleEndian, uint64(0))

	if entry := EntryPointFromAuxv(buf.Bytes(), 8); entry != 0x400890 {
		t.Errorf("entry point = %#x, want 0x400890", entry)
	}
}

func TestEntryPointFromAuxvMissing(t *testing.T) {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, uint64(_AT_NULL))
	binary.Write(buf, binary.LittleEndian, uint64(0))

	if entry := EntryPointFromAuxv(buf.Bytes(), 8); entry != 0 {
		t.Errorf("entry point = %#x, want 0", entry)
	}
}
