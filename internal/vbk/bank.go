package vbk

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
)

const bankHeaderSize = PageSize

// BankHeader is the fixed 4 KiB header at the start of every bank.
type BankHeader struct {
	NPages    uint16
	EncrMode  uint8
	FreePages []byte // one byte per page; 1 means free
	KeysetID  [16]byte
	EncrSize  uint32
}

func readBankHeader(data []byte) (BankHeader, error) {
	if len(data) < bankHeaderSize {
		return BankHeader{}, fmt.Errorf("vbk: bank header truncated (%d bytes)", len(data))
	}
	h := BankHeader{
		NPages:   binary.LittleEndian.Uint16(data[0:2]),
		EncrMode: data[2],
	}
	h.FreePages = append([]byte(nil), data[4:0x404]...)
	copy(h.KeysetID[:], data[0xC04:0xC14])
	h.EncrSize = binary.LittleEndian.Uint32(data[0xC14:0xC18])
	return h, nil
}

// IsEncrypted reports whether the bank carries a non-trivial encryption key.
func (h BankHeader) IsEncrypted() bool {
	return h.EncrSize > 0 && !digestIsZero(h.KeysetID)
}

// pageFree reports whether pageID is marked free in the bank's bitmap.
func (h BankHeader) pageFree(pageID int32) bool {
	if pageID < 0 || int(pageID) >= len(h.FreePages) {
		return true
	}
	return h.FreePages[pageID] == 1
}

// Bank is one open, memory-mapped bank region of the container file.
type Bank struct {
	Info       BankInfo
	Header     BankHeader
	TotalPages int64

	mapping mmap.MMap
	data    []byte
}

// openBank maps the bank's data region (everything after its header) into
// memory read-only. The caller must Close the bank when done.
func openBank(f *os.File, info BankInfo) (*Bank, error) {
	headerBuf := make([]byte, bankHeaderSize)
	if _, err := f.ReadAt(headerBuf, info.Offset); err != nil {
		return nil, fmt.Errorf("vbk: reading bank header at %#x: %w", info.Offset, err)
	}
	header, err := readBankHeader(headerBuf)
	if err != nil {
		return nil, err
	}

	dataSize := int64(info.Size) - bankHeaderSize
	if dataSize < 0 {
		return nil, fmt.Errorf("vbk: bank size %#x smaller than header", info.Size)
	}

	m, err := mmap.MapRegion(f, int(dataSize), mmap.RDONLY, 0, info.Offset+bankHeaderSize)
	if err != nil {
		return nil, fmt.Errorf("vbk: mapping bank data region at %#x: %w", info.Offset, err)
	}

	return &Bank{
		Info:       info,
		Header:     header,
		TotalPages: dataSize / PageSize,
		mapping:    m,
		data:       m,
	}, nil
}

// Close unmaps the bank's memory-mapped data region.
func (b *Bank) Close() error {
	if b.mapping == nil {
		return nil
	}
	err := b.mapping.Unmap()
	b.mapping = nil
	b.data = nil
	return err
}

// Page returns the raw bytes of pageID, or nil if the id is out of range
// or the page is marked free in the bank's bitmap.
func (b *Bank) Page(pageID int32) []byte {
	if pageID < 0 || int32(pageID) >= int32(b.Header.NPages) {
		return nil
	}
	if b.Header.pageFree(pageID) {
		return nil
	}
	off := int64(pageID) * PageSize
	if off+PageSize > int64(len(b.data)) {
		return nil
	}
	return b.data[off : off+PageSize]
}
