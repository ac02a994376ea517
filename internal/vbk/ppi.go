package vbk

import (
	"encoding/binary"
	"fmt"
)

// PageSize is the fixed addressing unit inside a bank.
const PageSize = 0x1000

// BlockSize is the logical block granularity of the data-store (1 MiB).
const BlockSize = 0x100000

// PhysPageId names a page: a (bank, page) pair. Three states are
// distinguished: empty (-1,-1, a null reference), zero (0,0, a terminator
// in certain arrays) and valid (both >= 0, a real page).
type PhysPageId struct {
	PageID int32
	BankID int32
}

// emptyPPI is the canonical null reference.
var emptyPPI = PhysPageId{PageID: -1, BankID: -1}

// Empty reports whether p is the null reference {-1,-1}.
func (p PhysPageId) Empty() bool {
	return p.PageID == -1 && p.BankID == -1
}

// Zero reports whether p is the {0,0} terminator value.
func (p PhysPageId) Zero() bool {
	return p.PageID == 0 && p.BankID == 0
}

// Valid reports whether p names a real page (both components non-negative).
func (p PhysPageId) Valid() bool {
	return p.PageID >= 0 && p.BankID >= 0
}

// ValidOrEmpty reports whether p is either valid or explicitly empty.
func (p PhysPageId) ValidOrEmpty() bool {
	return p.Valid() || p.Empty()
}

func (p PhysPageId) String() string {
	return fmt.Sprintf("%04x:%04x", p.BankID, p.PageID)
}

// readPPI decodes a PhysPageId from its 8-byte on-disk form: page_id then
// bank_id, both little-endian int32.
func readPPI(b []byte) PhysPageId {
	return PhysPageId{
		PageID: int32(binary.LittleEndian.Uint32(b[0:4])),
		BankID: int32(binary.LittleEndian.Uint32(b[4:8])),
	}
}

// ppiFromLoc splits a packed 64-bit loc field into its PhysPageId: the low
// 32 bits are the page id, the high 32 bits the bank id.
func ppiFromLoc(loc uint64) PhysPageId {
	return PhysPageId{
		PageID: int32(uint32(loc)),
		BankID: int32(uint32(loc >> 32)),
	}
}
