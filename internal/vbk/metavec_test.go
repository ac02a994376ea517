package vbk

import (
	"encoding/binary"
	"testing"
)

// fakeStore is a PageStore-equivalent backed by a plain map, for tests
// that only need to exercise page traversal logic.
func fakeStore(pages map[PhysPageId][]byte) *PageStore {
	s := newPageStore()
	byBank := map[int32]map[int32][]byte{}
	for id, data := range pages {
		if byBank[id.BankID] == nil {
			byBank[id.BankID] = map[int32][]byte{}
		}
		byBank[id.BankID][id.PageID] = data
	}
	for bankID, pageMap := range byBank {
		maxPage := int32(0)
		for pid := range pageMap {
			if pid > maxPage {
				maxPage = pid
			}
		}
		header := make([]byte, bankHeaderSize)
		binary.LittleEndian.PutUint16(header[0:2], uint16(maxPage+1))
		h, _ := readBankHeader(header)
		data := make([]byte, int64(maxPage+1)*PageSize)
		for pid, page := range pageMap {
			copy(data[int64(pid)*PageSize:], page)
		}
		s.add(bankID, &Bank{Header: h, TotalPages: int64(maxPage + 1), data: data})
	}
	return s
}

func writePPISlot(page []byte, off int, id PhysPageId) {
	binary.LittleEndian.PutUint32(page[off:off+4], uint32(id.PageID))
	binary.LittleEndian.PutUint32(page[off+4:off+8], uint32(id.BankID))
}

func TestIsMetaVecStart(t *testing.T) {
	page := make([]byte, PageSize)
	fillEmpty(page, 8) // leave the first 8 bytes (p0, p1) non-terminator
	writePPISlot(page, 8, PhysPageId{PageID: 7, BankID: 0}) // third slot == own page id

	if !isMetaVecStart(page, 7) {
		t.Error("isMetaVecStart() = false, want true")
	}
	if isMetaVecStart(page, 8) {
		t.Error("isMetaVecStart() = true for mismatched page id, want false")
	}
}

func TestIsMetaVec2Start(t *testing.T) {
	page := make([]byte, PageSize)
	fillEmpty(page, 0)
	writePPISlot(page, 8, PhysPageId{PageID: 7, BankID: 0})

	if !isMetaVec2Start(page, 7) {
		t.Error("isMetaVec2Start() = false, want true")
	}
}

// fillEmpty fills page with the empty PPI terminator from startOffset on,
// leaving anything before startOffset as zero bytes.
func fillEmpty(page []byte, startOffset int) {
	for i := startOffset; i+8 <= len(page); i += 8 {
		writePPISlot(page, i, emptyPPI)
	}
}

func TestReadMetaVec_SinglePage(t *testing.T) {
	root := PhysPageId{PageID: 5, BankID: 0}
	page := make([]byte, PageSize)
	fillEmpty(page, 0)

	// The root marker shares its bytes with the next-pointer field: byte
	// offset 4 is next_page_id (p1) and offset 8 is next_bank_id (p2).
	// A page both marks itself as a v1 root (p2 == own page id) and
	// terminates its chain by pairing next_page_id=-1 with
	// next_bank_id=root page id, which readPPI resolves to an invalid
	// (and therefore non-continuing) PhysPageId.
	binary.LittleEndian.PutUint32(page[0:4], 0) // p0, must not be -1
	binary.LittleEndian.PutUint32(page[4:8], uint32(int32(-1)))
	binary.LittleEndian.PutUint32(page[8:12], uint32(root.PageID))

	entries := []PhysPageId{{1, 0}, {2, 0}, {3, 1}}
	for i, e := range entries {
		writePPISlot(page, 0x10+i*8, e)
	}

	store := fakeStore(map[PhysPageId][]byte{root: page})
	got, err := readMetaVec(store, root)
	if err != nil {
		t.Fatalf("readMetaVec() error = %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("len(got) = %d, want %d", len(got), len(entries))
	}
	for i, e := range entries {
		if got[i] != e {
			t.Errorf("got[%d] = %+v, want %+v", i, got[i], e)
		}
	}
}

func TestScanEntries_SkipsHole(t *testing.T) {
	// The dense entry region must span past the hole stride (512 entries,
	// i.e. 0x1000 bytes past the start offset) to exercise the skip at all;
	// a single PageSize-bounded buffer never reaches it.
	holeOffset := 0x10 + metavecHoleStride
	page := make([]byte, holeOffset+0x20)
	fillEmpty(page, 0)

	for i := 0; i < 512; i++ {
		writePPISlot(page, 0x10+i*8, PhysPageId{PageID: int32(i), BankID: 0})
	}
	writePPISlot(page, holeOffset, PhysPageId{PageID: 99, BankID: 0})
	writePPISlot(page, holeOffset+8, PhysPageId{PageID: 512, BankID: 0})

	got := scanEntries(page, 0x10, nil)
	for _, e := range got {
		if e.PageID == 99 {
			t.Errorf("scanEntries() included entry at the hole offset %#x, want it skipped", holeOffset)
		}
	}
	if len(got) != 513 {
		t.Fatalf("len(got) = %d, want 513 (512 before the hole + 1 after)", len(got))
	}
	if got[512].PageID != 512 {
		t.Errorf("got[512].PageID = %d, want 512 (first entry after the hole)", got[512].PageID)
	}
}

func TestReadPageStack_UnknownFormat(t *testing.T) {
	root := PhysPageId{PageID: 1, BankID: 0}
	page := make([]byte, PageSize)
	fillEmpty(page, 0)
	// neither v1 nor v2 marker is present

	store := fakeStore(map[PhysPageId][]byte{root: page})
	got, err := readPageStack(store, root)
	if err != nil {
		t.Fatalf("readPageStack() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("readPageStack() = %v, want empty", got)
	}
}
