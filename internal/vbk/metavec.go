package vbk

import "encoding/binary"

const metavecHoleStride = 512 * 8

// isMetaVecStart reports whether page is the root page of a (v1) MetaVec
// chain: its third slot points back at its own page id and its first slot
// isn't the empty terminator.
func isMetaVecStart(page []byte, pageID int32) bool {
	if len(page) < 12 {
		return false
	}
	p0 := int32(binary.LittleEndian.Uint32(page[0:4]))
	p1 := int32(binary.LittleEndian.Uint32(page[4:8]))
	p2 := int32(binary.LittleEndian.Uint32(page[8:12]))
	return p2 == pageID && !(p0 == -1 && p1 == -1)
}

// isMetaVec2Start reports whether page is the root page of a MetaVec2
// chain: its first two slots are the empty marker and its third is its
// own page id.
func isMetaVec2Start(page []byte, pageID int32) bool {
	if len(page) < 12 {
		return false
	}
	p0 := int32(binary.LittleEndian.Uint32(page[0:4]))
	p1 := int32(binary.LittleEndian.Uint32(page[4:8]))
	p2 := int32(binary.LittleEndian.Uint32(page[8:12]))
	return p0 == -1 && p1 == -1 && p2 == pageID
}

// scanEntries walks the fixed-size PhysPageId slots of a page starting at
// startOffset, skipping the hole inserted every 512 entries, and appends
// every valid (non-negative, non-terminator) entry found. Bounded by the
// supplied buffer rather than the page size constant: a real bank page is
// always exactly PageSize bytes, so the two coincide in production, but the
// hole only falls within range at all when the dense region spans more than
// one page's worth of entries.
func scanEntries(page []byte, startOffset int, dst []PhysPageId) []PhysPageId {
	for i := startOffset; i+8 <= len(page); {
		if (i-startOffset)%metavecHoleStride == 0 && i != startOffset {
			i += 8
			continue
		}
		id := readPPI(page[i : i+8])
		if !id.Empty() && id.PageID >= 0 && id.BankID >= 0 {
			dst = append(dst, id)
		}
		i += 8
	}
	return dst
}

// readMetaVec walks a v1 MetaVec page chain rooted at root, collecting
// every entry slot across every linked page. The chain's next pointer
// lives at offset 4 of every page.
func readMetaVec(store *PageStore, root PhysPageId) ([]PhysPageId, error) {
	var pages []PhysPageId
	current := root

	for current.Valid() {
		page, err := store.Get(current)
		if err != nil {
			return nil, err
		}
		if page == nil {
			break
		}

		pages = scanEntries(page, 0x10, pages)

		next := readPPI(page[4:12])
		current = next
		if current.Empty() {
			break
		}
	}
	return pages, nil
}

// readMetaVec2 walks a MetaVec2 page chain rooted at root. The root page
// reserves its first 0x14 bytes for header fields (including the chain's
// own self-reference and next pointer at 0x10); continuation pages start
// their entry slots at 0x10 and chain via offset 4, matching v1.
func readMetaVec2(store *PageStore, root PhysPageId) ([]PhysPageId, error) {
	var pages []PhysPageId
	current := root
	isRoot := true

	for current.Valid() {
		page, err := store.Get(current)
		if err != nil {
			return nil, err
		}
		if page == nil {
			break
		}

		startOffset := 0x10
		if isRoot {
			startOffset = 0x14
		}
		pages = scanEntries(page, startOffset, pages)

		var next PhysPageId
		if isRoot {
			next = readPPI(page[0x10:0x18])
		} else {
			next = readPPI(page[4:12])
		}

		current = next
		isRoot = false
		if current.Empty() {
			break
		}
	}
	return pages, nil
}

// readPageStack auto-detects the chain format rooted at ppi and reads its
// full list of referenced pages. An unrecognized root format yields an
// empty, non-error result: callers treat it the same as an empty chain.
func readPageStack(store *PageStore, ppi PhysPageId) ([]PhysPageId, error) {
	root, err := store.Get(ppi)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, nil
	}

	switch {
	case isMetaVec2Start(root, ppi.PageID):
		return readMetaVec2(store, ppi)
	case isMetaVecStart(root, ppi.PageID):
		return readMetaVec(store, ppi)
	default:
		return nil, nil
	}
}
