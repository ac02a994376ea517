package vbk

import (
	"encoding/binary"
	"fmt"
)

const (
	metaBlobPageHeaderSize = 0xC
	metaBlobPagePayload    = PageSize - metaBlobPageHeaderSize
	metaBlobMaxPages       = 7999
	metaBlobMaxPayload     = metaBlobMaxPages * metaBlobPagePayload
)

// readMetaBlob reassembles a size-prefixed byte stream scattered across a
// page chain rooted at root. Each page reserves its first 12 bytes for a
// next-page PhysPageId and the blob's total size (only meaningful on the
// first page).
func readMetaBlob(store *PageStore, root PhysPageId) ([]byte, error) {
	first, err := store.Get(root)
	if err != nil {
		return nil, err
	}
	if first == nil || len(first) < metaBlobPageHeaderSize {
		return nil, nil
	}

	size := binary.LittleEndian.Uint32(first[8:12])
	if size >= metaBlobMaxPayload {
		return nil, fmt.Errorf("vbk: meta blob size %d exceeds maximum payload", size)
	}

	npages := 1
	if size > 0 {
		npages = int(size) / metaBlobPagePayload
		if int(size)%metaBlobPagePayload != 0 {
			npages++
		}
	}

	buf := make([]byte, size)
	pos := 0
	current := root
	page := first

	for i := 0; i < npages; i++ {
		if page == nil {
			return nil, nil
		}

		next := readPPI(page[0:8])

		chunk := metaBlobPagePayload
		if pos+metaBlobPagePayload > int(size) {
			chunk = int(size) - pos
			if chunk == 0 {
				break
			}
		}
		copy(buf[pos:pos+chunk], page[metaBlobPageHeaderSize:metaBlobPageHeaderSize+chunk])
		pos += chunk

		if next.Empty() {
			break
		}
		current = next
		page, err = store.Get(current)
		if err != nil {
			return nil, err
		}
		if page != nil && len(page) < metaBlobPageHeaderSize {
			return nil, nil
		}
	}

	return buf, nil
}
