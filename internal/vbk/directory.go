package vbk

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const dirItemSize = 0xC0

// DirItem is one entry in a directory page: a file or a subfolder.
type DirItem struct {
	FileType FileType
	NameLen  uint32
	Name     string

	PropsLoc PhysPageId

	// Populated for FileTypeSubfolder only.
	ChildrenLoc PhysPageId
	ChildrenNum uint64

	// Populated for file entries (everything but FileTypeSubfolder).
	BlocksLoc PhysPageId
	NBlocks   uint64
	FibSize   uint64
	Flags     uint8
	IncSize   uint64
}

func readDirItem(data []byte, off int) DirItem {
	fileType := FileType(binary.LittleEndian.Uint32(data[off : off+4]))
	nameLen := binary.LittleEndian.Uint32(data[off+4 : off+8])

	item := DirItem{FileType: fileType, NameLen: nameLen, PropsLoc: emptyPPI}
	if fileType == FileTypeEnd {
		return item
	}

	nameCap := nameLen
	if nameCap > 0x80 {
		nameCap = 0x80
	}
	nameBytes := data[off+8 : off+8+int(nameCap)]
	item.Name = string(bytes.TrimRight(nameBytes, "\x00"))

	item.PropsLoc = readPPI(data[off+0x88 : off+0x90])

	if fileType == FileTypeSubfolder {
		item.ChildrenLoc = readPPI(data[off+0x94 : off+0x9C])
		item.ChildrenNum = binary.LittleEndian.Uint64(data[off+0x9C : off+0xA4])
		return item
	}

	item.Flags = data[off+0x97]
	item.BlocksLoc = readPPI(data[off+0x98 : off+0xA0])
	item.NBlocks = binary.LittleEndian.Uint64(data[off+0xA0 : off+0xA8])
	item.FibSize = binary.LittleEndian.Uint64(data[off+0xA8 : off+0xB0])
	if fileType.IsIncrement() {
		item.IncSize = binary.LittleEndian.Uint64(data[off+0xB0 : off+0xB8])
	}
	return item
}

// IsDir reports whether the item names a subfolder.
func (i DirItem) IsDir() bool { return i.FileType.IsDir() }

// IsIncrement reports whether the item names a patch or incremental entry.
func (i DirItem) IsIncrement() bool { return i.FileType.IsIncrement() }

func validName(name string) bool {
	if len(name) == 0 {
		return false
	}
	for _, c := range name {
		if c < 0x20 {
			return false
		}
	}
	return true
}

// valid applies the shape checks from spec.md section 4.7. maxBanks of 0
// disables the bank-id range check.
func (i DirItem) valid(maxBanks uint32) bool {
	if i.FileType < FileTypeSubfolder || i.FileType > FileTypeIncrement {
		return false
	}
	if !validName(i.Name) {
		return false
	}
	if i.NameLen == 0 || i.NameLen > 0x80 {
		return false
	}

	if i.FileType == FileTypeSubfolder {
		if !i.ChildrenLoc.Valid() || i.ChildrenNum == 0 {
			return false
		}
		if maxBanks > 0 && uint32(i.ChildrenLoc.BankID) >= maxBanks {
			return false
		}
		return true
	}

	if i.FibSize == 0 || i.NBlocks > i.FibSize {
		return false
	}
	if !i.BlocksLoc.Empty() && !i.BlocksLoc.Valid() {
		return false
	}
	if maxBanks > 0 && !i.BlocksLoc.Empty() && uint32(i.BlocksLoc.BankID) >= maxBanks {
		return false
	}
	return true
}

// readDirItems reads every directory item reachable from the page chain
// rooted at ppi, stopping at the first end-of-list marker in each page.
func readDirItems(store *PageStore, ppi PhysPageId) ([]DirItem, error) {
	pages, err := readPageStack(store, ppi)
	if err != nil {
		return nil, err
	}

	var items []DirItem
	for _, pagePPI := range pages {
		page, err := store.Get(pagePPI)
		if err != nil {
			return nil, err
		}
		if page == nil {
			continue
		}

		for off := 0; off+dirItemSize <= PageSize; off += dirItemSize {
			item := readDirItem(page, off)
			if item.FileType == FileTypeEnd {
				break
			}
			items = append(items, item)
		}
	}
	return items, nil
}

// DirNode is one resolved entry of a walked directory tree: the item
// itself plus, for subfolders, its recursively walked children.
type DirNode struct {
	Item     DirItem
	Children []DirNode
}

// walkDirectory recursively resolves the directory tree rooted at ppi,
// bounded by maxDepth to guard against cyclic or pathologically deep
// corrupted inputs. maxDepth <= 0 falls back to maxDirectoryDepth.
func walkDirectory(store *PageStore, ppi PhysPageId, maxBanks uint32, maxDepth, depth int) ([]DirNode, error) {
	if maxDepth <= 0 {
		maxDepth = maxDirectoryDepth
	}
	if depth > maxDepth {
		return nil, fmt.Errorf("%w: depth %d", ErrDirectoryTooDeep, depth)
	}

	items, err := readDirItems(store, ppi)
	if err != nil {
		return nil, err
	}

	nodes := make([]DirNode, 0, len(items))
	for _, item := range items {
		node := DirNode{Item: item}
		if item.IsDir() && item.ChildrenLoc.Valid() {
			children, err := walkDirectory(store, item.ChildrenLoc, maxBanks, maxDepth, depth+1)
			if err != nil {
				return nil, err
			}
			node.Children = children
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}
