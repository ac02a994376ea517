package vbk

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Kind distinguishes a full backup file from an incremental one, purely
// from its file extension.
type Kind int

const (
	KindVBK Kind = iota
	KindVIB
)

func (k Kind) String() string {
	if k == KindVIB {
		return "VIB"
	}
	return "VBK"
}

// Parser is an open backup container file: its header, its chosen slot,
// and the page store built from that slot's bank table.
type Parser struct {
	Path     string
	Kind     Kind
	FileSize int64
	Header   HeaderInfo
	Slot     SlotInfo

	file  *os.File
	store *PageStore
}

// Open parses and validates filename's header and slot table, maps every
// bank of the chosen slot whose bank table entry passes validation (the
// others stay unmapped, so references into them resolve to nothing), and
// returns a ready-to-query Parser.
// The returned Parser must be closed with Close.
func Open(filename string) (*Parser, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("vbk: opening %s: %w", filename, err)
	}

	p, err := open(f, filename)
	if err != nil {
		f.Close()
		return nil, err
	}
	return p, nil
}

func open(f *os.File, filename string) (*Parser, error) {
	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("vbk: stat %s: %w", filename, err)
	}
	fileSize := st.Size()

	headerBuf := make([]byte, headerSize)
	if _, err := f.ReadAt(headerBuf, 0); err != nil {
		return nil, fmt.Errorf("vbk: reading header: %w", err)
	}
	header, err := readHeader(headerBuf)
	if err != nil {
		return nil, err
	}

	slotSize := int64(header.SlotSize())
	var rawSlots [2][]byte
	var slots [2]SlotInfo
	for i := range rawSlots {
		off := slot0Offset + int64(i)*slotRegionLen
		buf := make([]byte, slotSize)
		if _, err := f.ReadAt(buf, off); err != nil {
			return nil, fmt.Errorf("%w: reading slot %d: %v", ErrCorruptSlots, i, err)
		}
		rawSlots[i] = buf
		slot, err := readSlot(buf, off)
		if err != nil {
			return nil, err
		}
		slots[i] = slot
	}

	chosen, err := selectSlot(slots)
	if err != nil {
		return nil, err
	}

	store := newPageStore()
	for bankID, info := range chosen.BankInfos {
		if !info.valid(fileSize) {
			continue
		}
		bank, err := openBank(f, info)
		if err != nil {
			return nil, fmt.Errorf("vbk: opening bank %d: %w", bankID, err)
		}
		store.add(int32(bankID), bank)
	}

	kind := KindVBK
	if strings.EqualFold(filepath.Ext(filename), ".vib") {
		kind = KindVIB
	}

	return &Parser{
		Path:     filename,
		Kind:     kind,
		FileSize: fileSize,
		Header:   header,
		Slot:     chosen,
		file:     f,
		store:    store,
	}, nil
}

// Close unmaps every open bank and closes the underlying file.
func (p *Parser) Close() error {
	var firstErr error
	if p.store != nil {
		if err := p.store.close(); err != nil {
			firstErr = err
		}
	}
	if err := p.file.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// GetPage resolves a single PhysPageId to its raw bytes.
func (p *Parser) GetPage(id PhysPageId) ([]byte, error) {
	return p.store.Get(id)
}

// ReadPageStack walks the MetaVec/MetaVec2 chain rooted at id and returns
// every page it names, in traversal order.
func (p *Parser) ReadPageStack(id PhysPageId) ([]PhysPageId, error) {
	return readPageStack(p.store, id)
}

// ReadDirItems reads the flat list of directory items in the page chain
// rooted at id, without recursing into subfolders.
func (p *Parser) ReadDirItems(id PhysPageId) ([]DirItem, error) {
	return readDirItems(p.store, id)
}

// WalkDirectory recursively resolves the full directory tree rooted at
// id, bounded by the package default recursion depth.
func (p *Parser) WalkDirectory(id PhysPageId) ([]DirNode, error) {
	return walkDirectory(p.store, id, p.Header.MaxBanks(), 0, 0)
}

// WalkDirectoryDepth is WalkDirectory with an explicit recursion depth
// limit, letting callers tighten or loosen the package default.
func (p *Parser) WalkDirectoryDepth(id PhysPageId, maxDepth int) ([]DirNode, error) {
	return walkDirectory(p.store, id, p.Header.MaxBanks(), maxDepth, 0)
}

// Root returns the root directory page of the active snapshot.
func (p *Parser) Root() PhysPageId {
	return p.Slot.Snapshot.ObjRefs.MetaRootDirPage
}

// ReadStorageBlocks reads up to limit storage block descriptors from the
// page chain rooted at id. A limit of 0 means unbounded.
func (p *Parser) ReadStorageBlocks(id PhysPageId, limit int) ([]StorageBlock, error) {
	pages, err := p.ReadPageStack(id)
	if err != nil {
		return nil, err
	}

	var blocks []StorageBlock
	for _, pagePPI := range pages {
		page, err := p.store.Get(pagePPI)
		if err != nil {
			return nil, err
		}
		if page == nil {
			continue
		}
		blocks = readStorageBlocks(page, blocks)
		if limit > 0 && len(blocks) >= limit {
			return blocks[:limit], nil
		}
	}
	return blocks, nil
}

// ReadMetaTableDescriptors reads up to limit meta table descriptors from
// the page chain rooted at id, stopping at the first end-of-list marker.
func (p *Parser) ReadMetaTableDescriptors(id PhysPageId, limit int) ([]MetaTableDescriptor, error) {
	pages, err := p.ReadPageStack(id)
	if err != nil {
		return nil, err
	}

	var descs []MetaTableDescriptor
	for _, pagePPI := range pages {
		page, err := p.store.Get(pagePPI)
		if err != nil {
			return nil, err
		}
		if page == nil {
			continue
		}
		var stop bool
		descs, stop = readMetaTableDescriptors(page, descs)
		if limit > 0 && len(descs) >= limit {
			return descs[:limit], nil
		}
		if stop {
			return descs, nil
		}
	}
	return descs, nil
}

// ReadFileBlockDescriptors resolves item's block chain into the list of
// FIB block descriptors (or sparse placeholders) describing its content,
// indirecting through the meta table descriptor layer.
func (p *Parser) ReadFileBlockDescriptors(item DirItem) ([]FibBlock, error) {
	if item.BlocksLoc.Empty() || !item.BlocksLoc.Valid() {
		return nil, nil
	}

	metaTables, err := p.ReadMetaTableDescriptors(item.BlocksLoc, int(item.NBlocks))
	if err != nil {
		return nil, err
	}

	var all []FibBlock
	for _, mt := range metaTables {
		if mt.IsSparse() {
			for i := uint64(0); i < metaTableMaxBlocks; i++ {
				all = append(all, FibBlock{})
			}
			continue
		}
		mtPPI := mt.PPI()
		if !mtPPI.Valid() {
			continue
		}

		pages, err := p.ReadPageStack(mtPPI)
		if err != nil {
			return nil, err
		}
		for _, pagePPI := range pages {
			page, err := p.store.Get(pagePPI)
			if err != nil {
				return nil, err
			}
			if page == nil {
				continue
			}
			var stop bool
			all, stop = readFibBlocks(page, all, int(item.NBlocks))
			if stop || (item.NBlocks > 0 && uint64(len(all)) >= item.NBlocks) {
				return all, nil
			}
		}
	}
	return all, nil
}

// ReadPatchBlockDescriptors resolves item's block chain into the list of
// patch block descriptors describing an incremental backup entry.
func (p *Parser) ReadPatchBlockDescriptors(item DirItem) ([]PatchBlock, error) {
	if item.BlocksLoc.Empty() || !item.BlocksLoc.Valid() {
		return nil, nil
	}

	pages, err := p.ReadPageStack(item.BlocksLoc)
	if err != nil {
		return nil, err
	}

	var all []PatchBlock
	for _, pagePPI := range pages {
		page, err := p.store.Get(pagePPI)
		if err != nil {
			return nil, err
		}
		if page == nil {
			continue
		}
		var stop bool
		all, stop = readPatchBlocks(page, all, int(item.NBlocks))
		if stop {
			return all, nil
		}
	}
	return all, nil
}

// GetDatastoreBlock resolves a logical block id against the active
// snapshot's datastore root into its storage block descriptor.
func (p *Parser) GetDatastoreBlock(id uint64) (StorageBlock, bool, error) {
	blocks, err := p.ReadStorageBlocks(p.Slot.Snapshot.ObjRefs.DataStoreRootPage, int(id)+1)
	if err != nil {
		return StorageBlock{}, false, err
	}
	if id >= uint64(len(blocks)) {
		return StorageBlock{}, false, nil
	}
	return blocks[id], true, nil
}

// ReadPropsDictionary resolves a properties blob reference into its
// decoded key/value dictionary. A nil or empty id yields an empty,
// non-error result.
func (p *Parser) ReadPropsDictionary(id PhysPageId) (PropsDictionary, error) {
	if !id.Valid() {
		return PropsDictionary{Values: map[string]any{}}, nil
	}
	data, err := readMetaBlob(p.store, id)
	if err != nil {
		return PropsDictionary{}, err
	}
	if data == nil {
		return PropsDictionary{Values: map[string]any{}}, nil
	}
	return readPropsDictionary(data), nil
}
