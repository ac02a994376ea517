package vbk

import "encoding/binary"

const (
	metaTableDescriptorSize = 0x18
	metaTableMaxBlocks      = 0x440
	fibBlockSize            = 0x2E
	patchBlockSize          = 0x35
)

// MetaTableDescriptor indirects a logical block range onto a FIB page
// chain, or marks the range sparse or a trailing partial block.
type MetaTableDescriptor struct {
	Loc     uint64
	Size    uint64
	NBlocks uint64
}

func readMetaTableDescriptor(data []byte, off int) MetaTableDescriptor {
	return MetaTableDescriptor{
		Loc:     binary.LittleEndian.Uint64(data[off : off+8]),
		Size:    binary.LittleEndian.Uint64(data[off+8 : off+16]),
		NBlocks: binary.LittleEndian.Uint64(data[off+16 : off+24]),
	}
}

// PPI is the page reference this descriptor's Loc field packs.
func (d MetaTableDescriptor) PPI() PhysPageId { return ppiFromLoc(d.Loc) }

// IsEmpty reports whether d is the all-zero end-of-list marker.
func (d MetaTableDescriptor) IsEmpty() bool {
	p := d.PPI()
	return p.Zero() && d.Size == 0 && d.NBlocks == 0
}

// IsSparse reports whether d covers a fully unallocated block range.
func (d MetaTableDescriptor) IsSparse() bool {
	p := d.PPI()
	return d.NBlocks == 0 && p.Empty() && d.Size == BlockSize
}

// valid applies the three-way shape check from spec.md section 4.8:
// sparse descriptors, the trailing partial block, and regular full blocks
// each have a distinct required shape.
func (d MetaTableDescriptor) valid() bool {
	p := d.PPI()
	switch {
	case d.NBlocks == 0:
		return d.IsSparse()
	case d.NBlocks == 1:
		return p.Valid() && !p.Zero() && d.Size > 0 && d.Size < BlockSize
	default:
		return p.Valid() && !p.Zero() && d.Size == BlockSize && d.NBlocks <= metaTableMaxBlocks
	}
}

// readMetaTableDescriptors decodes fixed-size descriptor records from
// page until the end-of-list marker or the page runs out of room.
// It returns the decoded descriptors and whether an end marker was hit.
func readMetaTableDescriptors(page []byte, dst []MetaTableDescriptor) (out []MetaTableDescriptor, stop bool) {
	for off := 0; off+metaTableDescriptorSize <= len(page); off += metaTableDescriptorSize {
		d := readMetaTableDescriptor(page, off)
		if d.IsEmpty() {
			return dst, true
		}
		dst = append(dst, d)
	}
	return dst, false
}

// SparseBlock is a marker type for a block covered by a sparse meta table
// descriptor: it names no real data and is never independently valid.
// ReadFileBlockDescriptors does not produce it; it emits zero-valued
// FibBlock records for sparse ranges instead (see FibBlock.IsSparse).
type SparseBlock struct{}

func (SparseBlock) valid() bool     { return false }
func (SparseBlock) IsSparse() bool  { return true }
func (SparseBlock) IsEncrypted() bool { return false }

// FibBlock is one entry in a file's block chain: it names the datastore
// block holding this logical block's data.
type FibBlock struct {
	Size    uint32
	LocType uint8
	Digest  [16]byte
	ID      uint64
	Flags   uint8
	KeysetID [16]byte
}

func readFibBlock(data []byte, off int) FibBlock {
	var raw [16]byte
	copy(raw[:], data[off+5:off+21])
	var keyset [16]byte
	copy(keyset[:], data[off+30:off+46])

	return FibBlock{
		Size:     binary.LittleEndian.Uint32(data[off : off+4]),
		LocType:  data[off+4],
		Digest:   swapDigest(raw),
		ID:       binary.LittleEndian.Uint64(data[off+21 : off+29]),
		Flags:    data[off+29],
		KeysetID: keyset,
	}
}

// valid reports whether the descriptor names a real, in-range block.
func (b FibBlock) valid() bool {
	return b.Size > 0 && uint64(b.Size) <= BlockSize &&
		(b.LocType == 0 || b.LocType == 1) &&
		!digestIsZero(b.Digest)
}

// IsSparse reports whether the record is an explicit empty placeholder.
func (b FibBlock) IsSparse() bool {
	return b.Size == 0 && b.ID == 0 && digestIsZero(b.Digest)
}

// IsEncrypted reports whether the block references an encryption keyset.
func (b FibBlock) IsEncrypted() bool { return !digestIsZero(b.KeysetID) }

// readFibBlocks decodes fixed-size FIB records from page, stopping at the
// first all-zero end marker (id == 0 && size == 0).
func readFibBlocks(page []byte, dst []FibBlock, limit int) (out []FibBlock, stop bool) {
	perPage := len(page) / fibBlockSize
	for i := 0; i < perPage; i++ {
		off := i * fibBlockSize
		if off+fibBlockSize > len(page) {
			break
		}
		b := readFibBlock(page, off)
		if b.ID == 0 && b.Size == 0 {
			return dst, true
		}
		dst = append(dst, b)
		if limit > 0 && len(dst) >= limit {
			return dst, true
		}
	}
	return dst, false
}

// PatchBlock is one entry in an incremental backup's block chain.
type PatchBlock struct {
	Size    uint32
	LocType uint8
	Digest  [16]byte
	ID      uint64
	Offset  uint64
	KeysetID [16]byte
}

func readPatchBlock(data []byte, off int) PatchBlock {
	var raw [16]byte
	copy(raw[:], data[off+5:off+21])
	var keyset [16]byte
	copy(keyset[:], data[off+37:off+53])

	return PatchBlock{
		Size:     binary.LittleEndian.Uint32(data[off : off+4]),
		LocType:  data[off+4],
		Digest:   swapDigest(raw),
		ID:       binary.LittleEndian.Uint64(data[off+21 : off+29]),
		Offset:   binary.LittleEndian.Uint64(data[off+29 : off+37]),
		KeysetID: keyset,
	}
}

// valid reports whether the descriptor names a full, real backing block.
func (b PatchBlock) valid() bool {
	return uint64(b.Size) == BlockSize &&
		b.LocType == 0 &&
		!digestIsZero(b.Digest)
}

// readPatchBlocks decodes fixed-size patch records from page, terminating
// on the (size == 0 && id == 0) end marker. Records with size == 0 (but a
// nonzero id) or size > BlockSize are skipped rather than terminating the
// scan, matching the tolerant behavior of the rest of the block-descriptor
// readers.
func readPatchBlocks(page []byte, dst []PatchBlock, limit int) (out []PatchBlock, stop bool) {
	perPage := len(page) / patchBlockSize
	for i := 0; i < perPage; i++ {
		off := i * patchBlockSize
		if off+patchBlockSize > len(page) {
			break
		}
		b := readPatchBlock(page, off)
		if b.Size == 0 && b.ID == 0 {
			return dst, true
		}
		if b.Size == 0 || uint64(b.Size) > BlockSize {
			continue
		}
		dst = append(dst, b)
		if limit > 0 && len(dst) >= limit {
			return dst, true
		}
	}
	return dst, false
}
