package vbk

import "encoding/binary"

// StorageBlockSize is the fixed byte width of one storage block descriptor.
const StorageBlockSize = 0x3C

// StorageBlock describes one physical, possibly compressed and
// deduplicated block in the datastore.
type StorageBlock struct {
	Location Location
	RefCount uint32
	Offset   uint64
	AllocSize uint32
	Dedup    uint8
	Digest   [16]byte
	CompType CompType
	CompSize uint32
	SrcSize  uint32
	KeysetID [16]byte
}

func readStorageBlock(data []byte, off int) StorageBlock {
	var raw [16]byte
	copy(raw[:], data[off+0x12:off+0x22])

	var keyset [16]byte
	copy(keyset[:], data[off+0x2C:off+0x3C])

	return StorageBlock{
		Location:  Location(data[off]),
		RefCount:  binary.LittleEndian.Uint32(data[off+1 : off+5]),
		Offset:    binary.LittleEndian.Uint64(data[off+5 : off+13]),
		AllocSize: binary.LittleEndian.Uint32(data[off+0x0D : off+0x11]),
		Dedup:     data[off+0x11],
		Digest:    swapDigest(raw),
		CompType:  CompType(data[off+0x22]),
		CompSize:  binary.LittleEndian.Uint32(data[off+0x24 : off+0x28]),
		SrcSize:   binary.LittleEndian.Uint32(data[off+0x28 : off+0x2C]),
		KeysetID:  keyset,
	}
}

// HasDigest reports whether the block carries a non-zero content digest.
func (b StorageBlock) HasDigest() bool { return !digestIsZero(b.Digest) }

// IsEncrypted reports whether the block references an encryption keyset.
func (b StorageBlock) IsEncrypted() bool { return !digestIsZero(b.KeysetID) }

// valid reports whether the descriptor's fields form a self-consistent
// block-in-blob record with a nonzero alloc size no smaller than its
// compressed size: either one with a digest, nonzero sizes and a known
// compression code, or one with no digest and no compressed data. An
// all-zero (IsEmpty) record is not valid.
func (b StorageBlock) valid() bool {
	if b.Location != LocationBlockInBlob || b.AllocSize == 0 || b.AllocSize < b.CompSize {
		return false
	}
	if b.HasDigest() {
		return b.CompSize != 0 && b.SrcSize != 0 && b.CompType.valid()
	}
	return b.CompSize == 0 && b.SrcSize == 0 && b.CompType == 0 && b.Dedup == 0
}

// IsEmpty reports whether the descriptor is a placeholder slot that was
// never written to.
func (b StorageBlock) IsEmpty() bool {
	zeroBlock := b.Location == LocationNormal && b.RefCount == 0 && b.Offset == 0 &&
		b.AllocSize == 0 && !b.HasDigest()
	ffCheck := b.Location == 0xFF && b.RefCount == 0xFFFFFFFF
	return zeroBlock || ffCheck
}

// readStorageBlocks decodes every fixed-size storage block record packed
// into page, returning as many complete records as fit.
func readStorageBlocks(page []byte, dst []StorageBlock) []StorageBlock {
	for off := 0; off+StorageBlockSize <= len(page); off += StorageBlockSize {
		dst = append(dst, readStorageBlock(page, off))
	}
	return dst
}
