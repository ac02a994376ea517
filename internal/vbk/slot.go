package vbk

import (
	"encoding/binary"
	"fmt"
)

const (
	slot0Offset   = 0x1000
	slotRegionLen = 0x80000
	maxMaxBanks   = 0xFFA0
)

// BankInfo is one redundant slot's on-disk description of a bank.
type BankInfo struct {
	CRC    uint32
	Offset int64
	Size   uint32
}

// valid checks BankInfo against the file size; invalid entries become
// placeholders (the slot stays usable, only references into them fail).
func (b BankInfo) valid(fileSize int64) bool {
	return b.CRC != 0 &&
		b.Offset > 0 && b.Offset < fileSize &&
		b.Size%PageSize == 0 &&
		b.Size >= 0x22000 && b.Size <= 0x402000
}

// ObjRefs are the root pointers of an active snapshot.
type ObjRefs struct {
	MetaRootDirPage   PhysPageId
	ChildrenNum       uint64
	DataStoreRootPage PhysPageId
	BlocksCount       uint64
	FreeBlocksRoot    PhysPageId
	DedupRoot         PhysPageId
	CryptoStoreRoot   PhysPageId
	ArchiveBlobStore  PhysPageId
}

func readObjRefs(data []byte) ObjRefs {
	return ObjRefs{
		MetaRootDirPage:   readPPI(data[0:8]),
		ChildrenNum:       binary.LittleEndian.Uint64(data[8:16]),
		DataStoreRootPage: readPPI(data[16:24]),
		BlocksCount:       binary.LittleEndian.Uint64(data[24:32]),
		FreeBlocksRoot:    readPPI(data[32:40]),
		DedupRoot:         readPPI(data[40:48]),
		// offsets 48 and 56 are reserved/unused slots.
		CryptoStoreRoot:  readPPI(data[64:72]),
		ArchiveBlobStore: readPPI(data[72:80]),
	}
}

// SnapshotDescriptor is the root metadata for a single active snapshot.
type SnapshotDescriptor struct {
	Version     uint64
	StorageEOF  uint64
	NBanks      uint32
	ObjRefs     ObjRefs
}

func readSnapshotDescriptor(data []byte) SnapshotDescriptor {
	return SnapshotDescriptor{
		Version:    binary.LittleEndian.Uint64(data[0:8]),
		StorageEOF: binary.LittleEndian.Uint64(data[8:16]),
		NBanks:     binary.LittleEndian.Uint32(data[16:20]),
		ObjRefs:    readObjRefs(data[20:100]),
	}
}

// SlotInfo is one of the two redundant top-level control records.
type SlotInfo struct {
	Offset         int64
	CRC            uint32
	HasSnapshot    uint32
	Snapshot       SnapshotDescriptor
	MaxBanks       uint32
	AllocatedBanks uint32
	BankInfos      []BankInfo
}

// FastValid performs the quick selection check from spec.md section 4.2,
// without validating the individual bank info records.
func (s SlotInfo) FastValid() bool {
	return s.CRC != 0 &&
		s.HasSnapshot == 1 &&
		s.MaxBanks > 0 && s.MaxBanks <= maxMaxBanks &&
		s.AllocatedBanks <= s.MaxBanks
}

func readSlot(data []byte, offset int64) (SlotInfo, error) {
	if len(data) < 0x7C {
		return SlotInfo{}, fmt.Errorf("%w: slot record truncated", ErrCorruptSlots)
	}

	s := SlotInfo{
		Offset:      offset,
		CRC:         binary.LittleEndian.Uint32(data[0:4]),
		HasSnapshot: binary.LittleEndian.Uint32(data[4:8]),
		Snapshot:    readSnapshotDescriptor(data[8:108]),
	}
	s.MaxBanks = binary.LittleEndian.Uint32(data[0x74:0x78])
	s.AllocatedBanks = binary.LittleEndian.Uint32(data[0x78:0x7C])

	need := 0x7C + int(s.AllocatedBanks)*16
	if need > len(data) {
		return SlotInfo{}, fmt.Errorf("%w: bank info table truncated", ErrCorruptSlots)
	}

	s.BankInfos = make([]BankInfo, s.AllocatedBanks)
	for i := range s.BankInfos {
		off := 0x7C + i*16
		s.BankInfos[i] = BankInfo{
			CRC:    binary.LittleEndian.Uint32(data[off : off+4]),
			Offset: int64(binary.LittleEndian.Uint64(data[off+4 : off+12])),
			Size:   binary.LittleEndian.Uint32(data[off+12 : off+16]),
		}
	}
	return s, nil
}

// strictValid re-checks the chosen slot after fast selection, on the same
// fields FastValid tests, and reports the first failing field as
// ErrCorruptSlots. Bank info records are not checked here.
func (s SlotInfo) strictValid() error {
	if s.CRC == 0 {
		return fmt.Errorf("%w: crc is 0", ErrCorruptSlots)
	}
	if s.HasSnapshot != 1 {
		return fmt.Errorf("%w: has_snapshot=%d", ErrCorruptSlots, s.HasSnapshot)
	}
	if s.MaxBanks == 0 || s.MaxBanks > maxMaxBanks {
		return fmt.Errorf("%w: max_banks=%#x out of range", ErrCorruptSlots, s.MaxBanks)
	}
	if s.AllocatedBanks > s.MaxBanks {
		return fmt.Errorf("%w: allocated_banks=%d > max_banks=%d", ErrCorruptSlots, s.AllocatedBanks, s.MaxBanks)
	}
	return nil
}

// selectSlot implements the spec.md section 4.2 selection policy: prefer
// slot 0 whenever it passes fast validation, otherwise fall back to slot 1.
// The chosen slot must then pass strict validation or the open is fatal.
func selectSlot(slots [2]SlotInfo) (SlotInfo, error) {
	chosen := slots[1]
	if slots[0].FastValid() {
		chosen = slots[0]
	}
	if err := chosen.strictValid(); err != nil {
		return SlotInfo{}, err
	}
	return chosen, nil
}
