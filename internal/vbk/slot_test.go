package vbk

import (
	"encoding/binary"
	"errors"
	"testing"
)

// buildSlot constructs a minimal valid slot record with allocatedBanks
// bank info entries, all passing BankInfo.valid for any file size larger
// than their offsets.
func buildSlot(t *testing.T, allocatedBanks, maxBanks uint32) []byte {
	t.Helper()
	data := make([]byte, 0x7C+int(allocatedBanks)*16)

	binary.LittleEndian.PutUint32(data[0:4], 0xDEADBEEF) // crc
	binary.LittleEndian.PutUint32(data[4:8], 1)           // has_snapshot
	binary.LittleEndian.PutUint32(data[0x74:0x78], maxBanks)
	binary.LittleEndian.PutUint32(data[0x78:0x7C], allocatedBanks)

	for i := uint32(0); i < allocatedBanks; i++ {
		off := 0x7C + int(i)*16
		binary.LittleEndian.PutUint32(data[off:off+4], 1) // crc
		binary.LittleEndian.PutUint64(data[off+4:off+12], uint64(0x100000+i*0x22000))
		binary.LittleEndian.PutUint32(data[off+12:off+16], 0x22000)
	}
	return data
}

func TestReadSlot_RoundTrip(t *testing.T) {
	data := buildSlot(t, 3, 10)
	slot, err := readSlot(data, 0x1000)
	if err != nil {
		t.Fatalf("readSlot() error = %v", err)
	}
	if slot.MaxBanks != 10 {
		t.Errorf("MaxBanks = %d, want 10", slot.MaxBanks)
	}
	if slot.AllocatedBanks != 3 {
		t.Errorf("AllocatedBanks = %d, want 3", slot.AllocatedBanks)
	}
	if len(slot.BankInfos) != 3 {
		t.Fatalf("len(BankInfos) = %d, want 3", len(slot.BankInfos))
	}
	if !slot.FastValid() {
		t.Error("FastValid() = false, want true")
	}
}

func TestSelectSlot_PrefersSlot0(t *testing.T) {
	slot0 := mustReadSlot(t, buildSlot(t, 1, 5), 0x1000)
	slot1 := mustReadSlot(t, buildSlot(t, 1, 5), 0x81000)

	chosen, err := selectSlot([2]SlotInfo{slot0, slot1})
	if err != nil {
		t.Fatalf("selectSlot() error = %v", err)
	}
	if chosen.Offset != slot0.Offset {
		t.Errorf("selectSlot() picked offset %#x, want slot 0 at %#x", chosen.Offset, slot0.Offset)
	}
}

func TestSelectSlot_FallsBackToSlot1(t *testing.T) {
	bad := buildSlot(t, 1, 5)
	binary.LittleEndian.PutUint32(bad[0:4], 0) // crc = 0, fails fast validation
	slot0 := mustReadSlot(t, bad, 0x1000)
	slot1 := mustReadSlot(t, buildSlot(t, 1, 5), 0x81000)

	chosen, err := selectSlot([2]SlotInfo{slot0, slot1})
	if err != nil {
		t.Fatalf("selectSlot() error = %v", err)
	}
	if chosen.Offset != slot1.Offset {
		t.Errorf("selectSlot() picked offset %#x, want slot 1 at %#x", chosen.Offset, slot1.Offset)
	}
}

func TestSelectSlot_BothCorrupt(t *testing.T) {
	bad0 := buildSlot(t, 1, 5)
	binary.LittleEndian.PutUint32(bad0[0:4], 0)
	bad1 := buildSlot(t, 1, 5)
	binary.LittleEndian.PutUint32(bad1[4:8], 0) // has_snapshot = 0

	slot0 := mustReadSlot(t, bad0, 0x1000)
	slot1 := mustReadSlot(t, bad1, 0x81000)

	_, err := selectSlot([2]SlotInfo{slot0, slot1})
	if !errors.Is(err, ErrCorruptSlots) {
		t.Errorf("selectSlot() error = %v, want ErrCorruptSlots", err)
	}
}

func mustReadSlot(t *testing.T, data []byte, offset int64) SlotInfo {
	t.Helper()
	slot, err := readSlot(data, offset)
	if err != nil {
		t.Fatalf("readSlot() error = %v", err)
	}
	return slot
}

func TestBankInfo_Valid(t *testing.T) {
	fileSize := int64(0x10000000)
	tests := []struct {
		name string
		bi   BankInfo
		want bool
	}{
		{"valid", BankInfo{CRC: 1, Offset: 0x1000, Size: 0x22000}, true},
		{"zero crc", BankInfo{CRC: 0, Offset: 0x1000, Size: 0x22000}, false},
		{"zero offset", BankInfo{CRC: 1, Offset: 0, Size: 0x22000}, false},
		{"offset past eof", BankInfo{CRC: 1, Offset: fileSize + 1, Size: 0x22000}, false},
		{"unaligned size", BankInfo{CRC: 1, Offset: 0x1000, Size: 0x22001}, false},
		{"too small", BankInfo{CRC: 1, Offset: 0x1000, Size: 0x1000}, false},
		{"too large", BankInfo{CRC: 1, Offset: 0x1000, Size: 0x500000}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.bi.valid(fileSize); got != tt.want {
				t.Errorf("valid() = %v, want %v", got, tt.want)
			}
		})
	}
}
