package vbk

import (
	"encoding/binary"
	"testing"
)

func buildStorageBlockBytes(t *testing.T, b StorageBlock) []byte {
	t.Helper()
	data := make([]byte, StorageBlockSize)
	data[0] = byte(b.Location)
	binary.LittleEndian.PutUint32(data[1:5], b.RefCount)
	binary.LittleEndian.PutUint64(data[5:13], b.Offset)
	binary.LittleEndian.PutUint32(data[0x0D:0x11], b.AllocSize)
	data[0x11] = b.Dedup
	raw := swapDigest(b.Digest) // undo readStorageBlock's swap, since the wire form is what swapDigest untangles
	copy(data[0x12:0x22], raw[:])
	data[0x22] = byte(b.CompType)
	binary.LittleEndian.PutUint32(data[0x24:0x28], b.CompSize)
	binary.LittleEndian.PutUint32(data[0x28:0x2C], b.SrcSize)
	copy(data[0x2C:0x3C], b.KeysetID[:])
	return data
}

func TestReadStorageBlock_RoundTrip(t *testing.T) {
	want := StorageBlock{
		Location:  LocationBlockInBlob,
		RefCount:  3,
		Offset:    0x12345,
		AllocSize: 0x2000,
		Dedup:     1,
		Digest:    [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
		CompType:  CompZstd9,
		CompSize:  0x1000,
		SrcSize:   0x1800,
	}
	data := buildStorageBlockBytes(t, want)

	got := readStorageBlock(data, 0)
	if got != want {
		t.Errorf("readStorageBlock() = %+v, want %+v", got, want)
	}
}

func TestStorageBlock_Valid(t *testing.T) {
	digest := [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}

	tests := []struct {
		name string
		b    StorageBlock
		want bool
	}{
		{
			name: "populated with digest",
			b:    StorageBlock{Location: LocationBlockInBlob, AllocSize: 0x2000, Digest: digest, CompSize: 0x1000, SrcSize: 0x1800, CompType: CompZstd9},
			want: true,
		},
		{
			name: "populated without digest",
			b:    StorageBlock{Location: LocationBlockInBlob, AllocSize: 0x2000},
			want: true,
		},
		{
			name: "wrong location",
			b:    StorageBlock{Location: LocationNormal, AllocSize: 0x2000},
			want: false,
		},
		{
			name: "zero alloc size",
			b:    StorageBlock{Location: LocationBlockInBlob, AllocSize: 0},
			want: false,
		},
		{
			name: "comp size exceeds alloc",
			b:    StorageBlock{Location: LocationBlockInBlob, AllocSize: 0x100, Digest: digest, CompSize: 0x200, SrcSize: 0x200, CompType: CompZstd9},
			want: false,
		},
		{
			name: "digest but unknown comp type",
			b:    StorageBlock{Location: LocationBlockInBlob, AllocSize: 0x2000, Digest: digest, CompSize: 0x1000, SrcSize: 0x1800, CompType: CompType(0x11)},
			want: false,
		},
		{
			name: "digest but zero comp size",
			b:    StorageBlock{Location: LocationBlockInBlob, AllocSize: 0x2000, Digest: digest, CompSize: 0, SrcSize: 0x1800, CompType: CompZstd9},
			want: false,
		},
		{
			name: "no digest but comp size set",
			b:    StorageBlock{Location: LocationBlockInBlob, AllocSize: 0x2000, CompSize: 0x1000},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.b.valid(); got != tt.want {
				t.Errorf("valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStorageBlock_HasDigestAndEncrypted(t *testing.T) {
	var b StorageBlock
	if b.HasDigest() {
		t.Error("HasDigest() = true for zero digest, want false")
	}
	if b.IsEncrypted() {
		t.Error("IsEncrypted() = true for zero keyset, want false")
	}

	b.Digest[0] = 1
	if !b.HasDigest() {
		t.Error("HasDigest() = false for non-zero digest, want true")
	}

	b.KeysetID[0] = 1
	if !b.IsEncrypted() {
		t.Error("IsEncrypted() = false for non-zero keyset, want true")
	}
}

func TestStorageBlock_IsEmpty(t *testing.T) {
	tests := []struct {
		name string
		b    StorageBlock
		want bool
	}{
		{"zeroed record", StorageBlock{}, true},
		{"ff sentinel", StorageBlock{Location: 0xFF, RefCount: 0xFFFFFFFF}, true},
		{"populated", StorageBlock{Location: LocationBlockInBlob, AllocSize: 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.b.IsEmpty(); got != tt.want {
				t.Errorf("IsEmpty() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReadStorageBlocks_PacksMultiple(t *testing.T) {
	const n = 4
	page := make([]byte, n*StorageBlockSize+10) // trailing partial record must be ignored
	for i := 0; i < n; i++ {
		rec := buildStorageBlockBytes(t, StorageBlock{Location: LocationBlockInBlob, AllocSize: uint32(i + 1)})
		copy(page[i*StorageBlockSize:], rec)
	}

	got := readStorageBlocks(page, nil)
	if len(got) != n {
		t.Fatalf("len(got) = %d, want %d", len(got), n)
	}
	for i, b := range got {
		if b.AllocSize != uint32(i+1) {
			t.Errorf("got[%d].AllocSize = %d, want %d", i, b.AllocSize, i+1)
		}
	}
}
