package vbk

import "fmt"

// CompType is a storage-block compression algorithm code.
type CompType uint8

const (
	CompNone   CompType = 0xFF
	CompRLE    CompType = 2
	CompZlibHi CompType = 3
	CompZlibLo CompType = 4
	CompLZ4    CompType = 7
	CompZstd3  CompType = 8
	CompZstd9  CompType = 9
)

func (c CompType) String() string {
	switch c {
	case CompNone:
		return "None"
	case CompRLE:
		return "RLE"
	case CompZlibHi:
		return "ZlibHi"
	case CompZlibLo:
		return "ZlibLo"
	case CompLZ4:
		return "LZ4"
	case CompZstd3:
		return "Zstd3"
	case CompZstd9:
		return "Zstd9"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(c))
	}
}

// valid reports whether c is one of the known compression codes.
func (c CompType) valid() bool {
	switch c {
	case CompNone, CompRLE, CompZlibHi, CompZlibLo, CompLZ4, CompZstd3, CompZstd9:
		return true
	}
	return false
}

// Location is a storage-block location code.
type Location uint8

const (
	LocationNormal              Location = 0
	LocationSparse              Location = 1
	LocationReserved            Location = 2
	LocationArchived            Location = 3
	LocationBlockInBlob         Location = 4
	LocationBlockInBlobReserved Location = 5
)

func (l Location) String() string {
	switch l {
	case LocationNormal:
		return "Normal"
	case LocationSparse:
		return "Sparse"
	case LocationReserved:
		return "Reserved"
	case LocationArchived:
		return "Archived"
	case LocationBlockInBlob:
		return "BlockInBlob"
	case LocationBlockInBlobReserved:
		return "BlockInBlobReserved"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(l))
	}
}

// FileType is a directory-item's file_type discriminator.
type FileType uint32

const (
	FileTypeEnd       FileType = 0
	FileTypeSubfolder FileType = 1
	FileTypeExtFib    FileType = 2
	FileTypeIntFib    FileType = 3
	FileTypePatch     FileType = 4
	FileTypeIncrement FileType = 5
)

func (t FileType) String() string {
	switch t {
	case FileTypeSubfolder:
		return "Dir"
	case FileTypeExtFib:
		return "ExtFib"
	case FileTypeIntFib:
		return "IntFib"
	case FileTypePatch:
		return "Patch"
	case FileTypeIncrement:
		return "Increment"
	default:
		return fmt.Sprintf("Unknown(%d)", uint32(t))
	}
}

// IsDir reports whether t names a subfolder entry.
func (t FileType) IsDir() bool { return t == FileTypeSubfolder }

// IsIncrement reports whether t names a patch or incremental-backup entry.
func (t FileType) IsIncrement() bool { return t == FileTypePatch || t == FileTypeIncrement }
