package vbk

import (
	"bytes"
	"testing"
)

func TestSwapDigest(t *testing.T) {
	raw := [16]byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}
	want := [16]byte{7, 6, 5, 4, 3, 2, 1, 0, 15, 14, 13, 12, 11, 10, 9, 8}

	got := swapDigest(raw)
	if !bytes.Equal(got[:], want[:]) {
		t.Errorf("swapDigest() = %v, want %v", got, want)
	}

	// applying the swap twice recovers the original value
	back := swapDigest(got)
	if back != raw {
		t.Errorf("swapDigest(swapDigest(x)) = %v, want %v", back, raw)
	}
}

func TestDigestIsZero(t *testing.T) {
	var zero [16]byte
	if !digestIsZero(zero) {
		t.Error("digestIsZero(zero) = false, want true")
	}

	nonZero := zero
	nonZero[5] = 1
	if digestIsZero(nonZero) {
		t.Error("digestIsZero(nonZero) = true, want false")
	}
}
