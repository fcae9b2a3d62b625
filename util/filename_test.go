package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSegmentFileName(t *testing.T) {
	assert.Equal(t, "_0.tis", SegmentFileName("_0", "", "tis"))
	assert.Equal(t, "_0_1.del", SegmentFileName("_0", "1", "del"))
	assert.Equal(t, "_0", SegmentFileName("_0", "", ""))
}

func TestParseSegmentName(t *testing.T) {
	assert.Equal(t, "_0", ParseSegmentName("_0.fnm"))
	assert.Equal(t, "_0", ParseSegmentName("_0"))
	assert.Equal(t, "_a1", StripExtension("_a1.cfs"))
	assert.Equal(t, "cfs", FileExtension("_a1.cfs"))
}

func TestIsIndexFile(t *testing.T) {
	for _, tc := range []struct {
		name  string
		plain bool
		locks bool
	}{
		{"segments", true, true},
		{"segments_2", true, true},
		{"_0.cfs", true, true},
		{"_0.f12", true, true},
		{"_0.s3", true, true},
		{"_0.fx", false, false},
		{"write.lck", false, true},
		{"README", false, false},
		{"_0.txt", false, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.plain, IsIndexFile(tc.name, false))
			assert.Equal(t, tc.locks, IsIndexFile(tc.name, true))
		})
	}
}
