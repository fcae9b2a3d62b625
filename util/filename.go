package util

import (
	"strings"
)

const (
	SEGMENTS = "segments"

	// Lock files are named <prefix><name><LOCK_EXT>.
	LOCK_EXT = ".lck"
)

// Extensions of every file a segment store owns.
var INDEX_EXTENSIONS = map[string]bool{
	"cfs": true, // compound
	"fnm": true, // field infos
	"fdt": true, // stored fields data
	"fdx": true, // stored fields index
	"tis": true, // term infos
	"tix": true, // term checkpoints
	"tfx": true, // term field index
	"frq": true, // postings frequencies
	"prx": true, // postings positions
	"del": true, // deletions
	"gen": true,
}

// Builds "<segment>.<ext>", or "<segment>_<suffix>.<ext>" when suffix is set.
func SegmentFileName(name, suffix, ext string) string {
	if len(ext) == 0 && len(suffix) == 0 {
		return name
	}
	var b strings.Builder
	b.WriteString(name)
	if len(suffix) > 0 {
		b.WriteByte('_')
		b.WriteString(suffix)
	}
	if len(ext) > 0 {
		b.WriteByte('.')
		b.WriteString(ext)
	}
	return b.String()
}

// Returns the segment name part of filename, the text before the first '.'.
func ParseSegmentName(filename string) string {
	if idx := strings.IndexByte(filename, '.'); idx != -1 {
		return filename[:idx]
	}
	return filename
}

func StripExtension(filename string) string {
	if idx := strings.LastIndexByte(filename, '.'); idx != -1 {
		return filename[:idx]
	}
	return filename
}

func FileExtension(filename string) string {
	if idx := strings.LastIndexByte(filename, '.'); idx != -1 {
		return filename[idx+1:]
	}
	return ""
}

func IsLockFile(filename string) bool {
	return strings.HasSuffix(filename, LOCK_EXT)
}

/*
Reports whether filename is managed by a segment store: a segments file,
or a file with one of INDEX_EXTENSIONS. Norm files (".f<n>", ".s<n>") are
included. Lock files only count when includeLocks is set.
*/
func IsIndexFile(filename string, includeLocks bool) bool {
	if IsLockFile(filename) {
		return includeLocks
	}
	if strings.HasPrefix(filename, SEGMENTS) {
		return true
	}
	ext := FileExtension(filename)
	if INDEX_EXTENSIONS[ext] {
		return true
	}
	if len(ext) > 1 && (ext[0] == 'f' || ext[0] == 's') {
		for _, c := range ext[1:] {
			if c < '0' || c > '9' {
				return false
			}
		}
		return true
	}
	return false
}
