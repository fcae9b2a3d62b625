/*
Package codec holds the pieces shared by the file formats of a segment:
the codec header at the start of every file, and the compression
algorithms for stored field values.
*/
package codec

import (
	"github.com/balzaczyy/segstore/util"
)

// Constant to identify the start of a codec header.
const CODEC_MAGIC = 0x3fd76c17

/*
Writes a codec header, which records both a string to identify the file
and a version number. This header can be parsed and validated with
CheckHeader().

	CodecHeader --> Magic,CodecName,Version
	Magic       --> uint32. This identifies the start of the header. It is
	                always CODEC_MAGIC.
	CodecName   --> string. This is a string to identify this file.
	Version     --> uint32. Records the version of the file.

Note that the length of a codec header depends only upon the name of the
codec, so this length can be computed at any time with HeaderLength().
*/
func WriteHeader(out util.DataOutput, codec string, version int32) error {
	if len(codec) >= 128 {
		return util.Errorf(util.ErrArgument,
			"codec must be simple ASCII, less than 128 characters in length [got %v]", codec)
	}
	for i := 0; i < len(codec); i++ {
		if codec[i] >= 0x80 {
			return util.Errorf(util.ErrArgument, "codec must be simple ASCII [got %v]", codec)
		}
	}
	err := out.WriteUInt(CODEC_MAGIC)
	if err == nil {
		err = out.WriteString(codec)
		if err == nil {
			err = out.WriteInt(version)
		}
	}
	return err
}

// Computes the length of a codec header.
func HeaderLength(codec string) int {
	return 9 + len(codec)
}

/*
Reads and validates a header written by WriteHeader and returns its
version. A wrong magic, a different codec name or a version outside
[minVersion, maxVersion] is an error matching util.ErrIO.
*/
func CheckHeader(in util.DataInput, codec string, minVersion, maxVersion int32) (v int32, err error) {
	// Safety to guard against reading a bogus string:
	actualHeader, err := in.ReadUInt()
	if err != nil {
		return 0, err
	}
	if actualHeader != CODEC_MAGIC {
		return 0, util.Errorf(util.ErrIO,
			"corrupt: codec header mismatch: actual header=%v vs expected header=%v (resource: %v)",
			actualHeader, CODEC_MAGIC, in)
	}
	actualCodec, err := in.ReadString()
	if err != nil {
		return 0, err
	}
	if actualCodec != codec {
		return 0, util.Errorf(util.ErrIO,
			"corrupt: codec mismatch: actual codec=%v vs expected codec=%v (resource: %v)", actualCodec, codec, in)
	}
	actualVersion, err := in.ReadInt()
	if err != nil {
		return 0, err
	}
	if actualVersion < minVersion || actualVersion > maxVersion {
		return 0, newFormatError(in, actualVersion, minVersion, maxVersion)
	}
	return actualVersion, nil
}

func newFormatError(in interface{}, version, minVersion, maxVersion int32) error {
	return util.Errorf(util.ErrIO,
		"format version is not supported (resource: %v): %v (needs to be between %v and %v)",
		in, version, minVersion, maxVersion)
}
