// Package sign provides the byte-addressable placeholder primitives a
// digital-signature collaborator needs around a serialized PDF: reserving
// space for /ByteRange and /Contents before signing, then locating and
// patching that space afterward without changing the file's length. It has
// no notion of CMS, CAdES, or certificates - that belongs to the caller.
package sign

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/benedoc-inc/pdfcore/types"
)

// byteRangePlaceholder is embedded verbatim as a signature dictionary's
// /ByteRange value before the four real offsets are known. Its width is
// fixed so patching in place never changes the file's length.
const byteRangePlaceholder = "[0 0000000000 0000000000 0000000000]"

// CreateByteRangePlaceholder returns the literal bytes to embed as a
// signature dictionary's /ByteRange value prior to serialization.
func CreateByteRangePlaceholder() []byte {
	return []byte(byteRangePlaceholder)
}

// CreateContentsPlaceholder returns a hex string literal of 2*size zero
// digits, the /Contents placeholder sized to hold an estimated signature of
// size bytes once real bytes are patched in.
func CreateContentsPlaceholder(size int) []byte {
	buf := make([]byte, 0, size*2+2)
	buf = append(buf, '<')
	for i := 0; i < size*2; i++ {
		buf = append(buf, '0')
	}
	buf = append(buf, '>')
	return buf
}

// Locations records where a signature dictionary's placeholders were found
// within a serialized file, as byte offsets into that file.
type Locations struct {
	ByteRangeStart int // offset of the '[' in the /ByteRange placeholder
	ByteRangeEnd   int // offset one past the ']'
	ContentsOpen   int // offset of the '<' in the /Contents placeholder
	ContentsClose  int // offset one past the '>'
}

// FindPlaceholders scans buf for one unmatched ByteRange/Contents
// placeholder pair. When more than one ByteRange placeholder remains in the
// file (several signature dictionaries inserted before any were patched),
// the most recently added one - the last occurrence by file offset - is
// returned, since a fresh incremental save always appends after anything
// already present.
func FindPlaceholders(buf []byte) (Locations, error) {
	brMarker := []byte(byteRangePlaceholder)
	brStart := bytes.LastIndex(buf, brMarker)
	if brStart < 0 {
		return Locations{}, types.NewPDFError(types.ErrCodeInvalidObject, "no /ByteRange placeholder found")
	}
	brEnd := brStart + len(brMarker)

	contentsOpen, contentsClose, ok := lastZeroHexString(buf)
	if !ok {
		return Locations{}, types.NewPDFError(types.ErrCodeInvalidObject, "no /Contents placeholder found")
	}

	return Locations{
		ByteRangeStart: brStart,
		ByteRangeEnd:   brEnd,
		ContentsOpen:   contentsOpen,
		ContentsClose:  contentsClose,
	}, nil
}

// lastZeroHexString finds the last single-angle-bracket hex string in buf
// whose digits are all zero - the distinctive shape CreateContentsPlaceholder
// produces, distinguishing it from an ordinary "<<" dictionary delimiter.
func lastZeroHexString(buf []byte) (open, close int, ok bool) {
	open, close = -1, -1
	for i := 0; i < len(buf); i++ {
		if buf[i] != '<' {
			continue
		}
		if i+1 < len(buf) && buf[i+1] == '<' {
			i++
			continue
		}
		j := i + 1
		for j < len(buf) && buf[j] == '0' {
			j++
		}
		if j > i+1 && j < len(buf) && buf[j] == '>' {
			open, close = i, j+1
		}
	}
	if open < 0 {
		return 0, 0, false
	}
	return open, close, true
}

// CalculateByteRange computes the four /ByteRange integers for a file whose
// placeholders sit at loc: everything before /Contents, then everything
// from immediately after /Contents to the end of the file.
func CalculateByteRange(buf []byte, loc Locations) [4]int64 {
	return [4]int64{
		0,
		int64(loc.ContentsOpen),
		int64(loc.ContentsClose),
		int64(len(buf)) - int64(loc.ContentsClose),
	}
}

// PatchByteRange overwrites the /ByteRange placeholder at loc with br's four
// integers, each of the last three padded to 10 digits so the patched region is
// exactly as wide as the placeholder it replaces.
func PatchByteRange(buf []byte, loc Locations, br [4]int64) error {
	width := loc.ByteRangeEnd - loc.ByteRangeStart
	rendered := fmt.Sprintf("[%d %010d %010d %010d]", br[0], br[1], br[2], br[3])
	if len(rendered) != width {
		return types.NewPDFErrorf(types.ErrCodeInvalidObject,
			"/ByteRange value %q (%d bytes) does not match placeholder width %d", rendered, len(rendered), width)
	}
	copy(buf[loc.ByteRangeStart:loc.ByteRangeEnd], rendered)
	return nil
}

// PatchContents overwrites the /Contents placeholder at loc with the
// externally produced signature bytes, hex-encoded and zero-padded on the
// right to the placeholder's original hex-digit count. It mutates buf in
// place and also returns the exact padded hex bytes written (including the
// surrounding angle brackets).
func PatchContents(buf []byte, loc Locations, signature []byte) ([]byte, error) {
	capacity := loc.ContentsClose - loc.ContentsOpen - 2 // digits between '<' and '>'
	encoded := make([]byte, hex.EncodedLen(len(signature)))
	hex.Encode(encoded, signature)
	if len(encoded) > capacity {
		return nil, types.NewPDFErrorf(types.ErrCodeInvalidObject,
			"signature (%d hex digits) exceeds placeholder capacity (%d)", len(encoded), capacity)
	}
	padded := make([]byte, capacity)
	copy(padded, encoded)
	for i := len(encoded); i < capacity; i++ {
		padded[i] = '0'
	}

	out := make([]byte, 0, capacity+2)
	out = append(out, '<')
	out = append(out, padded...)
	out = append(out, '>')
	copy(buf[loc.ContentsOpen:loc.ContentsClose], out)
	return out, nil
}

// ExtractSignedBytes returns the concatenation of the two segments named by
// br - everything outside the /Contents hex string - which is exactly what
// an external signer hashes.
func ExtractSignedBytes(buf []byte, br [4]int64) []byte {
	out := make([]byte, 0, br[1]+br[3])
	out = append(out, buf[br[0]:br[0]+br[1]]...)
	out = append(out, buf[br[2]:br[2]+br[3]]...)
	return out
}
