package document

import (
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/benedoc-inc/pdfcore/types"
)

// utf16BOMDecoder decodes a PDF text string that opens with the UTF-16BE
// byte-order mark (0xFE 0xFF) into UTF-8. Strings without the mark are
// PDFDocEncoding, which overlaps ASCII for the common metadata fields Info
// exposes and is passed through unchanged.
var utf16BOMDecoder = unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()

// decodeTextString converts a PDF text string's raw bytes to UTF-8,
// recognizing the UTF-16BE byte-order mark per the text string convention.
func decodeTextString(raw []byte) string {
	if len(raw) >= 2 && raw[0] == 0xFE && raw[1] == 0xFF {
		out, _, err := transform.Bytes(utf16BOMDecoder, raw)
		if err == nil {
			return string(out)
		}
	}
	return string(raw)
}

// infoFields lists the /Info dictionary entries Info decodes, in the order
// they're commonly present.
var infoFields = []string{"Title", "Author", "Subject", "Keywords", "Creator", "Producer", "CreationDate", "ModDate"}

// Info resolves the trailer's /Info dictionary, if present, and decodes its
// common text-string fields (Title, Author, Subject, Keywords, Creator,
// Producer, CreationDate, ModDate) to UTF-8. Fields absent from the
// dictionary, or not encoded as a string, are omitted from the result.
func (d *Document) Info() (map[string]string, error) {
	infoVal, ok := d.Trailer().Get("Info")
	if !ok {
		return nil, nil
	}
	v, err := d.resolveMaybeRef(infoVal)
	if err != nil {
		return nil, types.WrapError(types.ErrCodeInvalidObject, "failed to resolve /Info", err)
	}
	dict, ok := v.Dict()
	if !ok {
		return nil, types.NewPDFError(types.ErrCodeInvalidObject, "/Info does not resolve to a dictionary")
	}

	out := make(map[string]string, len(infoFields))
	for _, field := range infoFields {
		fv, ok := dict.Get(field)
		if !ok {
			continue
		}
		raw, ok := fv.StringBytes()
		if !ok {
			continue
		}
		out[field] = decodeTextString(raw)
	}
	return out, nil
}

// infoFieldName canonicalizes a case-insensitive field name against the
// standard /Info keys, passing anything else through as a custom entry.
func infoFieldName(key string) string {
	for _, field := range infoFields {
		if strings.EqualFold(key, field) {
			return field
		}
	}
	return key
}

// formatPDFDate renders t in the PDF date string format:
// D:YYYYMMDDHHmmSSOHH'mm.
func formatPDFDate(t time.Time) string {
	_, offset := t.Zone()
	sign := byte('+')
	if offset < 0 {
		sign = '-'
		offset = -offset
	}
	return fmt.Sprintf("D:%04d%02d%02d%02d%02d%02d%c%02d'%02d",
		t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(),
		sign, offset/3600, (offset%3600)/60)
}

// SetInfo merges fields into the document's /Info dictionary as literal
// text strings, creating the dictionary (and registering it as a new
// indirect object referenced from the trailer) if none exists yet. Field
// names are matched case-insensitively against the standard keys (Title,
// Author, Subject, Keywords, Creator, Producer, CreationDate, ModDate);
// anything else is written through verbatim as a custom entry. When fields
// doesn't set ModDate, the current time is recorded there.
func (d *Document) SetInfo(fields map[string]string) error {
	var dict *types.Dict
	var ref types.Ref

	if infoVal, ok := d.Trailer().Get("Info"); ok {
		if r, isRef := infoVal.Ref(); isRef {
			v, err := d.registry.Mutate(r)
			if err != nil {
				return err
			}
			if dv, ok := v.Dict(); ok {
				dict, ref = dv, r
			}
		}
	}
	if dict == nil {
		dict = types.NewDict()
	}

	hasModDate := false
	for key, value := range fields {
		name := infoFieldName(key)
		if name == "ModDate" {
			hasModDate = true
		}
		dict.Set(name, types.LiteralString([]byte(value)))
	}
	if !hasModDate {
		dict.Set("ModDate", types.LiteralString([]byte(formatPDFDate(time.Now()))))
	}

	if ref.Num == 0 {
		ref = d.registry.Register(types.DictValue(dict))
	} else {
		d.registry.Replace(ref, types.DictValue(dict))
	}
	d.Trailer().Set("Info", types.RefValue(ref))

	if d.verbose {
		log.Printf("document: set /Info (%d fields)", len(fields))
	}
	return nil
}
