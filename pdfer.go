// Package pdfcore provides byte-precise PDF document loading, mutation, and
// rewriting: an object graph with lazy resolution, a cross-reference parser
// covering classic tables, xref streams, and brute-force recovery, a writer
// supporting full rewrites and signature-preserving incremental updates, and
// a password-based Standard security handler (RC4 and AES, revisions 2-6).
//
// # Quick start
//
//	doc, err := document.Open(pdfBytes, []byte(password), false)
//	pages := doc.GetPages()
//	out, err := write.WriteFull(doc, write.Options{})
//
// # Packages
//
//   - types: the object model (Value, Dict, Ref, Stream) and error/warning taxonomy
//   - ioscan: the byte scanner and writer shared by every other package
//   - parser: tokenizing, object parsing, stream filters, serialization
//   - xref: cross-reference table location, parsing, and recovery
//   - registry: the (object number, generation) -> Value map and change tracking
//   - encryption: the Standard security handler (revisions 2-6)
//   - document: the load/inspect/mutate entry point and page tree
//   - write: full-rewrite and incremental serialization
//   - sign: ByteRange/Contents placeholder primitives for external signing
package pdfcore

import "github.com/benedoc-inc/pdfcore/types"

// Encryption holds parsed /Encrypt parameters and the derived file key.
type Encryption = types.PDFEncryption

// Ref is an indirect object reference (object number, generation).
type Ref = types.Ref

// Value is the PDF object model's tagged union.
type Value = types.Value

// Version returns the library version.
func Version() string {
	return "1.0.0"
}
