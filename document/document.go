// Package document orchestrates the parser, xref, registry, and encryption
// packages into a single load/inspect/mutate entry point: locate and parse
// the cross-reference table, authenticate against the Standard security
// handler when present, and walk the page tree.
package document

import (
	"log"

	"github.com/benedoc-inc/pdfcore/encryption"
	"github.com/benedoc-inc/pdfcore/registry"
	"github.com/benedoc-inc/pdfcore/types"
	"github.com/benedoc-inc/pdfcore/xref"
)

// Document is a loaded PDF: its cross-reference table, object registry,
// security handler (if encrypted), and flattened page list.
type Document struct {
	buf     []byte
	verbose bool

	version string

	xrefTable *xref.Table
	registry  *registry.Registry

	encryptRef types.Ref
	encInfo    *types.PDFEncryption
	handler    *encryption.Handler
	authed     bool

	fileID []byte

	startXRefOffset int64
	linearized      bool

	pages           []types.Ref
	pagesFlattened  bool
	pagesRootRef    types.Ref
	pagesWalkFailed bool

	Warnings *types.WarningCollector
}

// Open parses buf as a PDF document, authenticating against its security
// handler (if any) with the empty password and then the supplied password.
// It is a thin wrapper over OpenWithOptions for callers that don't need
// strict (non-lenient) parsing.
func Open(buf []byte, password []byte, verbose bool) (*Document, error) {
	return OpenWithOptions(buf, LoadOptions{
		Credentials: PasswordCredentials(password),
		Lenient:     true,
		Verbose:     verbose,
	})
}

// OpenWithOptions parses buf as a PDF document, locating and following its
// cross-reference chain, authenticating against its security handler (if
// any) per opts.Credentials, and performs an initial page-tree walk. When
// opts.Lenient is false, a failed page-tree walk is returned as an error
// instead of being downgraded to a warning.
func OpenWithOptions(buf []byte, opts LoadOptions) (*Document, error) {
	if err := opts.validate(); err != nil {
		return nil, types.WrapError(types.ErrCodeInvalidPDF, "invalid load options", err)
	}

	verbose := opts.Verbose
	d := &Document{
		buf:      buf,
		verbose:  verbose,
		Warnings: types.NewWarningCollector(true),
	}

	d.version = readHeaderVersion(buf)

	startXRef, err := xref.Locate(buf, 2048)
	if err != nil {
		return nil, types.WrapError(types.ErrCodeXRefNotFound, "failed to locate startxref", err)
	}
	d.startXRefOffset = startXRef
	table, err := xref.Parse(buf, startXRef, verbose)
	if err != nil {
		return nil, types.WrapError(types.ErrCodeXRefError, "failed to parse cross-reference table", err)
	}
	d.xrefTable = table
	d.linearized = detectLinearized(buf, table)

	if table.Trailer == nil {
		return nil, types.NewPDFError(types.ErrCodeInvalidPDF, "document has no trailer")
	}

	if idVal, ok := table.Trailer.Get("ID"); ok {
		if items, ok := idVal.Array(); ok && len(items) > 0 {
			if b, ok := items[0].StringBytes(); ok {
				d.fileID = b
			}
		}
	}

	unauthReg := registry.New(buf, table.Entries, nil, verbose)
	if err := d.setupEncryption(unauthReg, opts.password()); err != nil {
		return nil, err
	}

	if d.handler != nil && d.authed {
		d.registry = registry.New(buf, table.Entries, d.handler, verbose)
	} else {
		d.registry = unauthReg
	}

	if err := d.walkPages(); err != nil {
		d.pagesWalkFailed = true
		if !opts.Lenient {
			return nil, types.WrapError(types.ErrCodeInvalidPDF, "page tree walk failed", err)
		}
		d.Warnings.AddWarningf(types.WarningLevelWarning, "page tree walk failed: %v", err)
		if verbose {
			log.Printf("document: page tree walk failed: %v", err)
		}
	}

	return d, nil
}

func (d *Document) setupEncryption(unauthReg *registry.Registry, password []byte) error {
	encVal, ok := d.xrefTable.Trailer.Get("Encrypt")
	if !ok {
		return nil
	}
	if ref, isRef := encVal.Ref(); isRef {
		d.encryptRef = ref
		v, err := unauthReg.Resolve(ref)
		if err != nil {
			return types.WrapError(types.ErrCodeEncryptionDictInvalid, "failed to resolve /Encrypt", err)
		}
		encVal = v
	}
	encDict, ok := encVal.Dict()
	if !ok {
		return types.NewPDFError(types.ErrCodeEncryptionDictInvalid, "/Encrypt is not a dictionary")
	}

	info, err := parseEncryptDict(encDict)
	if err != nil {
		return err
	}
	d.encInfo = info
	if !isStandardVRPairing(info.V, info.R) {
		d.Warnings.AddWarningf(types.WarningLevelWarning,
			"unusual security handler combination V=%d R=%d; only V1R2, V2R3, V3R3, V4R4, V5R5, and V5R6 are standard", info.V, info.R)
	}

	d.handler = encryption.NewHandler(info, d.fileID, d.verbose)
	res, err := d.handler.Authenticate(password)
	if err != nil {
		return types.WrapError(types.ErrCodeDecryptionFailed, "authentication failed", err)
	}
	d.authed = res.Authenticated
	if !d.authed && d.verbose {
		log.Printf("document: password authentication did not succeed")
	}
	return nil
}

func parseEncryptDict(d *types.Dict) (*types.PDFEncryption, error) {
	enc := &types.PDFEncryption{EncryptMetadata: true}

	if fv, ok := d.Get("Filter"); ok {
		name, _ := fv.Name()
		enc.Filter = name
	}
	if enc.Filter != "" && enc.Filter != "Standard" {
		return nil, types.NewPDFErrorf(types.ErrCodeUnsupportedEncryption, "unsupported security handler %q", enc.Filter)
	}

	enc.V = intField(d, "V", 0)
	enc.R = intField(d, "R", 0)
	bits := intField(d, "Length", 40)
	enc.KeyLength = bits / 8
	if enc.KeyLength == 0 {
		enc.KeyLength = 5
	}

	if ov, ok := d.Get("O"); ok {
		enc.O, _ = ov.StringBytes()
	}
	if uv, ok := d.Get("U"); ok {
		enc.U, _ = uv.StringBytes()
	}
	if oev, ok := d.Get("OE"); ok {
		enc.OE, _ = oev.StringBytes()
	}
	if uev, ok := d.Get("UE"); ok {
		enc.UE, _ = uev.StringBytes()
	}
	if pv, ok := d.Get("Perms"); ok {
		enc.Perms, _ = pv.StringBytes()
	}
	enc.P = int32(intField(d, "P", 0))

	if em, ok := d.Get("EncryptMetadata"); ok {
		if b, ok := em.Bool(); ok {
			enc.EncryptMetadata = b
		}
	}

	if stmf, ok := d.Get("StmF"); ok {
		enc.StmF, _ = stmf.Name()
	}
	if strf, ok := d.Get("StrF"); ok {
		enc.StrF, _ = strf.Name()
	}
	if eff, ok := d.Get("EFF"); ok {
		enc.EFF, _ = eff.Name()
	}
	if cfv, ok := d.Get("CF"); ok {
		if cfDict, ok := cfv.Dict(); ok {
			enc.CF = make(map[string]types.CryptFilterDescriptor)
			for _, name := range cfDict.Keys() {
				entryVal, _ := cfDict.Get(name)
				entryDict, ok := entryVal.Dict()
				if !ok {
					continue
				}
				desc := types.CryptFilterDescriptor{}
				if cfmv, ok := entryDict.Get("CFM"); ok {
					cfm, _ := cfmv.Name()
					desc.CFM = types.CryptFilterMethod(cfm)
				}
				desc.Length = intField(entryDict, "Length", 0)
				if aev, ok := entryDict.Get("AuthEvent"); ok {
					desc.AuthEvent, _ = aev.Name()
				}
				enc.CF[name] = desc
			}
		}
	}

	if enc.R < 2 || enc.R > 6 {
		return nil, types.NewPDFErrorf(types.ErrCodeUnsupportedEncryption, "unsupported security handler revision %d", enc.R)
	}
	return enc, nil
}

// isStandardVRPairing reports whether (v, r) is one of the six /V-/R
// combinations the Standard security handler defines (V1R2, V2R3, V3R3,
// V4R4, V5R5, V5R6). Other in-range combinations are still accepted — the
// caller downgrades them to a warning rather than refusing the document.
func isStandardVRPairing(v, r int) bool {
	switch {
	case v == 1 && r == 2:
		return true
	case v == 2 && r == 3:
		return true
	case v == 3 && r == 3:
		return true
	case v == 4 && r == 4:
		return true
	case v == 5 && (r == 5 || r == 6):
		return true
	default:
		return false
	}
}

func intField(d *types.Dict, key string, def int) int {
	v, ok := d.Get(key)
	if !ok {
		return def
	}
	if i, ok := v.Int(); ok {
		return int(i)
	}
	if f, ok := v.Real(); ok {
		return int(f)
	}
	return def
}

func readHeaderVersion(buf []byte) string {
	const prefix = "%PDF-"
	idx := -1
	limit := len(buf)
	if limit > 1024 {
		limit = 1024
	}
	for i := 0; i+len(prefix) <= limit; i++ {
		if string(buf[i:i+len(prefix)]) == prefix {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ""
	}
	start := idx + len(prefix)
	end := start
	for end < len(buf) && buf[end] != '\r' && buf[end] != '\n' {
		end++
	}
	return string(buf[start:end])
}

// Version returns the PDF version declared in the header, e.g. "1.7".
func (d *Document) Version() string { return d.version }

// IsEncrypted reports whether the document declares a security handler.
func (d *Document) IsEncrypted() bool { return d.encInfo != nil }

// IsAuthenticated reports whether Open's password attempts (empty, then
// supplied) succeeded against the security handler. Always true for
// unencrypted documents.
func (d *Document) IsAuthenticated() bool {
	return !d.IsEncrypted() || d.authed
}

// Trailer returns the effective (merged) trailer dictionary.
func (d *Document) Trailer() *types.Dict { return d.xrefTable.Trailer }

// XRef returns the effective cross-reference table.
func (d *Document) XRef() *xref.Table { return d.xrefTable }

// Registry returns the object registry backing this document.
func (d *Document) Registry() *registry.Registry { return d.registry }

// Recovered reports whether the cross-reference table was rebuilt via
// brute-force recovery rather than parsed from a declared xref section.
func (d *Document) Recovered() bool { return d.xrefTable.Recovered }

// Linearized reports whether the document's first indirect object carries
// a /Linearized key, the standard marker for a linearized (fast web view)
// PDF. Incremental updates refuse to touch such files.
func (d *Document) Linearized() bool { return d.linearized }

// RawBytes returns the original file bytes as parsed.
func (d *Document) RawBytes() []byte { return d.buf }

// StartXRefOffset returns the byte offset of the latest declared xref
// section at load time, used as /Prev when writing incrementally.
func (d *Document) StartXRefOffset() int64 { return d.startXRefOffset }

// Handler returns the authenticated security handler, or nil for an
// unencrypted or unauthenticated document.
func (d *Document) Handler() *encryption.Handler {
	if !d.authed {
		return nil
	}
	return d.handler
}

// Encryption returns the parsed /Encrypt parameters, or nil if the
// document is not encrypted.
func (d *Document) Encryption() *types.PDFEncryption { return d.encInfo }

// FileID returns the first element of the trailer's /ID array, or nil.
func (d *Document) FileID() []byte { return d.fileID }

// EncryptRef returns the indirect reference to the /Encrypt dictionary, or
// the zero Ref if the document is unencrypted or declares /Encrypt inline.
func (d *Document) EncryptRef() types.Ref { return d.encryptRef }

// detectLinearized reports whether buf's first indirect object (by file
// offset among the effective xref entries) is a dictionary carrying a
// /Linearized key.
func detectLinearized(buf []byte, table *xref.Table) bool {
	var firstOffset int64 = -1
	for _, e := range table.Entries {
		if e.Kind != types.EntryInUse {
			continue
		}
		if firstOffset < 0 || e.Offset < firstOffset {
			firstOffset = e.Offset
		}
	}
	if firstOffset < 0 {
		return false
	}
	reg := registry.New(buf, table.Entries, nil, false)
	for num, e := range table.Entries {
		if e.Kind == types.EntryInUse && e.Offset == firstOffset {
			v, err := reg.Resolve(types.Ref{Num: num, Gen: e.Generation})
			if err != nil {
				return false
			}
			dict, ok := v.Dict()
			if !ok {
				return false
			}
			_, has := dict.Get("Linearized")
			return has
		}
	}
	return false
}

// GetObject resolves ref to its value.
func (d *Document) GetObject(ref types.Ref) (types.Value, error) {
	return d.registry.Resolve(ref)
}

// GetPages returns the flattened, ordered list of page object references
// discovered at load time (or after the most recent mutation).
func (d *Document) GetPages() []types.Ref {
	out := make([]types.Ref, len(d.pages))
	copy(out, d.pages)
	return out
}

// catalog resolves the document catalog via the trailer's /Root entry.
func (d *Document) catalog() (*types.Dict, error) {
	rootVal, ok := d.Trailer().Get("Root")
	if !ok {
		return nil, types.NewPDFError(types.ErrCodeMissingCatalog, "trailer has no /Root entry")
	}
	v, err := d.resolveMaybeRef(rootVal)
	if err != nil {
		return nil, types.WrapError(types.ErrCodeMissingCatalog, "failed to resolve /Root", err)
	}
	dict, ok := v.Dict()
	if !ok {
		return nil, types.NewPDFError(types.ErrCodeMissingCatalog, "/Root does not resolve to a dictionary")
	}
	return dict, nil
}

func (d *Document) resolveMaybeRef(v types.Value) (types.Value, error) {
	if ref, ok := v.Ref(); ok {
		return d.registry.Resolve(ref)
	}
	return v, nil
}
