// Package types holds the data model shared by every other package in the
// module: the PDF object Value, indirect references, xref entries,
// encryption parameters, and the error/warning taxonomy.
package types

// Min returns the smaller of two ints.
func Min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Max returns the larger of two ints.
func Max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// CryptFilterMethod names a /CFM value from a crypt filter descriptor.
type CryptFilterMethod string

const (
	CFMNone  CryptFilterMethod = "None"
	CFMV2    CryptFilterMethod = "V2"    // RC4
	CFMAESV2 CryptFilterMethod = "AESV2" // AES-128-CBC
	CFMAESV3 CryptFilterMethod = "AESV3" // AES-256-CBC
)

// PDFEncryption holds the parsed /Encrypt dictionary plus everything derived
// from it during authentication. A nil *PDFEncryption means the document is
// not encrypted.
type PDFEncryption struct {
	Filter          string // must be "Standard"
	V               int    // 1-5
	R               int    // 2-6
	KeyLength       int    // bytes (derived from /Length bits, or implied by V)
	O               []byte // owner validation bytes
	U               []byte // user validation bytes
	OE              []byte // R>=5: 32 bytes, wraps the file key for owner path
	UE              []byte // R>=5: 32 bytes, wraps the file key for user path
	Perms           []byte // R>=5: 16-byte encrypted /Perms
	P               int32  // permission bits
	EncryptMetadata bool

	StmF string // crypt filter name used for streams
	StrF string // crypt filter name used for strings
	EFF  string // crypt filter name used for embedded files
	CF   map[string]CryptFilterDescriptor

	// EncryptKey is the authenticated file encryption key (set after a
	// successful Authenticate call). For R<5 it is KeyLength bytes; for
	// R>=5 it is always 32 bytes.
	EncryptKey []byte
}

// CryptFilterDescriptor is one entry of the /CF dictionary.
type CryptFilterDescriptor struct {
	CFM       CryptFilterMethod
	Length    int // key length in bytes, when specified
	AuthEvent string
}

// MethodForStreams resolves the crypt filter method that applies to stream
// payloads, honoring /StmF and the Identity default.
func (e *PDFEncryption) MethodForStreams() CryptFilterMethod {
	return e.methodFor(e.StmF)
}

// MethodForStrings resolves the crypt filter method that applies to string
// values, honoring /StrF and the Identity default.
func (e *PDFEncryption) MethodForStrings() CryptFilterMethod {
	return e.methodFor(e.StrF)
}

func (e *PDFEncryption) methodFor(filterName string) CryptFilterMethod {
	if e.V < 4 {
		// V1-V3 have no per-class /CF table; one derived key covers
		// both strings and streams.
		if e.R >= 5 {
			return CFMAESV3
		}
		return CFMV2
	}
	if filterName == "" || filterName == "Identity" {
		return CFMNone
	}
	if cf, ok := e.CF[filterName]; ok {
		return cf.CFM
	}
	return CFMNone
}

// Permission bit positions, 1-indexed per ISO 32000 Table 22.
const (
	PermPrint               = 1 << 2  // bit 3
	PermModify              = 1 << 3  // bit 4
	PermCopy                = 1 << 4  // bit 5
	PermAnnotate            = 1 << 5  // bit 6
	PermFillForms           = 1 << 8  // bit 9
	PermExtractAccessible   = 1 << 9  // bit 10
	PermAssembleDocument    = 1 << 10 // bit 11
	PermPrintHighResolution = 1 << 11 // bit 12
)

// Permissions is the decoded form of the /P integer.
type Permissions struct {
	Print               bool
	ModifyContents      bool
	Copy                bool
	Annotate            bool
	FillForms           bool
	ExtractAccessible   bool
	AssembleDocument    bool
	PrintHighResolution bool
}

// ParsePermissions decodes a /P value into named flags.
func ParsePermissions(p int32) Permissions {
	u := uint32(p)
	return Permissions{
		Print:               u&PermPrint != 0,
		ModifyContents:      u&PermModify != 0,
		Copy:                u&PermCopy != 0,
		Annotate:            u&PermAnnotate != 0,
		FillForms:           u&PermFillForms != 0,
		ExtractAccessible:   u&PermExtractAccessible != 0,
		AssembleDocument:    u&PermAssembleDocument != 0,
		PrintHighResolution: u&PermPrintHighResolution != 0,
	}
}

// EncodePermissions re-packs named flags into a /P value with the reserved
// bits forced to their required state: bits 1-2 clear, bits 7-8 set, and
// every bit above 12 set, matching Adobe's convention of storing /P as a
// negative 32-bit integer.
func EncodePermissions(perm Permissions) int32 {
	var u uint32 = 0xFFFFF0C0 // reserved/high bits set, bits 3-6,9-12 cleared
	if perm.Print {
		u |= PermPrint
	}
	if perm.ModifyContents {
		u |= PermModify
	}
	if perm.Copy {
		u |= PermCopy
	}
	if perm.Annotate {
		u |= PermAnnotate
	}
	if perm.FillForms {
		u |= PermFillForms
	}
	if perm.ExtractAccessible {
		u |= PermExtractAccessible
	}
	if perm.AssembleDocument {
		u |= PermAssembleDocument
	}
	if perm.PrintHighResolution {
		u |= PermPrintHighResolution
	}
	return int32(u)
}
