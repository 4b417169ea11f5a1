package encryption

import (
	"log"

	"github.com/benedoc-inc/pdfcore/types"
)

// AuthResult reports the outcome of a Handler.Authenticate call.
type AuthResult struct {
	Authenticated bool
	IsOwner       bool
	Permissions   types.Permissions
}

// Handler implements the PDF Standard security handler. It wraps a parsed
// /Encrypt dictionary plus the file ID, and once authenticated holds the
// file encryption key used to decrypt every string and stream in the
// document. It satisfies registry.Decryptor structurally.
type Handler struct {
	enc     *types.PDFEncryption
	fileID  []byte
	fileKey []byte
	verbose bool
}

// NewHandler builds a Handler for the given /Encrypt dictionary and first
// file identifier string. No authentication has happened yet.
func NewHandler(enc *types.PDFEncryption, fileID []byte, verbose bool) *Handler {
	return &Handler{enc: enc, fileID: fileID, verbose: verbose}
}

// Authenticate tries the empty password first (the common case: most PDFs
// carry no real user password, only permission restrictions under an owner
// password), then the supplied password, trying owner before user since an
// owner password also unlocks full permissions.
func (h *Handler) Authenticate(password []byte) (AuthResult, error) {
	if res, ok, err := h.tryPassword(nil); err != nil {
		return AuthResult{}, err
	} else if ok {
		return res, nil
	}
	if len(password) == 0 {
		return AuthResult{Authenticated: false}, nil
	}
	res, ok, err := h.tryPassword(password)
	if err != nil {
		return AuthResult{}, err
	}
	if !ok {
		return AuthResult{Authenticated: false}, nil
	}
	return res, nil
}

func (h *Handler) tryPassword(password []byte) (AuthResult, bool, error) {
	enc := h.enc

	if key, ok, err := h.authOwner(password); err != nil {
		return AuthResult{}, false, err
	} else if ok {
		h.fileKey = key
		enc.EncryptKey = key
		// /Perms mismatches are logged but non-fatal: /U and /O already
		// authenticated the password, and some producers write /Perms
		// incorrectly.
		if enc.R == 6 && h.verbose {
			if perr := ValidatePerms(key, enc); perr != nil {
				log.Printf("encryption: /Perms validation failed: %v", perr)
			}
		}
		return AuthResult{Authenticated: true, IsOwner: true, Permissions: types.ParsePermissions(enc.P)}, true, nil
	}

	if key, ok, err := h.authUser(password); err != nil {
		return AuthResult{}, false, err
	} else if ok {
		h.fileKey = key
		enc.EncryptKey = key
		return AuthResult{Authenticated: true, IsOwner: false, Permissions: types.ParsePermissions(enc.P)}, true, nil
	}

	return AuthResult{}, false, nil
}

func (h *Handler) authOwner(password []byte) ([]byte, bool, error) {
	if h.enc.R >= 5 {
		return AuthenticateOwnerR5R6(password, h.enc)
	}
	return AuthenticateOwnerR2R4(password, h.enc, h.fileID)
}

func (h *Handler) authUser(password []byte) ([]byte, bool, error) {
	if h.enc.R >= 5 {
		return AuthenticateUserR5R6(password, h.enc)
	}
	return AuthenticateUserR2R4(password, h.enc, h.fileID)
}

// NeverEncrypted reports objects the Standard security handler never
// encrypts: the /Encrypt dictionary's own entries are handled by the
// caller separately (it is never resolved through the registry's
// decrypting path), the cross-reference stream is always stored in the
// clear so readers can locate objects before authenticating, and metadata
// streams are left in the clear when /EncryptMetadata is false.
func (h *Handler) NeverEncrypted(num uint32, gen uint16, isXRefStream bool, isMetadata bool) bool {
	if isXRefStream {
		return true
	}
	if isMetadata && !h.enc.EncryptMetadata {
		return true
	}
	return false
}

// DecryptString decrypts a string value belonging to object (num, gen)
// using the crypt filter selected for strings.
func (h *Handler) DecryptString(num uint32, gen uint16, data []byte) ([]byte, error) {
	return h.decrypt(num, gen, data, h.enc.MethodForStrings())
}

// DecryptStreamRaw decrypts a stream's raw bytes (before filter decoding)
// belonging to object (num, gen), using the crypt filter selected for
// streams.
func (h *Handler) DecryptStreamRaw(num uint32, gen uint16, data []byte) ([]byte, error) {
	return h.decrypt(num, gen, data, h.enc.MethodForStreams())
}

func (h *Handler) decrypt(num uint32, gen uint16, data []byte, method types.CryptFilterMethod) ([]byte, error) {
	if len(data) == 0 || method == types.CFMNone {
		return data, nil
	}
	switch method {
	case types.CFMV2:
		key := ObjectKeyR2R4(h.fileKey, num, gen, false)
		return rc4Crypt(key, data)
	case types.CFMAESV2:
		key := ObjectKeyR2R4(h.fileKey, num, gen, true)
		return aesCBCDecrypt(key, data)
	case types.CFMAESV3:
		return aesCBCDecrypt(h.fileKey, data)
	default:
		return data, nil
	}
}

// EncryptString encrypts a string value for object (num, gen) prior to
// writing, mirroring DecryptString's filter selection.
func (h *Handler) EncryptString(num uint32, gen uint16, data []byte) ([]byte, error) {
	return h.encrypt(num, gen, data, h.enc.MethodForStrings())
}

// EncryptStreamRaw encrypts a stream's already-filter-encoded bytes for
// object (num, gen) prior to writing.
func (h *Handler) EncryptStreamRaw(num uint32, gen uint16, data []byte) ([]byte, error) {
	return h.encrypt(num, gen, data, h.enc.MethodForStreams())
}

func (h *Handler) encrypt(num uint32, gen uint16, data []byte, method types.CryptFilterMethod) ([]byte, error) {
	if len(data) == 0 || method == types.CFMNone {
		return data, nil
	}
	switch method {
	case types.CFMV2:
		key := ObjectKeyR2R4(h.fileKey, num, gen, false)
		return rc4Crypt(key, data)
	case types.CFMAESV2:
		key := ObjectKeyR2R4(h.fileKey, num, gen, true)
		return aesCBCEncrypt(key, data)
	case types.CFMAESV3:
		return aesCBCEncrypt(h.fileKey, data)
	default:
		return data, nil
	}
}

// FileKey returns the authenticated file encryption key, or nil if
// Authenticate has not yet succeeded.
func (h *Handler) FileKey() []byte {
	return h.fileKey
}
