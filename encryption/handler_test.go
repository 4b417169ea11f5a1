package encryption

import (
	"bytes"
	"testing"

	"github.com/benedoc-inc/pdfcore/types"
)

func TestHandlerAuthenticate_EmptyUserPassword(t *testing.T) {
	fileID := []byte{1, 2, 3, 4}
	enc := buildR2R4(t, 4, 16, []byte("owner"), nil, fileID)
	enc.V = 4
	enc.StmF, enc.StrF = "StdCF", "StdCF"
	enc.CF = map[string]types.CryptFilterDescriptor{"StdCF": {CFM: types.CFMAESV2, Length: 16}}

	h := NewHandler(enc, fileID, false)
	res, err := h.Authenticate(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Authenticated {
		t.Fatal("expected authentication to succeed with the empty password")
	}
	if h.FileKey() == nil {
		t.Fatal("FileKey() should be populated after successful authentication")
	}
}

func TestHandlerEncryptDecryptRoundTrip(t *testing.T) {
	fileID := []byte{1, 1, 1, 1}
	enc := buildR2R4(t, 4, 16, nil, nil, fileID)
	enc.V = 4
	enc.StmF, enc.StrF = "StdCF", "StdCF"
	enc.CF = map[string]types.CryptFilterDescriptor{"StdCF": {CFM: types.CFMAESV2, Length: 16}}

	h := NewHandler(enc, fileID, false)
	if _, err := h.Authenticate(nil); err != nil {
		t.Fatal(err)
	}

	plain := []byte("The quick brown fox jumps over the lazy dog.")
	ciphertext, err := h.EncryptStreamRaw(7, 0, plain)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(ciphertext, plain) {
		t.Fatal("ciphertext should differ from plaintext")
	}
	decoded, err := h.DecryptStreamRaw(7, 0, ciphertext)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(decoded, plain) {
		t.Fatalf("decrypted = %q, want %q", decoded, plain)
	}
}

func TestHandlerNeverEncrypted(t *testing.T) {
	enc := &types.PDFEncryption{EncryptMetadata: false}
	h := NewHandler(enc, nil, false)
	if !h.NeverEncrypted(1, 0, true, false) {
		t.Fatal("xref streams should never be encrypted")
	}
	if !h.NeverEncrypted(2, 0, false, true) {
		t.Fatal("metadata streams should be left in the clear when EncryptMetadata is false")
	}
	if h.NeverEncrypted(3, 0, false, false) {
		t.Fatal("ordinary objects should be encrypted")
	}
}
