package encryption

import (
	"bytes"
	"crypto/aes"
	"crypto/rand"
	"testing"

	"github.com/benedoc-inc/pdfcore/types"
)

// buildR5R6 derives /U, /UE, /O, /OE for a synthetic revision-5 or -6
// document, the way a writer would when first encrypting a file.
func buildR5R6(t *testing.T, r int, ownerPW, userPW []byte) *types.PDFEncryption {
	t.Helper()
	enc := &types.PDFEncryption{R: r, V: 5, KeyLength: 32, EncryptMetadata: true, P: -4}

	fileKey := make([]byte, 32)
	if _, err := rand.Read(fileKey); err != nil {
		t.Fatal(err)
	}

	userValidationSalt := randBytes(t, 8)
	userKeySalt := randBytes(t, 8)
	uHash, err := computeHash(r, userPW, userValidationSalt, nil)
	if err != nil {
		t.Fatal(err)
	}
	enc.U = append(append(append([]byte{}, uHash...), userValidationSalt...), userKeySalt...)

	uIntermediate, err := computeHash(r, userPW, userKeySalt, nil)
	if err != nil {
		t.Fatal(err)
	}
	ue, err := aesCBCNoPadEncrypt(uIntermediate, make([]byte, 16), fileKey)
	if err != nil {
		t.Fatal(err)
	}
	enc.UE = ue

	u48 := enc.U[:48]
	ownerValidationSalt := randBytes(t, 8)
	ownerKeySalt := randBytes(t, 8)
	oHash, err := computeHash(r, ownerPW, ownerValidationSalt, u48)
	if err != nil {
		t.Fatal(err)
	}
	enc.O = append(append(append([]byte{}, oHash...), ownerValidationSalt...), ownerKeySalt...)

	oIntermediate, err := computeHash(r, ownerPW, ownerKeySalt, u48)
	if err != nil {
		t.Fatal(err)
	}
	oe, err := aesCBCNoPadEncrypt(oIntermediate, make([]byte, 16), fileKey)
	if err != nil {
		t.Fatal(err)
	}
	enc.OE = oe

	return enc
}

func randBytes(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		t.Fatal(err)
	}
	return b
}

func TestAuthenticateUserR5_EmptyPassword(t *testing.T) {
	enc := buildR5R6(t, 5, []byte("owner"), nil)
	_, ok, err := AuthenticateUserR5R6(nil, enc)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("correct (empty) user password should authenticate under revision 5")
	}
}

func TestAuthenticateUserR5_WrongPasswordFails(t *testing.T) {
	enc := buildR5R6(t, 5, []byte("owner"), []byte("correct"))
	_, ok, err := AuthenticateUserR5R6([]byte("wrong"), enc)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("wrong password should not authenticate")
	}
}

func TestAuthenticateOwnerR6_RecoversSameFileKeyAsUser(t *testing.T) {
	enc := buildR5R6(t, 6, []byte("ownerpw"), []byte("userpw"))

	userKey, ok, err := AuthenticateUserR5R6([]byte("userpw"), enc)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("user password should authenticate")
	}

	ownerKey, ok, err := AuthenticateOwnerR5R6([]byte("ownerpw"), enc)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("owner password should authenticate")
	}

	if !bytes.Equal(userKey, ownerKey) {
		t.Fatal("user and owner authentication should recover the same file key")
	}
}

func TestValidatePerms_RoundTrip(t *testing.T) {
	fileKey := randBytes(t, 32)
	enc := &types.PDFEncryption{R: 6, P: -44, EncryptMetadata: true}

	block := make([]byte, 16)
	binaryPutLE(block[0:4], uint32(enc.P))
	block[4], block[5], block[6], block[7] = 0xFF, 0xFF, 0xFF, 0xFF
	block[8] = 'T'
	block[9], block[10], block[11] = 'a', 'd', 'b'
	copy(block[12:16], randBytes(t, 4))

	block16, err := aes.NewCipher(fileKey)
	if err != nil {
		t.Fatal(err)
	}
	encrypted := make([]byte, 16)
	block16.Encrypt(encrypted, block)
	enc.Perms = encrypted

	if err := ValidatePerms(fileKey, enc); err != nil {
		t.Fatalf("ValidatePerms() = %v, want nil", err)
	}
}

func binaryPutLE(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
