package encryption

import (
	"bytes"
	"crypto/md5"
	"testing"

	"github.com/benedoc-inc/pdfcore/types"
)

// buildR2R4 derives /O and /U for a synthetic document with the given
// owner/user passwords and revision, the way a writer would when first
// encrypting a file, so authentication can be tested against them.
func buildR2R4(t *testing.T, r int, keyLen int, ownerPW, userPW, fileID []byte) *types.PDFEncryption {
	t.Helper()
	enc := &types.PDFEncryption{R: r, V: 2, KeyLength: keyLen, EncryptMetadata: true}
	if r >= 4 {
		enc.V = 4
	}

	paddedOwner := padPassword(ownerPW)
	sum := md5.Sum(paddedOwner)
	ownerRC4Key := sum[:]
	if r >= 3 {
		for i := 0; i < 50; i++ {
			s := md5.Sum(ownerRC4Key[:keyLen])
			ownerRC4Key = s[:]
		}
	}
	ownerRC4Key = ownerRC4Key[:keyLen]

	paddedUser := padPassword(userPW)
	o, err := rc4Crypt(ownerRC4Key, paddedUser)
	if err != nil {
		t.Fatal(err)
	}
	if r >= 3 {
		for round := 1; round <= 19; round++ {
			o, err = rc4Crypt(xorKeyWithByte(ownerRC4Key, byte(round)), o)
			if err != nil {
				t.Fatal(err)
			}
		}
	}
	enc.O = o
	enc.P = -4

	fileKey := DeriveFileKeyR2R4(userPW, enc, fileID)
	u, err := ComputeUValueR2R4(fileKey, enc, fileID)
	if err != nil {
		t.Fatal(err)
	}
	enc.U = u
	return enc
}

func TestPadPassword(t *testing.T) {
	out := padPassword(nil)
	if !bytes.Equal(out, paddingBytes) {
		t.Fatalf("empty password should pad to the padding string exactly")
	}
	out = padPassword([]byte("secret"))
	if !bytes.Equal(out[:6], []byte("secret")) {
		t.Fatalf("password prefix not preserved")
	}
	if !bytes.Equal(out[6:], paddingBytes[:26]) {
		t.Fatalf("remainder should be the padding string, not a cyclic repeat of the password")
	}
}

func TestAuthenticateUserR2R4_EmptyPassword(t *testing.T) {
	fileID := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	enc := buildR2R4(t, 3, 16, []byte("owner"), nil, fileID)

	key, ok, err := AuthenticateUserR2R4(nil, enc, fileID)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("empty user password should authenticate")
	}
	if len(key) != 16 {
		t.Fatalf("file key length = %d, want 16", len(key))
	}
}

func TestAuthenticateUserR2R4_WrongPasswordFails(t *testing.T) {
	fileID := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	enc := buildR2R4(t, 3, 16, []byte("owner"), []byte("correct"), fileID)

	_, ok, err := AuthenticateUserR2R4([]byte("incorrect"), enc, fileID)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("wrong password should not authenticate")
	}
}

func TestAuthenticateOwnerR2R4_RecoversUserKey(t *testing.T) {
	fileID := []byte{9, 9, 9, 9, 9, 9, 9, 9}
	enc := buildR2R4(t, 4, 16, []byte("ownerpw"), []byte("userpw"), fileID)

	key, ok, err := AuthenticateOwnerR2R4([]byte("ownerpw"), enc, fileID)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("correct owner password should authenticate")
	}
	expected := DeriveFileKeyR2R4([]byte("userpw"), enc, fileID)
	if !bytes.Equal(key, expected) {
		t.Fatal("owner authentication should recover the same file key as direct user authentication")
	}
}

func TestObjectKeyR2R4_DiffersByObjectAndVariant(t *testing.T) {
	fileKey := []byte{1, 2, 3, 4, 5}
	k1 := ObjectKeyR2R4(fileKey, 1, 0, false)
	k2 := ObjectKeyR2R4(fileKey, 2, 0, false)
	if bytes.Equal(k1, k2) {
		t.Fatal("object keys for different object numbers should differ")
	}
	k3 := ObjectKeyR2R4(fileKey, 1, 0, true)
	if bytes.Equal(k1, k3) {
		t.Fatal("AES variant should salt the key differently than RC4 variant")
	}
	if len(k1) != types.Min(len(fileKey)+5, 16) {
		t.Fatalf("object key length = %d, want %d", len(k1), types.Min(len(fileKey)+5, 16))
	}
}
