package encryption

import (
	"bytes"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"

	"github.com/benedoc-inc/pdfcore/types"
)

// hashR5 is the revision-5 hash: a single SHA-256 over the concatenation of
// its inputs.
func hashR5(password, salt, userKey []byte) []byte {
	h := sha256.New()
	h.Write(password)
	h.Write(salt)
	h.Write(userKey)
	return h.Sum(nil)
}

// hashR6 implements Algorithm 2.B: an iterative hash that alternates among
// SHA-256/384/512 based on a checksum of the intermediate AES-CBC output,
// continuing until round >= 64 and the last output byte is <= round-32.
func hashR6(password, salt, userKey []byte) ([]byte, error) {
	h := sha256.New()
	h.Write(password)
	h.Write(salt)
	h.Write(userKey)
	k := h.Sum(nil)

	round := 0
	for {
		k1 := make([]byte, 0, 64*(len(password)+len(k)+len(userKey)))
		single := append(append(append([]byte{}, password...), k...), userKey...)
		for i := 0; i < 64; i++ {
			k1 = append(k1, single...)
		}

		e, err := aesCBCNoPadEncrypt(k[0:16], k[16:32], k1)
		if err != nil {
			return nil, fmt.Errorf("encryption: r6 hash round %d: %w", round, err)
		}

		sum := 0
		for _, b := range e[:16] {
			sum += int(b)
		}
		switch sum % 3 {
		case 0:
			sum256 := sha256.Sum256(e)
			k = sum256[:]
		case 1:
			sum384 := sha512.Sum384(e)
			k = sum384[:]
		case 2:
			sum512 := sha512.Sum512(e)
			k = sum512[:]
		}

		round++
		if round >= 64 && int(e[len(e)-1]) <= round-32 {
			break
		}
	}
	return k[:32], nil
}

// AuthenticateUserR5R6 tests password against /U's validation hash, and on
// success derives and returns the 32-byte file key by decrypting /UE.
func AuthenticateUserR5R6(password []byte, enc *types.PDFEncryption) (fileKey []byte, ok bool, err error) {
	if len(enc.U) < 48 {
		return nil, false, fmt.Errorf("encryption: /U too short for revision %d", enc.R)
	}
	validationSalt := enc.U[32:40]
	keySalt := enc.U[40:48]
	storedHash := enc.U[0:32]

	computed, err := computeHash(enc.R, password, validationSalt, nil)
	if err != nil {
		return nil, false, err
	}
	if !bytes.Equal(computed, storedHash) {
		return nil, false, nil
	}

	intermediateKey, err := computeHash(enc.R, password, keySalt, nil)
	if err != nil {
		return nil, false, err
	}
	zeroIV := make([]byte, 16)
	fileKey, err = aesCBCNoPadDecrypt(intermediateKey, zeroIV, enc.UE)
	if err != nil {
		return nil, false, err
	}
	return fileKey, true, nil
}

// AuthenticateOwnerR5R6 tests password against /O's validation hash, adding
// U[0..48] as a third hash input, and on success decrypts /OE to recover the
// file key.
func AuthenticateOwnerR5R6(password []byte, enc *types.PDFEncryption) (fileKey []byte, ok bool, err error) {
	if len(enc.O) < 48 || len(enc.U) < 48 {
		return nil, false, fmt.Errorf("encryption: /O or /U too short for revision %d", enc.R)
	}
	validationSalt := enc.O[32:40]
	keySalt := enc.O[40:48]
	storedHash := enc.O[0:32]
	u48 := enc.U[0:48]

	computed, err := computeHash(enc.R, password, validationSalt, u48)
	if err != nil {
		return nil, false, err
	}
	if !bytes.Equal(computed, storedHash) {
		return nil, false, nil
	}

	intermediateKey, err := computeHash(enc.R, password, keySalt, u48)
	if err != nil {
		return nil, false, err
	}
	zeroIV := make([]byte, 16)
	fileKey, err = aesCBCNoPadDecrypt(intermediateKey, zeroIV, enc.OE)
	if err != nil {
		return nil, false, err
	}
	return fileKey, true, nil
}

func computeHash(r int, password, salt, userKey []byte) ([]byte, error) {
	if r == 5 {
		return hashR5(password, salt, userKey), nil
	}
	return hashR6(password, salt, userKey)
}

// ValidatePerms verifies /Perms (R6 only): AES-256-ECB-decrypt with the file
// key, checking the 'adb' marker, the /P echo, and the EncryptMetadata flag.
func ValidatePerms(fileKey []byte, enc *types.PDFEncryption) error {
	if len(enc.Perms) != 16 {
		return types.NewPDFErrorf(types.ErrCodeEncryptionDictInvalid, "/Perms must be 16 bytes, got %d", len(enc.Perms))
	}
	decoded, err := aesECBDecryptBlock(fileKey, enc.Perms)
	if err != nil {
		return types.WrapError(types.ErrCodeEncryptionDictInvalid, "failed to decrypt /Perms", err)
	}
	if decoded[9] != 'a' || decoded[10] != 'd' || decoded[11] != 'b' {
		return types.NewPDFError(types.ErrCodeEncryptionDictInvalid, "/Perms missing 'adb' marker")
	}
	p := int32(uint32(decoded[0]) | uint32(decoded[1])<<8 | uint32(decoded[2])<<16 | uint32(decoded[3])<<24)
	if p != enc.P {
		return types.NewPDFError(types.ErrCodeEncryptionDictInvalid, "/Perms P value does not match /P")
	}
	wantMeta := byte('F')
	if enc.EncryptMetadata {
		wantMeta = 'T'
	}
	if decoded[8] != wantMeta {
		return types.NewPDFError(types.ErrCodeEncryptionDictInvalid, "/Perms EncryptMetadata flag mismatch")
	}
	return nil
}
