package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rc4"
	"fmt"
)

// rc4Crypt XORs data with the RC4 keystream generated from key; RC4 is
// symmetric so this serves for both encryption and decryption.
func rc4Crypt(key, data []byte) ([]byte, error) {
	c, err := rc4.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("encryption: rc4 key setup: %w", err)
	}
	out := make([]byte, len(data))
	c.XORKeyStream(out, data)
	return out, nil
}

// aesCBCEncrypt prepends a random 16-byte IV and PKCS#7-pads data before
// AES-CBC encrypting it, per the Standard security handler's stream/string
// encoding: (16-byte IV) || ciphertext.
func aesCBCEncrypt(key, data []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("encryption: aes key setup: %w", err)
	}
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("encryption: iv generation: %w", err)
	}
	padded := pkcs7Pad(data, aes.BlockSize)
	out := make([]byte, len(iv)+len(padded))
	copy(out, iv)
	mode := cipher.NewCBCEncrypter(block, iv)
	mode.CryptBlocks(out[len(iv):], padded)
	return out, nil
}

// aesCBCDecrypt reverses aesCBCEncrypt: the first 16 bytes of data are the
// IV, the rest is PKCS#7-padded ciphertext.
func aesCBCDecrypt(key, data []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("encryption: aes key setup: %w", err)
	}
	if len(data) < aes.BlockSize {
		return nil, fmt.Errorf("encryption: aes-cbc payload shorter than one IV block")
	}
	iv := data[:aes.BlockSize]
	ciphertext := data[aes.BlockSize:]
	if len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("encryption: aes-cbc ciphertext is not block-aligned")
	}
	if len(ciphertext) == 0 {
		return nil, nil
	}
	out := make([]byte, len(ciphertext))
	mode := cipher.NewCBCDecrypter(block, iv)
	mode.CryptBlocks(out, ciphertext)
	return pkcs7Unpad(out)
}

// aesCBCNoPadEncrypt and aesCBCNoPadDecrypt run AES-CBC with an explicit IV
// and no padding, used by the R6 hash iteration (Algorithm 2.B) and by the
// R5/R6 /UE and /OE key unwrapping, neither of which carries PKCS#7 padding.
func aesCBCNoPadEncrypt(key, iv, data []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	mode := cipher.NewCBCEncrypter(block, iv)
	mode.CryptBlocks(out, data)
	return out, nil
}

func aesCBCNoPadDecrypt(key, iv, data []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	mode := cipher.NewCBCDecrypter(block, iv)
	mode.CryptBlocks(out, data)
	return out, nil
}

// aesECBDecryptBlock decrypts exactly one 16-byte block with AES in ECB
// mode, used only for /Perms validation (R6), which ISO 32000-2 defines in
// terms of a single-block ECB operation.
func aesECBDecryptBlock(key, block16 []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if len(block16) != aes.BlockSize {
		return nil, fmt.Errorf("encryption: /Perms must be exactly %d bytes", aes.BlockSize)
	}
	out := make([]byte, aes.BlockSize)
	block.Decrypt(out, block16)
	return out, nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	out := make([]byte, len(data)+padLen)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(padLen)
	}
	return out
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > len(data) {
		return nil, fmt.Errorf("encryption: invalid pkcs7 padding")
	}
	return data[:len(data)-padLen], nil
}
