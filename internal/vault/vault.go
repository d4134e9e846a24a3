// Package vault implements AEAD-encrypted storage of venue credentials
// (spec §4.7). A single process-wide master key, derived from the
// configured encryption key via scrypt, encrypts every access/secret key
// pair with AES-256-GCM before it reaches the store.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/scrypt"

	"crowny-exchange/internal/apperr"
)

const (
	ivSize  = 12
	keySize = 32
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

// vaultSalt is the fixed 32-byte scrypt salt (spec §4.7: "salt (32 bytes)").
// The master key's secrecy rests entirely on the configured password; the
// salt only needs to be fixed and unique to this application, not secret.
var vaultSalt = sha256.Sum256([]byte("crowny-exchange-vault-salt-v1"))

// Vault derives the master key once at construction and uses it for every
// encrypt/decrypt call.
type Vault struct {
	key []byte
}

// New derives the 32-byte master key K from the configured password via
// scrypt (spec §4.7).
func New(password string) (*Vault, error) {
	key, err := scrypt.Key([]byte(password), vaultSalt[:], scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindCryptographic, "vault key derivation", err)
	}
	return &Vault{key: key}, nil
}

// Sealed is one AEAD-encrypted value: hex-encoded ciphertext, nonce, and tag.
type Sealed struct {
	CipherHex string
	IVHex     string
	TagHex    string
}

func (v *Vault) newGCM() (cipher.AEAD, error) {
	block, err := aes.NewCipher(v.key)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindCryptographic, "vault cipher init", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindCryptographic, "vault gcm init", err)
	}
	return gcm, nil
}

// encryptOne seals a single plaintext, returning ciphertext/nonce/tag
// separately so the caller can combine multiple seals (spec §4.7: stored
// columns keep each cipher separate but share a combined iv/tag string).
func (v *Vault) encryptOne(plaintext string) (cipherBytes, iv, tag []byte, err error) {
	gcm, err := v.newGCM()
	if err != nil {
		return nil, nil, nil, err
	}
	iv = make([]byte, ivSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, nil, nil, apperr.Wrap(apperr.KindCryptographic, "vault nonce", err)
	}
	sealed := gcm.Seal(nil, iv, []byte(plaintext), nil)
	tagStart := len(sealed) - gcm.Overhead()
	return sealed[:tagStart], iv, sealed[tagStart:], nil
}

func (v *Vault) decryptOne(cipherHex, ivHex, tagHex string) (string, error) {
	gcm, err := v.newGCM()
	if err != nil {
		return "", err
	}
	cipherBytes, err := hex.DecodeString(cipherHex)
	if err != nil {
		return "", apperr.New(apperr.KindNotFound, "no such key")
	}
	iv, err := hex.DecodeString(ivHex)
	if err != nil {
		return "", apperr.New(apperr.KindNotFound, "no such key")
	}
	tag, err := hex.DecodeString(tagHex)
	if err != nil {
		return "", apperr.New(apperr.KindNotFound, "no such key")
	}
	plaintext, err := gcm.Open(nil, iv, append(cipherBytes, tag...), nil)
	if err != nil {
		return "", apperr.New(apperr.KindNotFound, "no such key")
	}
	return string(plaintext), nil
}

// SealedKeyPair is the stored representation of an access/secret key pair:
// separate ciphers but a combined iv/tag, each joined with ":" (spec §4.7).
type SealedKeyPair struct {
	AccessKeyCipher string
	SecretKeyCipher string
	IV              string
	Tag             string
}

// EncryptKeyPair seals an access/secret key pair for storage.
func (v *Vault) EncryptKeyPair(accessKey, secretKey string) (SealedKeyPair, error) {
	aCipher, aIV, aTag, err := v.encryptOne(accessKey)
	if err != nil {
		return SealedKeyPair{}, err
	}
	sCipher, sIV, sTag, err := v.encryptOne(secretKey)
	if err != nil {
		return SealedKeyPair{}, err
	}
	return SealedKeyPair{
		AccessKeyCipher: hex.EncodeToString(aCipher),
		SecretKeyCipher: hex.EncodeToString(sCipher),
		IV:              hex.EncodeToString(aIV) + ":" + hex.EncodeToString(sIV),
		Tag:             hex.EncodeToString(aTag) + ":" + hex.EncodeToString(sTag),
	}, nil
}

// DecryptKeyPair reverses EncryptKeyPair. Any failure (bad hex, auth tag
// mismatch, truncated combined fields) surfaces as "no such key" rather
// than leaking cryptographic detail (spec §4.7).
func (v *Vault) DecryptKeyPair(stored SealedKeyPair) (accessKey, secretKey string, err error) {
	ivA, ivS, ok := splitPair(stored.IV)
	if !ok {
		return "", "", apperr.New(apperr.KindNotFound, "no such key")
	}
	tagA, tagS, ok := splitPair(stored.Tag)
	if !ok {
		return "", "", apperr.New(apperr.KindNotFound, "no such key")
	}
	accessKey, err = v.decryptOne(stored.AccessKeyCipher, ivA, tagA)
	if err != nil {
		return "", "", err
	}
	secretKey, err = v.decryptOne(stored.SecretKeyCipher, ivS, tagS)
	if err != nil {
		return "", "", err
	}
	return accessKey, secretKey, nil
}

func splitPair(combined string) (a, b string, ok bool) {
	for i := 0; i < len(combined); i++ {
		if combined[i] == ':' {
			return combined[:i], combined[i+1:], true
		}
	}
	return "", "", false
}

// Masked returns the display-safe form of a key pair: first-8+last-4 of
// the access key, and last-4 of the secret key (spec §4.7 getMasked).
type Masked struct {
	AccessKey string
	SecretKey string
}

// MaskKeyPair builds the masked view from already-decrypted plaintext keys.
func MaskKeyPair(accessKey, secretKey string) Masked {
	return Masked{
		AccessKey: maskMiddle(accessKey, 8, 4),
		SecretKey: maskSuffix(secretKey, 4),
	}
}

func maskMiddle(s string, head, tail int) string {
	if len(s) <= head+tail {
		return s
	}
	return fmt.Sprintf("%s...%s", s[:head], s[len(s)-tail:])
}

func maskSuffix(s string, tail int) string {
	if len(s) <= tail {
		return "..." + s
	}
	return "..." + s[len(s)-tail:]
}
