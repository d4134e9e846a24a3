package vault

import "testing"

func TestEncryptDecryptKeyPair_RoundTrip(t *testing.T) {
	v, err := New("test-password")
	if err != nil {
		t.Fatal(err)
	}
	sealed, err := v.EncryptKeyPair("my-access-key", "my-secret-key")
	if err != nil {
		t.Fatal(err)
	}
	access, secret, err := v.DecryptKeyPair(sealed)
	if err != nil {
		t.Fatal(err)
	}
	if access != "my-access-key" {
		t.Errorf("access = %q, want my-access-key", access)
	}
	if secret != "my-secret-key" {
		t.Errorf("secret = %q, want my-secret-key", secret)
	}
}

func TestEncryptKeyPair_CiphersDiffer(t *testing.T) {
	v, _ := New("pw")
	sealed, _ := v.EncryptKeyPair("same-value", "same-value")
	if sealed.AccessKeyCipher == sealed.SecretKeyCipher {
		t.Error("ciphers for the same plaintext should differ because nonces differ")
	}
}

func TestDecryptKeyPair_WrongPasswordFails(t *testing.T) {
	v1, _ := New("password-one")
	v2, _ := New("password-two")
	sealed, _ := v1.EncryptKeyPair("access", "secret")
	if _, _, err := v2.DecryptKeyPair(sealed); err == nil {
		t.Fatal("expected decryption with wrong key to fail")
	}
}

func TestDecryptKeyPair_TamperedCipherFails(t *testing.T) {
	v, _ := New("pw")
	sealed, _ := v.EncryptKeyPair("access", "secret")
	sealed.AccessKeyCipher = sealed.AccessKeyCipher[:len(sealed.AccessKeyCipher)-2] + "00"
	if _, _, err := v.DecryptKeyPair(sealed); err == nil {
		t.Fatal("expected tampered ciphertext to fail GCM authentication")
	}
}

func TestDecryptKeyPair_MalformedIVFails(t *testing.T) {
	v, _ := New("pw")
	sealed, _ := v.EncryptKeyPair("access", "secret")
	sealed.IV = "not-a-valid-combined-iv-without-colon"
	if _, _, err := v.DecryptKeyPair(sealed); err == nil {
		t.Fatal("expected malformed iv to fail")
	}
}

func TestMaskKeyPair_MasksMiddleAndSuffix(t *testing.T) {
	m := MaskKeyPair("abcdefghijklmnop", "0123456789")
	if m.AccessKey != "abcdefgh...mnop" {
		t.Errorf("AccessKey = %q, want abcdefgh...mnop", m.AccessKey)
	}
	if m.SecretKey != "...6789" {
		t.Errorf("SecretKey = %q, want ...6789", m.SecretKey)
	}
}

func TestMaskKeyPair_ShortValuesDoNotPanic(t *testing.T) {
	m := MaskKeyPair("ab", "cd")
	if m.AccessKey != "ab" {
		t.Errorf("AccessKey = %q, want ab unchanged", m.AccessKey)
	}
	if m.SecretKey != "...cd" {
		t.Errorf("SecretKey = %q, want ...cd", m.SecretKey)
	}
}
