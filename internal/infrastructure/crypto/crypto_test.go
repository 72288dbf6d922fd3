package crypto

import (
	"errors"
	"strings"
	"testing"
)

const testKey = "01234567890123456789012345678901" // 32 bytes

func TestNewEncryptor(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{"valid key", testKey, nil},
		{"short key", "too-short", ErrInvalidKey},
		{"empty key", "", ErrInvalidKey},
		{"long key", testKey + "x", ErrInvalidKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := NewEncryptor(tt.key)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("NewEncryptor() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && enc == nil {
				t.Fatal("NewEncryptor() returned nil")
			}
		})
	}
}

func TestEncryptDecrypt_AccessToken(t *testing.T) {
	enc, _ := NewEncryptor(testKey)

	token := "access-sandbox-8ab976e6-64bc-4b38-98f7-731e7a349970"
	sealed, err := enc.Encrypt(token)
	if err != nil {
		t.Fatalf("Encrypt() failed: %v", err)
	}
	if strings.Contains(sealed, "access-sandbox") {
		t.Error("Encrypt() leaked plaintext into ciphertext")
	}

	opened, err := enc.Decrypt(sealed)
	if err != nil {
		t.Fatalf("Decrypt() failed: %v", err)
	}
	if opened != token {
		t.Errorf("Decrypt() = %q, want %q", opened, token)
	}
}

func TestEncryptDecrypt_Empty(t *testing.T) {
	enc, _ := NewEncryptor(testKey)

	if c, err := enc.Encrypt(""); err != nil || c != "" {
		t.Errorf("Encrypt(\"\") = %q, %v; want \"\", nil", c, err)
	}
	if p, err := enc.Decrypt(""); err != nil || p != "" {
		t.Errorf("Decrypt(\"\") = %q, %v; want \"\", nil", p, err)
	}
}

func TestEncrypt_NonceDiffers(t *testing.T) {
	enc, _ := NewEncryptor(testKey)

	c1, _ := enc.Encrypt("same token")
	c2, _ := enc.Encrypt("same token")
	if c1 == c2 {
		t.Error("Encrypt() produced identical ciphertexts for the same plaintext")
	}
}

func TestDecrypt_Rejects(t *testing.T) {
	enc, _ := NewEncryptor(testKey)
	other, _ := NewEncryptor("98765432109876543210987654321098")
	sealed, _ := enc.Encrypt("access-token")

	tests := []struct {
		name       string
		decryptor  *Encryptor
		ciphertext string
	}{
		{"invalid base64", enc, "not-valid-base64!!!"},
		{"shorter than nonce", enc, "YQ=="},
		{"wrong key", other, sealed},
		{"tampered", enc, sealed[:len(sealed)-4] + "AAAA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.decryptor.Decrypt(tt.ciphertext); err == nil {
				t.Errorf("Decrypt(%q) succeeded, want error", tt.ciphertext)
			}
		})
	}
}
