package storeloader

import (
	"bytes"
	"errors"
	"testing"
)

func testKey(b byte) []byte {
	return bytes.Repeat([]byte{b}, 32)
}

func TestCodec_Plain(t *testing.T) {
	var c Codec
	b, err := c.Encode(&Document{Version: DocumentVersion, Data: map[string]string{"A": "1"}})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if want := `{"_v":1,"data":{"A":"1"}}`; string(b) != want {
		t.Errorf("Encode() = %s, want %s", b, want)
	}

	doc, err := c.Decode([]byte(`{"_v":1}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if doc.Data == nil {
		t.Error("Decode() left Data nil")
	}

	if _, err := c.Decode([]byte("not json")); err == nil {
		t.Error("Decode() expected error for malformed payload")
	}
}

func TestCodec_Sealed(t *testing.T) {
	for _, algorithm := range []string{CipherAESGCM, CipherChaCha20, ""} {
		t.Run(algorithm, func(t *testing.T) {
			aead, err := NewCipher(algorithm, testKey(1))
			if err != nil {
				t.Fatalf("NewCipher() error = %v", err)
			}
			c := NewCodec(aead)
			if !c.Sealed() {
				t.Error("Sealed() = false")
			}

			b, err := c.Encode(&Document{Version: DocumentVersion, Data: map[string]string{"PASSWORD": "hunter2"}})
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if bytes.Contains(b, []byte("hunter2")) {
				t.Error("sealed payload contains plaintext")
			}

			doc, err := c.Decode(b)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if doc.Data["PASSWORD"] != "hunter2" {
				t.Errorf("Decode() data = %v", doc.Data)
			}

			other, err := NewCipher(algorithm, testKey(2))
			if err != nil {
				t.Fatalf("NewCipher() error = %v", err)
			}
			if _, err := NewCodec(other).Decode(b); !errors.Is(err, ErrDecrypt) {
				t.Errorf("Decode() with wrong key error = %v, want ErrDecrypt", err)
			}
			if _, err := c.Decode([]byte{1, 2}); !errors.Is(err, ErrDecrypt) {
				t.Errorf("Decode() short payload error = %v, want ErrDecrypt", err)
			}
		})
	}
}

func TestNewCipher_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		algorithm string
		key       []byte
	}{
		{"aes short key", CipherAESGCM, make([]byte, 10)},
		{"chacha short key", CipherChaCha20, make([]byte, 16)},
		{"unknown", "rot13", testKey(1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewCipher(tt.algorithm, tt.key); err == nil {
				t.Error("NewCipher() expected error")
			}
		})
	}
}
