package hls

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/jmylchreest/streamrepair/internal/cache"
)

// KeyFetcher fetches the raw bytes of an AES-128 key given its absolute URI.
type KeyFetcher interface {
	FetchKey(ctx context.Context, uri string) ([]byte, error)
}

// Processor decrypts AES-128-CBC segments, caching keys by absolute URI.
type Processor struct {
	keys    *cache.TTLCache
	keyTTL  time.Duration
	fetcher KeyFetcher
}

// NewProcessor creates a Processor that fetches keys via fetcher and caches
// them for keyTTL.
func NewProcessor(fetcher KeyFetcher, keyTTL time.Duration) *Processor {
	return &Processor{
		keys:    cache.New(),
		keyTTL:  keyTTL,
		fetcher: fetcher,
	}
}

// Decrypt decrypts data per key's method. A nil key means the segment is
// unencrypted and data is returned unchanged.
func (p *Processor) Decrypt(ctx context.Context, data []byte, key *MediaPlaylistKey, mediaSequence uint64) ([]byte, error) {
	if key == nil {
		return data, nil
	}
	if key.Method != "AES-128" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKey, key.Method)
	}

	keyBytes, err := p.resolveKey(ctx, key.URI)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryption, err)
	}

	iv, err := resolveIV(key.IV, mediaSequence)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryption, err)
	}

	return decryptAES128CBC(keyBytes, iv, data)
}

func (p *Processor) resolveKey(ctx context.Context, uri string) ([]byte, error) {
	if cached, _, ok := p.keys.Get(uri); ok {
		return cached, nil
	}
	keyBytes, err := p.fetcher.FetchKey(ctx, uri)
	if err != nil {
		return nil, err
	}
	if len(keyBytes) != 16 {
		return nil, fmt.Errorf("key at %s is %d bytes, want 16", uri, len(keyBytes))
	}
	p.keys.Set(uri, keyBytes, p.keyTTL)
	return keyBytes, nil
}

// resolveIV returns the playlist-provided IV if present, otherwise the
// 16-byte big-endian encoding of mediaSequence.
func resolveIV(ivHex string, mediaSequence uint64) ([]byte, error) {
	if ivHex == "" {
		iv := make([]byte, 16)
		binary.BigEndian.PutUint64(iv[8:], mediaSequence)
		return iv, nil
	}
	ivHex = strings.TrimPrefix(strings.TrimPrefix(ivHex, "0x"), "0X")
	iv, err := hex.DecodeString(ivHex)
	if err != nil {
		return nil, fmt.Errorf("invalid IV %q: %w", ivHex, err)
	}
	if len(iv) != 16 {
		return nil, fmt.Errorf("IV %q decodes to %d bytes, want 16", ivHex, len(iv))
	}
	return iv, nil
}

func decryptAES128CBC(key, iv, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 {
		return ciphertext, nil
	}
	if len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("ciphertext length %d is not a multiple of the block size", len(ciphertext))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	return unpadPKCS7(plaintext)
}

func unpadPKCS7(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > aes.BlockSize || padLen > len(data) {
		return nil, fmt.Errorf("invalid PKCS#7 padding length %d", padLen)
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, fmt.Errorf("invalid PKCS#7 padding bytes")
		}
	}
	return data[:len(data)-padLen], nil
}
