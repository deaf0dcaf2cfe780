package gateway

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strconv"
	"strings"
)

// checksumSeparator joins the hash and the salt index in an X-VERIFY value
const checksumSeparator = "###"

// Checksum computes hex(sha256(payload + path + saltKey)) + "###" + saltIndex.
// It is pure: identical inputs always give identical output.
func Checksum(payload []byte, path, saltKey string, saltIndex int) string {
	return checksumHash(payload, path, saltKey) + checksumSeparator + strconv.Itoa(saltIndex)
}

func checksumHash(payload []byte, path, saltKey string) string {
	h := sha256.New()
	h.Write(payload)
	h.Write([]byte(path))
	h.Write([]byte(saltKey))
	return hex.EncodeToString(h.Sum(nil))
}

// Signer signs and verifies X-VERIFY values with one salt key
type Signer struct {
	saltKey   string
	saltIndex int
}

// NewSigner creates a Signer
func NewSigner(saltKey string, saltIndex int) *Signer {
	return &Signer{saltKey: saltKey, saltIndex: saltIndex}
}

// Sign signs a request body sent to endpointPath
func (s *Signer) Sign(payload []byte, endpointPath string) string {
	return Checksum(payload, endpointPath, s.saltKey, s.saltIndex)
}

// SignPath signs a body-less request, such as a status check, over its path
func (s *Signer) SignPath(path string) string {
	return Checksum(nil, path, s.saltKey, s.saltIndex)
}

// Verify checks signature against payload and endpointPath.
// Malformed signatures and foreign salt indexes fail verification.
func (s *Signer) Verify(signature string, payload []byte, endpointPath string) bool {
	hash, index, ok := strings.Cut(strings.TrimSpace(signature), checksumSeparator)
	if !ok || hash == "" || strings.Contains(index, checksumSeparator) {
		return false
	}
	idx, err := strconv.Atoi(index)
	if err != nil || idx != s.saltIndex {
		return false
	}

	expected := checksumHash(payload, endpointPath, s.saltKey)
	return subtle.ConstantTimeCompare([]byte(strings.ToLower(hash)), []byte(expected)) == 1
}
