package requestcache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"estatemap/internal/models"
)

// Canonicalize renders v as JSON with every object's keys sorted, so that
// two option sets with the same content always produce the same bytes.
func Canonicalize(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal options: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("failed to decode options: %w", err)
	}

	canonical, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal canonical options: %w", err)
	}
	return canonical, nil
}

// Key is the cache key of one request: sha256 of "<operation>-<canonical options>"
func Key(op models.Operation, canonical []byte) string {
	sum := sha256.Sum256(append([]byte(string(op)+"-"), canonical...))
	return hex.EncodeToString(sum[:])
}
