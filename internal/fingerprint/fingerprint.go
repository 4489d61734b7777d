// Package fingerprint derives the cache key for a sourcing request.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"talent-sourcing-service/internal/entity"
)

// Compute returns a hex SHA-256 over a length-prefixed concatenation of the
// inputs, so no two distinct triples share a canonical form.
func Compute(requirementText string, strategy entity.Strategy, limit int) string {
	var b strings.Builder
	writeField(&b, requirementText)
	writeField(&b, string(strategy))
	writeField(&b, strconv.Itoa(limit))

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func writeField(b *strings.Builder, v string) {
	b.WriteString(strconv.Itoa(len(v)))
	b.WriteByte(':')
	b.WriteString(v)
	b.WriteByte(';')
}
