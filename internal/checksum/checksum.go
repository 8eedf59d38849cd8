// Package checksum derives version tags for notes.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"github.com/starford/notas/internal/models"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Note returns a tag that changes whenever any field of n changes.
// Fields are length-prefixed so "ab"+"c" and "a"+"bc" differ.
func Note(n models.Note) string {
	var buf []byte
	for _, f := range []string{n.ID, n.Title, n.Content} {
		buf = strconv.AppendInt(buf, int64(len(f)), 10)
		buf = append(buf, ':')
		buf = append(buf, f...)
	}
	buf = strconv.AppendBool(buf, n.Completed)
	return Sum(buf)
}
