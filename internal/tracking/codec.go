// Package tracking builds and reads the tokens embedded in tracked emails.
package tracking

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Encode returns an opaque URL-safe token for a delivery record id. The random suffix keeps
// tokens for consecutive ids unguessable.
func Encode(id int64) string {
	var salt [8]byte
	_, _ = rand.Read(salt[:])
	payload := fmt.Sprintf("%d:%s", id, hex.EncodeToString(salt[:]))
	return base64.URLEncoding.EncodeToString([]byte(payload))
}

// Decode extracts the id from a token. It reports false for anything malformed.
func Decode(token string) (int64, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, false
	}

	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		raw, err = base64.RawURLEncoding.DecodeString(token)
		if err != nil {
			return 0, false
		}
	}

	idPart, _, found := strings.Cut(string(raw), ":")
	if !found {
		return 0, false
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id < 0 {
		return 0, false
	}
	return id, true
}
