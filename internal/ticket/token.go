// Package ticket derives QR ticket tokens and renders them as QR
// images and printable PDFs.
package ticket

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"
)

const nonceAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// MintToken derives the ticket token for a registration. The token is
// the hex SHA-256 of "{userID}-{eventID}-{unix timestamp}-{nonce}",
// which keeps it opaque, fixed-width (64 hex chars) and unguessable.
func MintToken(userID, eventID int64, now time.Time) (string, error) {
	nonce, err := randomString(32)
	if err != nil {
		return "", fmt.Errorf("ticket nonce: %w", err)
	}
	raw := fmt.Sprintf("%d-%d-%d-%s", userID, eventID, now.Unix(), nonce)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:]), nil
}

func randomString(length int) (string, error) {
	buf := make([]byte, length)
	max := big.NewInt(int64(len(nonceAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = nonceAlphabet[n.Int64()]
	}
	return string(buf), nil
}
