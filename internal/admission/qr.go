package admission

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// QRSigner derives reservation QR codes. A code is the hex HMAC-SHA256
// of the slot and reservation identifiers under a server-side secret,
// so it is content-addressed: a valid code can only exist for a
// reservation the server actually issued, and guessing one requires
// the secret.
type QRSigner struct {
	secret []byte
}

// NewQRSigner returns a signer keyed with the given secret.
func NewQRSigner(secret string) *QRSigner {
	return &QRSigner{secret: []byte(secret)}
}

// Sign produces the QR code for a (slot, reservation) pair.
func (s *QRSigner) Sign(slotID, reservationID uint64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "slot:%d|res:%d", slotID, reservationID)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether code is the genuine QR code for the pair.
func (s *QRSigner) Verify(slotID, reservationID uint64, code string) bool {
	expected := s.Sign(slotID, reservationID)
	return hmac.Equal([]byte(expected), []byte(code))
}
