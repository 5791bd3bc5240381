// Package session derives session identities and keeps the in-memory
// per-session accumulators.
package session

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// IDLength is the length of every derived session id.
const IDLength = 32

// HourBucket returns the number of whole hours elapsed since the Unix epoch.
func HourBucket(t time.Time) int64 {
	return t.Unix() / int64(time.Hour/time.Second)
}

// DeriveID fingerprints a visitor for the current hour. The same address and
// agent map to the same id until the hour bucket advances.
func DeriveID(networkAddress, agent string, now time.Time) string {
	h := sha256.New()
	h.Write([]byte(networkAddress))
	h.Write([]byte{0})
	h.Write([]byte(agent))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(HourBucket(now), 10)))
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:IDLength/2])
}
