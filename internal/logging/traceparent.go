package logging

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// NewTraceparent synthesizes a W3C trace-context header value with fresh
// random trace and parent ids. The poll endpoint expects a distinct value
// per request.
func NewTraceparent() string {
	traceID := make([]byte, 16)
	parentID := make([]byte, 8)
	rand.Read(traceID)
	rand.Read(parentID)
	return fmt.Sprintf("00-%s-%s-00", hex.EncodeToString(traceID), hex.EncodeToString(parentID))
}
