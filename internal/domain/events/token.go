// Package events defines the values that flow from the serial device to subscribers.
package events

// Token is an opaque identifier read from the device, e.g. a card UID.
// Its internal structure is never inspected.
type Token string

// String returns the token text.
func (t Token) String() string {
	return string(t)
}

// Bytes returns the token as a text frame payload.
func (t Token) Bytes() []byte {
	return []byte(t)
}
