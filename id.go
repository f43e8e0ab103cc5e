package onstomp

import (
	"crypto/rand"
	"fmt"
)

// SessionID generates and returns a session SessionID.
func SessionID() string {
	b := make([]byte, 64)
	rand.Read(b)
	return fmt.Sprintf("%x", b)
}

// ReceiptID generates a receipt id suitable for the receipt header.
func ReceiptID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return fmt.Sprintf("rcpt-%x", b)
}
