package uid

import (
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const orderAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// New generates a new unique identifier.
func New() string {
	return uuid.New().String()
}

// IsValid checks if a string is a valid UUID.
func IsValid(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// OrderID generates a buyer-facing order id of the form ORDER-XXXXX-XXXXX-XXXXX.
func OrderID() string {
	var b strings.Builder
	b.WriteString("ORDER")
	max := big.NewInt(int64(len(orderAlphabet)))
	for group := 0; group < 3; group++ {
		b.WriteByte('-')
		for i := 0; i < 5; i++ {
			n, err := rand.Int(rand.Reader, max)
			if err != nil {
				n = big.NewInt(int64(uuid.New()[0]) % int64(len(orderAlphabet)))
			}
			b.WriteByte(orderAlphabet[n.Int64()])
		}
	}
	return b.String()
}

// IsOrderID reports whether id has the shape produced by OrderID.
func IsOrderID(id string) bool {
	parts := strings.Split(id, "-")
	if len(parts) != 4 || parts[0] != "ORDER" {
		return false
	}
	for _, p := range parts[1:] {
		if len(p) != 5 {
			return false
		}
		for _, c := range p {
			if !strings.ContainsRune(orderAlphabet, c) {
				return false
			}
		}
	}
	return true
}
