package checkout

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"
)

// orderNumberAlphabet avoids look-alike characters and vowels so numbers
// read cleanly over the phone and never spell words.
const orderNumberAlphabet = "6789BCDFGHJKLMNPQRTW"

const orderNumberRandomLen = 10

// NewOrderNumber generates a customer-facing order number like
// B-XXXXXXXXXX-2025JUN01. Uniqueness is enforced by the database
// constraint, not here; callers retry on collision.
func NewOrderNumber(now time.Time) (string, error) {
	buf := make([]byte, orderNumberRandomLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate order number: %w", err)
	}
	for i, b := range buf {
		buf[i] = orderNumberAlphabet[int(b)%len(orderNumberAlphabet)]
	}

	month := strings.ToUpper(now.Month().String()[:3])
	return fmt.Sprintf("B-%s-%d%s%02d", buf, now.Year(), month, now.Day()), nil
}
