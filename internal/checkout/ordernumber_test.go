package checkout

import (
	"regexp"
	"strings"
	"testing"
	"time"
)

func TestNewOrderNumber_Format(t *testing.T) {
	at := time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC)
	n, err := NewOrderNumber(at)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	re := regexp.MustCompile(`^B-[` + orderNumberAlphabet + `]{10}-2025JUN01$`)
	if !re.MatchString(n) {
		t.Errorf("order number %q does not match expected format", n)
	}
}

func TestNewOrderNumber_AlphabetOnly(t *testing.T) {
	at := time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 50; i++ {
		n, err := NewOrderNumber(at)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		random := strings.Split(n, "-")[1]
		for _, r := range random {
			if !strings.ContainsRune(orderNumberAlphabet, r) {
				t.Fatalf("order number %q contains %q outside the alphabet", n, r)
			}
		}
	}
}

func TestNewOrderNumber_Varies(t *testing.T) {
	at := time.Now().UTC()
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		n, err := NewOrderNumber(at)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if seen[n] {
			t.Fatalf("duplicate order number %q in 20 draws", n)
		}
		seen[n] = true
	}
}
