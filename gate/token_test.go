package gate

import (
	"testing"
	"time"

	"plotgate/apperr"
)

func TestParseClientQRRoundTrip(t *testing.T) {
	t.Parallel()

	token := ClientQR("user-42", "plot-7")
	userID, plotID, err := ParseClientQR(token)
	if err != nil {
		t.Fatalf("ParseClientQR(%q): unexpected error %v", token, err)
	}
	if userID != "user-42" || plotID != "plot-7" {
		t.Errorf("ParseClientQR(%q): got (%q, %q), want (user-42, plot-7)", token, userID, plotID)
	}
}

func TestParseClientQRMalformed(t *testing.T) {
	t.Parallel()

	cases := []string{
		"",
		"client",
		"client:user-1:plot",
		"client:user-1:plot:p-1:extra",
		"visitor:user-1:plot:p-1",
		"client:user-1:lot:p-1",
		"client::plot:p-1",
		"client:user-1:plot:",
		"not-a-qr-at-all",
	}
	for _, token := range cases {
		_, _, err := ParseClientQR(token)
		if err == nil {
			t.Errorf("ParseClientQR(%q): expected error, got none", token)
			continue
		}
		// A malformed payload must be a format error, never a lookup error.
		if got := apperr.KindOf(err); got != apperr.KindValidation {
			t.Errorf("ParseClientQR(%q): kind = %v, want KindValidation", token, got)
		}
	}
}

func TestEndOfDay(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("TST", 5*3600)
	at := time.Date(2026, 3, 14, 9, 26, 53, 0, loc)

	got := EndOfDay(at, loc)
	want := time.Date(2026, 3, 14, 23, 59, 59, 999_000_000, loc)
	if !got.Equal(want) {
		t.Errorf("EndOfDay: got %v, want %v", got, want)
	}
}

func TestVisitExpiryIgnoresIssuanceTime(t *testing.T) {
	t.Parallel()

	loc := time.UTC
	got, err := VisitExpiry("2026-06-01", loc)
	if err != nil {
		t.Fatalf("VisitExpiry: unexpected error %v", err)
	}
	want := time.Date(2026, 6, 1, 23, 59, 59, 999_000_000, loc)
	if !got.Equal(want) {
		t.Errorf("VisitExpiry: got %v, want %v", got, want)
	}
}

func TestVisitExpiryBadDate(t *testing.T) {
	t.Parallel()

	if _, err := VisitExpiry("June 1st", time.UTC); err == nil {
		t.Fatal("VisitExpiry: expected error for unparsable date")
	}
	if _, err := VisitExpiry("", time.UTC); err == nil {
		t.Fatal("VisitExpiry: expected error for empty date")
	}
}

func TestNewTokenUnique(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token := NewToken()
		if token == "" {
			t.Fatal("NewToken returned empty string")
		}
		if seen[token] {
			t.Fatalf("NewToken returned duplicate %q", token)
		}
		seen[token] = true
	}
}
