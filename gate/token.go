// Package gate implements the QR access-control core: opaque token issuance
// for approved visits and same-day visitor passes, the permanent client
// credential codec, and verification at the point of physical entry.
package gate

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"plotgate/apperr"
)

// NewToken mints an opaque, globally unique QR token. Collision probability
// is treated as negligible; storage is not re-checked.
func NewToken() string {
	return uuid.NewString()
}

// ClientQR builds the permanent credential string for a plot owner. It is
// not a stored record: the gate verifies it against live ownership data at
// scan time.
func ClientQR(userID, plotID string) string {
	return "client:" + userID + ":plot:" + plotID
}

// ParseClientQR decodes a permanent client credential. The payload must be
// exactly four colon-separated segments, client:<userId>:plot:<plotId>.
// Malformed input is a format error, never a lookup error.
func ParseClientQR(token string) (userID, plotID string, err error) {
	parts := strings.Split(token, ":")
	if len(parts) != 4 || parts[0] != "client" || parts[2] != "plot" || parts[1] == "" || parts[3] == "" {
		return "", "", apperr.Validation("invalid client QR format")
	}
	return parts[1], parts[3], nil
}

// EndOfDay returns 23:59:59.999 of t's calendar day in the given location.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 23, 59, 59, 999*int(time.Millisecond), loc)
}

// VisitExpiry computes the QR validity end for a visit scheduled on date
// (YYYY-MM-DD): end of that day regardless of when issuance happens.
func VisitExpiry(date string, loc *time.Location) (time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return time.Time{}, apperr.Validation("visit has no valid scheduled date")
	}
	return EndOfDay(day, loc), nil
}
