package order

import (
	"fmt"
	"strings"
)

// Status is the closed order lifecycle set. Transitions are server
// authoritative; the client only requests one and re-reads confirmed
// state.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusShipped   Status = "SHIPPED"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
)

// Statuses lists every transition target the admin UI may offer.
func Statuses() []Status {
	return []Status{StatusPending, StatusShipped, StatusDelivered, StatusCancelled}
}

// ParseStatus uppercases and validates a requested status. Anything
// outside the closed set is rejected before any network call.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case StatusPending, StatusShipped, StatusDelivered, StatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("order: unknown status %q", s)
}

// Badge is a display style derived from a status. Unknown server values
// map to the neutral style rather than failing.
type Badge string

const (
	BadgeSuccess Badge = "success"
	BadgeInfo    Badge = "info"
	BadgeWarning Badge = "warning"
	BadgeDanger  Badge = "danger"
	BadgeNeutral Badge = "neutral"
)

func BadgeFor(status string) Badge {
	switch Status(strings.ToUpper(status)) {
	case StatusDelivered:
		return BadgeSuccess
	case StatusShipped:
		return BadgeInfo
	case StatusPending:
		return BadgeWarning
	case StatusCancelled:
		return BadgeDanger
	}
	return BadgeNeutral
}
