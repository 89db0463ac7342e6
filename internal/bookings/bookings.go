// Package bookings holds the stay rules shared by the API and the jobs:
// status lifecycle, stay dates, references, and guest phone normalization.
package bookings

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
)

const DateLayout = "2006-01-02"

const (
	StatusPending    = "pending"
	StatusConfirmed  = "confirmed"
	StatusCheckedIn  = "checked_in"
	StatusCheckedOut = "checked_out"
	StatusCancelled  = "cancelled"
)

var AllStatuses = []string{StatusPending, StatusConfirmed, StatusCheckedIn, StatusCheckedOut, StatusCancelled}

var transitions = map[string][]string{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCheckedIn, StatusCancelled},
	StatusCheckedIn: {StatusCheckedOut},
}

var (
	ErrInvalidStay  = errors.New("check_out must be after check_in")
	ErrInvalidPhone = errors.New("guest_phone must be a valid phone number")
)

func IsValidStatus(status string) bool {
	for _, s := range AllStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Stay is a half-open range of nights [CheckIn, CheckOut).
type Stay struct {
	CheckIn  time.Time
	CheckOut time.Time
}

func ParseStay(checkIn, checkOut string) (Stay, error) {
	in, err := time.Parse(DateLayout, strings.TrimSpace(checkIn))
	if err != nil {
		return Stay{}, fmt.Errorf("check_in must be a date in YYYY-MM-DD format")
	}
	out, err := time.Parse(DateLayout, strings.TrimSpace(checkOut))
	if err != nil {
		return Stay{}, fmt.Errorf("check_out must be a date in YYYY-MM-DD format")
	}
	if !out.After(in) {
		return Stay{}, ErrInvalidStay
	}
	return Stay{CheckIn: in, CheckOut: out}, nil
}

func (s Stay) Nights() int64 {
	return int64(s.CheckOut.Sub(s.CheckIn).Hours() / 24)
}

func (s Stay) CheckInDate() string  { return s.CheckIn.Format(DateLayout) }
func (s Stay) CheckOutDate() string { return s.CheckOut.Format(DateLayout) }

// Overlaps reports whether two stays share a night.
func (s Stay) Overlaps(other Stay) bool {
	return s.CheckIn.Before(other.CheckOut) && other.CheckIn.Before(s.CheckOut)
}

// OverlapsBlocked reports whether the stay occupies any night of the
// inclusive blocked range [start, end].
func (s Stay) OverlapsBlocked(start, end time.Time) bool {
	return !s.CheckIn.After(end) && s.CheckOut.After(start)
}

// NewReference returns an 8 character upper-case booking code.
func NewReference() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(id[:8])
}

// NormalizePhone parses raw in the default region and formats it as E.164.
func NormalizePhone(raw, defaultRegion string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidPhone
	}
	num, err := phonenumbers.Parse(raw, strings.ToUpper(defaultRegion))
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return "", ErrInvalidPhone
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// LocalToday returns the calendar date at now in the named timezone. Unknown
// zones fall back to UTC.
func LocalToday(now time.Time, timezone string) string {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	return now.In(loc).Format(DateLayout)
}
