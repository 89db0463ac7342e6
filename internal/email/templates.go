package email

import (
	"fmt"
	"strings"
	"time"
)

// Message is a rendered plain-text email.
type Message struct {
	Subject string
	Body    string
}

// Empty reports whether there is nothing worth sending.
func (m Message) Empty() bool {
	return strings.TrimSpace(m.Subject) == "" || strings.TrimSpace(m.Body) == ""
}

type BookingDetails struct {
	Reference  string
	HavenName  string
	GuestName  string
	GuestCount int64
	CheckIn    string
	CheckOut   string
	Nights     int
	Total      string
	Notes      string
}

type LowStockLine struct {
	Name         string
	Quantity     int64
	ReorderLevel int64
	Unit         string
}

// FormatStayDate turns a YYYY-MM-DD date into a readable one, returning the
// input unchanged when it does not parse.
func FormatStayDate(raw string) string {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(raw))
	if err != nil {
		return raw
	}
	return t.Format("Monday, Jan 2, 2006")
}

func orTBD(value string) string {
	if strings.TrimSpace(value) == "" {
		return "TBD"
	}
	return strings.TrimSpace(value)
}

func BuildBookingConfirmation(details BookingDetails) Message {
	havenName := strings.TrimSpace(details.HavenName)
	if havenName == "" {
		havenName = "your haven"
	}

	greeting := "Hello,"
	if name := strings.TrimSpace(details.GuestName); name != "" {
		greeting = fmt.Sprintf("Hello %s,", name)
	}

	lines := []string{
		greeting,
		"",
		fmt.Sprintf("Your stay at %s is booked.", havenName),
		"",
		fmt.Sprintf("Reference: %s", orTBD(details.Reference)),
		fmt.Sprintf("Check-in: %s", orTBD(FormatStayDate(details.CheckIn))),
		fmt.Sprintf("Check-out: %s", orTBD(FormatStayDate(details.CheckOut))),
	}
	if details.Nights > 0 {
		lines = append(lines, fmt.Sprintf("Nights: %d", details.Nights))
	}
	if details.GuestCount > 0 {
		lines = append(lines, fmt.Sprintf("Guests: %d", details.GuestCount))
	}
	lines = append(lines, fmt.Sprintf("Total: %s", orTBD(details.Total)))
	if notes := strings.TrimSpace(details.Notes); notes != "" {
		lines = append(lines, fmt.Sprintf("Notes: %s", notes))
	}
	lines = append(lines, "", "Quote your reference when contacting us about this booking.")

	return Message{
		Subject: fmt.Sprintf("Booking %s confirmed - %s", orTBD(details.Reference), havenName),
		Body:    strings.Join(lines, "\n"),
	}
}

// BuildBookingCancelled is sent when a booking is cancelled by staff or
// expires unpaid. Reason is optional.
func BuildBookingCancelled(details BookingDetails, reason string) Message {
	havenName := strings.TrimSpace(details.HavenName)
	if havenName == "" {
		havenName = "your haven"
	}

	lines := []string{
		fmt.Sprintf("Your booking %s at %s has been cancelled.", orTBD(details.Reference), havenName),
		"",
		fmt.Sprintf("Check-in: %s", orTBD(FormatStayDate(details.CheckIn))),
		fmt.Sprintf("Check-out: %s", orTBD(FormatStayDate(details.CheckOut))),
	}
	if reason = strings.TrimSpace(reason); reason != "" {
		lines = append(lines, fmt.Sprintf("Reason: %s", reason))
	}

	return Message{
		Subject: fmt.Sprintf("Booking %s cancelled - %s", orTBD(details.Reference), havenName),
		Body:    strings.Join(lines, "\n"),
	}
}

func BuildLowStockAlert(items []LowStockLine) Message {
	if len(items) == 0 {
		return Message{}
	}

	lines := []string{"The following inventory items are at or below their reorder level:", ""}
	for _, item := range items {
		unit := strings.TrimSpace(item.Unit)
		if unit != "" {
			unit = " " + unit
		}
		lines = append(lines, fmt.Sprintf("- %s: %d%s on hand (reorder at %d)", item.Name, item.Quantity, unit, item.ReorderLevel))
	}

	subject := "Low stock: " + items[0].Name
	if len(items) > 1 {
		subject = fmt.Sprintf("Low stock: %d items", len(items))
	}
	return Message{Subject: subject, Body: strings.Join(lines, "\n")}
}
