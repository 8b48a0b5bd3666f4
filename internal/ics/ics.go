// Package ics builds iCalendar invites for booking-related emails.
package ics

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Invite describes a single consultation event.
type Invite struct {
	UID         string
	Title       string
	Description string
	Start       time.Time
	Duration    time.Duration
	Location    string
}

// Build renders the invite as a VCALENDAR document. Consultations
// default to 30 minutes when no duration is given.
func Build(inv Invite) (string, error) {
	if inv.Start.IsZero() {
		return "", errors.New("invite start time is zero")
	}

	if inv.Duration <= 0 {
		inv.Duration = 30 * time.Minute
	}

	stamp := func(t time.Time) string {
		return t.UTC().Format("20060102T150405Z")
	}

	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//VitaCall//Telemedicine Platform//EN",
		"CALSCALE:GREGORIAN",
		"METHOD:REQUEST",
		"BEGIN:VEVENT",
		fmt.Sprintf("UID:%s", inv.UID),
		fmt.Sprintf("DTSTAMP:%s", stamp(time.Now())),
		fmt.Sprintf("DTSTART:%s", stamp(inv.Start)),
		fmt.Sprintf("DTEND:%s", stamp(inv.Start.Add(inv.Duration))),
		fmt.Sprintf("SUMMARY:%s", escape(inv.Title)),
		fmt.Sprintf("DESCRIPTION:%s", escape(inv.Description)),
	}

	if inv.Location != "" {
		lines = append(lines, fmt.Sprintf("LOCATION:%s", escape(inv.Location)))
	}

	lines = append(lines,
		"STATUS:CONFIRMED",
		"SEQUENCE:0",
		"END:VEVENT",
		"END:VCALENDAR",
	)

	return strings.Join(lines, "\r\n"), nil
}

// escape applies RFC 5545 text escaping.
func escape(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		";", `\;`,
		",", `\,`,
		"\n", `\n`,
	)

	return r.Replace(s)
}
