// Package intent detects appointment requests in user messages and extracts
// draft booking details from free text.
package intent

import (
	"regexp"
	"strings"
)

// AppointmentDraft holds the details pulled from a message. Fields the
// message did not mention are left empty; extraction never fails outright.
type AppointmentDraft struct {
	Date   string `json:"date,omitempty"`
	Time   string `json:"time,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Empty reports whether no field was extracted.
func (d AppointmentDraft) Empty() bool {
	return d.Date == "" && d.Time == "" && d.Reason == ""
}

const maxReasonLength = 200

// appointmentKeywords trigger the booking flow on a case-insensitive
// substring match.
var appointmentKeywords = []string{
	"appointment",
	"book",
	"schedule",
	"meet",
	"doctor visit",
	"consultation",
	"checkup",
	"visit doctor",
	"see doctor",
	"reserve",
	"slot",
	"available time",
}

// Date patterns: explicit numeric formats are tried before relative words, so
// "tomorrow 12/25/2024" yields the numeric date.
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{4}\b`),
	regexp.MustCompile(`\b\d{4}-\d{1,2}-\d{1,2}\b`),
	regexp.MustCompile(`\b\d{1,2}-\d{1,2}-\d{4}\b`),
	regexp.MustCompile(`(?i)\b(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+\d{1,2}(?:st|nd|rd|th)?\b`),
	regexp.MustCompile(`(?i)\b\d{1,2}(?:st|nd|rd|th)?\s+(?:of\s+)?(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\b`),
	regexp.MustCompile(`(?i)\bday after tomorrow\b`),
	regexp.MustCompile(`(?i)\b(?:today|tomorrow)\b`),
	regexp.MustCompile(`(?i)\bnext\s+(?:week|month|monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`),
	regexp.MustCompile(`(?i)\b(?:this\s+)?(?:monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`),
}

// Time patterns: explicit clock times before bare hours before day parts.
var timePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b\d{1,2}:\d{2}\s*(?:am|pm)\b`),
	regexp.MustCompile(`\b\d{1,2}:\d{2}\b`),
	regexp.MustCompile(`(?i)\b\d{1,2}\s*(?:am|pm)\b`),
	regexp.MustCompile(`(?i)\bat\s+(\d{1,2})\b`),
	regexp.MustCompile(`(?i)\b(?:noon|midday|morning|afternoon|evening|night)\b`),
}

var reasonPattern = regexp.MustCompile(`(?i)\b(?:for|regarding|about|because)\b\s*(.+)`)

// Classify reports whether the message looks like an appointment request.
func Classify(message string) bool {
	lower := strings.ToLower(message)
	for _, keyword := range appointmentKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// Extract pulls appointment details out of the message. Per field the first
// matching pattern wins; unmatched fields stay empty.
func Extract(message string) AppointmentDraft {
	var draft AppointmentDraft

	for _, p := range datePatterns {
		if m := p.FindString(message); m != "" {
			draft.Date = strings.TrimSpace(m)
			break
		}
	}

	for _, p := range timePatterns {
		m := p.FindStringSubmatch(message)
		if m == nil {
			continue
		}
		// Patterns with a capture group keep only the captured hour.
		if len(m) > 1 && m[1] != "" {
			draft.Time = strings.TrimSpace(m[1])
		} else {
			draft.Time = strings.TrimSpace(m[0])
		}
		break
	}

	if m := reasonPattern.FindStringSubmatch(message); m != nil {
		reason := strings.TrimSpace(m[1])
		if runes := []rune(reason); len(runes) > maxReasonLength {
			reason = string(runes[:maxReasonLength])
		}
		draft.Reason = reason
	}

	return draft
}
