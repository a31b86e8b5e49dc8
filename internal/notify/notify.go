// Package notify delivers attendance drops to students.
package notify

import (
	"attendance-backend/internal/reconcile"
	"context"
	"strconv"
	"strings"
)

// Subject is the subject line of every attendance notification.
const Subject = "Attendance Update"

// Message is one notification addressed to one student.
type Message struct {
	// To is the destination address, sinks that do not address anyone ignore it.
	To      string
	Subject string
	Body    string
}

// Sink delivers messages.
//
// note: fault injection point
type Sink interface {
	Send(ctx context.Context, msg Message) error
}

// formatPercent prints whole numbers with one decimal, "70.0", and everything else
// as short as possible, "68.25".
func formatPercent(value float64) string {
	out := strconv.FormatFloat(value, 'f', -1, 64)
	if !strings.ContainsAny(out, ".eEIN") {
		out += ".0"
	}
	return out
}

// FormatChanges renders the body of a notification listing every change.
func FormatChanges(changes []reconcile.ChangeEvent) string {
	var out strings.Builder
	out.WriteString("Attendance Update:\n\n")
	for _, change := range changes {
		subject := change.SubjectName
		if subject == "" {
			subject = change.SubjectCode
		}
		out.WriteString("Subject: ")
		out.WriteString(subject)
		out.WriteString("\nOld Percentage: ")
		out.WriteString(formatPercent(change.OldPercentage))
		out.WriteString("%\nNew Percentage: ")
		out.WriteString(formatPercent(change.NewPercentage))
		out.WriteString("%\n\n")
	}
	return out.String()
}
