// Package applyto decides which occurrences of a repeating appointment series an edit,
// cancellation or reinstatement applies to, and words the result for the user.
package applyto

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"activities/internal/simpledate"
)

// Option is a scope the user can pick for a change to a series.
type Option string

const (
	ThisOccurrence   Option = "THIS_APPOINTMENT"
	ThisAndAllFuture Option = "THIS_AND_ALL_FUTURE_APPOINTMENTS"
	AllFuture        Option = "ALL_FUTURE_APPOINTMENTS"
)

// DefaultCeiling is the maximum number of appointment instances one change may create.
const DefaultCeiling = 20000

// Label is the radio text for an option.
func (o Option) Label() string {
	switch o {
	case ThisOccurrence:
		return "Just this one"
	case ThisAndAllFuture:
		return "This one and any that come after it in the series"
	case AllFuture:
		return "This one and all the appointments in the series that have not happened yet"
	}
	return string(o)
}

// Valid reports whether s names an option.
func Valid(s string) bool {
	switch Option(s) {
	case ThisOccurrence, ThisAndAllFuture, AllFuture:
		return true
	}
	return false
}

// Kind is the nature of the change being applied.
type Kind string

const (
	KindEdit           Kind = "EDIT"
	KindCancel         Kind = "CANCEL"
	KindDelete         Kind = "DELETE"
	KindUncancel       Kind = "UNCANCEL"
	KindAddAttendees   Kind = "ADD_ATTENDEES"
	KindRemoveAttendee Kind = "REMOVE_ATTENDEE"
)

// Occurrence is one scheduled appointment of a series, as returned by the API.
type Occurrence struct {
	ID        int                   `json:"id"`
	Sequence  int                   `json:"sequence"`
	StartDate simpledate.SimpleDate `json:"startDate"`
	StartTime simpledate.SimpleTime `json:"startTime"`
	Cancelled bool                  `json:"cancelled"`
	Expired   bool                  `json:"expired"`
}

// Started reports whether the occurrence is in the past at now (in loc).
func (o Occurrence) Started(now time.Time, loc *time.Location) bool {
	return !o.StartTime.On(o.StartDate, loc).After(now)
}

// Change describes what is being done to the current occurrence.
type Change struct {
	Kind Kind
	// Property is the thing being edited ("location", "date", "start time").
	Property string
	// MovesStartDate is set when the edit includes a new start date.
	MovesStartDate bool
	// Attendees counts people being added.
	Attendees int
	// AttendeeName is the person being removed.
	AttendeeName string
}

// Remaining returns the occurrences that have not expired, ordered by sequence number.
func Remaining(occurrences []Occurrence, now time.Time, loc *time.Location) []Occurrence {
	var out []Occurrence
	for _, o := range occurrences {
		if o.Expired || o.Started(now, loc) {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out
}

// Options returns the scopes that may be offered for change on the occurrence with
// sequence number current. A single remaining occurrence needs no decision.
func Options(remaining []Occurrence, current int, change Change) []Option {
	if len(remaining) <= 1 {
		return []Option{ThisOccurrence}
	}
	first := remaining[0].Sequence
	last := remaining[len(remaining)-1].Sequence
	opts := []Option{ThisOccurrence}
	if current != last {
		opts = append(opts, ThisAndAllFuture)
	}
	if current != first && !change.MovesStartDate {
		opts = append(opts, AllFuture)
	}
	return opts
}

// NeedsDecision reports whether the user has to pick a scope.
func NeedsDecision(opts []Option) bool {
	return len(opts) > 1
}

// Scope returns the remaining occurrences affected when opt is applied at current.
func Scope(remaining []Occurrence, current int, opt Option) []Occurrence {
	var out []Occurrence
	for _, o := range remaining {
		switch opt {
		case ThisOccurrence:
			if o.Sequence == current {
				out = append(out, o)
			}
		case ThisAndAllFuture:
			if o.Sequence >= current {
				out = append(out, o)
			}
		case AllFuture:
			out = append(out, o)
		}
	}
	return out
}

// CeilingError is returned when adding attendees would create too many appointment
// instances for the chosen scope.
type CeilingError struct {
	MaxAttendees int
}

func (e CeilingError) Error() string {
	return fmt.Sprintf("You cannot add more than %d attendees for this number of appointments.", e.MaxAttendees)
}

// CheckAttendeeCeiling fails when newAttendees × occurrences exceeds ceiling.
func CheckAttendeeCeiling(newAttendees, occurrences, ceiling int) error {
	if occurrences < 1 {
		occurrences = 1
	}
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	if newAttendees*occurrences > ceiling {
		return CeilingError{MaxAttendees: ceiling / occurrences}
	}
	return nil
}

// Describe words the affected occurrences: "this appointment", "appointment 3 in the
// series" or "appointments 2 to 4 in the series".
func Describe(scope []Occurrence, opt Option, seriesLength int) string {
	if seriesLength <= 1 || opt == ThisOccurrence || len(scope) == 0 {
		return "this appointment"
	}
	first := scope[0].Sequence
	last := scope[len(scope)-1].Sequence
	if first == last {
		return fmt.Sprintf("appointment %d in the series", first)
	}
	return fmt.Sprintf("appointments %d to %d in the series", first, last)
}

// Message is the success banner text once the change has been applied.
func Message(change Change, scope []Occurrence, opt Option, seriesLength int) string {
	target := Describe(scope, opt, seriesLength)
	switch change.Kind {
	case KindCancel:
		return "You've cancelled " + target
	case KindDelete:
		return "You've deleted " + target
	case KindUncancel:
		return "You've reinstated " + target
	case KindAddAttendees:
		return fmt.Sprintf("You've added %s to %s", people(change.Attendees), target)
	case KindRemoveAttendee:
		return fmt.Sprintf("You've removed %s from %s", change.AttendeeName, target)
	default:
		return fmt.Sprintf("You've changed the %s for %s", change.Property, target)
	}
}

// Confirmation is the question asked before applying a change without a scope choice.
func Confirmation(change Change, scope []Occurrence, opt Option, seriesLength int) string {
	target := Describe(scope, opt, seriesLength)
	switch change.Kind {
	case KindCancel:
		return "Are you sure you want to cancel " + target + "?"
	case KindDelete:
		return "Are you sure you want to delete " + target + "?"
	case KindUncancel:
		return "Are you sure you want to reinstate " + target + "?"
	case KindAddAttendees:
		return fmt.Sprintf("Are you sure you want to add %s to %s?", people(change.Attendees), target)
	case KindRemoveAttendee:
		return fmt.Sprintf("Are you sure you want to remove %s from %s?", change.AttendeeName, target)
	default:
		return fmt.Sprintf("Are you sure you want to change the %s for %s?", change.Property, target)
	}
}

func people(n int) string {
	if n == 1 {
		return "1 person"
	}
	return fmt.Sprintf("%d people", n)
}

// Sequences lists sequence numbers, mostly for logging.
func Sequences(scope []Occurrence) string {
	parts := make([]string, 0, len(scope))
	for _, o := range scope {
		parts = append(parts, fmt.Sprint(o.Sequence))
	}
	return strings.Join(parts, ",")
}
