package journey

import (
	"errors"
	"fmt"
)

// ErrMissingState is wrapped by MissingStateError.
var ErrMissingState = errors.New("journey state missing")

// MissingStateError reports a step reached without the answers it depends on, usually
// after a session expiry or a bookmarked deep link.
type MissingStateError struct {
	Journey string
	Step    string
	Field   string
}

func (e *MissingStateError) Error() string {
	return fmt.Sprintf("%s: step %q requires %s", e.Journey, e.Step, e.Field)
}

func (e *MissingStateError) Unwrap() error { return ErrMissingState }

// Requirement is a piece of session state a step depends on.
type Requirement struct {
	Field   string
	Present func(*Session) bool
}

// Step is one page of a wizard together with the state it needs.
type Step struct {
	Name     string
	Requires []Requirement
}

// Flow is the ordered set of steps of one wizard.
type Flow struct {
	Name  string
	order []string
	steps map[string]Step
}

// Linear builds a flow in which every step also needs what the earlier steps needed.
func Linear(name string, steps ...Step) *Flow {
	f := &Flow{Name: name, steps: map[string]Step{}}
	var carried []Requirement
	for _, s := range steps {
		carried = append(carried, s.Requires...)
		s.Requires = append([]Requirement(nil), carried...)
		f.add(s)
	}
	return f
}

// Branches builds a flow whose steps are independent of each other.
func Branches(name string, steps ...Step) *Flow {
	f := &Flow{Name: name, steps: map[string]Step{}}
	for _, s := range steps {
		f.add(s)
	}
	return f
}

func (f *Flow) add(s Step) {
	f.order = append(f.order, s.Name)
	f.steps[s.Name] = s
}

// Steps lists step names in wizard order.
func (f *Flow) Steps() []string {
	return append([]string(nil), f.order...)
}

// Has reports whether step belongs to the flow.
func (f *Flow) Has(step string) bool {
	_, ok := f.steps[step]
	return ok
}

// Next returns the step after step in wizard order, or "" at the end.
func (f *Flow) Next(step string) string {
	for i, name := range f.order {
		if name == step && i+1 < len(f.order) {
			return f.order[i+1]
		}
	}
	return ""
}

// Check returns a *MissingStateError when s lacks something step requires.
func (f *Flow) Check(s *Session, step string) error {
	st, ok := f.steps[step]
	if !ok {
		return fmt.Errorf("%s: unknown step %q", f.Name, step)
	}
	for _, r := range st.Requires {
		if s == nil || !r.Present(s) {
			return &MissingStateError{Journey: f.Name, Step: step, Field: r.Field}
		}
	}
	return nil
}

func need(field string, present func(*Session) bool) Requirement {
	return Requirement{Field: field, Present: present}
}

func step(name string, requires ...Requirement) Step {
	return Step{Name: name, Requires: requires}
}
