package extract

import (
	"strings"
	"unicode"
)

const minContactNameLength = 3

// Contact is a contact record reconstructed from a photographed list.
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// ContactState is the lifecycle state of the open contact accumulator.
type ContactState int

const (
	StateEmpty ContactState = iota
	StateHasEmailOnly
	StateHasNameOnly
	StateComplete
)

func (s ContactState) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateHasEmailOnly:
		return "email-only"
	case StateHasNameOnly:
		return "name-only"
	case StateComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// ContactAssembler holds one open record and the records flushed so far.
// A record is emitted only from StateComplete; anything else is dropped on
// flush.
type ContactAssembler struct {
	open    Contact
	state   ContactState
	flushed []Contact
}

// State returns the current accumulator state.
func (a *ContactAssembler) State() ContactState { return a.state }

// Open returns a copy of the record being assembled.
func (a *ContactAssembler) Open() Contact { return a.open }

// Flush closes the open record, keeping it only when complete, and resets to
// StateEmpty.
func (a *ContactAssembler) Flush() {
	if a.state == StateComplete {
		a.flushed = append(a.flushed, a.open)
	}
	a.open = Contact{}
	a.state = StateEmpty
}

// ObserveEmail handles an email found on a line. A second email closes the
// open record first. namePrefix is the text preceding the email on the line.
func (a *ContactAssembler) ObserveEmail(email, namePrefix string) {
	if a.state == StateHasEmailOnly || a.state == StateComplete {
		a.Flush()
	}

	a.open.Email = email
	switch a.state {
	case StateEmpty:
		a.state = StateHasEmailOnly
	case StateHasNameOnly:
		a.state = StateComplete
	}

	if namePrefix != "" && a.open.Name == "" {
		a.setName(namePrefix)
	}
}

// ObserveName handles a name-shaped line. When the open record is already
// complete the name starts the next record.
func (a *ContactAssembler) ObserveName(name string) {
	switch a.state {
	case StateComplete:
		a.Flush()
		a.setName(name)
	case StateEmpty, StateHasEmailOnly:
		a.setName(name)
	}
}

// ObservePhone keeps the first phone seen for the open record.
func (a *ContactAssembler) ObservePhone(phone string) {
	if a.open.Phone == "" {
		a.open.Phone = phone
	}
}

// Finish flushes the last open record and returns every emitted contact.
func (a *ContactAssembler) Finish() []Contact {
	a.Flush()
	out := a.flushed
	a.flushed = nil
	return out
}

func (a *ContactAssembler) setName(name string) {
	a.open.Name = name
	switch a.state {
	case StateEmpty:
		a.state = StateHasNameOnly
	case StateHasEmailOnly:
		a.state = StateComplete
	}
}

// ParseContacts extracts contacts from recognized list text in the order their
// emails appear.
func ParseContacts(text string) []Contact {
	var asm ContactAssembler
	for _, line := range SplitLines(text) {
		email, at, hasEmail := MatchEmail(line)
		if hasEmail {
			asm.ObserveEmail(email, namePrefix(line[:at]))
		}

		phone, hasPhone := MatchPhone(line)
		if hasPhone {
			asm.ObservePhone(phone)
		}

		if !hasEmail && !hasPhone && looksLikeName(line) {
			asm.ObserveName(line)
		}
	}
	return asm.Finish()
}

func namePrefix(s string) string {
	return strings.TrimRight(strings.TrimSpace(s), " \t<(:;,-|")
}

// looksLikeName accepts lines longer than two characters with an upper-case
// letter or a space.
func looksLikeName(line string) bool {
	if runeLen(line) < minContactNameLength {
		return false
	}
	if strings.Contains(line, " ") {
		return true
	}
	for _, r := range line {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}
