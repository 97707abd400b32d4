// Package callback encodes and decodes the tokens carried by inline
// keyboard buttons. The wire format is a stable contract with keyboards
// already delivered to chats: space-separated tokens, first token names
// the owning feature, dates are DD/MM/YYYY. Internal code only ever sees
// the typed payloads; the string form exists at the transport boundary.
package callback

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gymbot/internal/timeutil"
)

// DateLayout is the wire date format. Changing it breaks in-flight keyboards.
const DateLayout = "02/01/2006"

// Feature identifiers (first wire token).
const (
	idSelectDays = "select_days"
	idWentToGym  = "went_to_gym"
	idNewWeek    = "new_week"
)

var (
	ErrUnknownFeature = errors.New("callback: unknown feature identifier")
	ErrMalformed      = errors.New("callback: malformed token")

	// ErrNotAddressee is the authorization failure: the responding identity
	// does not match the trainee the keyboard was addressed to.
	ErrNotAddressee = errors.New("callback: reply not addressed to this trainee")
)

// Payload is one decoded keyboard reply.
type Payload interface {
	// Encode renders the wire token string for a button's callback field.
	Encode() string
}

// SelectDays toggles one weekday on a specific trainee's selection
// keyboard. Addressed: only that trainee may act on it.
type SelectDays struct {
	TraineeID string
	Day       time.Weekday
}

func (p SelectDays) Encode() string {
	return fmt.Sprintf("%s %s %s", idSelectDays, p.TraineeID, p.Day)
}

// Authorize rejects replies from anyone but the addressed trainee.
func (p SelectDays) Authorize(responderID string) error {
	if p.TraineeID != responderID {
		return ErrNotAddressee
	}
	return nil
}

// WentToGym is a yes/no answer to the evening check-in for a given date.
type WentToGym struct {
	Yes  bool
	Date time.Time
}

func (p WentToGym) Encode() string {
	answer := "no"
	if p.Yes {
		answer = "yes"
	}
	return fmt.Sprintf("%s %s %s", idWentToGym, answer, p.Date.Format(DateLayout))
}

// NewWeek toggles one weekday for the responder on the shared weekly
// selection keyboard.
type NewWeek struct {
	Day time.Weekday
}

func (p NewWeek) Encode() string {
	return fmt.Sprintf("%s %s", idNewWeek, p.Day)
}

// Decode parses a wire token into its typed payload.
func Decode(data string) (Payload, error) {
	tokens := strings.Fields(data)
	if len(tokens) == 0 {
		return nil, ErrMalformed
	}
	switch tokens[0] {
	case idSelectDays:
		if len(tokens) != 3 {
			return nil, fmt.Errorf("%w: %q", ErrMalformed, data)
		}
		day, err := timeutil.ParseWeekday(tokens[2])
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrMalformed, data)
		}
		return SelectDays{TraineeID: tokens[1], Day: day}, nil

	case idWentToGym:
		if len(tokens) != 3 {
			return nil, fmt.Errorf("%w: %q", ErrMalformed, data)
		}
		var yes bool
		switch tokens[1] {
		case "yes":
			yes = true
		case "no":
			yes = false
		default:
			return nil, fmt.Errorf("%w: %q", ErrMalformed, data)
		}
		date, err := time.Parse(DateLayout, tokens[2])
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrMalformed, data)
		}
		return WentToGym{Yes: yes, Date: date}, nil

	case idNewWeek:
		if len(tokens) != 2 {
			return nil, fmt.Errorf("%w: %q", ErrMalformed, data)
		}
		day, err := timeutil.ParseWeekday(tokens[1])
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrMalformed, data)
		}
		return NewWeek{Day: day}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFeature, tokens[0])
}
