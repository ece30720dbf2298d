// Package identity defines the persona a session acts on behalf of.
package identity

import (
	"fmt"
	"strings"
	"time"
)

// Gender of the persona.
type Gender int

const (
	GenderMale Gender = iota
	GenderFemale
)

// Defaults taken when a field is left zero.
const (
	DefaultPosition             = "Employee"
	DefaultTypingSpeedMean      = 456
	DefaultTypingSpeedDeviation = 265
)

// Identity is immutable after construction. It supplies the default typing
// cadence for every Type call of its session.
type Identity struct {
	firstName            string
	lastName             string
	birthday             time.Time
	email                string
	password             string
	company              string
	position             string
	typingSpeedMean      float64
	typingSpeedDeviation float64
	gender               Gender
}

// Params carries the constructor arguments. Zero-valued optional fields take
// their defaults.
type Params struct {
	FirstName            string
	LastName             string
	Birthday             time.Time
	Email                string
	Password             string
	Company              string
	Position             string
	TypingSpeedMean      float64
	TypingSpeedDeviation float64
	Gender               Gender
}

// New validates p and returns the identity.
func New(p Params) (*Identity, error) {
	if p.Email != "" && !strings.Contains(p.Email, "@") {
		return nil, fmt.Errorf("identity: invalid email address %q", p.Email)
	}
	if p.TypingSpeedMean < 0 || p.TypingSpeedDeviation < 0 {
		return nil, fmt.Errorf("identity: typing speed must be non-negative (mean=%v, deviation=%v)", p.TypingSpeedMean, p.TypingSpeedDeviation)
	}
	if p.Position == "" {
		p.Position = DefaultPosition
	}
	if p.TypingSpeedMean == 0 {
		p.TypingSpeedMean = DefaultTypingSpeedMean
		if p.TypingSpeedDeviation == 0 {
			p.TypingSpeedDeviation = DefaultTypingSpeedDeviation
		}
	}
	return &Identity{
		firstName:            p.FirstName,
		lastName:             p.LastName,
		birthday:             p.Birthday,
		email:                p.Email,
		password:             p.Password,
		company:              p.Company,
		position:             p.Position,
		typingSpeedMean:      p.TypingSpeedMean,
		typingSpeedDeviation: p.TypingSpeedDeviation,
		gender:               p.Gender,
	}, nil
}

func (i *Identity) FirstName() string   { return i.firstName }
func (i *Identity) LastName() string    { return i.lastName }
func (i *Identity) Birthday() time.Time { return i.birthday }
func (i *Identity) Email() string       { return i.email }
func (i *Identity) Password() string    { return i.password }
func (i *Identity) Company() string     { return i.company }
func (i *Identity) Position() string    { return i.position }
func (i *Identity) Gender() Gender      { return i.gender }

// TypingSpeed returns the per-keystroke delay mean and deviation in milliseconds.
func (i *Identity) TypingSpeed() (mean, deviation float64) {
	return i.typingSpeedMean, i.typingSpeedDeviation
}

// Username is the local part of the email address.
func (i *Identity) Username() string {
	local, _, _ := strings.Cut(i.email, "@")
	return local
}

// IsMale reports whether the persona is male.
func (i *Identity) IsMale() bool {
	return i.gender == GenderMale
}

// BirthdayString formats the birthday as DD.MM.YYYY.
func (i *Identity) BirthdayString() string {
	return i.birthday.Format("02.01.2006")
}

// FullName joins first and last name.
func (i *Identity) FullName() string {
	return strings.TrimSpace(i.firstName + " " + i.lastName)
}
