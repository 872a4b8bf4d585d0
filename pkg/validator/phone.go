// Package validator checks and normalizes Rwandan mobile numbers.
package validator

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrInvalidLength indicates phone number length is not 10 digits
	ErrInvalidLength = errors.New("phone number must be exactly 10 digits")

	// ErrInvalidPrefix indicates phone number doesn't start with a Rwandan mobile prefix
	ErrInvalidPrefix = errors.New("phone number must start with 072, 073, 078 or 079")

	// ErrInvalidFormat indicates phone number contains invalid characters
	ErrInvalidFormat = errors.New("phone number can only contain digits")

	// ErrEmptyPhone indicates phone number is empty
	ErrEmptyPhone = errors.New("phone number cannot be empty")
)

// CountryCode is the Rwandan dialing code
const CountryCode = "250"

// Operator is a mobile network and the prefixes it owns
type Operator struct {
	Name        string
	Prefixes    []string
	MobileMoney bool // accepts MoMo payment prompts
}

// operators lists the networks the booking flow accepts
var operators = []Operator{
	{Name: "MTN", Prefixes: []string{"078", "079"}, MobileMoney: true},
	{Name: "Airtel", Prefixes: []string{"072", "073"}},
}

var (
	digitsOnly = regexp.MustCompile(`^\d+$`)
	separators = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", "+", "", ".", "")
)

// PhoneValidator handles phone number validation
type PhoneValidator struct{}

// NewPhoneValidator creates a new phone validator instance
func NewPhoneValidator() *PhoneValidator {
	return &PhoneValidator{}
}

// Validate returns the local 10 digit form of phone (0788123456). Spaces,
// dashes, dots, parentheses and a leading +250 are accepted.
func (v *PhoneValidator) Validate(phone string) (string, error) {
	if strings.TrimSpace(phone) == "" {
		return "", ErrEmptyPhone
	}

	local := v.Sanitize(phone)
	switch {
	case !digitsOnly.MatchString(local):
		return "", ErrInvalidFormat
	case len(local) != 10:
		return "", ErrInvalidLength
	case operatorFor(local) == nil:
		return "", ErrInvalidPrefix
	}
	return local, nil
}

// Sanitize strips separators and rewrites 250XXXXXXXXX to 0XXXXXXXXX
func (v *PhoneValidator) Sanitize(phone string) string {
	phone = separators.Replace(strings.TrimSpace(phone))
	if strings.HasPrefix(phone, CountryCode) && len(phone) == 12 {
		phone = "0" + phone[len(CountryCode):]
	}
	return phone
}

// International returns phone as +250XXXXXXXXX, the form stored by the API
func (v *PhoneValidator) International(phone string) (string, error) {
	local, err := v.Validate(phone)
	if err != nil {
		return "", err
	}
	return "+" + CountryCode + local[1:], nil
}

// Display renders a valid number as "078 812 3456". Anything else is
// returned unchanged.
func (v *PhoneValidator) Display(phone string) string {
	local, err := v.Validate(phone)
	if err != nil {
		return phone
	}
	return local[0:3] + " " + local[3:6] + " " + local[6:]
}

// Operator returns the network that owns phone
func (v *PhoneValidator) Operator(phone string) (Operator, error) {
	local, err := v.Validate(phone)
	if err != nil {
		return Operator{}, err
	}
	return *operatorFor(local), nil
}

// IsMobileMoneyCapable reports whether the number can receive a MoMo prompt
func (v *PhoneValidator) IsMobileMoneyCapable(phone string) bool {
	op, err := v.Operator(phone)
	return err == nil && op.MobileMoney
}

// IsValid is a convenience method that returns true if phone is valid
func (v *PhoneValidator) IsValid(phone string) bool {
	_, err := v.Validate(phone)
	return err == nil
}

func operatorFor(local string) *Operator {
	if len(local) < 3 {
		return nil
	}
	prefix := local[:3]
	for i := range operators {
		for _, p := range operators[i].Prefixes {
			if p == prefix {
				return &operators[i]
			}
		}
	}
	return nil
}
