package rules

import (
	"errors"
	"strconv"
	"strings"

	"github.com/ivankudzin/pairbot/internal/domain/enums"
)

const (
	AgeMin = 18
	AgeMax = 100
)

var (
	ErrAgeNotANumber = errors.New("age is not a number")
	ErrAgeOutOfRange = errors.New("age is out of range")
)

// ParseAge accepts an integer answer within [AgeMin, AgeMax].
func ParseAge(input string) (int, error) {
	age, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return 0, ErrAgeNotANumber
	}
	if age < AgeMin || age > AgeMax {
		return 0, ErrAgeOutOfRange
	}
	return age, nil
}

// ParseGender matches the two recognized literals case-insensitively, in both
// the canonical form and the Russian button labels.
func ParseGender(input string) (enums.Gender, bool) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case string(enums.GenderMale), "м", "мужской":
		return enums.GenderMale, true
	case string(enums.GenderFemale), "ж", "женский":
		return enums.GenderFemale, true
	default:
		return "", false
	}
}

// SplitInterests splits on commas and trims each segment. Empty segments are
// kept: the source passed them through and product has not said otherwise.
func SplitInterests(input string) []string {
	parts := strings.Split(input, ",")
	interests := make([]string, 0, len(parts))
	for _, part := range parts {
		interests = append(interests, strings.TrimSpace(part))
	}
	return interests
}
