package rules

import (
	"errors"
	"reflect"
	"testing"

	"github.com/ivankudzin/pairbot/internal/domain/enums"
)

func TestParseAge(t *testing.T) {
	tests := []struct {
		name  string
		input string
		age   int
		err   error
	}{
		{name: "lower bound", input: "18", age: 18},
		{name: "upper bound", input: "100", age: 100},
		{name: "padded", input: "  25 ", age: 25},
		{name: "below range", input: "17", err: ErrAgeOutOfRange},
		{name: "above range", input: "101", err: ErrAgeOutOfRange},
		{name: "not a number", input: "двадцать", err: ErrAgeNotANumber},
		{name: "empty", input: "", err: ErrAgeNotANumber},
		{name: "float", input: "19.5", err: ErrAgeNotANumber},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			age, err := ParseAge(tt.input)
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Fatalf("unexpected error: got %v want %v", err, tt.err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parse age: %v", err)
			}
			if age != tt.age {
				t.Fatalf("unexpected age: got %d want %d", age, tt.age)
			}
		})
	}
}

func TestParseGender(t *testing.T) {
	tests := []struct {
		input  string
		gender enums.Gender
		ok     bool
	}{
		{input: "male", gender: enums.GenderMale, ok: true},
		{input: "FEMALE", gender: enums.GenderFemale, ok: true},
		{input: " Мужской ", gender: enums.GenderMale, ok: true},
		{input: "ж", gender: enums.GenderFemale, ok: true},
		{input: "other", ok: false},
		{input: "", ok: false},
	}

	for _, tt := range tests {
		gender, ok := ParseGender(tt.input)
		if ok != tt.ok {
			t.Fatalf("ParseGender(%q): unexpected ok=%v", tt.input, ok)
		}
		if ok && gender != tt.gender {
			t.Fatalf("ParseGender(%q): got %s want %s", tt.input, gender, tt.gender)
		}
	}
}

func TestSplitInterestsTrimsSegments(t *testing.T) {
	got := SplitInterests("kino, music ,  sport")
	want := []string{"kino", "music", "sport"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected interests: got %v want %v", got, want)
	}
}

func TestSplitInterestsKeepsEmptySegments(t *testing.T) {
	got := SplitInterests("music,,sport")
	want := []string{"music", "", "sport"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected interests: got %v want %v", got, want)
	}
}
