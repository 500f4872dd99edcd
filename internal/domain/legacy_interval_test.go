package domain

import (
	"math"
	"testing"
)

func TestLegacyIntervalModel_Validate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		model    LegacyIntervalModel
		expected error
	}{
		{"valid", LegacyIntervalModel{Interval: 30, EaseFactor: 2.5, Repetitions: 5, Lapses: 1}, nil},
		{"never reviewed", LegacyIntervalModel{EaseFactor: 2.5}, nil},
		{"negative interval", LegacyIntervalModel{Interval: -1, EaseFactor: 2.5}, ErrInvalidLegacyInterval},
		{"zero ease", LegacyIntervalModel{Interval: 1}, ErrInvalidLegacyEaseFactor},
		{"nan ease", LegacyIntervalModel{Interval: 1, EaseFactor: math.NaN()}, ErrInvalidLegacyEaseFactor},
		{"negative reps", LegacyIntervalModel{EaseFactor: 2.5, Repetitions: -2}, ErrInvalidLegacyRepetitions},
		{"negative lapses", LegacyIntervalModel{EaseFactor: 2.5, Lapses: -1}, ErrInvalidLegacyLapses},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.model.Validate()
			if err != tc.expected {
				t.Errorf("Expected error %v, got %v", tc.expected, err)
			}
		})
	}
}
