package domain

import (
	"fmt"
	"strings"
)

// Grade is the learner's self-reported recall quality for a single review.
// Grades are persisted as their numeric value.
type Grade int

// Possible grade values
const (
	GradeAgain Grade = iota + 1 // Failed to recall.
	GradeHard                   // Recalled with serious difficulty.
	GradeGood                   // Recalled with some effort.
	GradeEasy                   // Recalled effortlessly.
)

var gradeNames = [...]string{GradeAgain: "again", GradeHard: "hard", GradeGood: "good", GradeEasy: "easy"}

// Grades returns every valid grade in ascending order.
func Grades() []Grade {
	return []Grade{GradeAgain, GradeHard, GradeGood, GradeEasy}
}

// IsValid reports whether g is one of AGAIN, HARD, GOOD or EASY.
func (g Grade) IsValid() bool {
	return g >= GradeAgain && g <= GradeEasy
}

// String returns the lowercase grade name, or "grade(n)" for invalid values.
func (g Grade) String() string {
	if g.IsValid() {
		return gradeNames[g]
	}
	return fmt.Sprintf("grade(%d)", int(g))
}

// ParseGrade converts a grade name ("again", "hard", "good", "easy") into a Grade.
// Matching is case-insensitive.
func ParseGrade(name string) (Grade, error) {
	for _, g := range Grades() {
		if strings.EqualFold(name, gradeNames[g]) {
			return g, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidGrade, name)
}
