package domain

// CardState is the lifecycle state of a memory card.
type CardState string

// Possible card states
const (
	CardStateNew        CardState = "new"
	CardStateLearning   CardState = "learning"
	CardStateReview     CardState = "review"
	CardStateRelearning CardState = "relearning"
)

// IsValid reports whether s is a known card state.
func (s CardState) IsValid() bool {
	switch s {
	case CardStateNew, CardStateLearning, CardStateReview, CardStateRelearning:
		return true
	default:
		return false
	}
}
