package app

// Rules are the configurable economy constants.
type Rules struct {
	CoinsPerCorrect  int
	HintCosts        []int
	RevealLetterCost int
	MaxLetterReveals int
	ChallengeSize    int
}

// DefaultRules mirrors the shipped game economy.
func DefaultRules() Rules {
	return Rules{
		CoinsPerCorrect:  10,
		HintCosts:        []int{5, 10, 20},
		RevealLetterCost: 30,
		MaxLetterReveals: 3,
		ChallengeSize:    10,
	}
}
