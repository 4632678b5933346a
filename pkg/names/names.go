// Package names generates throwaway display names such as "SwiftFalcon42".
package names

import (
	"fmt"
	"math/rand/v2"

	"github.com/samber/lo"
)

var adjectives = []string{
	"Mysterious", "Curious", "Bright", "Swift", "Silent", "Bold", "Gentle", "Wise",
	"Clever", "Kind", "Brave", "Quick", "Calm", "Witty", "Sharp", "Keen",
	"Noble", "Fierce", "Grace", "Lunar", "Solar", "Cosmic", "Digital", "Neon",
}

var nouns = []string{
	"Phoenix", "Tiger", "Dragon", "Wolf", "Eagle", "Lion", "Falcon", "Panther",
	"Dolphin", "Raven", "Fox", "Bear", "Hawk", "Owl", "Lynx", "Jaguar",
	"Shadow", "Storm", "Thunder", "Lightning", "Aurora", "Nova", "Comet", "Star",
}

// Username returns AdjectiveNoun followed by a number in [1, 999].
func Username() string {
	return fmt.Sprintf("%s%s%d", lo.Sample(adjectives), lo.Sample(nouns), rand.IntN(999)+1)
}
