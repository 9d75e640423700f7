package domain

// IsLegal reports whether card may be played from hand given the trick's lead
// suit. An empty lead suit means the card opens the trick. A player holding
// the lead suit must follow it; otherwise any card, trump included, is legal.
func IsLegal(card Card, hand []Card, leadSuit Suit) bool {
	if leadSuit == "" {
		return true
	}
	if HasSuit(hand, leadSuit) {
		return card.Suit == leadSuit
	}
	return true
}

// HasSuit reports whether hand holds at least one card of suit.
func HasSuit(hand []Card, suit Suit) bool {
	for _, c := range hand {
		if c.Suit == suit {
			return true
		}
	}
	return false
}

// HasCard reports whether hand contains card.
func HasCard(hand []Card, card Card) bool {
	for _, c := range hand {
		if c == card {
			return true
		}
	}
	return false
}

// LegalCards returns the subset of hand that may be played to the current trick.
func LegalCards(hand []Card, leadSuit Suit) []Card {
	out := make([]Card, 0, len(hand))
	for _, c := range hand {
		if IsLegal(c, hand, leadSuit) {
			out = append(out, c)
		}
	}
	return out
}
