package domain

import "fmt"

// DetermineWinner returns the winning entry of a trick: the highest trump if
// any trump was played, otherwise the highest card of the lead suit.
func DetermineWinner(trick []PlayedCard, leadSuit, trumpSuit Suit) (PlayedCard, error) {
	if len(trick) == 0 {
		return PlayedCard{}, fmt.Errorf("%w: cannot evaluate empty trick", ErrInvariant)
	}

	if best, ok := highestOfSuit(trick, trumpSuit); ok {
		return best, nil
	}
	if best, ok := highestOfSuit(trick, leadSuit); ok {
		return best, nil
	}
	return PlayedCard{}, fmt.Errorf("%w: trick has no card of lead suit %q", ErrInvariant, leadSuit)
}

func highestOfSuit(trick []PlayedCard, suit Suit) (PlayedCard, bool) {
	if suit == "" {
		return PlayedCard{}, false
	}
	var best PlayedCard
	found := false
	for _, pc := range trick {
		if pc.Card.Suit != suit {
			continue
		}
		if !found || pc.Card.Rank > best.Card.Rank {
			best = pc
			found = true
		}
	}
	return best, found
}
