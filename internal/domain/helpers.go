package domain

// RemoveCards removes the specified cards from a hand and returns the updated hand.
func RemoveCards(hand []Card, toRemove []Card) []Card {
	if len(toRemove) == 0 || len(hand) == 0 {
		return hand
	}

	removeCounts := make(map[Card]int, len(toRemove))
	for _, card := range toRemove {
		removeCounts[card]++
	}

	updated := make([]Card, 0, len(hand))
	for _, card := range hand {
		if count, ok := removeCounts[card]; ok && count > 0 {
			removeCounts[card] = count - 1
			continue
		}
		updated = append(updated, card)
	}

	return updated
}

// CardsInPlay returns every card the snapshot accounts for: hands, won
// tricks, the current trick and the undealt remainder.
func CardsInPlay(s *Snapshot) []Card {
	cards := make([]Card, 0, DeckSize)
	for _, p := range s.Players {
		cards = append(cards, p.Hand...)
		cards = append(cards, p.Captured...)
	}
	for _, pc := range s.Trick {
		cards = append(cards, pc.Card)
	}
	return append(cards, s.Deck...)
}
