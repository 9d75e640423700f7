package domain

import (
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
)

// Suit is one of the four card suits.
type Suit string

const (
	SuitHearts   Suit = "hearts"
	SuitDiamonds Suit = "diamonds"
	SuitClubs    Suit = "clubs"
	SuitSpades   Suit = "spades"
)

// Suits lists the suits in canonical deck order.
var Suits = [4]Suit{SuitHearts, SuitDiamonds, SuitClubs, SuitSpades}

// Valid reports whether s names one of the four suits.
func (s Suit) Valid() bool {
	switch s {
	case SuitHearts, SuitDiamonds, SuitClubs, SuitSpades:
		return true
	}
	return false
}

// Symbol returns the unicode suit symbol.
func (s Suit) Symbol() string {
	switch s {
	case SuitHearts:
		return "♥"
	case SuitDiamonds:
		return "♦"
	case SuitClubs:
		return "♣"
	case SuitSpades:
		return "♠"
	}
	return "?"
}

// Rank orders cards within a suit: 2 is lowest, Ace (14) highest.
type Rank int

const (
	RankTwo   Rank = 2
	RankTen   Rank = 10
	RankJack  Rank = 11
	RankQueen Rank = 12
	RankKing  Rank = 13
	RankAce   Rank = 14
)

// Valid reports whether r is within 2..Ace.
func (r Rank) Valid() bool {
	return r >= RankTwo && r <= RankAce
}

func (r Rank) String() string {
	switch r {
	case RankJack:
		return "J"
	case RankQueen:
		return "Q"
	case RankKing:
		return "K"
	case RankAce:
		return "A"
	}
	return strconv.Itoa(int(r))
}

// ParseRank accepts "2".."10", "J", "Q", "K", "A".
func ParseRank(v string) (Rank, error) {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "J":
		return RankJack, nil
	case "Q":
		return RankQueen, nil
	case "K":
		return RankKing, nil
	case "A":
		return RankAce, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || !Rank(n).Valid() || n > int(RankTen) {
		return 0, fmt.Errorf("invalid rank %q", v)
	}
	return Rank(n), nil
}

// Card is a single playing card.
type Card struct {
	Suit Suit `json:"suit"`
	Rank Rank `json:"rank"`
}

// Valid reports whether the card exists in a standard deck.
func (c Card) Valid() bool {
	return c.Suit.Valid() && c.Rank.Valid()
}

func (c Card) String() string {
	return c.Rank.String() + c.Suit.Symbol()
}

// NewDeck returns the canonical ordered 52-card deck.
func NewDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for _, s := range Suits {
		for r := RankTwo; r <= RankAce; r++ {
			deck = append(deck, Card{Suit: s, Rank: r})
		}
	}
	return deck
}

// ShuffleDeck returns a shuffled copy of the given deck.
func ShuffleDeck(rng *rand.Rand, deck []Card) []Card {
	out := make([]Card, len(deck))
	copy(out, deck)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// NewShuffledDeck builds a fresh deck and applies a uniform permutation.
func NewShuffledDeck(rng *rand.Rand) []Card {
	return ShuffleDeck(rng, NewDeck())
}

// SortHand orders a hand by suit then ascending rank for display.
func SortHand(cards []Card) {
	sort.Slice(cards, func(i, j int) bool {
		if cards[i].Suit != cards[j].Suit {
			return suitOrder(cards[i].Suit) < suitOrder(cards[j].Suit)
		}
		return cards[i].Rank < cards[j].Rank
	})
}

func suitOrder(s Suit) int {
	for i, v := range Suits {
		if v == s {
			return i
		}
	}
	return len(Suits)
}
