package domain

const (
	// PlayerCount is the fixed table size.
	PlayerCount = 4
	// TrickSize is the number of cards in a complete trick.
	TrickSize = PlayerCount
	// InitialDealSize is the number of cards dealt before trump selection.
	InitialDealSize = 5
	// SecondDealSize is the number of cards dealt after trump selection.
	SecondDealSize = 8
	// TricksPerGame is the number of tricks in one game.
	TricksPerGame = InitialDealSize + SecondDealSize
	// DeckSize is the size of a standard deck.
	DeckSize = 52
)
