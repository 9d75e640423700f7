package app

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"courtpiece/internal/domain"
)

// Service contains the Court Piece state machine. Every transition takes the
// current snapshot, works on a deep copy and returns the complete next
// snapshot together with the events it produced. The input is never mutated.
type Service struct {
	mu  sync.Mutex // guards rng
	rng *rand.Rand
	now func() time.Time
}

// NewService constructs a Service with provided rng or a time-seeded default.
func NewService(rng *rand.Rand) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{rng: rng, now: time.Now}
}

// PlayerProfile is the identity information supplied when a player joins.
type PlayerProfile struct {
	ID          string
	DisplayName string
	AvatarRef   string
}

// StartOptions customizes a single game start.
type StartOptions struct {
	// SelectorOverride picks the trump selector for this game only.
	SelectorOverride string
}

// Join seats a new player in the waiting room, or refreshes the profile of a
// player already in the room without touching their game state.
func (s *Service) Join(cur *domain.Snapshot, profile PlayerProfile) (*domain.Snapshot, []Event, error) {
	id := strings.TrimSpace(profile.ID)
	if id == "" {
		return nil, nil, ErrInvalidPlayer
	}

	next := cur.Clone()
	if existing, ok := next.Players[id]; ok {
		if profile.DisplayName != "" {
			existing.DisplayName = profile.DisplayName
		}
		if profile.AvatarRef != "" {
			existing.AvatarRef = profile.AvatarRef
		}
		return finish(next, []Event{{
			Kind:    EventPlayerJoined,
			Payload: PlayerJoinedPayload{PlayerID: id, DisplayName: existing.DisplayName, Rejoined: true},
		}})
	}

	if next.Phase != domain.PhaseWaiting {
		return nil, nil, ErrWrongPhase
	}
	if len(next.Players) >= domain.PlayerCount {
		return nil, nil, ErrRoomFull
	}

	name := profile.DisplayName
	if name == "" {
		name = id
	}
	next.Players[id] = &domain.Player{
		ID:          id,
		DisplayName: name,
		AvatarRef:   profile.AvatarRef,
		Hand:        []domain.Card{},
		JoinedAt:    s.now().UnixMilli(),
	}

	return finish(next, []Event{{
		Kind:    EventPlayerJoined,
		Payload: PlayerJoinedPayload{PlayerID: id, DisplayName: name},
	}})
}

// Leave removes a player from the waiting room. Once a game is under way the
// player stays seated; endGame is the only way to clear a running table.
func (s *Service) Leave(cur *domain.Snapshot, playerID string) (*domain.Snapshot, []Event, error) {
	if cur.Phase != domain.PhaseWaiting {
		return nil, nil, ErrWrongPhase
	}
	if _, ok := cur.Players[playerID]; !ok {
		return nil, nil, ErrUnknownPlayer
	}

	next := cur.Clone()
	delete(next.Players, playerID)
	for pos, id := range next.Arrangement {
		if id == playerID {
			delete(next.Arrangement, pos)
		}
	}
	next.Teams = next.Arrangement.Teams()
	domain.ApplyTeams(next.Players, next.Teams)

	return finish(next, []Event{{Kind: EventPlayerLeft, Payload: PlayerLeftPayload{PlayerID: playerID}}})
}

// SetReady toggles a waiting player's ready flag.
func (s *Service) SetReady(cur *domain.Snapshot, playerID string, ready bool) (*domain.Snapshot, []Event, error) {
	if cur.Phase != domain.PhaseWaiting {
		return nil, nil, ErrWrongPhase
	}
	if _, ok := cur.Players[playerID]; !ok {
		return nil, nil, ErrUnknownPlayer
	}

	next := cur.Clone()
	next.Players[playerID].Ready = ready
	return finish(next, []Event{{
		Kind:    EventReadyChanged,
		Payload: ReadyChangedPayload{PlayerID: playerID, Ready: ready},
	}})
}

// ArrangeSeats assigns players to table positions. A complete arrangement
// enables team scoring; a partial one disables it.
func (s *Service) ArrangeSeats(cur *domain.Snapshot, arrangement domain.Arrangement) (*domain.Snapshot, []Event, error) {
	if cur.Phase != domain.PhaseWaiting {
		return nil, nil, ErrWrongPhase
	}
	if err := arrangement.Validate(cur.Players); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidArrangement, err)
	}

	next := cur.Clone()
	next.Arrangement = make(domain.Arrangement, len(arrangement))
	for pos, id := range arrangement {
		if id != "" {
			next.Arrangement[pos] = id
		}
	}
	next.Teams = next.Arrangement.Teams()
	domain.ApplyTeams(next.Players, next.Teams)

	return finish(next, []Event{{
		Kind:    EventSeatsArranged,
		Payload: SeatsArrangedPayload{Arrangement: next.Arrangement, TeamMode: next.Teams != nil},
	}})
}

// StartGame shuffles, deals the first five cards to each player in seat
// order and hands trump selection to the rotating selector.
func (s *Service) StartGame(cur *domain.Snapshot, actorID string, opts StartOptions) (*domain.Snapshot, []Event, error) {
	if cur.Phase != domain.PhaseWaiting {
		return nil, nil, ErrWrongPhase
	}
	if _, ok := cur.Players[actorID]; !ok {
		return nil, nil, ErrUnknownPlayer
	}
	if len(cur.Players) != RequiredPlayersToStartGame {
		return nil, nil, ErrPlayerCount
	}
	for _, p := range cur.Players {
		if !p.Ready {
			return nil, nil, ErrNotAllReady
		}
	}
	if opts.SelectorOverride != "" {
		if _, ok := cur.Players[opts.SelectorOverride]; !ok {
			return nil, nil, fmt.Errorf("%w: selector override %s", ErrUnknownPlayer, opts.SelectorOverride)
		}
	}

	next := cur.Clone()
	seating := domain.NewSeating(next.Players)
	deck := s.shuffledDeck()

	events := make([]Event, 0, domain.PlayerCount+1)
	for i, id := range seating.Order() {
		pl := next.Players[id]
		pl.Hand = append([]domain.Card{}, deck[i*domain.InitialDealSize:(i+1)*domain.InitialDealSize]...)
		pl.HandsWon = 0
		pl.Captured = nil
		events = append(events, handDealt(pl))
	}
	next.Deck = append([]domain.Card{}, deck[domain.PlayerCount*domain.InitialDealSize:]...)

	selector := opts.SelectorOverride
	if selector == "" {
		selector = domain.PickSelector(seating, next.GameCount)
	}

	next.Phase = domain.PhaseTrumpSelection
	next.TrumpSelectorID = selector
	next.TrumpSuit = ""
	next.LeadSuit = ""
	next.Trick = []domain.PlayedCard{}
	next.TurnIndex = 0
	next.HandNumber = 0
	next.Winner = nil
	next.LastTrick = nil
	next.Teams = next.Arrangement.Teams()
	domain.ApplyTeams(next.Players, next.Teams)
	next.GameCount++

	events = append([]Event{{
		Kind: EventGameStarted,
		Payload: GameStartedPayload{
			GameCount:       next.GameCount,
			TrumpSelectorID: selector,
			Overridden:      opts.SelectorOverride != "",
		},
	}}, events...)

	return finish(next, events)
}

// SelectTrump fixes the trump suit and deals the remaining eight cards to
// each player in seat order.
func (s *Service) SelectTrump(cur *domain.Snapshot, actorID string, suit domain.Suit) (*domain.Snapshot, []Event, error) {
	if cur.Phase != domain.PhaseTrumpSelection {
		return nil, nil, ErrWrongPhase
	}
	if actorID != cur.TrumpSelectorID {
		return nil, nil, ErrNotSelector
	}
	if !suit.Valid() {
		return nil, nil, ErrInvalidSuit
	}
	want := domain.PlayerCount * domain.SecondDealSize
	if len(cur.Deck) != want {
		return nil, nil, fmt.Errorf("%w: remainder holds %d cards, want %d", domain.ErrInvariant, len(cur.Deck), want)
	}

	next := cur.Clone()
	seating := domain.NewSeating(next.Players)
	events := []Event{{
		Kind:    EventTrumpSelected,
		Payload: TrumpSelectedPayload{PlayerID: actorID, TrumpSuit: suit},
	}}
	for i, id := range seating.Order() {
		pl := next.Players[id]
		pl.Hand = append(pl.Hand, next.Deck[i*domain.SecondDealSize:(i+1)*domain.SecondDealSize]...)
		events = append(events, handDealt(pl))
	}

	next.Deck = nil
	next.TrumpSuit = suit
	next.Trick = []domain.PlayedCard{}
	next.LeadSuit = ""
	next.TurnIndex = 0
	next.Phase = domain.PhasePlaying

	return finish(next, events)
}

// PlayCard plays one card from the acting player's hand into the current trick.
// A trick that becomes full stays visible until ResolveTrick clears it.
func (s *Service) PlayCard(cur *domain.Snapshot, actorID string, card domain.Card) (*domain.Snapshot, []Event, error) {
	if cur.Phase != domain.PhasePlaying {
		return nil, nil, ErrWrongPhase
	}
	pl, ok := cur.Players[actorID]
	if !ok {
		return nil, nil, ErrUnknownPlayer
	}
	seating := domain.NewSeating(cur.Players)
	if seating.Index(actorID) != cur.TurnIndex {
		return nil, nil, ErrNotYourTurn
	}
	if cur.TrickFull() {
		return nil, nil, ErrTrickPending
	}
	if !card.Valid() {
		return nil, nil, ErrInvalidCard
	}
	if !domain.HasCard(pl.Hand, card) {
		return nil, nil, ErrCardNotInHand
	}
	if !domain.IsLegal(card, pl.Hand, cur.LeadSuit) {
		return nil, nil, ErrIllegalCard
	}

	next := cur.Clone()
	actor := next.Players[actorID]
	actor.Hand = domain.RemoveCards(actor.Hand, []domain.Card{card})
	if len(next.Trick) == 0 {
		next.LeadSuit = card.Suit
	}
	next.Trick = append(next.Trick, domain.PlayedCard{Card: card, PlayerID: actorID})
	next.TurnIndex = (next.TurnIndex + 1) % domain.PlayerCount

	return finish(next, []Event{{
		Kind: EventCardPlayed,
		Payload: CardPlayedPayload{
			PlayerID:      actorID,
			Card:          card,
			NextTurnIndex: next.TurnIndex,
			TrickComplete: next.TrickFull(),
		},
	}})
}

// ResolveTrick scores a full trick and passes the lead to its winner. When
// there is no full trick to resolve it returns cur unchanged with no events,
// so repeated or late resolution requests are harmless.
func (s *Service) ResolveTrick(cur *domain.Snapshot) (*domain.Snapshot, []Event, error) {
	if cur.Phase != domain.PhasePlaying || !cur.TrickFull() {
		return cur, nil, nil
	}

	winner, err := domain.DetermineWinner(cur.Trick, cur.LeadSuit, cur.TrumpSuit)
	if err != nil {
		return nil, nil, err
	}

	next := cur.Clone()
	seating := domain.NewSeating(next.Players)
	idx := seating.Index(winner.PlayerID)
	if idx < 0 {
		return nil, nil, fmt.Errorf("%w: trick winner %s is not seated", domain.ErrInvariant, winner.PlayerID)
	}

	taker := next.Players[winner.PlayerID]
	taker.HandsWon++
	for _, pc := range next.Trick {
		taker.Captured = append(taker.Captured, pc.Card)
	}
	next.HandNumber++
	next.LastTrick = &domain.ResolvedTrick{
		Cards:    append([]domain.PlayedCard(nil), next.Trick...),
		WinnerID: winner.PlayerID,
		Number:   next.HandNumber,
	}
	next.Trick = []domain.PlayedCard{}
	next.LeadSuit = ""
	next.TurnIndex = idx

	events := []Event{{
		Kind: EventTrickResolved,
		Payload: TrickResolvedPayload{
			WinnerID:      winner.PlayerID,
			WinningCard:   winner.Card,
			HandNumber:    next.HandNumber,
			NextTurnIndex: idx,
		},
	}}

	if next.HandNumber == domain.TricksPerGame {
		outcome := domain.DetermineOutcome(next.Players, next.Teams)
		next.Phase = domain.PhaseGameComplete
		next.Winner = &outcome
		events = append(events, Event{Kind: EventGameCompleted, Payload: GameCompletedPayload{Outcome: outcome}})
	}

	return finish(next, events)
}

// RequestNewGame returns a completed table to the waiting room with the same
// players so they can ready up again.
func (s *Service) RequestNewGame(cur *domain.Snapshot) (*domain.Snapshot, []Event, error) {
	if cur.Phase != domain.PhaseGameComplete {
		return nil, nil, ErrWrongPhase
	}

	next := cur.Clone()
	for _, p := range next.Players {
		p.Hand = []domain.Card{}
		p.Ready = false
	}
	next.Phase = domain.PhaseWaiting
	next.TrumpSuit = ""
	next.TrumpSelectorID = ""
	next.Trick = []domain.PlayedCard{}
	next.LeadSuit = ""
	next.TurnIndex = 0
	next.HandNumber = 0
	next.Winner = nil
	next.Deck = nil

	return finish(next, []Event{{Kind: EventGameReset}})
}

// EndGame clears the table from any phase. Only the game counter survives so
// selector rotation stays fair across sessions.
func (s *Service) EndGame(cur *domain.Snapshot) (*domain.Snapshot, []Event, error) {
	next := domain.NewSnapshot()
	next.Version = cur.Version
	next.GameCount = cur.GameCount
	return finish(next, []Event{{Kind: EventGameEnded, Payload: GameEndedPayload{GameCount: next.GameCount}}})
}

func (s *Service) shuffledDeck() []domain.Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.NewShuffledDeck(s.rng)
}

func handDealt(pl *domain.Player) Event {
	return Event{
		Kind:       EventHandDealt,
		Payload:    HandDealtPayload{PlayerID: pl.ID, Hand: append([]domain.Card(nil), pl.Hand...)},
		Recipients: []string{pl.ID},
	}
}

// finish checks the structural invariants of a transition result before it
// can be handed to a store.
func finish(next *domain.Snapshot, events []Event) (*domain.Snapshot, []Event, error) {
	if err := domain.CheckInvariants(next); err != nil {
		return nil, nil, err
	}
	return next, events, nil
}
