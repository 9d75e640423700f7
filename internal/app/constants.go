package app

import "courtpiece/internal/domain"

// RequiredPlayersToStartGame defines the exact number of ready players needed to start a game.
const RequiredPlayersToStartGame = domain.PlayerCount
