package domain

import (
	"reflect"
	"testing"
)

func scored(wins map[string]int) map[string]*Player {
	players := make(map[string]*Player, len(wins))
	for id, n := range wins {
		players[id] = &Player{ID: id, HandsWon: n}
	}
	return players
}

func TestDetermineOutcomeIndividual(t *testing.T) {
	tests := []struct {
		name        string
		wins        map[string]int
		wantWinners []string
		wantTie     bool
	}{
		{
			name:        "Single winner",
			wins:        map[string]int{"a": 5, "b": 3, "c": 3, "d": 2},
			wantWinners: []string{"a"},
		},
		{
			name:        "Two-way tie",
			wins:        map[string]int{"a": 4, "b": 4, "c": 3, "d": 2},
			wantWinners: []string{"a", "b"},
			wantTie:     true,
		},
		{
			name:        "Zero hands everywhere",
			wins:        map[string]int{"a": 0, "b": 0, "c": 0, "d": 0},
			wantWinners: []string{"a", "b", "c", "d"},
			wantTie:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := DetermineOutcome(scored(tt.wins), nil)
			if out.Mode != ScoreModeIndividual {
				t.Fatalf("Mode = %s, want individual", out.Mode)
			}
			if !reflect.DeepEqual(out.WinnerIDs, tt.wantWinners) {
				t.Fatalf("WinnerIDs = %v, want %v", out.WinnerIDs, tt.wantWinners)
			}
			if out.Tie != tt.wantTie {
				t.Fatalf("Tie = %t, want %t", out.Tie, tt.wantTie)
			}
			if !reflect.DeepEqual(out.Scores, tt.wins) {
				t.Fatalf("Scores = %v, want %v", out.Scores, tt.wins)
			}
		})
	}
}

func TestDetermineOutcomeTeams(t *testing.T) {
	teams := &Teams{
		Team1: Team{Name: Team1Name, MemberIDs: []string{"a", "c"}},
		Team2: Team{Name: Team2Name, MemberIDs: []string{"b", "d"}},
	}

	t.Run("Team1 wins", func(t *testing.T) {
		out := DetermineOutcome(scored(map[string]int{"a": 4, "b": 3, "c": 4, "d": 2}), teams)
		if out.Mode != ScoreModeTeam || out.Tie {
			t.Fatalf("unexpected outcome: %+v", out)
		}
		if !reflect.DeepEqual(out.TeamNames, []string{Team1Name}) {
			t.Fatalf("TeamNames = %v, want [team1]", out.TeamNames)
		}
		if out.TeamScores[Team1Name] != 8 || out.TeamScores[Team2Name] != 5 {
			t.Fatalf("TeamScores = %v", out.TeamScores)
		}
		if !reflect.DeepEqual(out.WinnerIDs, []string{"a", "c"}) {
			t.Fatalf("WinnerIDs = %v, want [a c]", out.WinnerIDs)
		}
	})

	t.Run("Equal sums tie", func(t *testing.T) {
		out := DetermineOutcome(scored(map[string]int{"a": 7, "b": 6, "c": 0, "d": 1}), teams)
		if !out.Tie {
			t.Fatalf("expected tie, got %+v", out)
		}
		if len(out.TeamNames) != 2 {
			t.Fatalf("TeamNames = %v, want both teams", out.TeamNames)
		}
	})
}

func TestArrangementTeams(t *testing.T) {
	players := playersOf("a", "b", "c", "d")

	full := Arrangement{PositionBottom: "a", PositionLeft: "b", PositionTop: "c", PositionRight: "d"}
	if err := full.Validate(players); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	teams := full.Teams()
	if teams == nil {
		t.Fatalf("expected teams for a complete arrangement")
	}
	if !reflect.DeepEqual(teams.Team1.MemberIDs, []string{"a", "c"}) || !reflect.DeepEqual(teams.Team2.MemberIDs, []string{"b", "d"}) {
		t.Fatalf("unexpected teams: %+v", teams)
	}

	ApplyTeams(players, teams)
	if players["a"].TeamID != Team1Name || players["b"].TeamID != Team2Name {
		t.Fatalf("ApplyTeams did not tag players: a=%s b=%s", players["a"].TeamID, players["b"].TeamID)
	}

	partial := Arrangement{PositionBottom: "a", PositionTop: "c"}
	if partial.Teams() != nil {
		t.Fatalf("partial arrangement must disable team mode")
	}
	ApplyTeams(players, nil)
	if players["a"].TeamID != "" {
		t.Fatalf("ApplyTeams(nil) left team id %q", players["a"].TeamID)
	}
}

func TestArrangementValidate(t *testing.T) {
	players := playersOf("a", "b", "c", "d")
	tests := []struct {
		name string
		arr  Arrangement
	}{
		{name: "Duplicate", arr: Arrangement{PositionBottom: "a", PositionTop: "a"}},
		{name: "Unknown player", arr: Arrangement{PositionBottom: "zz"}},
		{name: "Unknown position", arr: Arrangement{Position("middle"): "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.arr.Validate(players); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
