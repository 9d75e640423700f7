package domain

import "sort"

// ScoreMode distinguishes individual from partnership scoring.
type ScoreMode string

const (
	ScoreModeIndividual ScoreMode = "individual"
	ScoreModeTeam       ScoreMode = "team"
)

// Outcome is the final result of a game. A tie is reported explicitly: every
// player (or team) sharing the top score is listed and Tie is set.
type Outcome struct {
	Mode       ScoreMode      `json:"mode"`
	WinnerIDs  []string       `json:"winner_ids"`            // players sharing the top score (individual mode)
	TeamNames  []string       `json:"team_names,omitempty"`  // teams sharing the top score (team mode)
	Tie        bool           `json:"tie"`
	Scores     map[string]int `json:"scores"`                // player id -> hands won
	TeamScores map[string]int `json:"team_scores,omitempty"` // team name -> hands won
}

// DetermineOutcome tallies hands won per player and, when teams are set, per
// team. Team mode compares team sums; individual mode compares players.
func DetermineOutcome(players map[string]*Player, teams *Teams) Outcome {
	scores := make(map[string]int, len(players))
	for id, p := range players {
		scores[id] = p.HandsWon
	}

	if teams != nil {
		return teamOutcome(scores, teams)
	}

	best := -1
	var winners []string
	for id, n := range scores {
		switch {
		case n > best:
			best = n
			winners = []string{id}
		case n == best:
			winners = append(winners, id)
		}
	}
	sort.Strings(winners)
	return Outcome{
		Mode:      ScoreModeIndividual,
		WinnerIDs: winners,
		Tie:       len(winners) > 1,
		Scores:    scores,
	}
}

// TeamScore sums hands won over the team's members.
func TeamScore(scores map[string]int, team Team) int {
	total := 0
	for _, id := range team.MemberIDs {
		total += scores[id]
	}
	return total
}

func teamOutcome(scores map[string]int, teams *Teams) Outcome {
	s1 := TeamScore(scores, teams.Team1)
	s2 := TeamScore(scores, teams.Team2)

	out := Outcome{
		Mode:   ScoreModeTeam,
		Scores: scores,
		TeamScores: map[string]int{
			teams.Team1.Name: s1,
			teams.Team2.Name: s2,
		},
	}

	switch {
	case s1 > s2:
		out.TeamNames = []string{teams.Team1.Name}
		out.WinnerIDs = sortedCopy(teams.Team1.MemberIDs)
	case s2 > s1:
		out.TeamNames = []string{teams.Team2.Name}
		out.WinnerIDs = sortedCopy(teams.Team2.MemberIDs)
	default:
		out.Tie = true
		out.TeamNames = []string{teams.Team1.Name, teams.Team2.Name}
		out.WinnerIDs = sortedCopy(append(append([]string(nil), teams.Team1.MemberIDs...), teams.Team2.MemberIDs...))
	}
	return out
}

func (o Outcome) clone() Outcome {
	out := o
	out.WinnerIDs = append([]string(nil), o.WinnerIDs...)
	out.TeamNames = append([]string(nil), o.TeamNames...)
	if o.Scores != nil {
		out.Scores = make(map[string]int, len(o.Scores))
		for k, v := range o.Scores {
			out.Scores[k] = v
		}
	}
	if o.TeamScores != nil {
		out.TeamScores = make(map[string]int, len(o.TeamScores))
		for k, v := range o.TeamScores {
			out.TeamScores[k] = v
		}
	}
	return out
}

func sortedCopy(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	return out
}
