package game

import (
	"time"

	"github.com/mauv0809/courtside/internal/stats"
)

// Status is the lifecycle state of a game.
type Status string

const (
	StatusScheduled  Status = "SCHEDULED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusHalftime   Status = "HALFTIME"
	StatusFinal      Status = "FINAL"
)

// transitions lists the allowed next states for each state. FINAL has none.
var transitions = map[Status][]Status{
	StatusScheduled:  {StatusInProgress},
	StatusInProgress: {StatusHalftime, StatusFinal},
	StatusHalftime:   {StatusInProgress},
}

// CanTransition reports whether a game may move from s to next.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusInProgress, StatusHalftime, StatusFinal:
		return true
	}
	return false
}

// Game is the authoritative state of one game session.
type Game struct {
	ID            string     `json:"id" msgpack:"id"`
	EventID       string     `json:"eventId,omitempty" msgpack:"event_id"`
	HomeTeamID    string     `json:"homeTeamId" msgpack:"home_team_id"`
	AwayTeamID    string     `json:"awayTeamId" msgpack:"away_team_id"`
	HomeScore     int        `json:"homeScore" msgpack:"home_score"`
	AwayScore     int        `json:"awayScore" msgpack:"away_score"`
	Status        Status     `json:"status" msgpack:"status"`
	CurrentPeriod int        `json:"currentPeriod" msgpack:"current_period"`
	IsOfficial    bool       `json:"isOfficial" msgpack:"is_official"`
	StartedAt     *time.Time `json:"startedAt,omitempty" msgpack:"started_at"`
	EndedAt       *time.Time `json:"endedAt,omitempty" msgpack:"ended_at"`
}

// IsHomeTeam reports whether teamID is the home side of the game.
func (g *Game) IsHomeTeam(teamID string) bool {
	return teamID == g.HomeTeamID
}

// StatLogEntry is one immutable ledger record. Only IsUndone ever changes,
// and only from false to true.
type StatLogEntry struct {
	ID               int64          `json:"id" msgpack:"id"`
	GameID           string         `json:"gameId" msgpack:"game_id"`
	PlayerID         string         `json:"playerId" msgpack:"player_id"`
	TeamID           string         `json:"teamId" msgpack:"team_id"`
	StatType         stats.StatType `json:"statType" msgpack:"stat_type"`
	Value            int            `json:"value" msgpack:"value"`
	Period           int            `json:"period" msgpack:"period"`
	CreatedAt        time.Time      `json:"createdAt" msgpack:"created_at"`
	IsUndone         bool           `json:"isUndone" msgpack:"is_undone"`
	UndoneAt         *time.Time     `json:"undoneAt,omitempty" msgpack:"undone_at"`
	ClientMutationID string         `json:"clientMutationId,omitempty" msgpack:"client_mutation_id"`
}

// PlayerGameStats is the aggregate row for one player in one game.
type PlayerGameStats struct {
	GameID   string `json:"gameId" msgpack:"game_id"`
	PlayerID string `json:"playerId" msgpack:"player_id"`
	TeamID   string `json:"teamId" msgpack:"team_id"`
	stats.BoxScore
}

// Snapshot is everything a scorekeeper device needs to render a game.
type Snapshot struct {
	Game     Game              `json:"game" msgpack:"game"`
	Stats    []PlayerGameStats `json:"stats" msgpack:"stats"`
	StatLogs []StatLogEntry    `json:"statLogs" msgpack:"stat_logs"`
}

// Team is the externally owned team record. Only the win/loss counters are
// written here, at finalization.
type Team struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Wins   int    `json:"wins"`
	Losses int    `json:"losses"`
}

// EventTeamRecord is a team's standing inside a grouped event.
type EventTeamRecord struct {
	EventID       string `json:"eventId"`
	TeamID        string `json:"teamId"`
	TeamName      string `json:"teamName"`
	Wins          int    `json:"wins"`
	Losses        int    `json:"losses"`
	PointsFor     int    `json:"pointsFor"`
	PointsAgainst int    `json:"pointsAgainst"`
}

// ApplyRequest asks for one stat event to be recorded.
type ApplyRequest struct {
	GameID           string         `json:"gameId" msgpack:"game_id"`
	PlayerID         string         `json:"playerId" msgpack:"player_id"`
	TeamID           string         `json:"teamId" msgpack:"team_id"`
	StatType         stats.StatType `json:"statType" msgpack:"stat_type"`
	Period           int            `json:"period" msgpack:"period"`
	ClientMutationID string         `json:"clientMutationId,omitempty" msgpack:"client_mutation_id"`
}

// UndoRequest asks for one ledger entry to be reversed.
type UndoRequest struct {
	GameID           string `json:"gameId" msgpack:"game_id"`
	StatLogID        int64  `json:"statLogId" msgpack:"stat_log_id"`
	ClientMutationID string `json:"clientMutationId,omitempty" msgpack:"client_mutation_id"`
}

// TransitionRequest moves a game to a new status. Score overrides are only
// honoured when finalizing.
type TransitionRequest struct {
	GameID    string `json:"gameId" msgpack:"game_id"`
	Status    Status `json:"status" msgpack:"status"`
	HomeScore *int   `json:"homeScore,omitempty" msgpack:"home_score"`
	AwayScore *int   `json:"awayScore,omitempty" msgpack:"away_score"`
}

// PeriodRequest moves the current period of a running game.
type PeriodRequest struct {
	GameID string `json:"gameId" msgpack:"game_id"`
	Period int    `json:"period" msgpack:"period"`
}
