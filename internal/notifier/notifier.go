package notifier

import "github.com/mauv0809/courtside/internal/game"

// Notifier defines a high-level interface for sending notifications about business events.
// This decouples the rest of the application from the specific notification provider (e.g., Slack).
type Notifier interface {
	// For finalized games
	SendFinalScore(result *GameResult, dryRun bool) error
	// For event tables after a result was recorded
	SendStandings(eventID string, records []game.EventTeamRecord, dryRun bool) error

	// For formatting responses for slash commands
	FormatStandingsResponse(eventID string, records []game.EventTeamRecord) (any, error)
}

// GameResult is what a final score notification shows.
type GameResult struct {
	Game       game.Game
	HomeName   string
	AwayName   string
	TopScorers []game.PlayerGameStats
}
