package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/courtside/internal/game"
	"github.com/mauv0809/courtside/internal/metrics"
	"github.com/mauv0809/courtside/internal/notifier"
	"github.com/slack-go/slack"
)

// slackClient is an interface that contains the methods from the slack.Client that we use.
// This allows for easy mocking in tests.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

var _ notifier.Notifier = &Notifier{}

// Notifier handles sending notifications to Slack.
type Notifier struct {
	api       slackClient
	channelID string
	metrics   metrics.Metrics
}

// NewNotifier creates a new Notifier.
func NewNotifier(token, channelID string, metrics metrics.Metrics) *Notifier {
	api := slack.New(token)
	return &Notifier{
		api:       api,
		channelID: channelID,
		metrics:   metrics,
	}
}

// NewNotifierWithAPI creates a new Notifier with a specific slack.Client instance.
// Useful for tests that need to intercept API calls.
func NewNotifierWithAPI(api slackClient, channelID string, metrics metrics.Metrics) *Notifier {
	return &Notifier{
		api:       api,
		channelID: channelID,
		metrics:   metrics,
	}
}

func (s *Notifier) sendMessage(message slack.Message, dryRun bool) (string, string, error) {
	if dryRun {
		jsonMsg, _ := json.MarshalIndent(message, "", "  ")
		log.Info("[Dry Run] Would send Slack message", "channel", s.channelID, "message", string(jsonMsg))
		return "dry-run-ts", "dry-run-thread-ts", nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	channelID, timestamp, err := s.api.PostMessageContext(
		ctx,
		s.channelID,
		slack.MsgOptionBlocks(message.Blocks.BlockSet...),
		slack.MsgOptionAsUser(true),
	)

	if err != nil {
		s.metrics.IncSlackNotifFailed()
		log.Error("Failed to send Slack message", "error", err, "channel", s.channelID)
		return "", "", fmt.Errorf("failed to post message: %w", err)
	}

	s.metrics.IncSlackNotifSent()
	log.Info("Successfully sent Slack message", "channel", channelID, "timestamp", timestamp)
	return channelID, timestamp, nil
}

func (s *Notifier) SendFinalScore(result *notifier.GameResult, dryRun bool) error {
	msg := s.formatFinalScore(result)
	_, _, err := s.sendMessage(msg, dryRun)
	return err
}

func (s *Notifier) SendStandings(eventID string, records []game.EventTeamRecord, dryRun bool) error {
	msg := s.formatStandings(eventID, records)
	_, _, err := s.sendMessage(msg, dryRun)
	return err
}

// FormatStandingsResponse formats an event table for a slash command response.
func (s *Notifier) FormatStandingsResponse(eventID string, records []game.EventTeamRecord) (any, error) {
	return s.formatStandings(eventID, records), nil
}

// formatFinalScore creates the Slack message for a finalized game using Block Kit.
func (s *Notifier) formatFinalScore(result *notifier.GameResult) slack.Message {
	blocks := make([]slack.Block, 0)
	g := result.Game

	headerText := slack.NewTextBlockObject("plain_text", "🏀 Final! 🏀", true, false)
	blocks = append(blocks, slack.NewHeaderBlock(headerText))

	home, away := teamLabel(result.HomeName, g.HomeTeamID), teamLabel(result.AwayName, g.AwayTeamID)
	scoreText := fmt.Sprintf("%s %d - %d %s", home, g.HomeScore, g.AwayScore, away)
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", scoreText, true, false), nil, nil))

	var outcome string
	switch {
	case g.HomeScore > g.AwayScore:
		outcome = fmt.Sprintf("%s win! 🏆", home)
	case g.AwayScore > g.HomeScore:
		outcome = fmt.Sprintf("%s win! 🏆", away)
	default:
		outcome = "It's a tie."
	}
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", outcome, true, false), nil, nil))

	if len(result.TopScorers) > 0 {
		var lines []string
		for _, ps := range result.TopScorers {
			lines = append(lines, fmt.Sprintf("• %s: %d pts, %d reb, %d ast", ps.PlayerID, ps.Points, ps.Rebounds, ps.Assists))
		}
		leadersText := "Top scorers:\n" + strings.Join(lines, "\n")
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", leadersText, true, false), nil, nil))
	}

	if g.EndedAt != nil {
		contextText := fmt.Sprintf("Game %s, finished %s", g.ID, g.EndedAt.Format("Monday 02 Jan, 15:04"))
		blocks = append(blocks, slack.NewContextBlock("", slack.NewTextBlockObject("plain_text", contextText, true, false)))
	}

	return slack.NewBlockMessage(blocks...)
}

// formatStandings creates a Slack message to display an event table.
func (s *Notifier) formatStandings(eventID string, records []game.EventTeamRecord) slack.Message {
	blocks := make([]slack.Block, 0)

	headerText := slack.NewTextBlockObject("plain_text", fmt.Sprintf("🏆 Standings: %s 🏆", eventID), true, false)
	blocks = append(blocks, slack.NewHeaderBlock(headerText))

	if len(records) == 0 {
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", "No results recorded yet.", true, false), nil, nil))
		return slack.NewBlockMessage(blocks...)
	}

	for i, rec := range records {
		rank := i + 1
		var medal string
		switch rank {
		case 1:
			medal = "🥇"
		case 2:
			medal = "🥈"
		case 3:
			medal = "🥉"
		}
		diff := rec.PointsFor - rec.PointsAgainst
		teamText := fmt.Sprintf("%d. %s %s\n> W-L: %d-%d | PF: %d | PA: %d | Diff: %+d",
			rank,
			medal,
			teamLabel(rec.TeamName, rec.TeamID),
			rec.Wins,
			rec.Losses,
			rec.PointsFor,
			rec.PointsAgainst,
			diff,
		)
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", teamText, true, false), nil, nil))
	}

	return slack.NewBlockMessage(blocks...)
}

func teamLabel(name, id string) string {
	if name != "" {
		return name
	}
	return id
}
