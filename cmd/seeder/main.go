package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/mauv0809/courtside/internal/database"
	"github.com/mauv0809/courtside/internal/game"
	"github.com/mauv0809/courtside/internal/ledger"
	"github.com/mauv0809/courtside/internal/stats"
)

const (
	playersPerTeam = 8
	eventsPerGame  = 120
	playedGames    = 2
)

var teamNames = []string{"Harbor Hawks", "Northside Owls", "Riverside Foxes", "Old Town Bulls"}

// Simplified config loading for the script
func loadConfig() map[string]string {
	err := godotenv.Load()
	if err != nil {
		log.Warn("No .env file found, reading from environment variables")
	}

	config := map[string]string{"DB_NAME": "courtside.db"}
	for _, key := range []string{"DB_NAME", "TURSO_PRIMARY_URL", "TURSO_AUTH_TOKEN"} {
		if value, ok := os.LookupEnv(key); ok {
			config[key] = value
		}
	}
	return config
}

func main() {
	log.Info("Starting database seeder...")
	cfg := loadConfig()

	db, teardown, err := database.InitDB(cfg["DB_NAME"], cfg["TURSO_PRIMARY_URL"], cfg["TURSO_AUTH_TOKEN"])
	if err != nil {
		log.Fatalf("Failed to open database: %s", err)
	}
	defer teardown()

	ctx := context.Background()
	store := ledger.New(db)
	startTime := time.Now()

	eventID := "league-" + uuid.NewString()[:8]
	if err := store.UpsertEvent(ctx, eventID, fmt.Sprintf("Seeded League %d", startTime.Year())); err != nil {
		log.Fatalf("Failed to insert event: %s", err)
	}

	rosters := make(map[string][]string, len(teamNames))
	var teamIDs []string
	for _, name := range teamNames {
		team := game.Team{ID: uuid.NewString(), Name: name}
		if err := store.UpsertTeam(ctx, team); err != nil {
			log.Fatalf("Failed to insert team %s: %s", name, err)
		}
		teamIDs = append(teamIDs, team.ID)
		for n := 1; n <= playersPerTeam; n++ {
			player := ledger.Player{ID: uuid.NewString(), TeamID: team.ID, Name: fmt.Sprintf("%s #%d", name, n), JerseyNumber: n}
			if err := store.UpsertPlayer(ctx, player); err != nil {
				log.Fatalf("Failed to insert player %s: %s", player.Name, err)
			}
			rosters[team.ID] = append(rosters[team.ID], player.ID)
		}
	}
	log.Info("Ensured teams and players exist.", "teams", len(teamIDs), "players", len(teamIDs)*playersPerTeam)

	// Round robin; the first few games are played to completion.
	var gameIDs []string
	for i := 0; i < len(teamIDs); i++ {
		for j := i + 1; j < len(teamIDs); j++ {
			g := ledger.NewGame{
				ID:          uuid.NewString(),
				EventID:     eventID,
				HomeTeamID:  teamIDs[i],
				AwayTeamID:  teamIDs[j],
				ScheduledAt: startTime.Add(time.Duration(len(gameIDs)) * 24 * time.Hour),
			}
			if err := store.CreateGame(ctx, g); err != nil {
				log.Fatalf("Failed to schedule game: %s", err)
			}
			gameIDs = append(gameIDs, g.ID)
			if len(gameIDs) <= playedGames {
				if err := playGame(ctx, store, g, rosters); err != nil {
					log.Fatalf("Failed to play game %s: %s", g.ID, err)
				}
			}
		}
	}

	duration := time.Since(startTime)
	log.Info("Successfully seeded league.", "event", eventID, "games", len(gameIDs), "played", min(playedGames, len(gameIDs)), "duration", duration)
	for _, id := range gameIDs {
		fmt.Println(id)
	}
}

// playGame starts a game, records random events through the ledger and
// finalizes it.
func playGame(ctx context.Context, store ledger.Store, g ledger.NewGame, rosters map[string][]string) error {
	if _, err := store.TransitionStatus(ctx, game.TransitionRequest{GameID: g.ID, Status: game.StatusInProgress}); err != nil {
		return err
	}
	types := stats.All()
	for i := 0; i < eventsPerGame; i++ {
		period := 1 + i*4/eventsPerGame
		if i > 0 && period != 1+(i-1)*4/eventsPerGame {
			if _, err := store.SetPeriod(ctx, game.PeriodRequest{GameID: g.ID, Period: period}); err != nil {
				return err
			}
		}
		teamID := g.HomeTeamID
		if rand.Intn(2) == 1 {
			teamID = g.AwayTeamID
		}
		roster := rosters[teamID]
		_, _, err := store.ApplyStat(ctx, game.ApplyRequest{
			GameID:           g.ID,
			PlayerID:         roster[rand.Intn(len(roster))],
			TeamID:           teamID,
			StatType:         types[rand.Intn(len(types))],
			Period:           period,
			ClientMutationID: uuid.NewString(),
		})
		if err != nil {
			return err
		}
	}
	final, err := store.TransitionStatus(ctx, game.TransitionRequest{GameID: g.ID, Status: game.StatusFinal})
	if err != nil {
		return err
	}
	log.Info("Played game", "gameID", g.ID, "home", final.HomeScore, "away", final.AwayScore)
	return nil
}
