package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"

	"github.com/mauv0809/courtside/internal/game"
	"github.com/mauv0809/courtside/internal/localstore"
	"github.com/mauv0809/courtside/internal/stats"
	courtsync "github.com/mauv0809/courtside/internal/sync"
	"github.com/spf13/cobra"
)

var (
	period    int
	homeScore int
	awayScore int
)

func init() {
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(undoCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(periodCmd)
	rootCmd.AddCommand(pendingCmd)
	rootCmd.AddCommand(deadCmd)
	rootCmd.AddCommand(retryCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(watchCmd)

	recordCmd.Flags().IntVar(&period, "period", 1, "Period the event happened in")
	statusCmd.Flags().IntVar(&homeScore, "home", -1, "Official home score (FINAL only)")
	statusCmd.Flags().IntVar(&awayScore, "away", -1, "Official away score (FINAL only)")
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the health of the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest("/health")
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Get application metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest("/metrics")
	},
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot <gameID>",
	Short: "Show a game, falling back to the local cache when offline",
	Args:  cobra.ExactArgs(1),
	RunE: withDevice(func(ctx context.Context, d *device, args []string) error {
		res, err := d.engine.Snapshot(ctx, args[0])
		if err != nil {
			return err
		}
		g := res.Snapshot.Game
		source := "server"
		if res.FromCache {
			source = "cache"
			if res.Stale {
				source = "cache, stale"
			}
		}
		fmt.Printf("%s  %s %d - %d %s  [%s, period %d] (%s, fetched %s)\n",
			g.ID, g.HomeTeamID, g.HomeScore, g.AwayScore, g.AwayTeamID, g.Status, g.CurrentPeriod,
			source, res.FetchedAt.Local().Format("15:04:05"))

		w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
		fmt.Fprintln(w, "PLAYER\tTEAM\tPTS\tREB\tAST\tSTL\tBLK\tTO\tPF")
		for _, ps := range res.Snapshot.Stats {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\n", ps.PlayerID, ps.TeamID,
				ps.Points, ps.Rebounds, ps.Assists, ps.Steals, ps.Blocks, ps.Turnovers, ps.Fouls)
		}
		return w.Flush()
	}),
}

var recordCmd = &cobra.Command{
	Use:   "record <gameID> <playerID> <teamID> <statType>",
	Short: "Record a stat event",
	Long:  "Record a stat event. Stat types: " + fmt.Sprint(stats.All()),
	Args:  cobra.ExactArgs(4),
	RunE: withDevice(func(ctx context.Context, d *device, args []string) error {
		st, err := stats.Parse(args[3])
		if err != nil {
			return err
		}
		req := game.ApplyRequest{GameID: args[0], PlayerID: args[1], TeamID: args[2], StatType: st, Period: period}
		return recordAndSync(ctx, d, req.GameID, localstore.MutationStat, req)
	}),
}

var undoCmd = &cobra.Command{
	Use:   "undo <gameID> <statLogID>",
	Short: "Undo a recorded stat event",
	Args:  cobra.ExactArgs(2),
	RunE: withDevice(func(ctx context.Context, d *device, args []string) error {
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("stat log id %q: %w", args[1], game.ErrValidation)
		}
		return recordAndSync(ctx, d, args[0], localstore.MutationUndo, game.UndoRequest{GameID: args[0], StatLogID: id})
	}),
}

var statusCmd = &cobra.Command{
	Use:   "status <gameID> <SCHEDULED|IN_PROGRESS|HALFTIME|FINAL>",
	Short: "Move a game to a new status",
	Args:  cobra.ExactArgs(2),
	RunE: withDevice(func(ctx context.Context, d *device, args []string) error {
		req := game.TransitionRequest{GameID: args[0], Status: game.Status(args[1])}
		if !req.Status.Valid() {
			return fmt.Errorf("status %q: %w", args[1], game.ErrValidation)
		}
		if homeScore >= 0 {
			req.HomeScore = &homeScore
		}
		if awayScore >= 0 {
			req.AwayScore = &awayScore
		}
		return recordAndSync(ctx, d, req.GameID, localstore.MutationStatus, req)
	}),
}

var periodCmd = &cobra.Command{
	Use:   "period <gameID> <period>",
	Short: "Set the current period of a game",
	Args:  cobra.ExactArgs(2),
	RunE: withDevice(func(ctx context.Context, d *device, args []string) error {
		p, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("period %q: %w", args[1], game.ErrValidation)
		}
		return recordAndSync(ctx, d, args[0], localstore.MutationPeriod, game.PeriodRequest{GameID: args[0], Period: p})
	}),
}

var pendingCmd = &cobra.Command{
	Use:   "pending [gameID]",
	Short: "List mutations waiting to be synced",
	Args:  cobra.MaximumNArgs(1),
	RunE: withDevice(func(ctx context.Context, d *device, args []string) error {
		games := args
		if len(games) == 0 {
			var err error
			if games, err = d.store.PendingGames(ctx); err != nil {
				return err
			}
		}
		var all []localstore.PendingMutation
		for _, gameID := range games {
			pending, err := d.store.ListPending(ctx, gameID)
			if err != nil {
				return err
			}
			all = append(all, pending...)
		}
		return printMutations(all)
	}),
}

var deadCmd = &cobra.Command{
	Use:   "dead <gameID>",
	Short: "List mutations the server rejected",
	Args:  cobra.ExactArgs(1),
	RunE: withDevice(func(ctx context.Context, d *device, args []string) error {
		dead, err := d.store.ListDeadLetters(ctx, args[0])
		if err != nil {
			return err
		}
		return printMutations(dead)
	}),
}

var retryCmd = &cobra.Command{
	Use:   "retry <localID>",
	Short: "Put a dead-lettered mutation back at the end of the queue",
	Args:  cobra.ExactArgs(1),
	RunE: withDevice(func(ctx context.Context, d *device, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("local id %q: %w", args[0], game.ErrValidation)
		}
		m, err := d.store.Requeue(ctx, id)
		if err != nil {
			return err
		}
		fmt.Printf("Requeued %s mutation %s as #%d\n", m.Type, m.MutationID, m.LocalID)
		return drainOnce(ctx, d)
	}),
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push every queued mutation to the server now",
	RunE: withDevice(func(ctx context.Context, d *device, args []string) error {
		return drainOnce(ctx, d)
	}),
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep syncing in the background until interrupted",
	RunE: withDevice(func(ctx context.Context, d *device, args []string) error {
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		d.engine.OnDrain = func(ctx context.Context, r courtsync.Result) {
			printResult(r)
		}
		err := d.engine.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}),
}

func withDevice(run func(ctx context.Context, d *device, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		d, err := openDevice()
		if err != nil {
			return err
		}
		defer d.Close()
		return run(cmd.Context(), d, args)
	}
}

// recordAndSync queues the mutation first so it survives a failed send,
// then tries to deliver it straight away.
func recordAndSync(ctx context.Context, d *device, gameID string, typ localstore.MutationType, payload any) error {
	m, err := d.engine.Record(ctx, gameID, typ, payload)
	if err != nil {
		return err
	}
	fmt.Printf("Queued %s mutation #%d (%s)\n", typ, m.LocalID, m.MutationID)
	return drainOnce(ctx, d)
}

func drainOnce(ctx context.Context, d *device) error {
	result, err := d.engine.Drain(ctx)
	printResult(result)
	if err != nil {
		fmt.Printf("Sync stopped, mutations stay queued: %v\n", err)
	}
	status, err := d.engine.Status(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Pending: %d  Dead-lettered: %d  Online: %t\n", status.Pending, status.DeadLettered, status.Online)
	return nil
}

func printResult(r courtsync.Result) {
	fmt.Printf("Delivered: %d  Failed: %d  Dead-lettered: %d\n", r.Delivered, r.Failed, r.DeadLettered)
}

func printMutations(mutations []localstore.PendingMutation) error {
	if len(mutations) == 0 {
		fmt.Println("Nothing queued.")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "#\tGAME\tTYPE\tATTEMPTS\tPAYLOAD\tLAST ERROR")
	for _, m := range mutations {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%s\n", m.LocalID, m.GameID, m.Type, m.Attempts, describe(m), m.LastError)
	}
	return w.Flush()
}

// describe renders the payload as JSON for display.
func describe(m localstore.PendingMutation) string {
	var v map[string]any
	if err := m.Decode(&v); err != nil {
		return "?"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "?"
	}
	return string(b)
}

func performGetRequest(endpoint string) error {
	url := cfg.Server + endpoint
	fmt.Printf("Making request to %s\n", url)

	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	fmt.Printf("Status Code: %d\n", resp.StatusCode)
	fmt.Println("Response Body:")
	fmt.Println(string(body))

	return nil
}
