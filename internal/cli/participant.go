package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"quiz-sync-service/internal/app"
	"quiz-sync-service/internal/config"
	"quiz-sync-service/internal/polling"
	"github.com/spf13/cobra"
)

// NewJoinCmd joins a quiz from this machine, using its persisted device id.
func NewJoinCmd(configPath *string) *cobra.Command {
	var name, email string
	cmd := &cobra.Command{
		Use:   "join <quizId>",
		Short: "Join a quiz session as a participant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			st, err := openStores(cmd.Context(), cfg, nil)
			if err != nil {
				return err
			}
			defer st.Close()

			joins := app.NewJoinService(st.service)
			res, err := joins.Join(cmd.Context(), app.JoinRequest{
				QuizID:   args[0],
				DeviceID: st.local.DeviceID(),
				Name:     name,
				Email:    email,
				Browser:  "quiz-sync-cli (" + runtime.GOOS + ")",
			})
			if err != nil {
				return err
			}
			if res.Rejoined {
				fmt.Fprintf(cmd.OutOrStdout(), "Welcome back, %s! Your join was updated.\n", res.Participant.Name)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Welcome, %s! Wait for the host to start %s.\n", res.Participant.Name, res.Session.QuizID)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "your name")
	cmd.Flags().StringVar(&email, "email", "", "your email (optional)")
	return cmd
}

// NewWatchCmd polls a session's participants until interrupted.
func NewWatchCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <quizId>",
		Short: "Print the participant list of a session as it changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			st, err := openStores(cmd.Context(), cfg, nil)
			if err != nil {
				return err
			}
			defer st.Close()

			out := cmd.OutOrStdout()
			interval := config.TTLDuration(cfg.Polling.Interval, polling.DefaultInterval)
			poller := polling.NewPoller(st.service, interval, func(s polling.Snapshot) {
				fmt.Fprintf(out, "%s  %d joined:", s.FetchedAt.Format("15:04:05"), len(s.Participants))
				for _, p := range s.Participants {
					fmt.Fprintf(out, " %s(%s)", p.Name, p.Status)
				}
				fmt.Fprintln(out)
			})
			poller.Watch(args[0])
			defer poller.Stop()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()
			return nil
		},
	}
}

// NewResultsCmd lists or clears saved results.
func NewResultsCmd(configPath *string) *cobra.Command {
	var clear bool
	cmd := &cobra.Command{
		Use:   "results",
		Short: "List saved quiz results",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			st, err := openStores(cmd.Context(), cfg, nil)
			if err != nil {
				return err
			}
			defer st.Close()

			if clear {
				if !st.service.ClearResults(cmd.Context()) {
					return fmt.Errorf("results could not be cleared")
				}
				fmt.Fprintln(cmd.OutOrStdout(), "results cleared")
				return nil
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(st.service.GetAllResults(cmd.Context()))
		},
	}
	cmd.Flags().BoolVar(&clear, "clear", false, "delete all saved results")
	return cmd
}
