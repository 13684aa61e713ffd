package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRaceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "race",
		Short: "Race commands",
	}

	cmd.AddCommand(newRaceQuickmatchCmd())
	cmd.AddCommand(newRaceCreateCmd())
	cmd.AddCommand(newRaceGetCmd())
	cmd.AddCommand(newRaceJoinCmd())
	cmd.AddCommand(newRaceLeaveCmd())
	cmd.AddCommand(newRaceStartCmd())
	cmd.AddCommand(newRaceProgressCmd())
	cmd.AddCommand(newRaceFinishCmd())
	cmd.AddCommand(newRaceStandingsCmd())

	return cmd
}

func newRaceQuickmatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quickmatch",
		Short: "Join the first open public race, or create one",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result JoinResult

			if err := client.Post("/api/v1/races/quickmatch", nil, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newRaceCreateCmd() *cobra.Command {
	var maxPlayers int
	var private bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new race",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{}
			if maxPlayers > 0 {
				req["max_players"] = maxPlayers
			}
			if private {
				req["private"] = true
			}
			var result JoinResult

			if err := client.Post("/api/v1/races", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&maxPlayers, "max-players", 0, "Seat capacity (default server-configured)")
	cmd.Flags().BoolVar(&private, "private", false, "Hide the race from quickmatch")

	return cmd
}

func newRaceGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <code>",
		Short: "Show race state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Race

			if err := client.Get("/api/v1/races/"+args[0], &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newRaceJoinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join <code>",
		Short: "Join a race by room code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result JoinResult

			if err := client.Post("/api/v1/races/"+args[0]+"/join", nil, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newRaceLeaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leave <code>",
		Short: "Leave a race",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Post("/api/v1/races/"+args[0]+"/leave", nil, nil); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage("Left race " + args[0])
			return nil
		},
	}
}

func newRaceStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start <code>",
		Short: "Start the race countdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Race

			if err := client.Post("/api/v1/races/"+args[0]+"/start", nil, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newRaceProgressCmd() *cobra.Command {
	var progress, errors int
	var wpm, accuracy float64

	cmd := &cobra.Command{
		Use:   "progress <code>",
		Short: "Report typing progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{
				"progress": progress,
				"wpm":      wpm,
				"accuracy": accuracy,
				"errors":   errors,
			}

			if err := client.Post("/api/v1/races/"+args[0]+"/progress", req, nil); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage(fmt.Sprintf("Progress %d%% reported", progress))
			return nil
		},
	}

	cmd.Flags().IntVar(&progress, "progress", 0, "Completion percentage (0-100)")
	cmd.Flags().Float64Var(&wpm, "wpm", 0, "Words per minute")
	cmd.Flags().Float64Var(&accuracy, "accuracy", 0, "Accuracy percentage")
	cmd.Flags().IntVar(&errors, "errors", 0, "Error count")
	_ = cmd.MarkFlagRequired("progress")

	return cmd
}

func newRaceFinishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "finish <code>",
		Short: "Signal completion of the paragraph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result FinishResult

			if err := client.Post("/api/v1/races/"+args[0]+"/finish", nil, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newRaceStandingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "standings <code>",
		Short: "Show race standings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result StandingsResult

			if err := client.Get("/api/v1/races/"+args[0]+"/standings", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}
