package main

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sw965/tabrl/config"
)

var (
	configPath      string
	gamblerMethod   string
	blackjackMethod string
	cfg             config.Config
)

var (
	rootCmd = &cobra.Command{
		Use:           "tabrl",
		Short:         "Tabular reinforcement learning on small example tasks",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configPath, cmd.Flags())
			if err != nil {
				return err
			}
			zerolog.SetGlobalLevel(cfg.Level())
			log.Debug().Interface("config", cfg).Msg("config-loaded")
			return nil
		},
	}

	gamblerCmd = &cobra.Command{
		Use:   "gambler",
		Short: "Solve the gambler's problem with value iteration, Monte Carlo or Q-learning",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGambler(cmd.OutOrStdout(), gamblerMethod)
		},
	}

	blackjackCmd = &cobra.Command{
		Use:   "blackjack",
		Short: "Learn a blackjack policy with Monte Carlo or Q-learning",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBlackjack(cmd.OutOrStdout(), blackjackMethod)
		},
	}

	jacksCmd = &cobra.Command{
		Use:   "jacks",
		Short: "Solve Jack's Car Rental with value iteration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJacks(cmd.OutOrStdout())
		},
	}

	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cfg.Dump(cmd.OutOrStdout())
		},
	}
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "YAML configuration file")
	pf.Uint64("seed", 1, "random seed")
	pf.String("log-level", "info", "trace, debug, info, warn, error or disabled")
	pf.String("output-dir", "output", "directory for tables and charts")
	pf.Bool("plot", false, "render HTML charts into output-dir")
	pf.Float64("theta", 1e-9, "value iteration convergence threshold")
	pf.Int("max-sweeps", 0, "value iteration sweep limit, 0 for none")
	pf.Float64("epsilon", 0.1, "exploration rate of the behaviour policy, must be > 0 for mc")
	pf.Float64("alpha", 0.1, "Q-learning step size")
	pf.Int("episodes", 100000, "number of episodes")
	pf.Int("max-episode-steps", 100000, "per-episode step limit, 0 for none")

	gamblerCmd.Flags().StringVar(&gamblerMethod, "method", "vi", "vi, mc or ql")
	blackjackCmd.Flags().StringVar(&blackjackMethod, "method", "mc", "mc or ql")

	rootCmd.AddCommand(gamblerCmd, blackjackCmd, jacksCmd, configCmd)
}

func unknownMethod(m string) error {
	return fmt.Errorf("unknown method %q", m)
}

func outputPath(name string) string {
	return filepath.Join(cfg.OutputDir, name)
}
