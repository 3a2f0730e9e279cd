package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/neuraloverlay/apex-go-sdk/config"
	"github.com/neuraloverlay/apex-go-sdk/logging"
)

var (
	cfgFile  string
	logLevel string

	cfg    *config.Config
	logger logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "apex",
	Short: "Adversarial content optimization with neural memory",
	Long: `apex runs a generate-critique-refine loop against an LLM to produce
content that clears a quality threshold, learning from past runs through
a pattern memory.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		logger = logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./apex.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(generateCmd)
}
