package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/neuraloverlay/apex-go-sdk/core"
)

var (
	genBrief    string
	genKind     string
	genOwner    string
	genAudience string
	genKeywords []string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Optimize a single task and print the result",
	RunE: func(cmd *cobra.Command, args []string) error {
		if genBrief == "" {
			return fmt.Errorf("--brief is required")
		}

		optimizer, cleanup, err := buildOptimizer(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		task := core.NewTask(genOwner, genKind, genBrief)
		task.Audience = genAudience
		task.Keywords = genKeywords

		result, err := optimizer.Run(cmd.Context(), task)
		if err != nil {
			return err
		}

		logger.Info("generation complete",
			"score", result.Score,
			"accepted", result.Accepted,
			"rounds", result.Rounds,
			"tokens", result.Tokens.Total())

		fmt.Println(result.Content)
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVar(&genBrief, "brief", "", "what to write (required)")
	generateCmd.Flags().StringVar(&genKind, "kind", "article", "content kind")
	generateCmd.Flags().StringVar(&genOwner, "owner", "", "owner namespace for memory")
	generateCmd.Flags().StringVar(&genAudience, "audience", "", "target audience")
	generateCmd.Flags().StringSliceVar(&genKeywords, "keywords", nil, "keywords to include")
}
