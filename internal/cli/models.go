package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"unfck/internal/config"
	"unfck/internal/llm"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models available through OpenRouter",
	RunE:  runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	apiKey := cfg.GetAPIKey("openrouter")
	if apiKey == "" {
		return fmt.Errorf("OpenRouter API key is required; run 'unfck configure' or set OPENROUTER_API_KEY")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := llm.NewOpenRouterClient(apiKey, cfg.Model)
	ids, err := client.Models(ctx)
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}

	dimColor := color.New(color.FgHiBlack)
	fmt.Println()
	color.New(color.FgHiCyan, color.Bold).Printf("  %d models available\n", len(ids))
	fmt.Println()
	for _, id := range ids {
		if id == cfg.Model {
			fmt.Printf("  * %s\n", id)
		} else {
			dimColor.Printf("    %s\n", id)
		}
	}
	fmt.Println()
	return nil
}
