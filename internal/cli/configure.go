package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"unfck/internal/config"
	"unfck/internal/llm"
	"unfck/internal/prompts"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Set up provider, model and behavior",
	RunE:  runConfigure,
}

func init() {
	rootCmd.AddCommand(configureCmd)
}

func runConfigure(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	dimColor := color.New(color.FgHiBlack)
	successColor := color.New(color.FgHiGreen)

	items := make([]string, len(llm.AllProviders))
	cursor := 0
	for i, p := range llm.AllProviders {
		items[i] = llm.ProviderDescription(p)
		if string(p) == cfg.Provider {
			cursor = i
		}
	}
	providerPrompt := promptui.Select{
		Label:     "LLM provider",
		Items:     items,
		CursorPos: cursor,
	}
	idx, _, err := providerPrompt.Run()
	if err != nil {
		return fmt.Errorf("cancelled")
	}
	provider := llm.AllProviders[idx]
	cfg.Provider = string(provider)

	if provider != llm.ProviderOllama {
		dimColor.Printf("  API key for %s (leave empty to keep current / use env): ", provider)
		keyBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("failed to read API key: %w", err)
		}
		if key := strings.TrimSpace(string(keyBytes)); key != "" {
			switch provider {
			case llm.ProviderOpenRouter:
				cfg.OpenRouterAPIKey = key
			case llm.ProviderOpenAI:
				cfg.OpenAIAPIKey = key
			case llm.ProviderAnthropic:
				cfg.AnthropicAPIKey = key
			case llm.ProviderGemini:
				cfg.GeminiAPIKey = key
			}
		}
	}

	currentModel := cfg.Model
	if provider == llm.ProviderOllama {
		currentModel = cfg.OllamaModel
	}
	if currentModel == "" {
		currentModel = llm.DefaultModel(provider)
	}
	modelPrompt := promptui.Prompt{Label: "Model", Default: currentModel}
	model, err := modelPrompt.Run()
	if err != nil {
		return fmt.Errorf("cancelled")
	}
	if provider == llm.ProviderOllama {
		cfg.OllamaModel = model
	} else {
		cfg.Model = model
	}

	styleItems := make([]string, len(prompts.AllStyles))
	styleCursor := 0
	for i, s := range prompts.AllStyles {
		styleItems[i] = string(s)
		if string(s) == cfg.Style {
			styleCursor = i
		}
	}
	stylePrompt := promptui.Select{
		Label:     "Message style",
		Items:     styleItems,
		CursorPos: styleCursor,
	}
	_, styleName, err := stylePrompt.Run()
	if err != nil {
		return fmt.Errorf("cancelled")
	}
	cfg.Style = styleName

	if err := cfg.Save(); err != nil {
		return err
	}

	fmt.Println()
	successColor.Println("  Configuration saved to " + config.GetConfigPath())
	return nil
}
