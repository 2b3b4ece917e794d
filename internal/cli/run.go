package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"unfck/internal/config"
	"unfck/internal/git"
	"unfck/internal/llm"
	"unfck/internal/pipeline"
	"unfck/internal/prompts"
)

var lastCmd = &cobra.Command{
	Use:   "last [count]",
	Short: "Rewrite the last N commits (default from config)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		count := 0
		if len(args) == 1 {
			var err error
			count, err = strconv.Atoi(args[0])
			if err != nil || count <= 0 {
				return fmt.Errorf("count must be a positive number, got %q", args[0])
			}
		}
		return runRewrite(git.Target{Mode: git.ModeLast, Count: count})
	},
}

var firstCmd = &cobra.Command{
	Use:   "first <count>",
	Short: "Rewrite the first N commits",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		count, err := strconv.Atoi(args[0])
		if err != nil || count <= 0 {
			return fmt.Errorf("count must be a positive number, got %q", args[0])
		}
		return runRewrite(git.Target{Mode: git.ModeFirst, Count: count})
	},
}

var branchCmd = &cobra.Command{
	Use:     "branch",
	Aliases: []string{".", "all"},
	Short:   "Rewrite every commit on the branch",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRewrite(git.Target{Mode: git.ModeAll})
	},
}

var commitCmd = &cobra.Command{
	Use:   "commit <hash>",
	Short: "Rewrite one specific commit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRewrite(git.Target{Mode: git.ModeHash, Hash: args[0]})
	},
}

func init() {
	rootCmd.AddCommand(lastCmd)
	rootCmd.AddCommand(firstCmd)
	rootCmd.AddCommand(branchCmd)
	rootCmd.AddCommand(commitCmd)
}

func runRewrite(target git.Target) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if target.Mode == git.ModeLast && target.Count <= 0 {
		target.Count = cfg.DefaultCommitCount
	}

	repo, err := git.OpenRepo(".")
	if err != nil {
		return fmt.Errorf("not a git repository: %w", err)
	}

	styleName := styleFlag
	if styleName == "" {
		styleName = cfg.Style
	}
	style, err := prompts.ParseStyle(styleName)
	if err != nil {
		return err
	}

	client, err := buildClient(cfg)
	if err != nil {
		return err
	}

	autoApply := justFixIt || cfg.AutoApply

	branches, err := targetBranches(repo)
	if err != nil {
		return err
	}

	dimColor := color.New(color.FgHiBlack)
	warnColor := color.New(color.FgYellow)
	successColor := color.New(color.FgHiGreen)
	errColor := color.New(color.FgHiRed)

	var runErr error
	for _, branch := range branches {
		if len(branches) > 1 {
			fmt.Println()
			color.New(color.FgHiCyan, color.Bold).Printf("  Branch %s\n", branch)
		}

		if !autoApply && !dryRun && cfg.WarnSharedBranches && repo.IsSharedBranch(branch) {
			warnColor.Printf("  Warning: %q is shared with a remote. Rewriting published history\n", branch)
			warnColor.Println("  can cause problems for other developers.")
			prompt := promptui.Prompt{Label: "Continue", IsConfirm: true}
			if _, err := prompt.Run(); err != nil {
				dimColor.Println("  Skipping branch.")
				continue
			}
		}

		opts := pipeline.Options{
			Branch:              branch,
			Target:              target,
			IncludeMerges:       includeMerges || !cfg.SkipMergeCommits,
			Style:               style,
			Rationale:           whyFlag,
			AskWhy:              askWhy || (cfg.AskWhy && !autoApply),
			DryRun:              dryRun,
			StripQuotes:         cfg.RemoveQuotes,
			SkipMeaningful:      cfg.SkipMeaningful,
			MeaningfulMinLength: cfg.MeaningfulMinLength,
			DiffBudget:          cfg.DiffBudget,
			KeepBackup:          keepBackup || cfg.KeepBackup,
		}

		var approver pipeline.Approver
		if autoApply {
			approver = pipeline.AutoApprover{}
			sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
			sp.Suffix = " Generating commit messages..."
			sp.Start()
			opts.OnProgress = func(done, total int) {
				sp.Suffix = fmt.Sprintf(" Generating commit messages... (%d/%d)", done, total)
			}
			result, err := pipeline.Run(ctx, repo, client, approver, opts)
			sp.Stop()
			runErr = reportResult(result, err, runErr)
			continue
		}

		approver = &pipeline.InteractiveApprover{ShowDiff: cfg.ShowDiff}
		result, err := pipeline.Run(ctx, repo, client, approver, opts)
		runErr = reportResult(result, err, runErr)
	}

	if runErr != nil {
		errColor.Fprintln(os.Stderr, "  Run failed: "+runErr.Error())
		return runErr
	}
	successColor.Println("  Done.")
	return nil
}

// reportResult prints one branch's outcome and folds its error into the
// overall run error.
func reportResult(result *pipeline.Result, err error, runErr error) error {
	dimColor := color.New(color.FgHiBlack)
	warnColor := color.New(color.FgYellow)
	successColor := color.New(color.FgHiGreen)

	if result != nil {
		for _, w := range result.Warnings {
			warnColor.Printf("  Warning: %s\n", w)
		}
		for _, c := range result.Commits {
			switch c.Outcome {
			case pipeline.OutcomeRewritten, pipeline.OutcomeEdited:
				successColor.Printf("  %s  %s\n", c.Record.ShortHash(), firstLineOf(c.Record.NewMessage))
			case pipeline.OutcomeFailed:
				warnColor.Printf("  %s  %s\n", c.Record.ShortHash(), c.Warning)
			default:
				msg := "keeping original message"
				if c.Warning != "" {
					msg = c.Warning
				}
				dimColor.Printf("  %s  %s\n", c.Record.ShortHash(), msg)
			}
		}
		if result.DryRun {
			dimColor.Printf("  Dry run: %d message(s) would be rewritten on %s\n", result.Rewritten(), result.Branch)
		} else if result.Rewrite != nil {
			dimColor.Printf("  Rewrote %d message(s) on %s (%s -> %s)\n",
				result.Rewrite.Rewritten, result.Branch,
				result.Rewrite.OldTip[:7], result.Rewrite.NewTip[:7])
			if result.Rewrite.BackupRef != "" {
				dimColor.Printf("  Backup kept at %s\n", result.Rewrite.BackupRef)
			}
		} else if len(result.Commits) > 0 {
			dimColor.Printf("  Nothing to rewrite on %s\n", result.Branch)
		} else {
			dimColor.Printf("  No commits to process on %s\n", result.Branch)
		}
	}

	if err != nil && runErr == nil {
		return err
	}
	return runErr
}

func targetBranches(repo *git.Repository) ([]string, error) {
	if allBranches {
		return repo.Branches()
	}
	if onlyMain {
		names, err := repo.Branches()
		if err != nil {
			return nil, err
		}
		for _, candidate := range []string{"main", "master"} {
			for _, name := range names {
				if name == candidate {
					return []string{candidate}, nil
				}
			}
		}
		return nil, errors.New("no main or master branch found")
	}
	branch, err := repo.CurrentBranch()
	if err != nil {
		return nil, err
	}
	return []string{branch}, nil
}

func buildClient(cfg *config.Config) (llm.Client, error) {
	provider := providerFlag
	if provider == "" {
		provider = cfg.Provider
	}
	model := modelFlag
	if model == "" {
		model = cfg.Model
	}

	llmCfg := llm.Config{Provider: llm.Provider(provider), Model: model}
	switch llmCfg.Provider {
	case llm.ProviderOllama:
		llmCfg.BaseURL = cfg.OllamaBaseURL
		if modelFlag == "" && cfg.OllamaModel != "" {
			llmCfg.Model = cfg.OllamaModel
		}
	default:
		llmCfg.APIKey = cfg.GetAPIKey(provider)
	}

	base, err := llm.NewClient(llmCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w\n\nRun 'unfck configure' to set up a provider", err)
	}
	VerboseLog("using provider %s, model %s", llmCfg.Provider, llmCfg.Model)

	timeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	return llm.NewRetrying(llm.WithTimeout(base, timeout), cfg.MaxRetries), nil
}

func firstLineOf(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
