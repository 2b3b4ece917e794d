package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	verbose       bool
	providerFlag  string
	modelFlag     string
	styleFlag     string
	dryRun        bool
	justFixIt     bool
	askWhy        bool
	whyFlag       string
	includeMerges bool
	keepBackup    bool
	allBranches   bool
	onlyMain      bool
)

var rootCmd = &cobra.Command{
	Use:   "unfck",
	Short: "Rewrite your Git commit messages with AI",
	Long: `unfck rewrites the commit messages on a branch by summarizing each
commit's diff with an LLM and replacing the stored message in place.

History is rewritten in a single all-or-nothing pass: a backup reference
is recorded before anything moves, and any failure rolls the branch back
to exactly its pre-run state. Tree content, authorship and timestamps
are always preserved; only messages change.

Examples:
  unfck last 5                  # Review and rewrite the last 5 commits
  unfck last 5 --just-fix-it    # Apply without prompting
  unfck .                       # All commits on the current branch
  unfck commit a1b2c3d          # One specific commit
  unfck last 3 --why "migrating the auth flow to OAuth"`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	pf.StringVar(&providerFlag, "provider", "", "LLM provider override (openrouter, openai, anthropic, ollama, gemini)")
	pf.StringVar(&modelFlag, "model", "", "Model override (e.g. openai/gpt-4o, claude-sonnet-4-5)")
	pf.StringVar(&styleFlag, "style", "", "Message style: concise, descriptive, detailed, conventional")
	pf.BoolVar(&dryRun, "dry-run", false, "Show what would change without rewriting anything")
	pf.BoolVar(&justFixIt, "just-fix-it", false, "Apply every generated message without prompting")
	pf.BoolVar(&askWhy, "ask-why", false, "Ask once for the reason behind these commits")
	pf.StringVar(&whyFlag, "why", "", "Reason behind these commits, passed to the model")
	pf.BoolVar(&includeMerges, "include-merges", false, "Also rewrite merge commit messages")
	pf.BoolVar(&keepBackup, "keep-backup", false, "Keep the backup reference after a successful rewrite")
	pf.BoolVar(&allBranches, "all-branches", false, "Process every local branch")
	pf.BoolVar(&onlyMain, "only-main", false, "Process the main/master branch instead of the current one")
}

func IsVerbose() bool {
	return verbose
}

func VerboseLog(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}
