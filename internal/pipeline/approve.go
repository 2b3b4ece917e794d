package pipeline

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/fatih/color"
	"github.com/manifoldco/promptui"

	"unfck/internal/git"
)

// Action is the user's verdict on a generated message.
type Action string

const (
	ActionAccept Action = "accept"
	ActionEdit   Action = "edit"
	ActionSkip   Action = "skip"
)

// Decision carries the action and, for edits, the replacement text.
type Decision struct {
	Action  Action
	Message string
}

// Approver decides what happens to each generated message. Review is
// called once per commit, in history order.
type Approver interface {
	Review(record *git.CommitRecord, candidate string) (Decision, error)
}

// RationaleAsker is implemented by approvers that can solicit a shared
// "why" once at the start of a run.
type RationaleAsker interface {
	AskRationale(commitCount int) (string, error)
}

// AutoApprover accepts every non-failed generation without prompting.
type AutoApprover struct{}

func (AutoApprover) Review(_ *git.CommitRecord, candidate string) (Decision, error) {
	return Decision{Action: ActionAccept, Message: candidate}, nil
}

// InteractiveApprover shows original vs. generated message per commit
// and prompts for accept / edit / skip.
type InteractiveApprover struct {
	ShowDiff     bool
	MaxDiffLines int
}

func (a *InteractiveApprover) Review(record *git.CommitRecord, candidate string) (Decision, error) {
	dimColor := color.New(color.FgHiBlack)
	cyanColor := color.New(color.FgHiCyan)
	origColor := color.New(color.FgYellow)
	newColor := color.New(color.FgHiGreen)

	fmt.Println()
	cyanColor.Printf("  Commit %s", record.ShortHash())
	dimColor.Printf("  %s <%s>  %s\n", record.AuthorName, record.AuthorEmail, record.When.Format("2006-01-02"))

	if a.ShowDiff && record.Diff != "" {
		maxLines := a.MaxDiffLines
		if maxLines <= 0 {
			maxLines = 20
		}
		lines := strings.Split(strings.TrimRight(record.Diff, "\n"), "\n")
		shown := lines
		if len(lines) > maxLines {
			shown = lines[:maxLines]
		}
		fmt.Println()
		for _, line := range shown {
			dimColor.Printf("  %s\n", line)
		}
		if len(lines) > maxLines {
			dimColor.Printf("  ... %d more lines ...\n", len(lines)-maxLines)
		}
	}

	fmt.Println()
	origColor.Printf("  Original: %s\n", firstLine(record.Message))
	newColor.Printf("  Improved: %s\n", firstLine(candidate))
	if body := messageBody(candidate); body != "" {
		for _, line := range strings.Split(body, "\n") {
			dimColor.Printf("            %s\n", line)
		}
	}
	fmt.Println()

	prompt := promptui.Select{
		Label: "Apply this message?",
		Items: []string{"Accept", "Edit", "Skip (keep original)"},
	}
	idx, _, err := prompt.Run()
	if err != nil {
		return Decision{}, fmt.Errorf("cancelled")
	}

	switch idx {
	case 0:
		return Decision{Action: ActionAccept, Message: candidate}, nil
	case 1:
		edited, err := editInEditor(candidate)
		if err != nil {
			return Decision{}, err
		}
		return Decision{Action: ActionEdit, Message: edited}, nil
	default:
		return Decision{Action: ActionSkip}, nil
	}
}

func (a *InteractiveApprover) AskRationale(commitCount int) (string, error) {
	label := "Why did you make this change? (optional)"
	if commitCount > 1 {
		label = fmt.Sprintf("Why did you make these %d changes? (optional)", commitCount)
	}
	prompt := promptui.Prompt{Label: label}
	reason, err := prompt.Run()
	if err != nil {
		return "", nil // treat cancel as "no rationale"
	}
	return strings.TrimSpace(reason), nil
}

// editInEditor opens the message in $EDITOR via a temp file, matching
// the usual git commit editing flow.
func editInEditor(message string) (string, error) {
	tmp, err := os.CreateTemp("", "unfck-message-*.txt")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	path := tmp.Name()
	defer os.Remove(path)

	if _, err := tmp.WriteString(message); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	tmp.Close()

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vim"
	}
	cmd := exec.Command(editor, path)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("editor failed: %w", err)
	}

	edited, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read edited message: %w", err)
	}
	return strings.TrimSpace(string(edited)), nil
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}

func messageBody(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return strings.TrimSpace(s[idx+1:])
	}
	return ""
}
