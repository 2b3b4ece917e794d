package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"unfck/internal/git"
	"unfck/internal/llm"
	"unfck/internal/prompts"
)

// Outcome describes what happened to one commit's message.
type Outcome string

const (
	OutcomeRewritten Outcome = "rewritten" // generated message accepted
	OutcomeEdited    Outcome = "edited"    // user replaced the generated message
	OutcomeKept      Outcome = "kept"      // original kept (skip, policy, or no change)
	OutcomeFailed    Outcome = "failed"    // generation failed, original kept
)

// CommitResult is the per-commit outcome surfaced to the caller. A
// failed generation never fails the run; it degrades to keeping the
// original message with the warning recorded here.
type CommitResult struct {
	Record  *git.CommitRecord
	Outcome Outcome
	Warning string
}

// Result is the outcome of one pipeline run over one branch.
type Result struct {
	Branch   string
	Commits  []CommitResult
	Warnings []string
	Rewrite  *git.RewriteResult
	DryRun   bool
}

// Rewritten counts commits whose message will change.
func (r *Result) Rewritten() int {
	n := 0
	for _, c := range r.Commits {
		if c.Outcome == OutcomeRewritten || c.Outcome == OutcomeEdited {
			n++
		}
	}
	return n
}

// Options configures one pipeline run.
type Options struct {
	Branch        string // empty = current branch
	Target        git.Target
	IncludeMerges bool

	Style     prompts.Style
	Rationale string
	AskWhy    bool

	DryRun              bool
	StripQuotes         bool
	SkipMeaningful      bool
	MeaningfulMinLength int

	DiffBudget int
	Workers    int
	KeepBackup bool

	OnProgress func(done, total int)
}

// Run executes the full pipeline on one branch: select commits, extract
// changes, generate candidate messages concurrently, gather approvals
// sequentially, and apply the resulting plan in a single rollback-safe
// pass. Generation is the only concurrent phase; the rewrite itself is
// strictly sequential because each replayed commit re-parents the next.
func Run(ctx context.Context, repo *git.Repository, client llm.Client, approver Approver, opts Options) (*Result, error) {
	branch := opts.Branch
	if branch == "" {
		var err error
		branch, err = repo.CurrentBranch()
		if err != nil {
			return nil, err
		}
	}

	sel, err := git.Select(repo, branch, opts.Target, opts.IncludeMerges)
	if err != nil {
		return nil, err
	}

	result := &Result{Branch: branch, Warnings: sel.Warnings, DryRun: opts.DryRun}
	if len(sel.Segment) == 0 {
		return result, nil
	}

	records := make([]*git.CommitRecord, len(sel.Segment))
	selected := make([]bool, len(sel.Segment))
	for i, commit := range sel.Segment {
		record, err := git.ExtractRecord(repo, commit, i, opts.DiffBudget)
		if err != nil {
			return nil, err
		}
		records[i] = record
		selected[i] = sel.Selected[commit.Hash]
	}

	// Quality gate: leave already-meaningful messages untouched.
	for i, record := range records {
		if selected[i] && opts.SkipMeaningful && IsMeaningful(record.Message, opts.MeaningfulMinLength) {
			selected[i] = false
			result.Commits = append(result.Commits, CommitResult{
				Record:  record,
				Outcome: OutcomeKept,
				Warning: "message already meaningful; left unchanged",
			})
		}
	}

	rationale := opts.Rationale
	if opts.AskWhy && rationale == "" {
		if asker, ok := approver.(RationaleAsker); ok {
			count := 0
			for _, s := range selected {
				if s {
					count++
				}
			}
			rationale, err = asker.AskRationale(count)
			if err != nil {
				return nil, err
			}
		}
	}

	candidates, genErrs := generate(ctx, client, records, selected, rationale, opts)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Sequential approval in history order.
	for i, record := range records {
		if !selected[i] {
			continue
		}
		if genErrs[i] != nil {
			warning := fmt.Sprintf("could not generate message: %v", genErrs[i])
			if pe, ok := llm.AsProviderError(genErrs[i]); ok {
				warning = fmt.Sprintf("could not generate message (%s); keeping original", pe.Kind)
			}
			result.Commits = append(result.Commits, CommitResult{
				Record:  record,
				Outcome: OutcomeFailed,
				Warning: warning,
			})
			continue
		}

		decision, err := approver.Review(record, candidates[i])
		if err != nil {
			return nil, err
		}

		switch decision.Action {
		case ActionAccept:
			record.NewMessage = candidates[i]
			result.Commits = append(result.Commits, CommitResult{Record: record, Outcome: OutcomeRewritten})
		case ActionEdit:
			edited, err := llm.Normalize(decision.Message, opts.StripQuotes)
			if err != nil {
				result.Commits = append(result.Commits, CommitResult{
					Record:  record,
					Outcome: OutcomeKept,
					Warning: "edited message was empty; keeping original",
				})
				continue
			}
			record.NewMessage = edited
			result.Commits = append(result.Commits, CommitResult{Record: record, Outcome: OutcomeEdited})
		case ActionSkip:
			result.Commits = append(result.Commits, CommitResult{Record: record, Outcome: OutcomeKept})
		default:
			return nil, fmt.Errorf("unknown approval action %q", decision.Action)
		}
	}

	plan := &git.RewritePlan{Branch: branch}
	for _, record := range records {
		plan.Entries = append(plan.Entries, git.PlanEntry{
			Hash:       record.Hash,
			NewMessage: record.NewMessage,
		})
	}

	if opts.DryRun || !plan.Changed() {
		return result, nil
	}

	rewriter := git.NewRewriter(repo)
	rewrite, err := rewriter.Apply(ctx, plan, git.RewriteOptions{KeepBackup: opts.KeepBackup})
	if err != nil {
		return result, err
	}
	result.Rewrite = rewrite
	return result, nil
}

// generate produces candidate messages for the selected records using a
// bounded worker pool. Distinct commits can generate concurrently since
// generation mutates no shared state.
func generate(ctx context.Context, client llm.Client, records []*git.CommitRecord, selected []bool, rationale string, opts Options) ([]string, []error) {
	candidates := make([]string, len(records))
	genErrs := make([]error, len(records))

	var jobs []int
	for i, s := range selected {
		if s {
			jobs = append(jobs, i)
		}
	}
	if len(jobs) == 0 {
		return candidates, genErrs
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	jobCh := make(chan int, len(jobs))
	var wg sync.WaitGroup
	var done int64

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobCh {
				candidates[i], genErrs[i] = generateOne(ctx, client, records[i], rationale, opts)
				current := atomic.AddInt64(&done, 1)
				if opts.OnProgress != nil {
					opts.OnProgress(int(current), len(jobs))
				}
			}
		}()
	}

	for _, i := range jobs {
		jobCh <- i
	}
	close(jobCh)
	wg.Wait()

	return candidates, genErrs
}

func generateOne(ctx context.Context, client llm.Client, record *git.CommitRecord, rationale string, opts Options) (string, error) {
	prompt, err := prompts.BuildRewritePrompt(record.Diff, record.Message, rationale, opts.Style)
	if err != nil {
		return "", err
	}
	raw, err := client.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	return llm.Normalize(raw, opts.StripQuotes)
}
