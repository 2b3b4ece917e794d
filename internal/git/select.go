package git

import (
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Mode names how the commits to rewrite are chosen.
type Mode string

const (
	ModeLast  Mode = "last"  // newest N commits
	ModeFirst Mode = "first" // oldest N commits
	ModeAll   Mode = "all"   // every commit on the branch
	ModeHash  Mode = "hash"  // one explicit commit
)

// Target is a symbolic specification of which commits to process.
type Target struct {
	Mode  Mode
	Count int
	Hash  string
}

// Selection is the resolved result: a contiguous first-parent segment
// of the branch, oldest-first, always ending at the branch tip. Selected
// marks the commits that get a new message; the rest are replayed
// unchanged so the rewrite can always land back on the tip.
type Selection struct {
	Branch   string
	Segment  []*object.Commit
	Selected map[plumbing.Hash]bool
	Warnings []string
}

// SelectedCount returns how many commits will get generated messages.
func (s *Selection) SelectedCount() int {
	n := 0
	for _, ok := range s.Selected {
		if ok {
			n++
		}
	}
	return n
}

// FirstParentChain walks from tip along first parents and returns the
// chain oldest-first.
func (r *Repository) FirstParentChain(tip plumbing.Hash) ([]*object.Commit, error) {
	var chain []*object.Commit
	hash := tip
	for {
		commit, err := r.repo.CommitObject(hash)
		if err != nil {
			return nil, fmt.Errorf("failed to read commit %s: %w", hash, err)
		}
		chain = append(chain, commit)
		if commit.NumParents() == 0 {
			break
		}
		hash = commit.ParentHashes[0]
	}
	// reverse to oldest-first
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// Select resolves a target against a branch. Commits that cannot be
// processed (unreachable hash, merge commit under exclusion) are dropped
// with a warning rather than failing the run. Asking for more commits
// than exist yields the full history.
func Select(repo *Repository, branch string, target Target, includeMerges bool) (*Selection, error) {
	tip, err := repo.BranchTip(branch)
	if err != nil {
		return nil, err
	}
	chain, err := repo.FirstParentChain(tip)
	if err != nil {
		return nil, err
	}

	sel := &Selection{
		Branch:   branch,
		Selected: make(map[plumbing.Hash]bool),
	}

	var candidates []*object.Commit
	switch target.Mode {
	case ModeLast:
		n := target.Count
		if n <= 0 || n > len(chain) {
			n = len(chain)
		}
		candidates = chain[len(chain)-n:]
	case ModeFirst:
		n := target.Count
		if n <= 0 || n > len(chain) {
			n = len(chain)
		}
		candidates = chain[:n]
	case ModeAll:
		candidates = chain
	case ModeHash:
		commit, err := repo.ResolveCommit(target.Hash)
		if err != nil {
			sel.Warnings = append(sel.Warnings, fmt.Sprintf("skipping %s: %v", target.Hash, err))
			break
		}
		found := false
		for _, c := range chain {
			if c.Hash == commit.Hash {
				candidates = []*object.Commit{c}
				found = true
				break
			}
		}
		if !found {
			sel.Warnings = append(sel.Warnings,
				fmt.Sprintf("skipping %s: not reachable from %s via first parents", commit.Hash.String()[:7], branch))
		}
	default:
		return nil, fmt.Errorf("unknown selection mode %q", target.Mode)
	}

	seen := make(map[plumbing.Hash]bool)
	for _, c := range candidates {
		if seen[c.Hash] {
			continue
		}
		seen[c.Hash] = true
		if !includeMerges && c.NumParents() > 1 {
			sel.Warnings = append(sel.Warnings,
				fmt.Sprintf("skipping merge commit %s", c.Hash.String()[:7]))
			continue
		}
		sel.Selected[c.Hash] = true
	}

	if len(sel.Selected) == 0 {
		return sel, nil
	}

	// The segment spans from the oldest selected commit through the tip.
	start := 0
	for i, c := range chain {
		if sel.Selected[c.Hash] {
			start = i
			break
		}
	}
	sel.Segment = chain[start:]
	return sel, nil
}
