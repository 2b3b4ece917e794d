package git

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing/object"
)

// CommitRecord is the per-commit input to message generation. It is
// materialized once at the start of a run and read-only afterwards,
// except for NewMessage which the approval flow fills in.
type CommitRecord struct {
	Hash           string
	Ordinal        int
	Message        string
	AuthorName     string
	AuthorEmail    string
	When           time.Time
	ParentHashes   []string
	Diff           string
	DiffSummarized bool

	NewMessage string
}

// ShortHash returns the abbreviated commit identifier for display.
func (r *CommitRecord) ShortHash() string {
	if len(r.Hash) < 7 {
		return r.Hash
	}
	return r.Hash[:7]
}

// ExtractRecord reads a commit's message, authorship and diff against
// its first parent (root commits diff against the empty tree). A diff
// larger than budget characters is replaced by a labeled structural
// summary so the prompt stays within bounds; budget <= 0 disables the
// limit.
func ExtractRecord(repo *Repository, commit *object.Commit, ordinal, budget int) (*CommitRecord, error) {
	record := &CommitRecord{
		Hash:        commit.Hash.String(),
		Ordinal:     ordinal,
		Message:     strings.TrimRight(commit.Message, "\n"),
		AuthorName:  commit.Author.Name,
		AuthorEmail: commit.Author.Email,
		When:        commit.Author.When,
	}
	for _, p := range commit.ParentHashes {
		record.ParentHashes = append(record.ParentHashes, p.String())
	}

	changes, err := diffAgainstFirstParent(commit)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	for _, change := range changes {
		patch, err := change.Patch()
		if err != nil || patch == nil {
			continue
		}
		sb.WriteString(patch.String())
	}
	diff := sb.String()

	if budget > 0 && len(diff) > budget {
		record.Diff = summarizeChanges(changes, len(diff))
		record.DiffSummarized = true
	} else {
		record.Diff = diff
	}

	return record, nil
}

func diffAgainstFirstParent(commit *object.Commit) (object.Changes, error) {
	commitTree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to read tree for %s: %w", commit.Hash, err)
	}

	var parentTree *object.Tree
	if commit.NumParents() > 0 {
		parent, err := commit.Parent(0)
		if err != nil {
			return nil, fmt.Errorf("failed to read parent of %s: %w", commit.Hash, err)
		}
		parentTree, err = parent.Tree()
		if err != nil {
			return nil, fmt.Errorf("failed to read parent tree for %s: %w", commit.Hash, err)
		}
	}

	changes, err := object.DiffTree(parentTree, commitTree)
	if err != nil {
		return nil, fmt.Errorf("failed to diff %s: %w", commit.Hash, err)
	}
	return changes, nil
}

// summarizeChanges produces a structural stand-in for an oversized
// diff: changed paths with per-file line counts. It is labeled as
// approximate so the model does not treat it as a literal diff.
func summarizeChanges(changes object.Changes, originalLen int) string {
	var sb strings.Builder
	sb.WriteString("[diff too large; approximate summary of changes, not a literal diff]\n")
	for _, change := range changes {
		path := change.To.Name
		if path == "" {
			path = change.From.Name
		}

		verb := "modified"
		switch {
		case change.From.Name == "":
			verb = "added"
		case change.To.Name == "":
			verb = "deleted"
		case change.From.Name != change.To.Name:
			verb = "renamed"
			path = change.From.Name + " -> " + change.To.Name
		}

		additions, deletions := 0, 0
		if patch, err := change.Patch(); err == nil && patch != nil {
			for _, stat := range patch.Stats() {
				additions += stat.Addition
				deletions += stat.Deletion
			}
		}
		fmt.Fprintf(&sb, "- %s %s (+%d/-%d)\n", verb, path, additions, deletions)
	}
	fmt.Fprintf(&sb, "[full diff was %d characters and has been omitted]\n", originalLen)
	return sb.String()
}
