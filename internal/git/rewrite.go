package git

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/google/uuid"
)

// PlanEntry pairs a commit with its replacement message. An empty
// NewMessage means "keep the original".
type PlanEntry struct {
	Hash       string
	NewMessage string
}

// RewritePlan is the ordered, oldest-first list of commits to replay.
// It must be a contiguous first-parent segment ending at the branch tip;
// Apply re-validates this against the live branch so a branch that moved
// during a long interactive session is rejected instead of corrupted.
type RewritePlan struct {
	Branch  string
	Entries []PlanEntry
}

// Changed reports whether any entry actually substitutes a message.
func (p *RewritePlan) Changed() bool {
	for _, e := range p.Entries {
		if e.NewMessage != "" {
			return true
		}
	}
	return false
}

// State tracks the rewrite state machine.
type State string

const (
	StateIdle        State = "idle"
	StatePreflight   State = "preflight"
	StateBackedUp    State = "backed-up"
	StateApplying    State = "applying"
	StateCommitted   State = "committed"
	StateRollingBack State = "rolling-back"
)

// RewriteOptions controls backup retention.
type RewriteOptions struct {
	KeepBackup bool
}

// RewriteResult reports the outcome of a successful apply.
type RewriteResult struct {
	OldTip    string
	NewTip    string
	BackupRef string
	Rewritten int
}

// Rewriter replays a branch's commit sequence with substituted
// messages. All new commit objects are written before the branch
// reference moves, so the only mutation visible to the rest of the
// repository is a single reference update guarded by a backup ref.
type Rewriter struct {
	repo  *Repository
	state State
}

func NewRewriter(repo *Repository) *Rewriter {
	return &Rewriter{repo: repo, state: StateIdle}
}

func (rw *Rewriter) State() State {
	return rw.state
}

// Apply runs Preflight -> Backed-Up -> Applying -> Committed. Any
// failure or cancellation after backup triggers a verified rollback and
// returns an ApplyError; the branch ends byte-identical to its pre-run
// state.
func (rw *Rewriter) Apply(ctx context.Context, plan *RewritePlan, opts RewriteOptions) (*RewriteResult, error) {
	rw.state = StatePreflight
	defer func() {
		if rw.state != StateCommitted {
			rw.state = StateIdle
		}
	}()

	if len(plan.Entries) == 0 {
		return nil, &PreconditionError{Reason: "empty rewrite plan"}
	}

	clean, err := rw.repo.IsClean()
	if err != nil {
		return nil, &PreconditionError{Reason: fmt.Sprintf("cannot check working tree: %v", err)}
	}
	if !clean {
		return nil, &PreconditionError{Reason: "working tree has uncommitted or untracked changes; commit or stash them first"}
	}

	branchRef := plumbing.NewBranchReferenceName(plan.Branch)
	ref, err := rw.repo.repo.Reference(branchRef, true)
	if err != nil {
		return nil, &PreconditionError{Reason: fmt.Sprintf("cannot resolve branch %q: %v", plan.Branch, err)}
	}
	oldTip := ref.Hash()

	originals, err := rw.validatePlan(plan, oldTip)
	if err != nil {
		return nil, err
	}

	// Backed-Up: record the tip under a recovery reference before any
	// mutation.
	backupName := plumbing.ReferenceName(fmt.Sprintf("refs/unfck/backup/%s-%s",
		plan.Branch, strings.Split(uuid.NewString(), "-")[0]))
	if err := rw.repo.repo.Storer.SetReference(plumbing.NewHashReference(backupName, oldTip)); err != nil {
		return nil, &PreconditionError{Reason: fmt.Sprintf("cannot create backup reference: %v", err)}
	}
	rw.state = StateBackedUp

	rw.state = StateApplying
	newTip, rewritten, applyErr := rw.replay(ctx, plan, originals)
	if applyErr == nil {
		applyErr = rw.verifyReplay(newTip, originals)
	}
	if applyErr == nil {
		applyErr = rw.repo.repo.Storer.SetReference(plumbing.NewHashReference(branchRef, newTip))
	}

	if applyErr != nil {
		rw.state = StateRollingBack
		if rbErr := rw.rollback(branchRef, oldTip); rbErr != nil {
			return nil, &ApplyError{Step: "rollback", BackupRef: backupName.String(),
				Err: fmt.Errorf("%v (rollback also failed: %w)", applyErr, rbErr)}
		}
		return nil, &ApplyError{Step: "replay", BackupRef: backupName.String(), Err: applyErr}
	}

	// Confirm the new tip before letting go of the backup.
	if err := rw.confirmTip(branchRef, newTip, len(plan.Entries)); err != nil {
		rw.state = StateRollingBack
		if rbErr := rw.rollback(branchRef, oldTip); rbErr != nil {
			return nil, &ApplyError{Step: "verify", BackupRef: backupName.String(),
				Err: fmt.Errorf("%v (rollback also failed: %w)", err, rbErr)}
		}
		return nil, &ApplyError{Step: "verify", BackupRef: backupName.String(), Err: err}
	}

	result := &RewriteResult{
		OldTip:    oldTip.String(),
		NewTip:    newTip.String(),
		BackupRef: backupName.String(),
		Rewritten: rewritten,
	}
	if !opts.KeepBackup {
		if err := rw.repo.repo.Storer.RemoveReference(backupName); err == nil {
			result.BackupRef = ""
		}
	}
	rw.state = StateCommitted
	return result, nil
}

// validatePlan checks the plan against the live first-parent chain and
// returns the original commit objects in plan order.
func (rw *Rewriter) validatePlan(plan *RewritePlan, tip plumbing.Hash) ([]*object.Commit, error) {
	chain, err := rw.repo.FirstParentChain(tip)
	if err != nil {
		return nil, &PreconditionError{Reason: fmt.Sprintf("cannot walk branch history: %v", err)}
	}
	if len(plan.Entries) > len(chain) {
		return nil, &PreconditionError{Reason: fmt.Sprintf(
			"plan has %d commits but branch only has %d; branch changed since planning", len(plan.Entries), len(chain))}
	}
	segment := chain[len(chain)-len(plan.Entries):]
	originals := make([]*object.Commit, len(plan.Entries))
	for i, entry := range plan.Entries {
		if segment[i].Hash.String() != entry.Hash {
			return nil, &PreconditionError{Reason: fmt.Sprintf(
				"plan diverges from branch at position %d (plan %s, branch %s); branch changed since planning",
				i, entry.Hash[:7], segment[i].Hash.String()[:7])}
		}
		originals[i] = segment[i]
	}
	return originals, nil
}

// replay writes the substituted commit objects oldest-to-newest. Each
// replayed commit is re-parented onto its replayed predecessor, which
// is why the loop is strictly sequential.
func (rw *Rewriter) replay(ctx context.Context, plan *RewritePlan, originals []*object.Commit) (plumbing.Hash, int, error) {
	var prevOld, prevNew plumbing.Hash
	rewritten := 0

	for i, orig := range originals {
		if err := ctx.Err(); err != nil {
			return plumbing.ZeroHash, rewritten, fmt.Errorf("cancelled at commit %s: %w", orig.Hash.String()[:7], err)
		}

		newMessage := plan.Entries[i].NewMessage
		parents := make([]plumbing.Hash, len(orig.ParentHashes))
		copy(parents, orig.ParentHashes)
		if i > 0 && parents[0] == prevOld {
			parents[0] = prevNew
		}

		messageChanged := newMessage != "" && newMessage != strings.TrimRight(orig.Message, "\n")
		parentsChanged := i > 0 && parents[0] != orig.ParentHashes[0]

		if !messageChanged && !parentsChanged {
			// Identical content hashes to the same object; nothing to write.
			prevOld, prevNew = orig.Hash, orig.Hash
			continue
		}

		// The signature is deliberately not carried over: a changed
		// message or parent invalidates it anyway.
		commit := &object.Commit{
			Author:       orig.Author,
			Committer:    orig.Committer,
			Message:      orig.Message,
			TreeHash:     orig.TreeHash,
			ParentHashes: parents,
			Encoding:     orig.Encoding,
		}
		if messageChanged {
			commit.Message = newMessage + "\n"
			rewritten++
		}

		obj := rw.repo.repo.Storer.NewEncodedObject()
		if err := commit.Encode(obj); err != nil {
			return plumbing.ZeroHash, rewritten, fmt.Errorf("failed to encode commit %s: %w", orig.Hash.String()[:7], err)
		}
		newHash, err := rw.repo.repo.Storer.SetEncodedObject(obj)
		if err != nil {
			return plumbing.ZeroHash, rewritten, fmt.Errorf("failed to write commit %s: %w", orig.Hash.String()[:7], err)
		}

		prevOld, prevNew = orig.Hash, newHash
	}

	return prevNew, rewritten, nil
}

// verifyReplay walks the replayed chain and checks that every commit
// kept its tree, authorship and timestamps.
func (rw *Rewriter) verifyReplay(newTip plumbing.Hash, originals []*object.Commit) error {
	hash := newTip
	for i := len(originals) - 1; i >= 0; i-- {
		commit, err := rw.repo.repo.CommitObject(hash)
		if err != nil {
			return fmt.Errorf("replayed commit %s unreadable: %w", hash.String()[:7], err)
		}
		orig := originals[i]
		if commit.TreeHash != orig.TreeHash {
			return fmt.Errorf("tree mismatch at %s: replay changed content", orig.Hash.String()[:7])
		}
		if !sameSignature(commit.Author, orig.Author) || !sameSignature(commit.Committer, orig.Committer) {
			return fmt.Errorf("authorship mismatch at %s", orig.Hash.String()[:7])
		}
		if commit.NumParents() == 0 {
			if i != 0 || orig.NumParents() != 0 {
				return fmt.Errorf("parent count mismatch at %s", orig.Hash.String()[:7])
			}
			return nil
		}
		hash = commit.ParentHashes[0]
	}
	// The commit below the segment must be untouched.
	if originals[0].NumParents() == 0 || hash != originals[0].ParentHashes[0] {
		return fmt.Errorf("replayed chain does not rejoin original history")
	}
	return nil
}

// sameSignature compares by value; decoded signatures carry distinct
// time.Location pointers, so struct equality would misreport.
func sameSignature(a, b object.Signature) bool {
	return a.Name == b.Name && a.Email == b.Email && a.When.Equal(b.When)
}

func (rw *Rewriter) rollback(branchRef plumbing.ReferenceName, backup plumbing.Hash) error {
	if err := rw.repo.repo.Storer.SetReference(plumbing.NewHashReference(branchRef, backup)); err != nil {
		return fmt.Errorf("failed to restore branch reference: %w", err)
	}
	ref, err := rw.repo.repo.Reference(branchRef, true)
	if err != nil {
		return fmt.Errorf("failed to re-read branch after rollback: %w", err)
	}
	if ref.Hash() != backup {
		return fmt.Errorf("rollback verification failed: branch at %s, expected %s", ref.Hash(), backup)
	}
	return nil
}

func (rw *Rewriter) confirmTip(branchRef plumbing.ReferenceName, newTip plumbing.Hash, planLen int) error {
	ref, err := rw.repo.repo.Reference(branchRef, true)
	if err != nil {
		return fmt.Errorf("failed to re-read branch: %w", err)
	}
	if ref.Hash() != newTip {
		return fmt.Errorf("branch at %s, expected new tip %s", ref.Hash(), newTip)
	}
	count := 0
	hash := newTip
	for count < planLen {
		commit, err := rw.repo.repo.CommitObject(hash)
		if err != nil {
			return fmt.Errorf("new tip not fully reachable: %w", err)
		}
		count++
		if commit.NumParents() == 0 {
			break
		}
		hash = commit.ParentHashes[0]
	}
	if count < planLen {
		return fmt.Errorf("replayed chain has %d commits, plan has %d", count, planLen)
	}
	return nil
}
