package git

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

func testSignature(offset int) *object.Signature {
	return &object.Signature{
		Name:  "Test Author",
		Email: "author@example.com",
		When:  time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(offset) * time.Minute),
	}
}

// initRepo creates a plain repository in a temp dir. PlainInit's default
// branch is master.
func initRepo(t *testing.T) (*Repository, string) {
	t.Helper()
	dir := t.TempDir()
	_, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)
	repo, err := OpenRepo(dir)
	require.NoError(t, err)
	return repo, dir
}

func commitFile(t *testing.T, repo *Repository, name, content, message string, offset int) plumbing.Hash {
	t.Helper()
	wt, err := repo.Git().Worktree()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(repo.Path(), name), []byte(content), 0644))
	_, err = wt.Add(name)
	require.NoError(t, err)
	sig := testSignature(offset)
	hash, err := wt.Commit(message, &gogit.CommitOptions{Author: sig, Committer: sig})
	require.NoError(t, err)
	return hash
}

// writeMergeCommit fabricates a merge commit on top of the branch tip
// with an extra side parent, reusing the tip's tree.
func writeMergeCommit(t *testing.T, repo *Repository, message string, offset int) plumbing.Hash {
	t.Helper()
	raw := repo.Git()

	head, err := raw.Head()
	require.NoError(t, err)
	tip, err := raw.CommitObject(head.Hash())
	require.NoError(t, err)

	sig := testSignature(offset)
	side := &object.Commit{
		Author:       *sig,
		Committer:    *sig,
		Message:      "side branch work\n",
		TreeHash:     tip.TreeHash,
		ParentHashes: tip.ParentHashes,
	}
	sideHash := writeCommitObject(t, repo, side)

	merge := &object.Commit{
		Author:       *sig,
		Committer:    *sig,
		Message:      message,
		TreeHash:     tip.TreeHash,
		ParentHashes: []plumbing.Hash{tip.Hash, sideHash},
	}
	mergeHash := writeCommitObject(t, repo, merge)

	require.NoError(t, raw.Storer.SetReference(plumbing.NewHashReference(head.Name(), mergeHash)))
	return mergeHash
}

func writeCommitObject(t *testing.T, repo *Repository, commit *object.Commit) plumbing.Hash {
	t.Helper()
	obj := repo.Git().Storer.NewEncodedObject()
	require.NoError(t, commit.Encode(obj))
	hash, err := repo.Git().Storer.SetEncodedObject(obj)
	require.NoError(t, err)
	return hash
}

func branchTip(t *testing.T, repo *Repository, branch string) plumbing.Hash {
	t.Helper()
	tip, err := repo.BranchTip(branch)
	require.NoError(t, err)
	return tip
}

func TestOpenRepoNotARepo(t *testing.T) {
	_, err := OpenRepo(t.TempDir())
	require.Error(t, err)
}

func TestCurrentBranchAndIsClean(t *testing.T) {
	repo, _ := initRepo(t)
	commitFile(t, repo, "a.txt", "hello\n", "initial commit\n", 0)

	branch, err := repo.CurrentBranch()
	require.NoError(t, err)
	require.Equal(t, "master", branch)

	clean, err := repo.IsClean()
	require.NoError(t, err)
	require.True(t, clean)

	require.NoError(t, os.WriteFile(filepath.Join(repo.Path(), "a.txt"), []byte("changed\n"), 0644))
	clean, err = repo.IsClean()
	require.NoError(t, err)
	require.False(t, clean)
}

func TestIsCleanDetectsUntrackedFiles(t *testing.T) {
	repo, _ := initRepo(t)
	commitFile(t, repo, "a.txt", "hello\n", "initial commit\n", 0)

	require.NoError(t, os.WriteFile(filepath.Join(repo.Path(), "new.txt"), []byte("untracked\n"), 0644))
	clean, err := repo.IsClean()
	require.NoError(t, err)
	require.False(t, clean)
}

func TestFirstParentChainOldestFirst(t *testing.T) {
	repo, _ := initRepo(t)
	h1 := commitFile(t, repo, "a.txt", "one\n", "first\n", 0)
	h2 := commitFile(t, repo, "b.txt", "two\n", "second\n", 1)
	h3 := commitFile(t, repo, "c.txt", "three\n", "third\n", 2)

	chain, err := repo.FirstParentChain(h3)
	require.NoError(t, err)
	require.Len(t, chain, 3)
	require.Equal(t, h1, chain[0].Hash)
	require.Equal(t, h2, chain[1].Hash)
	require.Equal(t, h3, chain[2].Hash)
}
