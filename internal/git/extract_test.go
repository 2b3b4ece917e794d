package git

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractRecordRootCommitDiffsAgainstEmptyTree(t *testing.T) {
	repo, _ := initRepo(t)
	h1 := commitFile(t, repo, "a.txt", "hello\nworld\n", "initial commit\n", 0)

	commit, err := repo.Git().CommitObject(h1)
	require.NoError(t, err)

	record, err := ExtractRecord(repo, commit, 0, 0)
	require.NoError(t, err)

	assert.Equal(t, h1.String(), record.Hash)
	assert.Equal(t, "initial commit", record.Message)
	assert.Equal(t, "Test Author", record.AuthorName)
	assert.Empty(t, record.ParentHashes)
	assert.False(t, record.DiffSummarized)
	assert.Contains(t, record.Diff, "a.txt")
	assert.Contains(t, record.Diff, "+hello")
	assert.Contains(t, record.Diff, "+world")
}

func TestExtractRecordDiffAgainstFirstParent(t *testing.T) {
	repo, _ := initRepo(t)
	commitFile(t, repo, "a.txt", "one\n", "first\n", 0)
	h2 := commitFile(t, repo, "a.txt", "one\ntwo\n", "second\n", 1)

	commit, err := repo.Git().CommitObject(h2)
	require.NoError(t, err)

	record, err := ExtractRecord(repo, commit, 1, 0)
	require.NoError(t, err)

	assert.Contains(t, record.Diff, "+two")
	assert.NotContains(t, record.Diff, "+one\n+two")
	require.Len(t, record.ParentHashes, 1)
}

func TestExtractRecordOversizedDiffBecomesSummary(t *testing.T) {
	repo, _ := initRepo(t)
	big := strings.Repeat("some generated line of code\n", 500)
	h1 := commitFile(t, repo, "generated.txt", big, "add generated file\n", 0)

	commit, err := repo.Git().CommitObject(h1)
	require.NoError(t, err)

	record, err := ExtractRecord(repo, commit, 0, 200)
	require.NoError(t, err)

	assert.True(t, record.DiffSummarized)
	assert.Contains(t, record.Diff, "approximate summary")
	assert.Contains(t, record.Diff, "generated.txt")
	assert.Contains(t, record.Diff, "+500/-0")
	assert.NotContains(t, record.Diff, "some generated line of code")
	assert.Less(t, len(record.Diff), len(big))
	// Summary lines are whole lines, never a mid-line cut of the diff.
	for _, line := range strings.Split(strings.TrimRight(record.Diff, "\n"), "\n") {
		assert.True(t, strings.HasPrefix(line, "-") || strings.HasPrefix(line, "["), "unexpected line %q", line)
	}
}

func TestExtractRecordSmallDiffKeptVerbatim(t *testing.T) {
	repo, _ := initRepo(t)
	h1 := commitFile(t, repo, "a.txt", "hello\n", "initial\n", 0)

	commit, err := repo.Git().CommitObject(h1)
	require.NoError(t, err)

	record, err := ExtractRecord(repo, commit, 0, 100000)
	require.NoError(t, err)
	assert.False(t, record.DiffSummarized)
	assert.Contains(t, record.Diff, "+hello")
}

func TestShortHash(t *testing.T) {
	record := &CommitRecord{Hash: "abcdef1234567890"}
	assert.Equal(t, "abcdef1", record.ShortHash())
}
