package backup

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner replays canned outputs and records every command.
type fakeRunner struct {
	outputs  map[string]string
	commands []string
}

func (r *fakeRunner) Run(name string, args ...string) (string, error) {
	cmd := strings.Join(append([]string{name}, args...), " ")
	r.commands = append(r.commands, cmd)
	return r.outputs[cmd], nil
}

func TestParseStartFromCommit(t *testing.T) {
	start, ok := ParseStartFromCommit("[DB-AUTO-BACKUP] 2025-03-10T13:00:00-2025-03-10T15:00:00")
	require.True(t, ok)
	assert.Equal(t, "2025-03-10T13:00:00", start)

	_, ok = ParseStartFromCommit("Add feature X")
	assert.False(t, ok)

	_, ok = ParseStartFromCommit("[DB-AUTO-BACKUP] malformed")
	assert.False(t, ok)
}

func TestDecideAction(t *testing.T) {
	now := "2025-03-10T16:00:00"

	act, _ := decideAction("", "[DB-AUTO-BACKUP] 2025-03-10T13:00:00-2025-03-10T15:00:00", now)
	assert.Equal(t, actionNone, act)

	act, start := decideAction("some diff", "Fix typo in readme", now)
	assert.Equal(t, actionCommit, act)
	assert.Equal(t, now, start)

	// An auto-backup HEAD keeps its original start bound and gets amended.
	act, start = decideAction("some diff", "[DB-AUTO-BACKUP] 2025-03-10T13:00:00-2025-03-10T15:00:00", now)
	assert.Equal(t, actionAmend, act)
	assert.Equal(t, "2025-03-10T13:00:00", start)

	// A backup prefix without a parseable range falls back to a new commit.
	act, start = decideAction("some diff", "[DB-AUTO-BACKUP] manual", now)
	assert.Equal(t, actionCommit, act)
	assert.Equal(t, now, start)
}

func newTestService(t *testing.T, runner Runner) *Service {
	t.Helper()
	repoDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(repoDir, "energy-readings.db"), []byte("db"), 0644))
	return &Service{
		runner:  runner,
		repoDir: repoDir,
		branch:  "main",
		file:    "energy-readings.db",
	}
}

func TestCommitIfChangedSkipsWhenClean(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{
		"git diff energy-readings.db": "",
		"git log -1 --pretty=%s":      "Fix typo",
	}}
	svc := newTestService(t, runner)

	require.NoError(t, svc.CommitIfChanged(time.Date(2025, 3, 10, 16, 0, 0, 0, time.UTC)))

	for _, cmd := range runner.commands {
		assert.NotContains(t, cmd, "commit")
		assert.NotContains(t, cmd, "push")
	}
}

func TestCommitIfChangedCreatesNewCommit(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{
		"git diff energy-readings.db": "binary files differ",
		"git log -1 --pretty=%s":      "Fix typo",
	}}
	svc := newTestService(t, runner)

	now := time.Date(2025, 3, 10, 16, 0, 0, 0, time.UTC)
	require.NoError(t, svc.CommitIfChanged(now))

	assert.Contains(t, runner.commands, "git add energy-readings.db")
	assert.Contains(t, runner.commands,
		"git commit -m [DB-AUTO-BACKUP] 2025-03-10T16:00:00-2025-03-10T16:00:00")
	assert.Contains(t, runner.commands, "git push origin main")

	// The pushed state is mirrored next to the db file.
	_, err := os.Stat(filepath.Join(svc.repoDir, "energy-readings.db.bk"))
	assert.NoError(t, err)
}

func TestCommitIfChangedAmendsPreviousBackup(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{
		"git diff energy-readings.db": "binary files differ",
		"git log -1 --pretty=%s":      "[DB-AUTO-BACKUP] 2025-03-10T13:00:00-2025-03-10T15:00:00",
	}}
	svc := newTestService(t, runner)

	now := time.Date(2025, 3, 10, 16, 0, 0, 0, time.UTC)
	require.NoError(t, svc.CommitIfChanged(now))

	assert.Contains(t, runner.commands,
		"git commit --amend -m [DB-AUTO-BACKUP] 2025-03-10T13:00:00-2025-03-10T16:00:00")
	assert.Contains(t, runner.commands, "git push --force origin main")
}
