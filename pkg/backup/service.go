// Package backup commits the sqlite database file to a git repository on a
// schedule. Consecutive auto-backup commits are merged by amending the
// previous one, so the backup branch keeps one commit per contiguous
// backup window instead of one per hour.
package backup

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const (
	CommitPrefix   = "[DB-AUTO-BACKUP]"
	datetimeFormat = "2006-01-02T15:04:05"
)

var rangeRe = regexp.MustCompile(
	`(?P<start>\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2})-(?P<end>\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2})`)

// Runner executes a command and returns its trimmed stdout.
type Runner interface {
	Run(name string, args ...string) (string, error)
}

type execRunner struct {
	dir string
}

func (r *execRunner) Run(name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = r.dir
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("command %s %v failed: %s", name, args, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("command %s %v failed: %w", name, args, err)
	}
	return strings.TrimSpace(string(out)), nil
}

type Service struct {
	runner  Runner
	repoDir string
	branch  string
	file    string // db file path relative to repoDir
}

func NewService(repoDir, branch, file string) *Service {
	return &Service{
		runner:  &execRunner{dir: repoDir},
		repoDir: repoDir,
		branch:  branch,
		file:    file,
	}
}

type action uint8

const (
	actionNone action = iota
	actionCommit
	actionAmend
)

// decideAction is the backup state machine. No diff means nothing to do.
// When HEAD is itself an auto-backup commit its start bound is kept and the
// commit is amended; anything else gets a fresh commit.
func decideAction(diff, headSubject string, now string) (action, string) {
	if diff == "" {
		return actionNone, ""
	}
	if strings.HasPrefix(headSubject, CommitPrefix) {
		if start, ok := ParseStartFromCommit(headSubject); ok {
			return actionAmend, start
		}
	}
	return actionCommit, now
}

// ParseStartFromCommit returns the start timestamp of an auto-backup
// commit subject, if the subject matches the backup range pattern.
func ParseStartFromCommit(subject string) (string, bool) {
	match := rangeRe.FindStringSubmatch(subject)
	if match == nil {
		return "", false
	}
	return match[1], true
}

func FormatTime(t time.Time) string {
	return t.Format(datetimeFormat)
}

// CommitIfChanged commits the db file when it changed since HEAD, merging
// into the previous auto-backup commit where possible, then pushes and
// refreshes the local .bk copy.
func (s *Service) CommitIfChanged(now time.Time) error {
	diff, err := s.runner.Run("git", "diff", s.file)
	if err != nil {
		return err
	}

	headSubject, err := s.runner.Run("git", "log", "-1", "--pretty=%s")
	if err != nil {
		log.Println("Unable to read last commit; creating a new backup commit.")
		headSubject = ""
	}

	nowStr := FormatTime(now)
	act, start := decideAction(diff, headSubject, nowStr)
	if act == actionNone {
		log.Println("No changes. Skipping commit.")
		return nil
	}

	if _, err := s.runner.Run("git", "add", s.file); err != nil {
		return err
	}

	commitMessage := fmt.Sprintf("%s %s-%s", CommitPrefix, start, nowStr)
	switch act {
	case actionAmend:
		if _, err := s.runner.Run("git", "commit", "--amend", "-m", commitMessage); err != nil {
			return err
		}
		if _, err := s.runner.Run("git", "push", "--force", "origin", s.branch); err != nil {
			return err
		}
		log.Printf("Changes amended to auto-backup commit with bounds %s-%s.", start, nowStr)
	case actionCommit:
		if _, err := s.runner.Run("git", "commit", "-m", commitMessage); err != nil {
			return err
		}
		if _, err := s.runner.Run("git", "push", "origin", s.branch); err != nil {
			return err
		}
		log.Printf("New auto-backup commit created with bounds %s-%s.", start, nowStr)
	}

	return s.copyBackupFile()
}

// copyBackupFile keeps a .bk sibling of the last pushed database state.
func (s *Service) copyBackupFile() error {
	src := filepath.Join(s.repoDir, s.file)
	dst := src + ".bk"

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
