// Package maildir implements the folder state machine over a
// Maildir-style tree: one file per message, folders as flat
// directories, moves as renames. The files on disk are the single
// source of truth; nothing is cached between operations.
package maildir

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"time"

	"github.com/wemail/cli/pkgs/message"
)

// Fixed folder names. Operator-named save folders live beside these
// and are created on demand.
const (
	FolderNew    = "new"
	FolderCur    = "cur"
	FolderDrafts = "drafts"
	FolderOutbox = "outbox"
	FolderSent   = "sent"
	FolderTrash  = "trash"
)

// ErrNotFound is returned when a message file has disappeared or a
// message number is out of range. Message-number addressing is racy
// against concurrent mailbox mutation, so callers report this as a
// one-line message instead of crashing.
var ErrNotFound = errors.New("no mail found")

// MailFile is one on-disk message.
type MailFile struct {
	Path string
}

// Name returns the file's basename.
func (f MailFile) Name() string {
	return filepath.Base(f.Path)
}

// Maildir is a mailbox root directory.
type Maildir struct {
	Root string
}

func New(root string) *Maildir {
	return &Maildir{Root: root}
}

// Path returns the directory of the named folder.
func (d *Maildir) Path(folder string) string {
	return filepath.Join(d.Root, folder)
}

// EnsureFolders idempotently creates the fixed folder set.
func (d *Maildir) EnsureFolders() error {
	for _, folder := range []string{FolderNew, FolderCur, FolderDrafts, FolderOutbox, FolderSent} {
		if err := os.MkdirAll(d.Path(folder), 0o755); err != nil {
			return fmt.Errorf("creating maildir folder %s: %w", folder, err)
		}
	}
	return nil
}

// sortKey orders a message file by its Date header when present and
// parseable, else by the file's modification time. Parsed dates and
// mtimes both carry an explicit zone, so comparisons are never
// ambiguous.
func sortKey(path string) time.Time {
	if m, err := message.ReadFile(path); err == nil {
		if d := message.HeaderDate(m.Header); d.Status == message.DateParsed {
			return d.Time
		}
	}
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

// ListSorted lists the folder's files ascending by sort key. The
// returned order backs the 1-based message numbers used throughout the
// CLI; numbers are only stable within a single listing snapshot.
func (d *Maildir) ListSorted(folder string) ([]MailFile, error) {
	entries, err := os.ReadDir(d.Path(folder))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var files []MailFile
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			files = append(files, MailFile{Path: filepath.Join(d.Path(folder), entry.Name())})
		}
	}
	sort.SliceStable(files, func(i, j int) bool {
		return sortKey(files[i].Path).Before(sortKey(files[j].Path))
	})
	return files, nil
}

// ByNumber resolves a 1-based message number against a fresh listing
// of the folder. Out-of-range numbers yield ErrNotFound.
func (d *Maildir) ByNumber(folder string, number int) (MailFile, error) {
	if number < 0 {
		number = -number
	}
	files, err := d.ListSorted(folder)
	if err != nil {
		return MailFile{}, err
	}
	if number < 1 || number > len(files) {
		return MailFile{}, ErrNotFound
	}
	return files[number-1], nil
}

// CheckNew moves every file from new into cur and returns the count
// moved. Each move is an atomic rename; a crash mid-loop leaves some
// files moved and some not, but none duplicated or lost.
func (d *Maildir) CheckNew() (int, error) {
	entries, err := os.ReadDir(d.Path(FolderNew))
	if err != nil {
		return 0, err
	}
	count := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		src := filepath.Join(d.Path(FolderNew), entry.Name())
		dst := filepath.Join(d.Path(FolderCur), entry.Name())
		if err := os.Rename(src, dst); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// Move relocates file into folder, creating the folder if absent. The
// file keeps its name. A vanished source maps to ErrNotFound.
func (d *Maildir) Move(file MailFile, folder string) (MailFile, error) {
	if err := os.MkdirAll(d.Path(folder), 0o755); err != nil {
		return MailFile{}, err
	}
	dst := filepath.Join(d.Path(folder), file.Name())
	if err := os.Rename(file.Path, dst); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return MailFile{}, ErrNotFound
		}
		return MailFile{}, err
	}
	return MailFile{Path: dst}, nil
}

// Remove moves file to the trash folder.
func (d *Maildir) Remove(file MailFile) (MailFile, error) {
	return d.Move(file, FolderTrash)
}

// Save moves file into folder and returns a human-readable
// confirmation naming the message's sender and subject.
func (d *Maildir) Save(file MailFile, folder string) (string, error) {
	from, subject := "", ""
	if m, err := message.ReadFile(file.Path); err == nil {
		from = m.Header.Get("From")
		subject = m.Subject()
	}
	if _, err := d.Move(file, folder); err != nil {
		return "", err
	}
	return fmt.Sprintf("Moved message from %s - '%s' to %s.", from, subject, folder), nil
}

var deliveryCounter uint64

// DeliverNew writes a message read from r into the new folder under a
// fresh unique name and returns its path. Names follow the maildir
// convention of timestamp, pid and a random suffix so concurrent
// deliveries never collide; O_EXCL guards against the remaining races.
func (d *Maildir) DeliverNew(r io.Reader) (string, error) {
	if err := os.MkdirAll(d.Path(FolderNew), 0o755); err != nil {
		return "", err
	}
	for {
		path := filepath.Join(d.Path(FolderNew), uniqueName())
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		} else if err != nil {
			return "", err
		}
		if _, err := io.Copy(f, r); err != nil {
			f.Close()
			os.Remove(path)
			return "", err
		}
		if err := f.Close(); err != nil {
			return "", err
		}
		return path, nil
	}
}

func uniqueName() string {
	now := time.Now()
	counter := atomic.AddUint64(&deliveryCounter, 1)
	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}
	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		return fmt.Sprintf("%d.M%dP%d_%d.%s.eml",
			now.Unix(), now.Nanosecond()/1000, os.Getpid(), counter, host)
	}
	return fmt.Sprintf("%d.M%dP%d_%d.%s.%x.eml",
		now.Unix(), now.Nanosecond()/1000, os.Getpid(), counter, host, suffix)
}
