// Package draft manages the scratch file behind a compose, reply or
// forward session: creation from a template or derived message,
// external-editor handoff, and the send/queue/save/discard
// disposition prompt.
package draft

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/wemail/cli/pkgs/maildir"
	"github.com/wemail/cli/pkgs/message"
	"github.com/wemail/cli/pkgs/prompt"
)

// Template is a named seed for new drafts, sourced from the template
// directory.
type Template struct {
	Name    string
	Content string
}

// Templates reads every file in dir as a template. Unreadable entries
// are reported and skipped rather than failing the listing.
func Templates(dir string) ([]Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var templates []Template
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		content, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			fmt.Printf("Failed to read template %s\n", entry.Name())
			continue
		}
		templates = append(templates, Template{Name: entry.Name(), Content: string(content)})
	}
	return templates, nil
}

// Create writes content as a new draft file named
// {timestamp}-{subject-slug}.eml, creating the drafts folder if
// needed. The subject comes from the content's own Subject header.
func Create(md *maildir.Maildir, content string) (maildir.MailFile, error) {
	if err := os.MkdirAll(md.Path(maildir.FolderDrafts), 0o755); err != nil {
		return maildir.MailFile{}, err
	}
	subject := ""
	if m, err := message.Parse([]byte(content)); err == nil {
		subject = m.Subject()
	}
	path := filepath.Join(md.Path(maildir.FolderDrafts), message.Filename(subject, time.Now()))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return maildir.MailFile{}, err
	}
	return maildir.MailFile{Path: path}, nil
}

// Edit opens the draft in the operator's editor and blocks until the
// editor exits. The file on disk is the only communication channel;
// callers re-parse it afterwards.
func Edit(editor string, file maildir.MailFile) error {
	cmd := exec.Command(editor, file.Path)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("editor %s: %w", editor, err)
	}
	return nil
}

// Action is the disposition chosen for an edited draft.
type Action int

const (
	ActionSend Action = iota
	ActionQueue
	ActionSave
	ActionDiscard
)

// PromptAction asks for a disposition until a recognized
// single-character choice is entered.
func PromptAction(p prompt.Prompter) (Action, error) {
	for {
		choice, err := p.Ask("[s]end now, [q]ueue, sa[v]e draft, [d]iscard? ")
		if err != nil {
			return 0, err
		}
		switch strings.ToLower(strings.TrimSpace(choice)) {
		case "s":
			return ActionSend, nil
		case "q":
			return ActionQueue, nil
		case "v":
			return ActionSave, nil
		case "d":
			return ActionDiscard, nil
		default:
			fmt.Printf("%q not a valid input.\n", choice)
		}
	}
}

// Queue stages the draft into the outbox unchanged.
func Queue(md *maildir.Maildir, file maildir.MailFile) (maildir.MailFile, error) {
	return md.Move(file, maildir.FolderOutbox)
}

// Save renames the draft in place under a fresh timestamped name
// derived from its current Subject, and returns the new file.
func Save(md *maildir.Maildir, file maildir.MailFile) (maildir.MailFile, error) {
	subject := ""
	if m, err := message.ReadFile(file.Path); err == nil {
		subject = m.Subject()
	}
	dst := filepath.Join(md.Path(maildir.FolderDrafts), message.Filename(subject, time.Now()))
	if err := os.Rename(file.Path, dst); err != nil {
		return maildir.MailFile{}, err
	}
	return maildir.MailFile{Path: dst}, nil
}

// Discard deletes the draft after interactive confirmation. Any answer
// other than yes keeps the file; the bool reports whether it was
// deleted.
func Discard(p prompt.Prompter, file maildir.MailFile) (bool, error) {
	yes, err := prompt.Confirm(p, "Really delete draft? Cannot be undone! [y/N]: ", false)
	if err != nil {
		return false, err
	}
	if !yes {
		return false, nil
	}
	if err := os.Remove(file.Path); err != nil {
		return false, err
	}
	return true, nil
}
