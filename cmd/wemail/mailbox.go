package main

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/emersion/go-mbox"

	"github.com/wemail/cli/pkgs/draft"
	"github.com/wemail/cli/pkgs/maildir"
	"github.com/wemail/cli/pkgs/message"
	"github.com/wemail/cli/pkgs/remote"
)

// displayHeaders is the limited header set shown by read without
// --all-headers.
var displayHeaders = []string{"From", "To", "CC", "Reply-to", "List-Id", "Date", "Subject"}

// pluralSuffix pluralizes message counts: empty for exactly one.
func pluralSuffix(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func newMessageLine(n int) string {
	return fmt.Sprintf("%d new message%s.", n, pluralSuffix(n))
}

func (e *env) handleCheck() error {
	count, err := e.md.CheckNew()
	if err != nil {
		return err
	}
	fmt.Println(newMessageLine(count))
	return nil
}

func (e *env) handleFetch() error {
	if e.cfg.IMAP == nil {
		fmt.Println("No IMAP account configured.")
		return nil
	}
	count, err := remote.NewFetcher(*e.cfg.IMAP).FetchNew(e.md)
	if err != nil {
		return err
	}
	fmt.Printf("Fetched %d message%s into new.\n", count, pluralSuffix(count))
	return nil
}

func (e *env) handleImport(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("an mbox file is required")
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	mr := mbox.NewReader(f)
	count := 0
	for {
		msg, err := mr.NextMessage()
		if err == io.EOF {
			break
		} else if err != nil {
			return fmt.Errorf("reading mbox message: %w", err)
		}
		if _, err := e.md.DeliverNew(msg); err != nil {
			return err
		}
		count++
	}
	fmt.Printf("Imported %d message%s into new.\n", count, pluralSuffix(count))
	return nil
}

func (e *env) handleList() error {
	files, err := e.md.ListSorted(maildir.FolderCur)
	if err != nil {
		return err
	}
	for i, f := range files {
		dateStr := fmt.Sprintf("%-16s", "Unknown")
		sender, subject := "", ""
		if m, err := message.ReadFile(f.Path); err == nil {
			if d := message.HeaderDate(m.Header); d.Status == message.DateParsed {
				dateStr = d.Time.Format("2006-01-02 15:04")
			}
			sender = m.Header.Get("From")
			if sender == "" {
				sender = m.Header.Get("Sender")
			}
			subject = m.Subject()
		}
		fmt.Printf("%2d. %s - %s - %s\n", i+1, dateStr, sender, subject)
	}
	return nil
}

func (e *env) handleRead(f readFlags) error {
	file, err := e.md.ByNumber(maildir.FolderCur, f.number)
	if err != nil {
		if reportNotFound(err, strconv.Itoa(f.number)) {
			return nil
		}
		return err
	}
	m, err := message.ReadFile(file.Path)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp("", "wemail-*.eml")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if f.allHeaders {
		raw := m.Bytes()
		if idx := strings.Index(string(raw), "\n\n"); idx >= 0 {
			tmp.Write(raw[:idx])
		} else {
			tmp.Write(raw)
		}
	} else {
		for _, key := range displayHeaders {
			if v := m.Header.Get(key); v != "" {
				fmt.Fprintf(tmp, "%s: %s\n", key, v)
			}
		}
	}
	fmt.Fprint(tmp, "\n\n")

	parts, err := m.Parts()
	if err != nil {
		return err
	}
	switch {
	case len(parts) == 0:
		// nothing to show beyond headers
	case len(parts) == 1 && !m.IsMultipart():
		tmp.Write(parts[0].Data)
	default:
		for i, part := range parts {
			fmt.Printf("\t%d. %s\n", i+1, part.ContentType)
		}
		choice := f.part
		if choice == 0 {
			choice = e.cfg.DefaultPart
		}
		for choice < 1 || choice > len(parts) {
			answer, err := e.p.Ask("What part? ")
			if err != nil {
				return err
			}
			if n, convErr := strconv.Atoi(strings.TrimSpace(answer)); convErr == nil {
				choice = n
			}
		}
		tmp.Write(parts[choice-1].Data)
	}

	if err := tmp.Close(); err != nil {
		return err
	}
	return draft.Edit(e.cfg.Editor, maildir.MailFile{Path: tmp.Name()})
}

func (e *env) handleRaw(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("a message number is required")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid message number %q", args[0])
	}
	file, err := e.md.ByNumber(maildir.FolderCur, n)
	if err != nil {
		if reportNotFound(err, args[0]) {
			return nil
		}
		return err
	}
	return draft.Edit(e.cfg.Editor, file)
}

func (e *env) handleSave(f saveFlags) error {
	n, err := strconv.Atoi(f.number)
	if err != nil {
		fmt.Printf("No mail found with number %s\n", f.number)
		return nil
	}
	file, err := e.md.ByNumber(maildir.FolderCur, n)
	if err != nil {
		if reportNotFound(err, f.number) {
			return nil
		}
		return err
	}
	msg, err := e.md.Save(file, f.folder)
	if err != nil {
		if reportNotFound(err, f.number) {
			return nil
		}
		return err
	}
	fmt.Println(msg)
	return nil
}

func (e *env) handleRemove(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("a message number is required")
	}
	return e.handleSave(saveFlags{number: args[0], folder: maildir.FolderTrash})
}

// handleFilter runs the configured external filter commands against
// the folder, stopping at the first one that exits non-zero.
func (e *env) handleFilter(folder string) error {
	if folder == "" {
		folder = maildir.FolderCur
	}
	target := e.md.Path(folder)
	for _, argv := range e.cfg.Filters {
		if len(argv) == 0 {
			continue
		}
		cmd := exec.Command(argv[0], append(argv[1:], target)...)
		if err := cmd.Run(); err != nil {
			break
		}
	}
	return nil
}
