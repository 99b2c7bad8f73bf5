package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/wemail/cli/pkgs/draft"
	"github.com/wemail/cli/pkgs/maildir"
	"github.com/wemail/cli/pkgs/message"
)

func (e *env) handleNew(args []string) error {
	templates, err := draft.Templates(e.cfg.TemplateDir)
	if err != nil || len(templates) == 0 {
		fmt.Printf("No templates. Add some to %s and try again\n", e.cfg.TemplateDir)
		return nil
	}

	for i, t := range templates {
		fmt.Printf("%d. %s\n", i+1, t.Name)
	}

	// A template number given on the command line is tried once; a bad
	// one falls through to the prompt instead of looping forever.
	preset := ""
	if len(args) > 0 {
		preset = args[0]
	}
	var tpl draft.Template
	for {
		choice := preset
		preset = ""
		if choice == "" {
			choice, err = e.p.Ask(fmt.Sprintf("Which template? [1-%d (^C quits)]: ", len(templates)))
			if err != nil {
				return err
			}
		}
		n, convErr := strconv.Atoi(strings.TrimSpace(choice))
		if convErr != nil || n < 1 || n > len(templates) {
			fmt.Printf("Invalid choice %q\n", choice)
			continue
		}
		tpl = templates[n-1]
		break
	}

	file, err := draft.Create(e.md, tpl.Content)
	if err != nil {
		return err
	}
	return e.editAndDispose(file, true)
}

func (e *env) handleReply(f replyFlags, replyAll bool) error {
	file, err := e.resolveMailFile(f.target)
	if err != nil {
		if reportNotFound(err, f.target) {
			return nil
		}
		return err
	}
	m, err := message.ReadFile(file.Path)
	if err != nil {
		return err
	}
	sender, err := message.GetSender(m, e.cfg, e.p)
	if err != nil {
		return err
	}
	reply, err := message.Replyify(m, sender, message.ReplyOptions{
		All:             replyAll,
		KeepAttachments: f.keepAttachments,
	})
	if err != nil {
		return err
	}
	d, err := draft.Create(e.md, string(reply.Bytes()))
	if err != nil {
		return err
	}
	return e.editAndDispose(d, false)
}

func (e *env) handleForward(f replyFlags) error {
	file, err := e.resolveMailFile(f.target)
	if err != nil {
		if reportNotFound(err, f.target) {
			return nil
		}
		return err
	}
	m, err := message.ReadFile(file.Path)
	if err != nil {
		return err
	}
	sender, err := message.GetSender(m, e.cfg, e.p)
	if err != nil {
		return err
	}
	fwd, err := message.Forwardify(m, sender, f.keepAttachments)
	if err != nil {
		return err
	}
	d, err := draft.Create(e.md, string(fwd.Bytes()))
	if err != nil {
		return err
	}
	return e.editAndDispose(d, false)
}

// editAndDispose hands the draft to the editor, then runs the chosen
// disposition. withCountdown adds the abort window before sending a
// freshly composed message.
func (e *env) editAndDispose(file maildir.MailFile, withCountdown bool) error {
	if err := draft.Edit(e.cfg.Editor, file); err != nil {
		return err
	}
	action, err := draft.PromptAction(e.p)
	if err != nil {
		return err
	}

	switch action {
	case draft.ActionSend:
		if withCountdown && !e.sendCountdown() {
			return nil
		}
		staged, err := draft.Queue(e.md, file)
		if err != nil {
			return err
		}
		if err := e.sender().Send(staged); err != nil {
			return err
		}
		if pending, _ := e.md.ListSorted(maildir.FolderOutbox); len(pending) > 0 {
			fmt.Printf("%d emails to send. Run `wemail send_all` to send.\n", len(pending))
		}

	case draft.ActionQueue:
		staged, err := draft.Queue(e.md, file)
		if err != nil {
			return err
		}
		fmt.Printf("Email queued as %s\n", staged.Path)

	case draft.ActionSave:
		saved, err := draft.Save(e.md, file)
		if err != nil {
			return err
		}
		fmt.Printf("Draft saved as %s\n", saved.Path)

	case draft.ActionDiscard:
		if _, err := draft.Discard(e.p, file); err != nil {
			return err
		}
	}
	return nil
}

// sendCountdown gives the operator a short window to abort with ^C.
// Returns true when the send should proceed; on abort the draft is
// left in place.
func (e *env) sendCountdown() bool {
	timeout := e.cfg.AbortTimeout
	if timeout <= 0 {
		return true
	}

	aborted := make(chan struct{}, 1)
	handler := func() {
		select {
		case aborted <- struct{}{}:
		default:
		}
	}
	onInterrupt.Store(&handler)
	defer onInterrupt.Store(nil)

	fmt.Println("^C to cancel sending")
	for sec := timeout; sec > 0; sec-- {
		fmt.Printf("\rSending in %d...", sec)
		select {
		case <-time.After(time.Second):
		case <-aborted:
			fmt.Println("\r^C caught, draft saved.")
			return false
		}
	}
	fmt.Println("\rSending now...")
	return true
}
