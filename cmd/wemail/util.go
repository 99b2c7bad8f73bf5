package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	flag "github.com/spf13/pflag"

	"github.com/wemail/cli/pkgs/config"
	"github.com/wemail/cli/pkgs/deliver"
	"github.com/wemail/cli/pkgs/maildir"
	"github.com/wemail/cli/pkgs/prompt"
)

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

// env bundles the loaded config with the handles every command needs.
type env struct {
	cfg *config.Config
	md  *maildir.Maildir
	p   prompt.Prompter
}

func newEnv(configPath string) (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	md := maildir.New(cfg.Maildir)
	if err := md.EnsureFolders(); err != nil {
		return nil, err
	}
	return &env{cfg: cfg, md: md, p: prompt.Default()}, nil
}

func (e *env) sender() *deliver.Sender {
	return &deliver.Sender{Config: e.cfg, Maildir: e.md, Prompter: e.p}
}

// resolveMailFile turns a command argument into a mail file: an
// all-digit argument is a 1-based message number into the sorted cur
// listing, anything else a literal path.
func (e *env) resolveMailFile(arg string) (maildir.MailFile, error) {
	if n, err := strconv.Atoi(arg); err == nil {
		return e.md.ByNumber(maildir.FolderCur, n)
	}
	if _, err := os.Stat(arg); err != nil {
		return maildir.MailFile{}, err
	}
	return maildir.MailFile{Path: arg}, nil
}

// reportNotFound prints the user-facing line for a stale message
// number and reports whether err was that case. Number addressing is
// racy by design; it must never crash.
func reportNotFound(err error, arg string) bool {
	if errors.Is(err, maildir.ErrNotFound) {
		fmt.Printf("No mail found with number %s\n", arg)
		return true
	}
	return false
}

type replyFlags struct {
	target          string
	keepAttachments bool
}

func parseReplyFlags(name string, args []string) replyFlags {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	var f replyFlags
	fs.BoolVar(&f.keepAttachments, "keep-attachments", false, "Keep attachments on the new draft")
	if err := fs.Parse(args); err != nil {
		fatal("%s: %v", name, err)
	}
	if fs.NArg() != 1 {
		fatal("%s: exactly one message number or file is required", name)
	}
	f.target = fs.Arg(0)
	return f
}

type readFlags struct {
	number     int
	allHeaders bool
	part       int
}

func parseReadFlags(args []string) readFlags {
	fs := flag.NewFlagSet("read", flag.ExitOnError)
	var f readFlags
	fs.BoolVar(&f.allHeaders, "all-headers", false, "Show all headers")
	fs.IntVarP(&f.part, "part", "p", 0, "Part of a multipart email to read")
	if err := fs.Parse(args); err != nil {
		fatal("read: %v", err)
	}
	if fs.NArg() != 1 {
		fatal("read: a message number is required")
	}
	n, err := strconv.Atoi(fs.Arg(0))
	if err != nil {
		fatal("read: invalid message number %q", fs.Arg(0))
	}
	f.number = n
	return f
}

type saveFlags struct {
	number string
	folder string
}

func parseSaveFlags(args []string) saveFlags {
	fs := flag.NewFlagSet("save", flag.ExitOnError)
	var f saveFlags
	fs.StringVar(&f.folder, "folder", "saved-messages", "Name of the folder to save to")
	if err := fs.Parse(args); err != nil {
		fatal("save: %v", err)
	}
	if fs.NArg() != 1 {
		fatal("save: a message number is required")
	}
	f.number = fs.Arg(0)
	return f
}
