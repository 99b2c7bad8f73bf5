package main

import (
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"

	flag "github.com/spf13/pflag"

	"github.com/wemail/cli/pkgs/config"
)

const version = "1.0.0"

// app holds global options parsed from the command line.
type app struct {
	configPath string
}

// onInterrupt, when set, handles the next SIGINT instead of the
// default goodbye-and-exit. The send countdown uses it to turn ^C into
// "keep the draft".
var onInterrupt atomic.Pointer[func()]

func watchInterrupts() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	go func() {
		for range ch {
			if h := onInterrupt.Load(); h != nil {
				(*h)()
				continue
			}
			fmt.Println("\n^C caught, bye!")
			os.Exit(0)
		}
	}()
}

func main() {
	a := &app{}

	flag.StringVar(&a.configPath, "config", config.DefaultPath(), "Path to the config file")
	showVersion := flag.Bool("version", false, "Print the version.")
	flag.Usage = printUsage
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	watchInterrupts()

	cmd := args[0]
	cmdArgs := args[1:]

	env, err := newEnv(a.configPath)
	if err != nil {
		fatal("%v", err)
	}

	switch cmd {
	case "new":
		if err := env.handleNew(cmdArgs); err != nil {
			fatal("new: %v", err)
		}
	case "send":
		if err := env.handleSend(cmdArgs); err != nil {
			fatal("send: %v", err)
		}
	case "send_all":
		if err := env.handleSendAll(); err != nil {
			fatal("send_all: %v", err)
		}
	case "check":
		if err := env.handleCheck(); err != nil {
			fatal("check: %v", err)
		}
	case "fetch":
		if err := env.handleFetch(); err != nil {
			fatal("fetch: %v", err)
		}
	case "import":
		if err := env.handleImport(cmdArgs); err != nil {
			fatal("import: %v", err)
		}
	case "reply":
		opts := parseReplyFlags("reply", cmdArgs)
		if err := env.handleReply(opts, false); err != nil {
			fatal("reply: %v", err)
		}
	case "reply_all":
		opts := parseReplyFlags("reply_all", cmdArgs)
		if err := env.handleReply(opts, true); err != nil {
			fatal("reply_all: %v", err)
		}
	case "forward":
		opts := parseReplyFlags("forward", cmdArgs)
		if err := env.handleForward(opts); err != nil {
			fatal("forward: %v", err)
		}
	case "filter":
		folder := ""
		if len(cmdArgs) > 0 {
			folder = cmdArgs[0]
		}
		if err := env.handleFilter(folder); err != nil {
			fatal("filter: %v", err)
		}
	case "update":
		fmt.Printf("wemail v%s is up to date.\n", version)
	case "list":
		if err := env.handleList(); err != nil {
			fatal("list: %v", err)
		}
	case "read":
		opts := parseReadFlags(cmdArgs)
		if err := env.handleRead(opts); err != nil {
			fatal("read: %v", err)
		}
	case "raw":
		if err := env.handleRaw(cmdArgs); err != nil {
			fatal("raw: %v", err)
		}
	case "save":
		opts := parseSaveFlags(cmdArgs)
		if err := env.handleSave(opts); err != nil {
			fatal("save: %v", err)
		}
	case "rm":
		if err := env.handleRemove(cmdArgs); err != nil {
			fatal("rm: %v", err)
		}
	case "help":
		printUsage()
	default:
		fatal("unknown command '%s'", cmd)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `wemail v%s - Maildir-based email client

Usage:
  wemail [--config <path>] <command> [command options]

Commands:
  new [template#]         Create new email from templates
  send <file>             Send a specific email file
  send_all                Send all emails in the outbox
  check                   Move new mail into the current folder
  fetch                   Download unseen mail from IMAP into new/
  import <file.mbox>      Import an mbox file into new/
  reply <n|file>          Reply to reply-to or sender of an email
  reply_all <n|file>      Reply to all recipients of an email
  forward <n|file>        Forward an email
  filter [folder]         Run configured filters against a folder
  update                  Check for updates
  list                    List messages - date, sender, and subject
  read <n>                Read a single message
  raw <n>                 Open the raw message in the editor
  save <n> [--folder F]   Save a message to a folder
  rm <n>                  Move a message to the trash

Global Options:
  --config <path>   Config file (default ~/.wemailrc)
  --version         Print the version.

Reply/Forward Options:
  --keep-attachments     Keep attachments on the new draft

Read Options:
  --all-headers          Show all headers instead of a limited set
  -p, --part <n>         Part of a multipart email to read

Save Options:
  --folder <name>        Target folder (default saved-messages)

Message numbers come from 'list' and may change when mail is checked,
saved, or removed.
`, version)
}
