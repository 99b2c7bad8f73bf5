package main

import (
	"fmt"

	"github.com/wemail/cli/pkgs/maildir"
)

func (e *env) handleSend(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("a mail file is required")
	}
	file, err := e.resolveMailFile(args[0])
	if err != nil {
		if reportNotFound(err, args[0]) {
			return nil
		}
		return err
	}
	return e.sender().Send(maildir.MailFile{Path: file.Path})
}

func (e *env) handleSendAll() error {
	return e.sender().SendAll()
}
