// Package remote pulls new mail from an IMAP inbox into the local
// maildir. It is a one-shot fetch, not a synchronizer: each unseen
// message is downloaded into new/ and marked seen on the server.
package remote

import (
	"bytes"
	"fmt"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/wemail/cli/pkgs/config"
	"github.com/wemail/cli/pkgs/maildir"
)

// Fetcher downloads mail from one IMAP account.
type Fetcher struct {
	config config.IMAPConfig
	client *imapclient.Client
}

func NewFetcher(cfg config.IMAPConfig) *Fetcher {
	return &Fetcher{config: cfg}
}

func (f *Fetcher) connect() error {
	addr := fmt.Sprintf("%s:%d", f.config.Host, f.config.Port)

	var client *imapclient.Client
	var err error
	if f.config.UseTLS {
		client, err = imapclient.DialTLS(addr, &imapclient.Options{})
	} else if f.config.StartTLS {
		client, err = imapclient.DialStartTLS(addr, &imapclient.Options{})
	} else {
		client, err = imapclient.DialInsecure(addr, &imapclient.Options{})
	}
	if err != nil {
		return fmt.Errorf("connecting to IMAP server %s: %w", addr, err)
	}

	if err := client.Login(f.config.Username, f.config.Password).Wait(); err != nil {
		client.Close()
		return fmt.Errorf("IMAP authentication failed: %w", err)
	}

	f.client = client
	return nil
}

func (f *Fetcher) close() {
	if f.client != nil {
		f.client.Close()
		f.client = nil
	}
}

// FetchNew downloads every unseen message from the configured mailbox
// into the maildir's new folder and marks it seen on the server.
// Returns the number of messages delivered.
func (f *Fetcher) FetchNew(md *maildir.Maildir) (int, error) {
	if err := f.connect(); err != nil {
		return 0, err
	}
	defer f.close()

	mailbox := f.config.Mailbox
	if mailbox == "" {
		mailbox = "INBOX"
	}
	if _, err := f.client.Select(mailbox, nil).Wait(); err != nil {
		return 0, fmt.Errorf("selecting %s: %w", mailbox, err)
	}

	searchData, err := f.client.UIDSearch(&imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
	}, nil).Wait()
	if err != nil {
		return 0, fmt.Errorf("searching for unseen messages: %w", err)
	}
	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return 0, nil
	}

	bodySection := &imap.FetchItemBodySection{Peek: true}
	count := 0
	for _, uid := range uids {
		uidSet := imap.UIDSetNum(uid)
		msgs, err := f.client.Fetch(uidSet, &imap.FetchOptions{
			UID:         true,
			BodySection: []*imap.FetchItemBodySection{bodySection},
		}).Collect()
		if err != nil {
			return count, fmt.Errorf("fetching UID %d: %w", uid, err)
		}
		if len(msgs) == 0 {
			continue
		}
		raw := msgs[0].FindBodySection(bodySection)
		if raw == nil {
			continue
		}
		if _, err := md.DeliverNew(bytes.NewReader(raw)); err != nil {
			return count, fmt.Errorf("delivering UID %d: %w", uid, err)
		}
		count++

		if _, err := f.client.Store(uidSet, &imap.StoreFlags{
			Op:    imap.StoreFlagsAdd,
			Flags: []imap.Flag{imap.FlagSeen},
		}, nil).Collect(); err != nil {
			return count, fmt.Errorf("marking UID %d seen: %w", uid, err)
		}
	}
	return count, nil
}
