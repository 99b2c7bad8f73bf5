package message

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/wemail/cli/pkgs/config"
	"github.com/wemail/cli/pkgs/prompt"
)

// ErrNoRecipients is returned when a message names nobody to derive a
// sender identity from.
var ErrNoRecipients = errors.New("message has no recipients")

// GetSender derives the outgoing From identity for a reply or forward
// from the original message's recipient list, so replies come from
// whichever of the operator's addresses received the mail.
//
// With several recipients, the configured sender entries narrow the
// candidates; exactly one match is used directly, several trigger a
// numbered choice prompt that repeats until a valid selection. With a
// single recipient the identity is synthesized from it directly.
func GetSender(m *Message, cfg *config.Config, p prompt.Prompter) (string, error) {
	recipients := m.Recipients()
	if len(recipients) == 0 {
		return "", ErrNoRecipients
	}
	if len(recipients) == 1 {
		if from := cfg.FromFor(recipients[0].Address); from != "" {
			return from, nil
		}
		return displayAddr(recipients[0]), nil
	}

	seen := map[string]bool{}
	var candidates []string
	for _, r := range recipients {
		if _, ok := cfg.Senders[r.Address]; !ok {
			continue
		}
		display := cfg.FromFor(r.Address)
		if display == "" {
			display = displayAddr(r)
		}
		if !seen[display] {
			seen[display] = true
			candidates = append(candidates, display)
		}
	}
	if len(candidates) == 0 {
		// None of the recipients is a configured identity; let the
		// operator pick among the recipients themselves.
		for _, r := range recipients {
			display := displayAddr(r)
			if !seen[display] {
				seen[display] = true
				candidates = append(candidates, display)
			}
		}
	}
	sort.Strings(candidates)
	if len(candidates) == 1 {
		return candidates[0], nil
	}

	fmt.Println("Found multiple possible senders:")
	for i, c := range candidates {
		fmt.Printf("%d. %s\n", i+1, c)
	}
	for {
		choice, err := p.Ask(fmt.Sprintf("Use which address? [1-%d]: ", len(candidates)))
		if err != nil {
			return "", err
		}
		n, convErr := strconv.Atoi(strings.TrimSpace(choice))
		if convErr != nil || n < 1 || n > len(candidates) {
			fmt.Printf("Invalid choice %q\n", choice)
			continue
		}
		return candidates[n-1], nil
	}
}
