package core

import (
	"context"
	"net/mail"
	"strings"
)

type (
	EmailMessage struct {
		From        *mail.Address // DefaultFromEmail when nil
		To          []mail.Address
		Cc          []mail.Address
		Bcc         []mail.Address
		Subject     string
		TextContent string
		HTMLContent string
	}

	// EmailService is any service that can deliver emails.
	EmailService interface {
		Send(ctx context.Context, msg *EmailMessage) error
	}
)

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }

// JoinAddresses formats addresses as a comma separated RFC 5322 list.
func JoinAddresses(addrs []mail.Address) string {
	toJoin := make([]string, 0, len(addrs))
	for _, a := range addrs {
		toJoin = append(toJoin, a.String())
	}
	return strings.Join(toJoin, ", ")
}

// SplitAddresses parses a list produced by JoinAddresses. Blank input yields no addresses.
func SplitAddresses(list string) ([]mail.Address, error) {
	if IsBlank(list) {
		return nil, nil
	}
	parsed, err := mail.ParseAddressList(list)
	if err != nil {
		return nil, err
	}
	addrs := make([]mail.Address, 0, len(parsed))
	for _, a := range parsed {
		addrs = append(addrs, *a)
	}
	return addrs, nil
}
