package mailparse

import (
	"fmt"
	"io"
	"strings"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/driftmail/driftmail/internal/model"
)

// Parse decodes a raw RFC 822 message stream into an Envelope. Recipient and
// sender come from the address headers; when a header lists several addresses
// only the first is kept. Missing headers fall back to the model defaults and
// a missing text body falls back to the empty string. Parse has no side
// effects; a malformed stream is reported as an error, never stored.
func Parse(r io.Reader) (model.Envelope, error) {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return model.Envelope{}, fmt.Errorf("reading message: %w", err)
	}

	env := model.Envelope{
		To:      model.DefaultRecipient,
		From:    model.DefaultSender,
		Subject: model.DefaultSubject,
	}

	header := mr.Header
	if tos, err := header.AddressList("To"); err == nil && len(tos) > 0 {
		env.To = Normalize(tos[0].Address)
	}
	if froms, err := header.AddressList("From"); err == nil && len(froms) > 0 {
		env.From = Normalize(froms[0].Address)
	}
	if subject, err := header.Subject(); err == nil && subject != "" {
		env.Subject = subject
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return model.Envelope{}, fmt.Errorf("reading message part: %w", err)
		}

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := h.ContentType()
		if !strings.HasPrefix(contentType, "text/plain") {
			continue
		}

		body, err := io.ReadAll(part.Body)
		if err != nil {
			return model.Envelope{}, fmt.Errorf("reading message body: %w", err)
		}
		env.Body = strings.TrimRight(string(body), "\r\n")
		break
	}

	return env, nil
}

// Normalize folds an address into the form used for mailbox bucketing and
// subscription matching.
func Normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
