package filter

import (
	"bytes"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/applylens/inbox-policy/internal/core"
	"github.com/applylens/inbox-policy/internal/whitelist"
	"github.com/google/uuid"
	"github.com/jhillyerd/enmime"
)

// LabelsHeader carries labels already applied by the mailbox provider
const LabelsHeader = "X-Gmail-Labels"

// ParseMessage converts a raw RFC 5322 message into an Email. When the
// message has no usable Date header, fallback is used as ReceivedAt.
func ParseMessage(raw []byte, fallback time.Time) (core.Email, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return core.Email{}, fmt.Errorf("failed to parse MIME message: %w", err)
	}

	id := strings.Trim(strings.TrimSpace(env.GetHeader("Message-ID")), "<>")
	if id == "" {
		id = uuid.NewString()
	}

	receivedAt := fallback
	if date := env.GetHeader("Date"); date != "" {
		if t, err := mail.ParseDate(date); err == nil {
			receivedAt = t
		}
	}

	body := env.Text
	if strings.TrimSpace(body) == "" {
		body = env.HTML
	}

	sender := env.GetHeader("From")
	return core.Email{
		ID:                   id,
		Sender:               sender,
		SenderDomain:         whitelist.DomainOf(sender),
		Subject:              env.GetHeader("Subject"),
		BodyText:             body,
		ReceivedAt:           receivedAt,
		HasUnsubscribeHeader: env.GetHeader("List-Unsubscribe") != "",
		ExistingLabels:       splitLabels(env.GetHeader(LabelsHeader)),
	}, nil
}

func splitLabels(header string) []string {
	var labels []string
	for _, l := range strings.Split(header, ",") {
		if l = strings.TrimSpace(l); l != "" {
			labels = append(labels, l)
		}
	}
	return labels
}
