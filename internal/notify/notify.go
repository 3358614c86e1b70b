// Package notify delivers templated messages to document senders.
package notify

import (
	"context"
	"errors"
	"log/slog"
)

// Template names understood by the messaging gateway.
const (
	TemplateDocumentRejected = "document_rejected"
	TemplateClientSelection  = "client_selection"
)

var ErrNoRecipient = errors.New("recipient has no contact address")

// Message is a templated notification addressed to one recipient.
type Message struct {
	To        string            `json:"to"`
	Template  string            `json:"template"`
	Variables map[string]string `json:"variables"`
}

type Gateway interface {
	Send(ctx context.Context, msg Message) error
}

// LogGateway records messages instead of delivering them.
type LogGateway struct {
	logger *slog.Logger
}

func NewLogGateway(logger *slog.Logger) *LogGateway {
	return &LogGateway{logger: logger}
}

func (g *LogGateway) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}

	g.logger.InfoContext(ctx, "notification",
		"to", msg.To,
		"template", msg.Template,
		"variables", msg.Variables,
	)

	return nil
}
