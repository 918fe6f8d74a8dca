package mailer

import (
	"context"
	"fmt"

	"bank-ledger-go/internal/models"
)

// Mailer renders an outbox email payload and hands it to a Sender.
type Mailer struct {
	renderer *Renderer
	sender   Sender
	from     string
}

func New(renderer *Renderer, sender Sender, from string) *Mailer {
	return &Mailer{renderer: renderer, sender: sender, from: from}
}

func (m *Mailer) Deliver(ctx context.Context, p models.EmailPayload) error {
	if p.To == "" {
		return fmt.Errorf("email %q has no recipient", p.Subject)
	}
	html, err := m.renderer.Render(p.Template, p.Subject, p.Data)
	if err != nil {
		return err
	}
	return m.sender.Send(ctx, Message{From: m.from, To: p.To, Subject: p.Subject, HTML: html})
}
