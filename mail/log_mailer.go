package mail

import (
	"context"

	auth "github.com/goliatone/go-stateless-auth"
)

// LogMailer writes messages to a logger instead of sending them. It is the
// default Mailer.
type LogMailer struct {
	Logger auth.Logger
}

func (m LogMailer) Send(_ context.Context, msg Message) error {
	logger := m.Logger
	if logger == nil {
		logger = defLogger{}
	}
	logger.Info("to=%s subject=%q link=%s", msg.To, msg.Subject, msg.Link)
	return nil
}
