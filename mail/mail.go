package mail

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	goerrors "github.com/goliatone/go-errors"

	auth "github.com/goliatone/go-stateless-auth"
)

// Message is a rendered mail ready to be sent.
type Message struct {
	To      string
	Subject string
	Body    string
	Link    string
}

// Mailer sends one message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// MailerFunc adapts a function to Mailer.
type MailerFunc func(ctx context.Context, msg Message) error

func (f MailerFunc) Send(ctx context.Context, msg Message) error { return f(ctx, msg) }

// LinkBuilder turns minted codes into links under the application URL.
type LinkBuilder struct {
	base string
}

func NewLinkBuilder(applicationURL string) LinkBuilder {
	return LinkBuilder{base: strings.TrimRight(applicationURL, "/")}
}

// Link returns the link for event.
func (b LinkBuilder) Link(event auth.MailEvent) (string, error) {
	code := url.QueryEscape(event.Code)
	switch event.Purpose {
	case auth.MailVerifyEmail:
		return fmt.Sprintf("%s/users/%s/verification?code=%s", b.base, event.AccountID, code), nil
	case auth.MailForgotPassword:
		return fmt.Sprintf("%s/reset-password?code=%s", b.base, code), nil
	case auth.MailChangeEmail:
		return fmt.Sprintf("%s/users/%s/change-email?code=%s", b.base, event.AccountID, code), nil
	default:
		return "", goerrors.New("unknown mail purpose", goerrors.CategoryBadInput).
			WithTextCode(auth.TextCodeInvalidRequest).
			WithMetadata(map[string]any{"purpose": string(event.Purpose)})
	}
}

var subjects = map[auth.MailPurpose]string{
	auth.MailVerifyEmail:    "Please verify your email",
	auth.MailForgotPassword: "Reset your password",
	auth.MailChangeEmail:    "Confirm your new email",
}

var bodies = map[auth.MailPurpose]string{
	auth.MailVerifyEmail:    "Please verify your email by visiting %s",
	auth.MailForgotPassword: "Use this link to choose a new password: %s",
	auth.MailChangeEmail:    "Confirm the change of your email by visiting %s",
}

// Render builds the message for event.
func (b LinkBuilder) Render(event auth.MailEvent) (Message, error) {
	link, err := b.Link(event)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      event.To,
		Subject: subjects[event.Purpose],
		Body:    fmt.Sprintf(bodies[event.Purpose], link),
		Link:    link,
	}, nil
}

// Dispatcher sends post-commit mail effects. Send failures are logged and
// dropped; they never reach the caller.
type Dispatcher struct {
	links  LinkBuilder
	mailer Mailer
	logger auth.Logger
	async  bool
	wg     sync.WaitGroup
}

var _ auth.EffectDispatcher = (*Dispatcher)(nil)

type Option func(*Dispatcher)

// WithLogger overrides the logger used for send failures.
func WithLogger(logger auth.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithAsync sends every event on its own goroutine. Use Wait to drain them.
func WithAsync(async bool) Option {
	return func(d *Dispatcher) {
		d.async = async
	}
}

func NewDispatcher(applicationURL string, mailer Mailer, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		links:  NewLinkBuilder(applicationURL),
		mailer: mailer,
		logger: defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	if d.mailer == nil {
		d.mailer = LogMailer{Logger: d.logger}
	}
	return d
}

// Dispatch implements auth.EffectDispatcher.
func (d *Dispatcher) Dispatch(ctx context.Context, events ...auth.MailEvent) {
	for _, event := range events {
		if !d.async {
			d.send(ctx, event)
			continue
		}

		d.wg.Add(1)
		go func(event auth.MailEvent) {
			defer d.wg.Done()
			d.send(context.WithoutCancel(ctx), event)
		}(event)
	}
}

// Wait blocks until asynchronous sends finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) send(ctx context.Context, event auth.MailEvent) {
	msg, err := d.links.Render(event)
	if err != nil {
		d.logger.Error("mail %s for %s not rendered: %v", event.Purpose, event.AccountID, err)
		return
	}

	if err := d.mailer.Send(ctx, msg); err != nil {
		d.logger.Error("mail %s to %s failed: %v", event.Purpose, msg.To, err)
		return
	}

	d.logger.Debug("mail %s sent to %s", event.Purpose, msg.To)
}
