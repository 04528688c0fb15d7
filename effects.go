package auth

import (
	"context"

	"github.com/google/uuid"
)

// MailPurpose names the kind of mail a post-commit effect asks for.
type MailPurpose string

const (
	MailVerifyEmail    MailPurpose = "verify-email"
	MailForgotPassword MailPurpose = "forgot-password"
	MailChangeEmail    MailPurpose = "change-email"
)

// MailEvent asks the surrounding system to mail code to To once the account
// mutation that produced it has committed.
type MailEvent struct {
	Purpose   MailPurpose
	AccountID uuid.UUID
	To        string
	Code      string
}

// EffectDispatcher delivers post-commit effects. Implementations must not fail
// the caller: a failed send is logged and dropped.
type EffectDispatcher interface {
	Dispatch(ctx context.Context, events ...MailEvent)
}

// EffectDispatcherFunc adapts a function to EffectDispatcher.
type EffectDispatcherFunc func(ctx context.Context, events ...MailEvent)

func (f EffectDispatcherFunc) Dispatch(ctx context.Context, events ...MailEvent) {
	if f != nil {
		f(ctx, events...)
	}
}

// Outcome is what an account operation returns after its transaction committed.
type Outcome struct {
	Account *Account
	// AuthToken is a replacement login token for the account, when one was minted.
	AuthToken string
	// Effects are mails to send now that the mutation is durable.
	Effects []MailEvent
}

// Dispatch hands the outcome's effects to d. Callers invoke it after their own
// commit; the account mutation is never undone by a failed send.
func (o *Outcome) Dispatch(ctx context.Context, d EffectDispatcher) {
	if o == nil || d == nil || len(o.Effects) == 0 {
		return
	}
	d.Dispatch(ctx, o.Effects...)
}
