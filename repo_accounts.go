package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var accountColumns = []string{
	"email",
	"password_hash",
	"roles",
	"pending_new_email",
	"credentials_fresh_since",
	"version",
	"updated_at",
}

type accounts struct {
	repo repository.Repository[*Account]
	root *bun.DB
	db   bun.IDB
	inTx bool
	now  func() time.Time
}

var _ AccountStore = (*accounts)(nil)

// AccountsOption configures the bun backed account store.
type AccountsOption func(*accounts)

// WithAccountsClock sets the clock used for updated_at stamps.
func WithAccountsClock(now func() time.Time) AccountsOption {
	return func(a *accounts) {
		a.now = normalizeClock(now)
	}
}

// NewAccountStore returns an AccountStore persisting to db. Saves are guarded by
// the version column so a concurrent writer makes the later save fail.
func NewAccountStore(db *bun.DB, opts ...AccountsOption) AccountStore {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(a *Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	store := &accounts{
		repo: repo,
		root: db,
		db:   db,
		now:  time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}

	return store
}

func (a *accounts) withTx(tx bun.Tx) *accounts {
	out := *a
	out.db = tx
	out.inTx = true
	return &out
}

// RunInTx runs fn against a store bound to one transaction. Nested calls reuse
// the outer transaction.
func (a *accounts) RunInTx(ctx context.Context, fn func(ctx context.Context, store AccountStore) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if a.inTx {
		return fn(ctx, a)
	}

	return a.root.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, a.withTx(tx))
	})
}

func (a *accounts) LoadByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	record := &Account{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, a.notFound(err, map[string]any{"id": id.String()})
	}
	return record, nil
}

func (a *accounts) LoadByEmail(ctx context.Context, email string) (*Account, error) {
	email = NormalizeEmail(email)
	record, err := a.repo.GetByIdentifierTx(ctx, a.db, email)
	if err != nil {
		return nil, a.notFound(err, map[string]any{"email": email})
	}
	return record, nil
}

// Create inserts a new account. It fails with ErrConflict when the email is taken.
func (a *accounts) Create(ctx context.Context, account *Account) (*Account, error) {
	account.Email = NormalizeEmail(account.Email)
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	if account.Roles == nil {
		account.Roles = Roles{}
	}
	account.Version = 1

	var created *Account
	err := a.RunInTx(ctx, func(ctx context.Context, store AccountStore) error {
		tx := store.(*accounts)
		if _, err := tx.LoadByEmail(ctx, account.Email); err == nil {
			return ErrConflict.Clone().WithMetadata(map[string]any{"email": account.Email})
		} else if !IsNotFoundError(err) {
			return err
		}

		record, err := tx.repo.CreateTx(ctx, tx.db, account)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create account")
		}
		created = record
		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

// Save writes every mutable column of account if its version still matches the
// stored one, then advances the version.
func (a *accounts) Save(ctx context.Context, account *Account) (*Account, error) {
	expected := account.Version
	next := account.Clone()
	next.Email = NormalizeEmail(next.Email)
	next.PendingNewEmail = NormalizeEmail(next.PendingNewEmail)
	next.Version = expected + 1
	updatedAt := a.now()
	next.UpdatedAt = &updatedAt

	res, err := a.db.NewUpdate().
		Model(next).
		Column(accountColumns...).
		WherePK().
		Where("?TableAlias.version = ?", expected).
		Exec(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to save account")
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to save account")
	}

	if rows == 0 {
		return nil, ErrStaleAccount.Clone().WithMetadata(map[string]any{
			"id":      account.ID.String(),
			"version": expected,
		})
	}

	return next, nil
}

func (a *accounts) notFound(err error, meta map[string]any) error {
	if repository.IsRecordNotFound(err) {
		return ErrNotFound.Clone().WithMetadata(meta)
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load account").WithMetadata(meta)
}
