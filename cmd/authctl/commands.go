package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	auth "github.com/goliatone/go-stateless-auth"
	"github.com/goliatone/go-stateless-auth/activitymap"
)

func keygenCmd() *cobra.Command {
	var size int

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Print a random secret suitable for AUTH_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := generateSecret(size)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), secret)
			return nil
		},
	}

	cmd.Flags().IntVar(&size, "bytes", 48, "Random bytes before encoding")
	return cmd
}

func generateSecret(size int) (string, error) {
	if size < auth.MinSecretLength {
		size = auth.MinSecretLength
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func issueCmd(g *globals) *cobra.Command {
	var (
		audience string
		subject  string
		ttl      time.Duration
		claims   []string
	)

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Mint a token for an audience and subject",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := g.options()
			if err != nil {
				return err
			}

			tokens, err := auth.NewTokenService([]byte(opts.Secret), auth.WithTokenLogger(g.authLogger()))
			if err != nil {
				return err
			}

			extra, err := parseClaims(claims)
			if err != nil {
				return err
			}

			if ttl <= 0 {
				ttl = opts.AuthTokenTTL
				if auth.Audience(audience) != auth.AudienceAuth {
					ttl = opts.CodeTTL
				}
			}

			token, err := tokens.Issue(auth.Audience(audience), subject, ttl, extra)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVarP(&audience, "audience", "a", string(auth.AudienceAuth), "Token audience")
	cmd.Flags().StringVarP(&subject, "subject", "s", "", "Token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Lifetime, defaults to the configured TTL for the audience")
	cmd.Flags().StringArrayVar(&claims, "claim", nil, "Extra claim as key=value, repeatable")
	_ = cmd.MarkFlagRequired("subject")

	return cmd
}

func parseClaims(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("claim %q is not key=value", pair)
		}
		out[key] = value
	}
	return out, nil
}

func inspectCmd(g *globals) *cobra.Command {
	var audience string

	cmd := &cobra.Command{
		Use:   "inspect <token>",
		Short: "Decode a token, optionally validating it for an audience",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := g.options()
			if err != nil {
				return err
			}

			tokens, err := auth.NewTokenService([]byte(opts.Secret), auth.WithTokenLogger(g.authLogger()))
			if err != nil {
				return err
			}

			mode, claims, err := tokens.Inspect(args[0])
			if err != nil {
				return err
			}

			report := map[string]any{
				"mode":       mode.String(),
				"audience":   claims.Audience,
				"subject":    claims.Subject,
				"issued_at":  time.UnixMilli(claims.IssuedAtMillis).UTC().Format(time.RFC3339Nano),
				"expires_at": time.UnixMilli(claims.ExpiresAtMillis).UTC().Format(time.RFC3339Nano),
				"extra":      claims.Extra,
			}

			if audience != "" {
				if _, err := tokens.Validate(args[0], auth.Audience(audience)); err != nil {
					report["valid"] = false
					report["error"] = err.Error()
				} else {
					report["valid"] = true
				}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}

	cmd.Flags().StringVarP(&audience, "audience", "a", "", "Validate against this audience")
	return cmd
}

func migrateCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the accounts table migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := g.options()
			if err != nil {
				return err
			}

			db, err := openDB(opts.Database.DSN)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := auth.Migrate(cmd.Context(), db); err != nil {
				return err
			}

			g.logger.Info("migrations applied", "dsn", opts.Database.DSN)
			return nil
		},
	}
}

func bootstrapAdminCmd(g *globals) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "bootstrap-admin",
		Short: "Create the first verified admin unless the email is taken",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := g.options()
			if err != nil {
				return err
			}

			if email == "" {
				email = opts.Admin.Email
			}
			if password == "" {
				password = opts.Admin.Password
			}

			db, err := openDB(opts.Database.DSN)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := cmd.Context()
			if err := auth.Migrate(ctx, db); err != nil {
				return err
			}

			service, err := newAccountService(db, opts, g.authLogger(), auditSink(g.logger))
			if err != nil {
				return err
			}

			account, created, err := service.EnsureAdmin(ctx, email, password)
			if err != nil {
				return err
			}

			g.logger.Info("admin account ready",
				"id", account.ID.String(),
				"email", account.Email,
				"created", created)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Admin email, defaults to admin.email")
	cmd.Flags().StringVar(&password, "password", "", "Admin password, defaults to admin.password")
	return cmd
}

func openDB(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

func newAccountService(db *bun.DB, opts auth.Options, logger auth.Logger, activity auth.ActivitySink) (*auth.AccountService, error) {
	tokens, err := auth.NewTokenService([]byte(opts.Secret), auth.WithTokenLogger(logger))
	if err != nil {
		return nil, err
	}

	codes := auth.NewVerificationCodeIssuer(tokens,
		auth.WithCodeTTL(opts.CodeTTL),
		auth.WithVerificationLogger(logger),
	)

	return auth.NewAccountService(
		auth.NewAccountStore(db),
		tokens,
		codes,
		auth.NewBcryptHasher(opts.PasswordCost),
		auth.WithServiceLogger(logger),
		auth.WithActivitySink(activity),
		auth.WithAuthTokenTTL(opts.AuthTokenTTL),
		auth.WithShortLivedTTL(opts.ShortLivedTTL),
		auth.WithResetLimit(opts.ResetLimit.Requests, opts.ResetLimit.Window),
	), nil
}

// auditSink writes account events to logger as structured records.
func auditSink(logger *slog.Logger) auth.ActivitySink {
	if logger == nil {
		logger = slog.Default()
	}
	return activitymap.Sink(func(ctx context.Context, n activitymap.Normalized) error {
		logger.InfoContext(ctx, "activity",
			slog.String("verb", n.Verb),
			slog.String("actor_id", n.ActorID),
			slog.String("object_id", n.ObjectID),
			slog.Any("metadata", n.Metadata),
		)
		return nil
	}, activitymap.WithDefaultChannel("authctl"))
}
