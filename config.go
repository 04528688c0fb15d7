package auth

import (
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultAuthTokenTTL is the lifetime of login tokens (ten days).
	DefaultAuthTokenTTL = 864000000 * time.Millisecond
	// DefaultCodeTTL is the lifetime of one-time codes.
	DefaultCodeTTL = 864000000 * time.Millisecond
	// DefaultShortLivedTTL bounds tokens fetched for hand-off to another client.
	DefaultShortLivedTTL = 120000 * time.Millisecond
	// DefaultApplicationURL is the base of links put in mails.
	DefaultApplicationURL = "http://localhost:9000"
	// DefaultTokenHeader is the response header carrying a replacement auth token.
	DefaultTokenHeader = "X-Auth-Token"
	// SecretEnv overrides the secret loaded from a config file.
	SecretEnv = "AUTH_SECRET"
)

// ResetLimitOptions throttles forgot-password requests per email.
type ResetLimitOptions struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// AdminOptions describes the account created on first start.
type AdminOptions struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

type DatabaseOptions struct {
	DSN string `yaml:"dsn"`
}

// Options is the file backed configuration. It implements Config.
type Options struct {
	Secret         string            `yaml:"secret"`
	AuthTokenTTL   time.Duration     `yaml:"auth_token_ttl"`
	CodeTTL        time.Duration     `yaml:"code_ttl"`
	ShortLivedTTL  time.Duration     `yaml:"short_lived_ttl"`
	ApplicationURL string            `yaml:"application_url"`
	TokenHeader    string            `yaml:"token_header"`
	PasswordCost   int               `yaml:"password_cost"`
	ResetLimit     ResetLimitOptions `yaml:"reset_limit"`
	Admin          AdminOptions      `yaml:"admin"`
	Database       DatabaseOptions   `yaml:"database"`
}

// DefaultOptions returns options with every default applied and no secret.
func DefaultOptions() Options {
	return Options{
		AuthTokenTTL:   DefaultAuthTokenTTL,
		CodeTTL:        DefaultCodeTTL,
		ShortLivedTTL:  DefaultShortLivedTTL,
		ApplicationURL: DefaultApplicationURL,
		TokenHeader:    DefaultTokenHeader,
		PasswordCost:   bcrypt.DefaultCost,
		ResetLimit: ResetLimitOptions{
			Requests: 3,
			Window:   time.Hour,
		},
		Database: DatabaseOptions{
			DSN: "file::memory:?cache=shared",
		},
	}
}

// LoadOptions reads YAML from path over the defaults and applies the
// AUTH_SECRET environment override.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return opts, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read config file").
				WithTextCode(TextCodeConfiguration).
				WithMetadata(map[string]any{"path": path})
		}
		if err := yaml.Unmarshal(raw, &opts); err != nil {
			return opts, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to parse config file").
				WithTextCode(TextCodeConfiguration).
				WithMetadata(map[string]any{"path": path})
		}
	}

	if secret := os.Getenv(SecretEnv); secret != "" {
		opts.Secret = secret
	}

	return opts, opts.Validate()
}

// Validate checks the options, failing with ErrConfiguration.
func (o Options) Validate() error {
	err := validation.ValidateStruct(&o,
		validation.Field(&o.Secret, validation.Required, validation.Length(MinSecretLength, 0)),
		validation.Field(&o.AuthTokenTTL, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&o.CodeTTL, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&o.ShortLivedTTL, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&o.ApplicationURL, validation.Required, is.RequestURL),
		validation.Field(&o.TokenHeader, validation.Required),
		validation.Field(&o.PasswordCost, validation.Min(bcrypt.MinCost), validation.Max(bcrypt.MaxCost)),
		validation.Field(&o.ResetLimit),
		validation.Field(&o.Admin),
	)
	if err == nil {
		return nil
	}

	rich := goerrors.FromOzzoValidation(err, "invalid auth configuration")
	rich.Category = ErrConfiguration.Category
	rich.TextCode = TextCodeConfiguration
	rich.Code = ErrConfiguration.Code
	return rich
}

// Validate implements validation.Validatable.
func (r ResetLimitOptions) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Requests, validation.Min(0)),
		validation.Field(&r.Window, validation.When(r.Requests > 0, validation.Required)),
	)
}

// Validate implements validation.Validatable.
func (a AdminOptions) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Email, is.EmailFormat),
		validation.Field(&a.Password, validation.When(a.Email != "", validation.Required)),
	)
}

func (o Options) GetSecret() string { return o.Secret }

func (o Options) GetAuthTokenTTL() time.Duration { return o.AuthTokenTTL }

func (o Options) GetCodeTTL() time.Duration { return o.CodeTTL }

func (o Options) GetShortLivedTTL() time.Duration { return o.ShortLivedTTL }

func (o Options) GetApplicationURL() string { return o.ApplicationURL }

func (o Options) GetTokenHeader() string { return o.TokenHeader }
