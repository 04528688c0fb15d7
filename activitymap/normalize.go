package activitymap

import (
	"context"
	"maps"
	"strings"
	"time"

	auth "github.com/goliatone/go-stateless-auth"
)

// MetadataKeyActorKind marks whether the actor acted on its own account.
const MetadataKeyActorKind = "actor_kind"

const (
	ActorKindSelf   = "self"
	ActorKindOther  = "other"
	ActorKindSystem = "system"
)

const (
	defaultChannel    = "auth"
	defaultObjectType = "account"
	defaultActorID    = "system"
)

// Normalized is a transport-agnostic activity shape for downstream systems.
type Normalized struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Option customizes normalization behavior.
type Option func(*normalizeOptions)

type normalizeOptions struct {
	channel       string
	objectType    string
	actorFallback string
	now           func() time.Time
}

// Normalize converts an auth.ActivityEvent into a generic normalized shape.
func Normalize(event auth.ActivityEvent, opts ...Option) Normalized {
	options := defaultNormalizeOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	accountID := blankNil(event.AccountID)
	actorID := firstNonEmpty(
		blankNil(event.ActorID),
		accountID,
		options.actorFallback,
	)

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = options.now().UTC()
	}

	return Normalized{
		ActorID:    actorID,
		Verb:       string(event.EventType),
		ObjectType: options.objectType,
		ObjectID:   accountID,
		Channel:    options.channel,
		Metadata:   normalizeMetadata(event, actorID, accountID),
		OccurredAt: occurredAt,
	}
}

// Sink returns an auth.ActivitySink that hands every event, normalized, to emit.
func Sink(emit func(context.Context, Normalized) error, opts ...Option) auth.ActivitySink {
	return auth.ActivitySinkFunc(func(ctx context.Context, event auth.ActivityEvent) error {
		if emit == nil {
			return nil
		}
		return emit(ctx, Normalize(event, opts...))
	})
}

// WithDefaultChannel sets the default channel for normalized records.
func WithDefaultChannel(channel string) Option {
	return func(opts *normalizeOptions) {
		opts.channel = strings.TrimSpace(channel)
	}
}

// WithDefaultObjectType sets the default object type for normalized records.
func WithDefaultObjectType(objectType string) Option {
	return func(opts *normalizeOptions) {
		opts.objectType = strings.TrimSpace(objectType)
	}
}

// WithActorFallback sets the actor id used when the event names neither an
// actor nor an account.
func WithActorFallback(actorID string) Option {
	return func(opts *normalizeOptions) {
		opts.actorFallback = strings.TrimSpace(actorID)
	}
}

// WithClock sets the clock stamping events that carry no time.
func WithClock(now func() time.Time) Option {
	return func(opts *normalizeOptions) {
		if now != nil {
			opts.now = now
		}
	}
}

func defaultNormalizeOptions() normalizeOptions {
	return normalizeOptions{
		channel:       defaultChannel,
		objectType:    defaultObjectType,
		actorFallback: defaultActorID,
		now:           time.Now,
	}
}

func normalizeMetadata(event auth.ActivityEvent, actorID, accountID string) map[string]any {
	metadata := map[string]any{}
	if len(event.Metadata) > 0 {
		metadata = maps.Clone(event.Metadata)
	}

	if _, exists := metadata[MetadataKeyActorKind]; !exists {
		switch {
		case accountID == "" && blankNil(event.ActorID) == "":
			metadata[MetadataKeyActorKind] = ActorKindSystem
		case actorID == accountID:
			metadata[MetadataKeyActorKind] = ActorKindSelf
		default:
			metadata[MetadataKeyActorKind] = ActorKindOther
		}
	}

	return metadata
}

// blankNil treats the nil uuid as absent.
func blankNil(id string) string {
	id = strings.TrimSpace(id)
	if id == "00000000-0000-0000-0000-000000000000" {
		return ""
	}
	return id
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
