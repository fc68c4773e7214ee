package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mssola/useragent"
)

const defaultTTL = 12 * time.Hour

// Manager issues, resolves and revokes sessions.
type Manager struct {
	store  Store
	tokens *Tokens
	ttl    time.Duration
	log    *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithTTL overrides the session lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// NewManager creates a session manager over the given store and token
// service.
func NewManager(store Store, tokens *Tokens, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		tokens: tokens,
		ttl:    defaultTTL,
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start opens a session for an authenticated entity and returns it with its
// bearer token.
func (m *Manager) Start(ctx context.Context, entity uuid.UUID, userAgent, ip string) (Session, string, error) {
	now := time.Now().UTC()
	s := Session{
		ID:        uuid.New(),
		Entity:    entity,
		Device:    deviceSummary(userAgent),
		IPAddress: ip,
		CreatedAt: now,
		LastSeen:  now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.store.Put(ctx, s); err != nil {
		return Session{}, "", fmt.Errorf("start session: %w", err)
	}
	token, err := m.tokens.Issue(s)
	if err != nil {
		return Session{}, "", fmt.Errorf("start session: %w", err)
	}
	m.log.InfoContext(ctx, "session started",
		slog.String("session_id", s.ID.String()),
		slog.String("entity", entity.String()),
		slog.String("device", s.Device),
	)
	return s, token, nil
}

// Resolve validates a bearer token against the store. A token whose session
// was deleted does not resolve, which is how revocation works.
func (m *Manager) Resolve(ctx context.Context, token string) (Session, error) {
	id, entity, err := m.tokens.Validate(token)
	if err != nil {
		return Session{}, err
	}
	s, err := m.store.Get(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if s.Entity != entity {
		return Session{}, fmt.Errorf("session %s: entity mismatch", id)
	}
	if err := m.store.Touch(ctx, id, time.Now().UTC()); err != nil {
		m.log.WarnContext(ctx, "session touch failed",
			slog.String("session_id", id.String()), slog.Any("error", err))
	}
	return s, nil
}

// End revokes a session.
func (m *Manager) End(ctx context.Context, id uuid.UUID) error {
	return m.store.Delete(ctx, id)
}

// Sessions lists an entity's live sessions.
func (m *Manager) Sessions(ctx context.Context, entity uuid.UUID) ([]Session, error) {
	return m.store.ListByEntity(ctx, entity)
}

// deviceSummary condenses a user agent string into a short display label.
func deviceSummary(raw string) string {
	if raw == "" {
		return "unknown"
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	parts := make([]string, 0, 3)
	if name != "" {
		if version != "" {
			name = name + " " + version
		}
		parts = append(parts, name)
	}
	if os := ua.OS(); os != "" {
		parts = append(parts, os)
	}
	if ua.Mobile() {
		parts = append(parts, "mobile")
	}
	if len(parts) == 0 {
		return "unknown"
	}
	return strings.Join(parts, ", ")
}
