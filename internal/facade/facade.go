// Package facade assembles a running node from its parts. Which parts a node
// gets is data, not type hierarchy: a lookup table keyed by entity kind and
// client/server side decides the storage set and stamps a tag into the vault
// so a later Open can rebuild the same composition.
package facade

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"arx/internal/index"
	"arx/internal/policy"
	"arx/internal/portfolio"
	"arx/internal/vault"
)

var (
	// ErrInvalidRole is returned for a role outside primary/backup.
	ErrInvalidRole = errors.New("facade: invalid role")
	// ErrUnknownEntity is returned when no composition exists for the
	// portfolio's entity kind.
	ErrUnknownEntity = errors.New("facade: unknown entity type")
	// ErrUnknownTag is returned when a stored archive carries a tag no
	// composition claims.
	ErrUnknownTag = errors.New("facade: unknown archive tag")
)

// Role is the node's standing within its own identity: the primary device or
// a backup replica.
type Role int

const (
	RolePrimary Role = iota
	RoleBackup
)

func (r Role) valid() bool { return r == RolePrimary || r == RoleBackup }

// Task is a background job the facade owns.
type Task interface {
	Name() string
	Run(ctx context.Context) error
}

// ArchiveFactory opens or creates the backing archive for one storage tag.
type ArchiveFactory func(tag string) (vault.Archive, error)

// Facade is an assembled node.
type Facade struct {
	role         Role
	tag          string
	vault        *vault.Vault
	storages     map[string]vault.Archive
	policy       *policy.Service
	private      *portfolio.PrivatePortfolio
	tasks        []Task
	log          *slog.Logger
	indexWorkers int
}

// Option configures facade assembly.
type Option func(*Facade)

// WithLogger sets the structured logger shared with owned components.
func WithLogger(log *slog.Logger) Option {
	return func(f *Facade) { f.log = log }
}

// WithIndexWorkers bounds the trust indexer's concurrent portfolio
// evaluations. Zero keeps the indexer's default.
func WithIndexWorkers(n int) Option {
	return func(f *Facade) { f.indexWorkers = n }
}

// Setup creates a brand new node around a freshly set up portfolio. The
// vault archive is initialized, stamped with the composition tag and seeded
// with the portfolio; extra storages are created per the composition.
func Setup(ctx context.Context, factory ArchiveFactory, secret []byte, role Role, server bool, priv *portfolio.PrivatePortfolio, opts ...Option) (*Facade, error) {
	if !role.valid() {
		return nil, ErrInvalidRole
	}
	entity := priv.Entity()
	if entity == nil {
		return nil, ErrUnknownEntity
	}
	cfg, ok := compositions[compositionKey{entity.EntityKind(), server}]
	if !ok {
		return nil, ErrUnknownEntity
	}

	meta := vault.ArchiveMeta{Owner: priv.ID(), Tag: cfg.tag, Created: time.Now().UTC()}

	arch, err := factory(StorageVault)
	if err != nil {
		return nil, fmt.Errorf("facade setup: %w", err)
	}
	v, err := vault.Setup(ctx, arch, secret, meta)
	if err != nil {
		return nil, fmt.Errorf("facade setup: %w", err)
	}
	if err := v.SavePrivatePortfolio(ctx, priv); err != nil {
		return nil, fmt.Errorf("facade setup: %w", err)
	}

	storages := map[string]vault.Archive{StorageVault: arch}
	for _, tag := range cfg.storages {
		a, err := factory(tag)
		if err != nil {
			return nil, fmt.Errorf("facade setup %s: %w", tag, err)
		}
		if err := a.Init(ctx, meta); err != nil {
			return nil, fmt.Errorf("facade setup %s: %w", tag, err)
		}
		storages[tag] = a
	}

	return assemble(role, cfg.tag, v, storages, priv, opts...), nil
}

// Open rebuilds a node from existing archives. The stored tag selects the
// composition; the stored owner selects the portfolio.
func Open(ctx context.Context, factory ArchiveFactory, secret []byte, role Role, opts ...Option) (*Facade, error) {
	if !role.valid() {
		return nil, ErrInvalidRole
	}
	arch, err := factory(StorageVault)
	if err != nil {
		return nil, fmt.Errorf("facade open: %w", err)
	}
	v := vault.New(arch, secret)
	meta, err := v.Meta(ctx)
	if err != nil {
		return nil, fmt.Errorf("facade open: %w", err)
	}
	cfg, ok := byTag(meta.Tag)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTag, meta.Tag)
	}

	storages := map[string]vault.Archive{StorageVault: arch}
	for _, tag := range cfg.storages {
		a, err := factory(tag)
		if err != nil {
			return nil, fmt.Errorf("facade open %s: %w", tag, err)
		}
		storages[tag] = a
	}

	priv, err := v.LoadPrivatePortfolio(ctx)
	if err != nil {
		return nil, fmt.Errorf("facade open: %w", err)
	}

	return assemble(role, meta.Tag, v, storages, priv, opts...), nil
}

func assemble(role Role, tag string, v *vault.Vault, storages map[string]vault.Archive, priv *portfolio.PrivatePortfolio, opts ...Option) *Facade {
	f := &Facade{
		role:     role,
		tag:      tag,
		vault:    v,
		storages: storages,
		private:  priv,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.policy = policy.New(policy.WithLogger(f.log))
	iopts := []index.Option{index.WithLogger(f.log)}
	if f.indexWorkers > 0 {
		iopts = append(iopts, index.WithWorkers(f.indexWorkers))
	}
	f.tasks = []Task{index.New(v, iopts...)}
	return f
}

// Role reports the node's role.
func (f *Facade) Role() Role { return f.role }

// Tag reports the composition tag.
func (f *Facade) Tag() string { return f.tag }

// Vault returns the document vault.
func (f *Facade) Vault() *vault.Vault { return f.vault }

// Policy returns the policy engine.
func (f *Facade) Policy() *policy.Service { return f.policy }

// Portfolio returns the node's own signing portfolio.
func (f *Facade) Portfolio() *portfolio.PrivatePortfolio { return f.private }

// Storage returns the archive registered under tag, or nil.
func (f *Facade) Storage(tag string) vault.Archive { return f.storages[tag] }

// Tasks lists the background jobs this composition owns.
func (f *Facade) Tasks() []Task { return f.tasks }

// RunTask runs the named background job immediately.
func (f *Facade) RunTask(ctx context.Context, name string) error {
	for _, t := range f.tasks {
		if t.Name() == name {
			return t.Run(ctx)
		}
	}
	return fmt.Errorf("facade: no task %q", name)
}
