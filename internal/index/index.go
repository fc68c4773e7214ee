// Package index maintains the trust graph over known networks. A run walks
// every network document filed in the vault, loads the hosting entity's
// portfolio and decides whether trust is mutual: both sides must hold a live,
// signature-verified trust statement about the other. The verdicts are written
// back as the networks settings table, fully replacing the previous run.
package index

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"arx/internal/crypto"
	"arx/internal/document"
	"arx/internal/portfolio"
	"arx/internal/vault"
)

const tracerName = "arx/internal/index"

// SettingsTable is the settings file the indexer owns.
const SettingsTable = "networks.csv"

const defaultWorkers = 4

// verdict is one network's row before sorting.
type verdict struct {
	id       uuid.UUID
	hostname string
	trusted  bool
}

// Service runs trust graph indexing over a vault.
type Service struct {
	vault   *vault.Vault
	log     *slog.Logger
	workers int
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithWorkers bounds concurrent portfolio evaluations.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// New returns an indexer over the given vault.
func New(v *vault.Vault, opts ...Option) *Service {
	s := &Service{
		vault:   v,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		workers: defaultWorkers,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name identifies the task in logs and schedules.
func (s *Service) Name() string { return "network-index" }

// Run recomputes the networks table. Networks whose portfolio cannot be
// loaded are recorded as untrusted rather than failing the run; only vault
// level failures abort.
func (s *Service) Run(ctx context.Context) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "index.Run")
	defer span.End()
	start := time.Now()

	local, err := s.vault.LoadPrivatePortfolio(ctx)
	if err != nil {
		observeRun("error", time.Since(start))
		return fmt.Errorf("index: load own portfolio: %w", err)
	}

	networks, err := s.networks(ctx)
	if err != nil {
		observeRun("error", time.Since(start))
		return fmt.Errorf("index: %w", err)
	}
	span.SetAttributes(attribute.Int("networks", len(networks)))

	var (
		mu       sync.Mutex
		verdicts []verdict
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, network := range networks {
		g.Go(func() error {
			v := s.evaluate(gctx, local, network)
			mu.Lock()
			verdicts = append(verdicts, v)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		observeRun("error", time.Since(start))
		return fmt.Errorf("index: %w", err)
	}

	sort.Slice(verdicts, func(i, j int) bool {
		return verdicts[i].id.String() < verdicts[j].id.String()
	})
	rows := make([][]string, 0, len(verdicts))
	for _, v := range verdicts {
		trusted := "0"
		if v.trusted {
			trusted = "1"
		}
		rows = append(rows, []string{v.id.String(), v.hostname, trusted})
	}

	if err := s.vault.SaveSettings(ctx, SettingsTable, rows); err != nil {
		observeRun("error", time.Since(start))
		return fmt.Errorf("index: %w", err)
	}

	observeRun("ok", time.Since(start))
	s.log.InfoContext(ctx, "network index updated",
		slog.Int("networks", len(rows)),
		slog.Duration("took", time.Since(start)),
	)
	return nil
}

// networks resolves every link filed under /networks to its network document.
func (s *Service) networks(ctx context.Context) ([]*document.Network, error) {
	found, err := s.vault.Search(ctx, vault.Query{Pattern: "/networks/*", Links: true}, nil)
	if err != nil {
		return nil, err
	}
	var out []*document.Network
	for _, raw := range found {
		entry, ok := raw.(vault.Entry)
		if !ok {
			continue
		}
		doc, err := s.vault.Load(ctx, entry.Path)
		if err != nil {
			s.log.WarnContext(ctx, "skipping unreadable network link",
				slog.String("path", entry.Path), slog.Any("error", err))
			continue
		}
		if n, ok := doc.(*document.Network); ok {
			out = append(out, n)
		}
	}
	return out, nil
}

// evaluate decides one network's verdict. Trust must hold in both directions;
// an entity with no statements at all stays untrusted.
func (s *Service) evaluate(ctx context.Context, local *portfolio.PrivatePortfolio, network *document.Network) verdict {
	v := verdict{id: network.ID, hostname: network.Hostname}

	remote, err := s.vault.LoadPortfolio(ctx, network.Issuer)
	if err != nil {
		s.log.WarnContext(ctx, "network host portfolio unavailable",
			slog.String("network", network.ID.String()),
			slog.String("host", network.Issuer.String()),
			slog.Any("error", err))
		return v
	}

	v.trusted = trusts(&local.Portfolio, remote) && trusts(remote, &local.Portfolio)
	return v
}

// trusts reports whether from holds a live, revocation-free, signature
// verified trust statement about to.
func trusts(from, to *portfolio.Portfolio) bool {
	revoked := make(map[uuid.UUID]bool)
	for _, r := range from.IssuerRevoked() {
		revoked[r.Issuance] = true
	}
	for _, stmt := range from.IssuerTrusted() {
		if stmt.Owner != to.ID() || revoked[stmt.ID] {
			continue
		}
		if stmt.Expires.Before(time.Now()) {
			continue
		}
		if stmt.ApplyRules() != nil {
			continue
		}
		if crypto.VerifyDocument(stmt, from) {
			return true
		}
	}
	return false
}
