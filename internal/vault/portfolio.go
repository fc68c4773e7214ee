package vault

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"arx/internal/document"
	"arx/internal/portfolio"
	"arx/pkg/platform/sentinel"
)

// portfolioDir is the directory holding one entity's documents.
func portfolioDir(entity uuid.UUID) string {
	return fmt.Sprintf("/portfolios/%s", entity)
}

// AddPortfolio persists every document of a foreign portfolio under its
// entity directory, and files any network documents into /networks so the
// indexer can find them without a full scan.
func (v *Vault) AddPortfolio(ctx context.Context, p *portfolio.Portfolio) error {
	dir := portfolioDir(p.ID())
	if err := v.archive.Mkdir(ctx, dir); err != nil {
		return fmt.Errorf("add portfolio: %w", err)
	}
	for _, doc := range p.Snapshot().Documents() {
		if err := v.SaveDocument(ctx, doc); err != nil {
			return err
		}
	}
	return nil
}

// SaveDocument files one document at its deterministic path. An existing live
// entry of the same id is superseded in place; network documents additionally
// get a link under /networks.
func (v *Vault) SaveDocument(ctx context.Context, doc document.Document) error {
	if _, ok := doc.(*document.PrivateKeys); ok {
		return fmt.Errorf("save document: private keys belong in /settings")
	}

	path := DocPath(doc)
	if err := v.archive.Mkdir(ctx, parentDir(path)); err != nil {
		return fmt.Errorf("save document: %w", err)
	}

	err := v.Save(ctx, path, doc, false)
	if errors.Is(err, sentinel.ErrConflict) {
		err = v.Update(ctx, path, doc)
	}
	if err != nil {
		return err
	}

	if _, ok := doc.(*document.Network); ok {
		linkPath := fmt.Sprintf("/networks/%s", doc.Head().ID)
		if err := v.Link(ctx, linkPath, path); err != nil && !errors.Is(err, sentinel.ErrConflict) {
			return err
		}
	}
	return nil
}

// AddDocuments merges loose documents into their issuers' stored portfolios,
// the replication entry point for statements received from peers.
func (v *Vault) AddDocuments(ctx context.Context, docs ...document.Document) error {
	for _, doc := range docs {
		if err := v.archive.Mkdir(ctx, parentDir(DocPath(doc))); err != nil {
			return fmt.Errorf("add documents: %w", err)
		}
		if err := v.SaveDocument(ctx, doc); err != nil {
			return err
		}
	}
	return nil
}

// LoadPortfolio rebuilds an entity's portfolio from its stored documents.
func (v *Vault) LoadPortfolio(ctx context.Context, entity uuid.UUID) (*portfolio.Portfolio, error) {
	docs, err := v.SearchDocs(ctx, uuid.Nil, portfolioDir(entity)+"/*", 0)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("load portfolio %s: %w", entity, sentinel.ErrNotFound)
	}
	c, err := portfolio.NewCollection(docs...)
	if err != nil {
		return nil, fmt.Errorf("load portfolio %s: %w", entity, err)
	}
	return portfolio.New(c)
}

// SavePrivatePortfolio persists the session's own portfolio: public documents
// under /portfolios, private key material under /settings.
func (v *Vault) SavePrivatePortfolio(ctx context.Context, priv *portfolio.PrivatePortfolio) error {
	public, err := priv.Public()
	if err != nil {
		return fmt.Errorf("save private portfolio: %w", err)
	}
	if err := v.AddPortfolio(ctx, public); err != nil {
		return err
	}

	keys := priv.PrivateKeys()
	if keys == nil {
		return nil
	}
	path := "/settings/private"
	err = v.Save(ctx, path, keys, false)
	if errors.Is(err, sentinel.ErrConflict) {
		err = v.Update(ctx, path, keys)
	}
	return err
}

// LoadPrivatePortfolio rebuilds the session portfolio for the archive owner,
// private keys included.
func (v *Vault) LoadPrivatePortfolio(ctx context.Context) (*portfolio.PrivatePortfolio, error) {
	meta, err := v.archive.Meta(ctx)
	if err != nil {
		return nil, err
	}
	docs, err := v.SearchDocs(ctx, uuid.Nil, portfolioDir(meta.Owner)+"/*", 0)
	if err != nil {
		return nil, err
	}

	private, err := v.Load(ctx, "/settings/private")
	if err == nil {
		docs = append(docs, private)
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, err
	}

	c, err := portfolio.NewCollection(docs...)
	if err != nil {
		return nil, fmt.Errorf("load private portfolio: %w", err)
	}
	return portfolio.NewPrivate(c)
}
