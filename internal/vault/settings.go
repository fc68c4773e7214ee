package vault

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"arx/pkg/platform/sentinel"
)

// Settings tables are flat CSV row sets under /settings, fully replaced on
// every save. The trust graph indexer persists its networks table here.

func settingsPath(name string) string {
	return "/settings/" + name
}

// SaveSettings writes the named table, replacing any prior contents.
func (v *Vault) SaveSettings(ctx context.Context, name string, rows [][]string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("save settings %s: %w", name, err)
	}

	sealed, err := v.cipher.seal(buf.Bytes())
	if err != nil {
		return fmt.Errorf("save settings %s: %w", name, err)
	}

	path := settingsPath(name)
	now := time.Now().UTC()
	err = v.archive.Put(ctx, Entry{
		ID:       uuid.New(),
		Path:     path,
		Created:  now,
		Modified: now,
		Kind:     EntryFile,
	}, sealed)
	if errors.Is(err, sentinel.ErrConflict) {
		err = v.archive.Refresh(ctx, path, sealed, now)
	}
	if err != nil {
		return fmt.Errorf("save settings %s: %w", name, err)
	}
	return nil
}

// LoadSettings reads the named table. A missing table reads as empty.
func (v *Vault) LoadSettings(ctx context.Context, name string) ([][]string, error) {
	_, sealed, err := v.archive.Get(ctx, settingsPath(name))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load settings %s: %w", name, err)
	}

	data, err := v.cipher.open(sealed)
	if err != nil {
		return nil, fmt.Errorf("load settings %s: %w", name, err)
	}
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("load settings %s: %w", name, err)
	}
	return rows, nil
}
