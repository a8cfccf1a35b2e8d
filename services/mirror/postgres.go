package mirror

import (
	"context"
	"database/sql"
	"fmt"

	"sjsage522/listingsync/internal/listing"
	"sjsage522/listingsync/logger"
	apperrors "sjsage522/listingsync/pkg/errors"

	"github.com/lib/pq"
)

// Mirror keeps a copy of the final collection outside the listing file
type Mirror interface {
	// Sync makes the mirror hold exactly listings
	Sync(ctx context.Context, listings []listing.Listing) error

	Close() error
}

// PostgresMirror mirrors the collection into a listings table
type PostgresMirror struct {
	db *sql.DB
}

// NewPostgresMirror opens dsn, checks the connection and creates the table
func NewPostgresMirror(ctx context.Context, dsn string) (*PostgresMirror, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, apperrors.NewStorage("postgres: open", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, apperrors.NewStorage("postgres: ping", err)
	}

	m := &PostgresMirror{db: db}
	if err := m.migrate(ctx); err != nil {
		db.Close()
		return nil, apperrors.NewStorage("postgres: migrate", err)
	}

	return m, nil
}

func (m *PostgresMirror) migrate(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS listings (
			identity_url     TEXT PRIMARY KEY,
			source           VARCHAR(50) NOT NULL,
			title            TEXT        NOT NULL DEFAULT '',
			title_translated TEXT        NOT NULL DEFAULT '',
			price_text       TEXT        NOT NULL DEFAULT '',
			location         TEXT        NOT NULL DEFAULT '',
			image_url        TEXT        NOT NULL DEFAULT '',
			observed_date    DATE,
			updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_listings_source        ON listings(source);
		CREATE INDEX IF NOT EXISTS idx_listings_location      ON listings(location);
		CREATE INDEX IF NOT EXISTS idx_listings_observed_date ON listings(observed_date);
	`)
	return err
}

const upsertListing = `
	INSERT INTO listings (identity_url, source, title, title_translated, price_text, location, image_url, observed_date)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (identity_url) DO UPDATE SET
		title            = EXCLUDED.title,
		title_translated = EXCLUDED.title_translated,
		price_text       = EXCLUDED.price_text,
		location         = EXCLUDED.location,
		image_url        = EXCLUDED.image_url,
		observed_date    = EXCLUDED.observed_date,
		updated_at       = NOW()
`

// Sync implements Mirror. Rows whose identity is not in listings are deleted;
// source is never overwritten.
func (m *PostgresMirror) Sync(ctx context.Context, listings []listing.Listing) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewStorage("postgres: begin", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertListing)
	if err != nil {
		return apperrors.NewStorage("postgres: prepare upsert", err)
	}
	defer stmt.Close()

	identities := make([]string, 0, len(listings))
	for _, l := range listings {
		_, err := stmt.ExecContext(ctx,
			l.IdentityURL, l.Source, l.Title, l.TitleTranslated,
			l.PriceText, l.Location, l.ImageURL, observedDate(l.ObservedDate))
		if err != nil {
			return apperrors.NewStorage(fmt.Sprintf("postgres: upsert %s", l.IdentityURL), err)
		}
		identities = append(identities, l.IdentityURL)
	}

	res, err := tx.ExecContext(ctx,
		`DELETE FROM listings WHERE NOT (identity_url = ANY($1))`, pq.Array(identities))
	if err != nil {
		return apperrors.NewStorage("postgres: delete stale", err)
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewStorage("postgres: commit", err)
	}

	removed, _ := res.RowsAffected()
	logger.ForMirror().Debug().
		Int("upserted", len(identities)).
		Int64("removed", removed).
		Msg("Mirrored listings")
	return nil
}

// Close closes the database handle
func (m *PostgresMirror) Close() error {
	return m.db.Close()
}

// observedDate maps an unparseable date to NULL
func observedDate(s string) interface{} {
	t, ok := listing.ParseDate(s)
	if !ok {
		return nil
	}
	return t
}
