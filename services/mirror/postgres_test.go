package mirror

import (
	"context"
	"os"
	"testing"

	"sjsage522/listingsync/internal/listing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservedDate(t *testing.T) {
	assert.Nil(t, observedDate(""))
	assert.Nil(t, observedDate("yesterday"))
	assert.NotNil(t, observedDate("2026-02-28"))
}

func TestPostgresMirror(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping postgres test")
	}

	ctx := context.Background()
	m, err := NewPostgresMirror(ctx, dsn)
	require.NoError(t, err)
	defer m.Close()

	_, err = m.db.ExecContext(ctx, "DELETE FROM listings")
	require.NoError(t, err)

	first := []listing.Listing{
		{Source: "Craigslist", IdentityURL: "https://example.com/1", Title: "One", TitleTranslated: "One", PriceText: "$1", Location: "Burnaby", ObservedDate: "2026-02-28"},
		{Source: "Kijiji", IdentityURL: "https://example.com/2", Title: "Two", TitleTranslated: "Two", PriceText: "N/A", Location: "Vancouver", ObservedDate: "2026-02-27"},
	}
	require.NoError(t, m.Sync(ctx, first))

	second := []listing.Listing{first[0]}
	second[0].PriceText = "$5"
	require.NoError(t, m.Sync(ctx, second))

	var count int
	require.NoError(t, m.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM listings").Scan(&count))
	assert.Equal(t, 1, count)

	var price string
	require.NoError(t, m.db.QueryRowContext(ctx,
		"SELECT price_text FROM listings WHERE identity_url = $1", "https://example.com/1").Scan(&price))
	assert.Equal(t, "$5", price)
}
