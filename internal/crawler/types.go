package crawler

import (
	"context"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// RawRecord is one listing as extracted from a source page. An empty field
// means the source did not provide it.
type RawRecord struct {
	Source       string
	Title        string
	PriceText    string
	LocationText string
	ImageRef     string
	DetailURL    string
}

// Crawler interface defines the contract for all source adapters
type Crawler interface {
	// FetchListings retrieves up to limit raw records, in page order.
	// limit <= 0 means no limit. Records gathered before a failure are
	// returned along with the error.
	FetchListings(ctx context.Context, limit int) ([]RawRecord, error)

	// GetName returns the crawler's name for logging and identification
	GetName() string

	// GetProvider returns the source name stored on every listing
	GetProvider() string
}

// ElementHandler extracts a value from a listing element
type ElementHandler func(*goquery.Selection) string

// PageURLFunc builds the URL of the zero-based page from the first page URL
type PageURLFunc func(firstPage string, page int) string

// ElementRemoval defines elements to remove from a selection before extracting text
type ElementRemoval struct {
	Selector    string // Selector to find elements to remove
	ApplyToPath string // The path to apply this to (e.g., "title", "location")
}

// Selectors contains CSS selectors for the elements of one listing
type Selectors struct {
	ListingList string
	Title       string
	Link        string
	Price       string
	Location    string
	Image       string
	ClassFilter string

	// ImageAttrs is tried in order; the first non-empty value is the image reference
	ImageAttrs []string
	// ImageIsURL resolves relative image references against the base URL
	ImageIsURL bool

	RemoveElements   []ElementRemoval
	LocationHandlers []ElementHandler
}

// CrawlerConfig contains configuration for a crawler
type CrawlerConfig struct {
	URL            string
	BaseURL        string
	CacheKey       string
	BlockTime      time.Duration
	RequestDelay   time.Duration
	MaxPages       int
	Provider       string
	Selectors      Selectors
	PageURL        PageURLFunc
	StripLinkQuery bool
}
