package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sjsage522/listingsync/internal/listing"
	"sjsage522/listingsync/internal/resolve"
	"sjsage522/listingsync/logger"
	apperrors "sjsage522/listingsync/pkg/errors"
)

// Store owns the persisted listing collection
type Store interface {
	// Load returns the prior collection; it never fails, an unreadable
	// state is reported as empty
	Load() []listing.Listing

	// Save replaces the persisted collection with listings
	Save(listings []listing.Listing) error
}

// FileStore keeps the collection as an indented JSON array in one file
type FileStore struct {
	path      string
	now       func() time.Time
	locations *resolve.LocationClassifier
}

// Option configures a FileStore
type Option func(*FileStore)

// WithLocationClassifier reclassifies the location of every loaded record,
// so records written by an older crawler carry a canonical name
func WithLocationClassifier(c *resolve.LocationClassifier) Option {
	return func(s *FileStore) { s.locations = c }
}

// NewFileStore creates a store backed by path
func NewFileStore(path string, opts ...Option) *FileStore {
	s := &FileStore{
		path: path,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// record also accepts the field names of files written by the earlier
// crawler (url, date, title_cn, price, image).
type record struct {
	listing.Listing
	URL     string `json:"url,omitempty"`
	Date    string `json:"date,omitempty"`
	TitleCN string `json:"title_cn,omitempty"`
	Price   string `json:"price,omitempty"`
	Image   string `json:"image,omitempty"`
}

func (r record) toListing() listing.Listing {
	l := r.Listing
	if l.IdentityURL == "" {
		l.IdentityURL = r.URL
	}
	if l.ObservedDate == "" {
		l.ObservedDate = r.Date
	}
	if l.TitleTranslated == "" {
		l.TitleTranslated = r.TitleCN
	}
	if l.PriceText == "" {
		l.PriceText = r.Price
	}
	if l.ImageURL == "" {
		l.ImageURL = r.Image
	}
	l.IdentityURL = strings.TrimSpace(l.IdentityURL)
	return l
}

// Load implements Store
func (s *FileStore) Load() []listing.Listing {
	log := logger.ForStore()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Info().Str("path", s.path).Msg("No persisted listings, starting empty")
		return []listing.Listing{}
	}
	if err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("Failed to read persisted listings, starting empty")
		return []listing.Listing{}
	}

	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("Persisted listings are corrupt, starting empty")
		return []listing.Listing{}
	}

	today := listing.FormatDate(s.now())
	loaded := make([]listing.Listing, 0, len(records))
	dropped := 0
	for _, r := range records {
		l := r.toListing()
		if l.IdentityURL == "" {
			dropped++
			continue
		}
		l = l.Normalize(today)
		if s.locations != nil {
			l.Location = s.locations.Classify(l.Location)
		}
		loaded = append(loaded, l)
	}

	// collapses duplicate identities that an older writer may have left behind
	unique, _ := listing.Merge(nil, loaded)

	log.Debug().
		Int("loaded", len(unique)).
		Int("dropped", dropped+len(loaded)-len(unique)).
		Msg("Loaded persisted listings")
	return unique
}

// Save implements Store. The file is replaced atomically through a rename.
func (s *FileStore) Save(listings []listing.Listing) error {
	clean := make([]listing.Listing, 0, len(listings))
	for _, l := range listings {
		clean = append(clean, sanitize(l))
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(clean); err != nil {
		return apperrors.NewStorage("encode listings", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperrors.NewStorage("create directory "+dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".listings-*.tmp")
	if err != nil {
		return apperrors.NewStorage("create temp file", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return apperrors.NewStorage("write temp file", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return apperrors.NewStorage("sync temp file", err)
	}
	if err := tmp.Close(); err != nil {
		return apperrors.NewStorage("close temp file", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return apperrors.NewStorage("chmod temp file", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return apperrors.NewStorage("replace "+s.path, err)
	}

	logger.ForStore().Debug().
		Int("listings", len(clean)).
		Str("path", s.path).
		Msg("Saved listings")
	return nil
}

func sanitize(l listing.Listing) listing.Listing {
	l.Source = resolve.StripSeparators(l.Source)
	l.IdentityURL = resolve.StripSeparators(l.IdentityURL)
	l.Title = resolve.StripSeparators(l.Title)
	l.TitleTranslated = resolve.StripSeparators(l.TitleTranslated)
	l.PriceText = resolve.StripSeparators(l.PriceText)
	l.Location = resolve.StripSeparators(l.Location)
	l.ImageURL = resolve.StripSeparators(l.ImageURL)
	l.ObservedDate = resolve.StripSeparators(l.ObservedDate)
	return l
}
