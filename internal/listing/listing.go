package listing

import (
	"time"
)

// DateLayout is the persisted format of ObservedDate
const DateLayout = "2006-01-02"

// PriceNotAvailable is stored when a source shows no price
const PriceNotAvailable = "N/A"

// Listing is the unit of persistence. IdentityURL is the deduplication key
// and, together with Source, never changes once the listing exists.
type Listing struct {
	Source          string `json:"source"`
	IdentityURL     string `json:"identity_url"`
	Title           string `json:"title"`
	TitleTranslated string `json:"title_translated"`
	PriceText       string `json:"price_text"`
	Location        string `json:"location"`
	ImageURL        string `json:"image_url"`
	ObservedDate    string `json:"observed_date"`
}

// FormatDate renders t as a calendar date in t's own location
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses an ObservedDate value
func ParseDate(s string) (time.Time, bool) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// AgeDays returns the number of whole calendar days from observed to asOf.
// The calendar date of asOf is taken in asOf's location.
func AgeDays(observed string, asOf time.Time) (int, bool) {
	d, ok := ParseDate(observed)
	if !ok {
		return 0, false
	}
	today := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)
	return int(today.Sub(d).Hours() / 24), true
}

// Normalize fills in the fallbacks a persisted record may be missing.
// A missing or unparseable ObservedDate is treated as observed today.
func (l Listing) Normalize(today string) Listing {
	if _, ok := ParseDate(l.ObservedDate); !ok {
		l.ObservedDate = today
	}
	if l.TitleTranslated == "" {
		l.TitleTranslated = l.Title
	}
	if l.PriceText == "" {
		l.PriceText = PriceNotAvailable
	}
	return l
}

// refresh copies the mutable fields of incoming onto l
func (l Listing) refresh(incoming Listing) Listing {
	l.Title = incoming.Title
	l.TitleTranslated = incoming.TitleTranslated
	l.PriceText = incoming.PriceText
	l.Location = incoming.Location
	l.ImageURL = incoming.ImageURL
	l.ObservedDate = incoming.ObservedDate
	return l
}
