package worker

import (
	"context"
	"strings"

	"sjsage522/listingsync/internal/crawler"
	"sjsage522/listingsync/internal/listing"
	"sjsage522/listingsync/internal/resolve"
	"sjsage522/listingsync/logger"
	"sjsage522/listingsync/services/translate"
)

// Enricher turns raw source records into listings. Every field has a
// fallback, so enrichment never drops a record that has an identity.
type Enricher struct {
	locations  *resolve.LocationClassifier
	images     *resolve.ImageResolver
	translator translate.Translator
	targetLang string
}

// NewEnricher creates an enricher. A nil translator or an empty targetLang
// disables translation.
func NewEnricher(
	locations *resolve.LocationClassifier,
	images *resolve.ImageResolver,
	translator translate.Translator,
	targetLang string,
) *Enricher {
	return &Enricher{
		locations:  locations,
		images:     images,
		translator: translator,
		targetLang: targetLang,
	}
}

// Enrich builds the listing for raw as observed on today. prior is the
// persisted record with the same identity, or nil. It reports false when raw
// has no detail URL.
func (e *Enricher) Enrich(ctx context.Context, raw crawler.RawRecord, prior *listing.Listing, today string) (listing.Listing, bool) {
	identity := identityOf(raw)
	if identity == "" {
		return listing.Listing{}, false
	}

	title := resolve.Clean(raw.Title)

	price := resolve.Clean(raw.PriceText)
	if price == "" {
		price = listing.PriceNotAvailable
	}

	return listing.Listing{
		Source:          raw.Source,
		IdentityURL:     identity,
		Title:           title,
		TitleTranslated: e.translate(ctx, title, prior),
		PriceText:       price,
		Location:        e.locations.Classify(raw.LocationText),
		ImageURL:        e.images.Resolve(raw.Source, raw.ImageRef),
		ObservedDate:    today,
	}, true
}

func identityOf(raw crawler.RawRecord) string {
	return strings.TrimSpace(resolve.StripSeparators(raw.DetailURL))
}

func (e *Enricher) translate(ctx context.Context, title string, prior *listing.Listing) string {
	if title == "" {
		return ""
	}
	// a translation equal to the title may be an earlier failure, so it is retried
	if prior != nil && prior.Title == title && prior.TitleTranslated != "" && prior.TitleTranslated != title {
		return prior.TitleTranslated
	}
	if e.translator == nil || e.targetLang == "" {
		return title
	}

	translated, err := e.translator.Translate(ctx, resolve.Normalize(title), e.targetLang)
	if err != nil {
		logger.ForTranslator().Warn().
			Err(err).
			Str("title", title).
			Msg("Translation failed, keeping original title")
		return title
	}

	if translated = resolve.Clean(translated); translated == "" {
		return title
	}
	return translated
}
