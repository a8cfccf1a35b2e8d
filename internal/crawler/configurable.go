package crawler

import (
	"context"
	"io"
	"strings"

	"sjsage522/listingsync/helpers"
	"sjsage522/listingsync/logger"
	"sjsage522/listingsync/services/cache"

	"github.com/PuerkitoBio/goquery"
)

// ConfigurableCrawler is a crawler that can be configured with selectors
type ConfigurableCrawler struct {
	BaseCrawler
	Selectors      Selectors
	MaxPages       int
	PageURL        PageURLFunc
	StripLinkQuery bool

	// fetchFunc is replaced in tests
	fetchFunc func(ctx context.Context, url string) (io.Reader, error)
}

// NewConfigurableCrawler creates a new configurable crawler
func NewConfigurableCrawler(config CrawlerConfig, cacheSvc cache.CacheService) *ConfigurableCrawler {
	maxPages := config.MaxPages
	if maxPages < 1 {
		maxPages = 1
	}

	c := &ConfigurableCrawler{
		BaseCrawler: BaseCrawler{
			URL:       config.URL,
			CacheKey:  config.CacheKey,
			CacheSvc:  cacheSvc,
			BlockTime: config.BlockTime,
			BaseURL:   config.BaseURL,
			Provider:  config.Provider,
			limiter:   newLimiter(config.RequestDelay),
		},
		Selectors:      config.Selectors,
		MaxPages:       maxPages,
		PageURL:        config.PageURL,
		StripLinkQuery: config.StripLinkQuery,
	}
	c.fetchFunc = c.fetchWithCache
	return c
}

// FetchListings walks result pages until limit records are collected, a page
// comes back empty, or MaxPages is reached
func (c *ConfigurableCrawler) FetchListings(ctx context.Context, limit int) ([]RawRecord, error) {
	log := logger.ForCrawler(c.GetName())
	records := make([]RawRecord, 0)

	for page := 0; page < c.MaxPages; page++ {
		pageURL := c.URL
		if page > 0 {
			if c.PageURL == nil {
				break
			}
			pageURL = c.PageURL(c.URL, page)
		}

		body, err := c.fetchFunc(ctx, pageURL)
		if err != nil {
			return records, err
		}

		doc, err := c.createDocument(body)
		if err != nil {
			return records, err
		}

		found := c.processListings(doc.Find(c.Selectors.ListingList))
		log.Debug().
			Int("page", page).
			Int("found", len(found)).
			Str("url", pageURL).
			Msg("Parsed result page")

		if len(found) == 0 {
			break
		}
		records = append(records, found...)

		if limit > 0 && len(records) >= limit {
			records = records[:limit]
			break
		}
	}

	return records, nil
}

// processListings keeps document order; the merge relies on it
func (c *ConfigurableCrawler) processListings(selections *goquery.Selection) []RawRecord {
	records := make([]RawRecord, 0, selections.Length())
	selections.Each(func(_ int, s *goquery.Selection) {
		if record := c.processListing(s); record != nil {
			records = append(records, *record)
		}
	})
	return records
}

// processListing extracts one listing. It returns nil only when no detail
// URL can be found; every other field may be empty.
func (c *ConfigurableCrawler) processListing(s *goquery.Selection) *RawRecord {
	if c.Selectors.ClassFilter != "" && s.HasClass(c.Selectors.ClassFilter) {
		return nil
	}

	link := c.extractLink(s)
	if link == "" {
		return nil
	}

	return &RawRecord{
		Source:       c.Provider,
		Title:        c.extractTitle(s),
		PriceText:    c.processElement(s, "price", c.Selectors.Price),
		LocationText: c.extractLocation(s),
		ImageRef:     c.extractImage(s),
		DetailURL:    link,
	}
}

func (c *ConfigurableCrawler) extractLink(s *goquery.Selection) string {
	linkSel := s
	if c.Selectors.Link != "" {
		linkSel = s.Find(c.Selectors.Link)
	}
	if linkSel.Length() == 0 && s.Is("a") {
		linkSel = s
	}

	href, exists := linkSel.Attr("href")
	if !exists {
		return ""
	}
	link := c.ResolveURL(strings.TrimSpace(href))
	if c.StripLinkQuery {
		link = helpers.StripQuery(link)
	}
	return link
}

func (c *ConfigurableCrawler) extractTitle(s *goquery.Selection) string {
	titleSel := s
	if c.Selectors.Title != "" {
		titleSel = s.Find(c.Selectors.Title)
	}
	if titleSel.Length() > 0 {
		cleanTitleSel := c.cleanSelection(titleSel, "title")
		if titleAttr, exists := cleanTitleSel.Attr("title"); exists && strings.TrimSpace(titleAttr) != "" {
			return strings.TrimSpace(titleAttr)
		}
		if text := strings.TrimSpace(cleanTitleSel.Text()); text != "" {
			return text
		}
	}

	// some result layouts carry the title only on the item itself
	return strings.TrimSpace(s.AttrOr("title", ""))
}

func (c *ConfigurableCrawler) extractLocation(s *goquery.Selection) string {
	for _, handler := range c.Selectors.LocationHandlers {
		if value := strings.TrimSpace(handler(s)); value != "" {
			return value
		}
	}
	return c.processElement(s, "location", c.Selectors.Location)
}

func (c *ConfigurableCrawler) extractImage(s *goquery.Selection) string {
	imgSel := s
	if c.Selectors.Image != "" {
		imgSel = s.Find(c.Selectors.Image)
	}

	ref := FirstAttr(imgSel, c.Selectors.ImageAttrs...)
	if ref == "" || !c.Selectors.ImageIsURL {
		return ref
	}
	if resolved := c.ResolveURL(ref); resolved != "" {
		return resolved
	}
	return ref
}

// cleanSelection removes specified elements from a selection before getting text
func (c *ConfigurableCrawler) cleanSelection(sel *goquery.Selection, path string) *goquery.Selection {
	if sel.Length() == 0 {
		return sel
	}

	// Clone the selection to avoid modifying the original
	clone := sel.Clone()

	for _, removal := range c.Selectors.RemoveElements {
		if removal.ApplyToPath == path {
			clone.Find(removal.Selector).Remove()
		}
	}

	return clone
}

// processElement extracts the text of the first element matching selector
func (c *ConfigurableCrawler) processElement(s *goquery.Selection, path string, selector string) string {
	if selector == "" {
		return ""
	}

	elementSel := s.Find(selector).First()
	if elementSel.Length() > 0 {
		cleanSel := c.cleanSelection(elementSel, path)
		return strings.TrimSpace(cleanSel.Text())
	}

	return ""
}
