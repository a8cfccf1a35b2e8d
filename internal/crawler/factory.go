package crawler

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"sjsage522/listingsync/config"
	"sjsage522/listingsync/internal/resolve"
	"sjsage522/listingsync/logger"
	"sjsage522/listingsync/services/cache"

	"github.com/PuerkitoBio/goquery"
)

// Source names stored on every listing
const (
	ProviderCraigslist = "Craigslist"
	ProviderKijiji     = "Kijiji"
)

// craigslistPageSize is the number of results Craigslist serves per page
const craigslistPageSize = 120

// CreateCrawlers creates all the crawlers based on the configuration.
// Sources with an empty URL are skipped.
func CreateCrawlers(cfg *config.Config, cacheSvc cache.CacheService) []Crawler {
	log := logger.ForWorker()

	crawlers := make([]Crawler, 0, 2)
	for _, crawlerConfig := range configurations(cfg) {
		if crawlerConfig.URL == "" {
			log.Info().Str("provider", crawlerConfig.Provider).Msg("Source disabled, no URL configured")
			continue
		}
		crawlers = append(crawlers, NewConfigurableCrawler(crawlerConfig, cacheSvc))
	}

	for i, c := range crawlers {
		log.Debug().
			Int("index", i).
			Str("crawler", c.GetName()).
			Msg("Created crawler")
	}
	return crawlers
}

// ImagePolicies returns the image handling of every registered source
func ImagePolicies(cfg *config.Config) map[string]resolve.ImagePolicy {
	return map[string]resolve.ImagePolicy{
		ProviderCraigslist: {
			Strategy:    resolve.StrategyCDN,
			CDNTemplate: resolve.CraigslistImageTemplate,
			Placeholder: cfg.ImagePlaceholders[ProviderCraigslist],
		},
		ProviderKijiji: {
			Strategy:    resolve.StrategyDirect,
			Placeholder: cfg.ImagePlaceholders[ProviderKijiji],
		},
	}
}

func configurations(cfg *config.Config) []CrawlerConfig {
	return []CrawlerConfig{
		{
			// Craigslist static search results; images are referenced by id
			URL:          cfg.CraigslistURL,
			CacheKey:     "craigslist_rate_limited",
			BlockTime:    cfg.BlockTime,
			RequestDelay: cfg.RequestDelay,
			MaxPages:     cfg.MaxPages,
			BaseURL:      siteRoot(cfg.CraigslistURL),
			Provider:     ProviderCraigslist,
			Selectors: Selectors{
				ListingList:      "li.cl-static-search-result, li.cl-search-result, li.result-row",
				Title:            "div.title, a.posting-title span.label, a.result-title",
				Link:             "a",
				Price:            "div.price, span.priceinfo, span.result-price",
				Location:         "div.location, div.meta span.location",
				LocationHandlers: []ElementHandler{craigslistHood},
				Image:            "[data-ids]",
				ImageAttrs:       []string{"data-ids"},
			},
			PageURL:        craigslistPageURL,
			StripLinkQuery: true,
		},
		{
			// Kijiji result cards; images are lazy loaded
			URL:          cfg.KijijiURL,
			CacheKey:     "kijiji_rate_limited",
			BlockTime:    cfg.BlockTime,
			RequestDelay: cfg.RequestDelay,
			MaxPages:     cfg.MaxPages,
			BaseURL:      siteRoot(cfg.KijijiURL),
			Provider:     ProviderKijiji,
			Selectors: Selectors{
				ListingList: "li[data-testid^='listing-card-list-item']",
				Title:       "[data-testid='listing-title']",
				Link:        "a[data-testid='listing-link']",
				Price:       "[data-testid='listing-price']",
				Location:    "[data-testid='listing-location']",
				Image:       "img[data-testid='listing-card-image']",
				ImageAttrs:  []string{"data-src", "src"},
				ImageIsURL:  true,
				RemoveElements: []ElementRemoval{
					{Selector: "span[data-testid='listing-proximity']", ApplyToPath: "location"},
				},
			},
			PageURL:        kijijiPageURL,
			StripLinkQuery: true,
		},
	}
}

// craigslistHood reads the neighbourhood of the older result-row layout,
// where it sits in its own span as "(burnaby)"
func craigslistHood(s *goquery.Selection) string {
	hood := strings.TrimSpace(s.Find("span.result-hood").First().Text())
	return strings.TrimSpace(strings.Trim(hood, "()"))
}

// craigslistPageURL sets the result offset parameter
func craigslistPageURL(firstPage string, page int) string {
	u, err := url.Parse(firstPage)
	if err != nil {
		return firstPage
	}
	q := u.Query()
	q.Set("s", strconv.Itoa(page*craigslistPageSize))
	u.RawQuery = q.Encode()
	return u.String()
}

// kijijiPageURL inserts a page-N segment before the category code, e.g.
// /b-apartments-condos/greater-vancouver-area/page-2/c37l80003
func kijijiPageURL(firstPage string, page int) string {
	u, err := url.Parse(firstPage)
	if err != nil {
		return firstPage
	}

	path := strings.TrimSuffix(u.Path, "/")
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return firstPage
	}
	u.Path = fmt.Sprintf("%s/page-%d%s", path[:i], page+1, path[i:])
	return u.String()
}

func siteRoot(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return raw
	}
	return u.Scheme + "://" + u.Host
}
