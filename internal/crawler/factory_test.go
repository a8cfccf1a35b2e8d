package crawler

import (
	"context"
	"strings"
	"testing"

	"sjsage522/listingsync/config"
	"sjsage522/listingsync/internal/resolve"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const craigslistPage = `<html><body><ol class="cl-static-search-results">
<li class="cl-static-search-result" title="Bright 2BR near Metrotown">
	<a href="https://vancouver.craigslist.org/bnc/apa/d/burnaby-bright-2br/7712345678.html">
		<div class="title">Bright 2BR near Metrotown</div>
		<div class="details">
			<div class="price">$2,950</div>
			<div class="location">
				Burnaby
			</div>
		</div>
	</a>
	<div class="gallery" data-ids="3:00a0a_abcDEF123_0CI0t2,3:00b0b_xyz_0CI0t2"></div>
</li>
<li class="cl-static-search-result" title="Basement suite">
	<a href="https://vancouver.craigslist.org/van/apa/d/vancouver-basement-suite/7712345679.html">
		<div class="title">Basement suite</div>
		<div class="details"><div class="location">east van</div></div>
	</a>
</li>
</ol></body></html>`

const kijijiPage = `<html><body><ul data-testid="srp-search-list">
<li data-testid="listing-card-list-item-0">
	<section data-testid="listing-card">
		<img data-testid="listing-card-image" src="data:image/gif;base64,R0lGOD" data-src="https://media.kijiji.ca/api/v1/ca-prod-fsbo-ads/images/1.jpg">
		<h3 data-testid="listing-title"><a data-testid="listing-link" href="/v-apartments-condos/burnaby-new-westminster/sunny-2br/1712345678?src=srp">Sunny 2BR</a></h3>
		<p data-testid="listing-price">$2,650</p>
		<p data-testid="listing-location">New Westminster <span data-testid="listing-proximity">&lt; 5 km</span></p>
	</section>
</li>
<li data-testid="listing-card-list-item-1">
	<section data-testid="listing-card">
		<img data-testid="listing-card-image" src="/static/no-image.png">
		<h3 data-testid="listing-title"><a data-testid="listing-link" href="/v-room-rental-roommate/richmond/room/1712345679">Room for rent</a></h3>
		<p data-testid="listing-price">Please Contact</p>
	</section>
</li>
</ul></body></html>`

func testConfig() *config.Config {
	return &config.Config{
		CraigslistURL:     "https://vancouver.craigslist.org/search/apa",
		KijijiURL:         "https://www.kijiji.ca/b-apartments-condos/greater-vancouver-area/c37l80003",
		MaxPages:          1,
		ImagePlaceholders: map[string]string{ProviderKijiji: "https://placeholder.example/k.png"},
	}
}

func TestCreateCrawlers(t *testing.T) {
	cfg := testConfig()
	crawlers := CreateCrawlers(cfg, NewMockCacheService())
	require.Len(t, crawlers, 2)
	assert.Equal(t, ProviderCraigslist, crawlers[0].GetProvider())
	assert.Equal(t, ProviderKijiji, crawlers[1].GetProvider())

	cfg.KijijiURL = ""
	crawlers = CreateCrawlers(cfg, nil)
	require.Len(t, crawlers, 1)
	assert.Equal(t, "CraigslistCrawler", crawlers[0].GetName())
}

func TestCraigslistSelectors(t *testing.T) {
	cfg := testConfig()
	c := CreateCrawlers(cfg, nil)[0].(*ConfigurableCrawler)
	fetcher := &pageFetcher{pages: map[string]string{cfg.CraigslistURL: craigslistPage}}
	c.fetchFunc = fetcher.fetch

	records, err := c.FetchListings(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "Bright 2BR near Metrotown", records[0].Title)
	assert.Equal(t, "$2,950", records[0].PriceText)
	assert.Equal(t, "Burnaby", records[0].LocationText)
	assert.Equal(t, "3:00a0a_abcDEF123_0CI0t2,3:00b0b_xyz_0CI0t2", records[0].ImageRef)
	assert.Equal(t, "https://vancouver.craigslist.org/bnc/apa/d/burnaby-bright-2br/7712345678.html", records[0].DetailURL)

	assert.Equal(t, "", records[1].PriceText)
	assert.Equal(t, "", records[1].ImageRef)

	images := resolve.NewImageResolver(ImagePolicies(cfg))
	assert.Equal(t, "https://images.craigslist.org/00a0a_abcDEF123_0CI0t2_600x450.jpg",
		images.Resolve(ProviderCraigslist, records[0].ImageRef))
	assert.Equal(t, "", images.Resolve(ProviderCraigslist, records[1].ImageRef))
}

const craigslistResultRowPage = `<html><body><ul class="rows">
<li class="result-row" data-pid="7700000001">
	<a href="https://vancouver.craigslist.org/bnc/apa/d/burnaby-quiet-1br/7700000001.html" class="result-image gallery" data-ids="3:00c0c_oldRow_0CI0t2"></a>
	<div class="result-info">
		<h3 class="result-heading">
			<a href="https://vancouver.craigslist.org/bnc/apa/d/burnaby-quiet-1br/7700000001.html" class="result-title hdrlnk">Quiet 1BR</a>
		</h3>
		<span class="result-meta">
			<span class="result-price">$2,050</span>
			<span class="result-hood"> (burnaby / metrotown)</span>
		</span>
	</div>
</li>
<li class="result-row" data-pid="7700000002">
	<div class="result-info">
		<a href="https://vancouver.craigslist.org/van/apa/d/vancouver-room/7700000002.html" class="result-title hdrlnk">Room</a>
	</div>
</li>
</ul></body></html>`

func TestCraigslistResultRowSelectors(t *testing.T) {
	cfg := testConfig()
	c := CreateCrawlers(cfg, nil)[0].(*ConfigurableCrawler)
	fetcher := &pageFetcher{pages: map[string]string{cfg.CraigslistURL: craigslistResultRowPage}}
	c.fetchFunc = fetcher.fetch

	records, err := c.FetchListings(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, RawRecord{
		Source:       ProviderCraigslist,
		Title:        "Quiet 1BR",
		PriceText:    "$2,050",
		LocationText: "burnaby / metrotown",
		ImageRef:     "3:00c0c_oldRow_0CI0t2",
		DetailURL:    "https://vancouver.craigslist.org/bnc/apa/d/burnaby-quiet-1br/7700000001.html",
	}, records[0])

	assert.Equal(t, "Room", records[1].Title)
	assert.Equal(t, "", records[1].LocationText, "no hood span")

	classifier := resolve.NewLocationClassifier(config.DefaultMunicipalities, "Vancouver")
	assert.Equal(t, "Burnaby", classifier.Classify(records[0].LocationText))
}

func TestCraigslistHood(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<li><span class="result-hood"> (North Vancouver) </span></li><li><span class="result-hood">()</span></li>`))
	require.NoError(t, err)

	items := doc.Find("li")
	assert.Equal(t, "North Vancouver", craigslistHood(items.Eq(0)))
	assert.Equal(t, "", craigslistHood(items.Eq(1)))
}

func TestKijijiSelectors(t *testing.T) {
	cfg := testConfig()
	c := CreateCrawlers(cfg, nil)[1].(*ConfigurableCrawler)
	fetcher := &pageFetcher{pages: map[string]string{cfg.KijijiURL: kijijiPage}}
	c.fetchFunc = fetcher.fetch

	records, err := c.FetchListings(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, RawRecord{
		Source:       ProviderKijiji,
		Title:        "Sunny 2BR",
		PriceText:    "$2,650",
		LocationText: "New Westminster",
		ImageRef:     "https://media.kijiji.ca/api/v1/ca-prod-fsbo-ads/images/1.jpg",
		DetailURL:    "https://www.kijiji.ca/v-apartments-condos/burnaby-new-westminster/sunny-2br/1712345678",
	}, records[0])

	assert.Equal(t, "https://www.kijiji.ca/static/no-image.png", records[1].ImageRef)
	assert.Equal(t, "", records[1].LocationText)

	images := resolve.NewImageResolver(ImagePolicies(cfg))
	assert.Equal(t, records[0].ImageRef, images.Resolve(ProviderKijiji, records[0].ImageRef))
	assert.Equal(t, "https://placeholder.example/k.png", images.Resolve(ProviderKijiji, ""))
}

func TestPageURLs(t *testing.T) {
	assert.Equal(t, "https://vancouver.craigslist.org/search/apa?s=120",
		craigslistPageURL("https://vancouver.craigslist.org/search/apa", 1))
	assert.Equal(t, "https://vancouver.craigslist.org/search/apa?availabilityMode=0&s=240",
		craigslistPageURL("https://vancouver.craigslist.org/search/apa?availabilityMode=0", 2))

	assert.Equal(t, "https://www.kijiji.ca/b-apartments-condos/greater-vancouver-area/page-2/c37l80003",
		kijijiPageURL("https://www.kijiji.ca/b-apartments-condos/greater-vancouver-area/c37l80003", 1))
	assert.Equal(t, "https://www.kijiji.ca/b-apartments-condos/greater-vancouver-area/page-3/c37l80003?sort=dateDesc",
		kijijiPageURL("https://www.kijiji.ca/b-apartments-condos/greater-vancouver-area/c37l80003?sort=dateDesc", 2))
}
