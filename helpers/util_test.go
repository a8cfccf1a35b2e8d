package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveURL(t *testing.T) {
	testCases := []struct {
		base     string
		href     string
		expected string
	}{
		{"https://www.kijiji.ca/b-apartments-condos/c37", "/v-apartments/123", "https://www.kijiji.ca/v-apartments/123"},
		{"https://www.kijiji.ca/b-apartments-condos/c37", "//cdn.kijiji.ca/a.jpg", "https://cdn.kijiji.ca/a.jpg"},
		{"https://example.com/deals", "https://other.com/deals/123", "https://other.com/deals/123"},
		{"https://example.com/search/apa", "d/suite/1.html", "https://example.com/search/d/suite/1.html"},
		{"https://example.com", "", ""},
		{"https://example.com", "#top", ""},
		{"https://example.com", "javascript:void(0)", ""},
		{"not a base", "/relative", ""},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, ResolveURL(tc.base, tc.href), "ResolveURL(%q, %q)", tc.base, tc.href)
	}
}

func TestStripQuery(t *testing.T) {
	assert.Equal(t, "https://a.test/x", StripQuery("https://a.test/x?utm=1#frag"))
	assert.Equal(t, "https://a.test/x", StripQuery("https://a.test/x"))
}
