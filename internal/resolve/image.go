package resolve

import (
	"fmt"
	"regexp"
	"strings"
)

// ImageStrategy selects how a raw image reference becomes a URL
type ImageStrategy int

const (
	// StrategyDirect accepts an absolute or protocol-relative URL as is
	StrategyDirect ImageStrategy = iota
	// StrategyCDN builds a URL from an embedded image identifier
	StrategyCDN
)

// CraigslistImageTemplate formats a Craigslist image id into a CDN URL
const CraigslistImageTemplate = "https://images.craigslist.org/%s_600x450.jpg"

var imageIDRegex = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ImagePolicy is the per-source image configuration
type ImagePolicy struct {
	Strategy    ImageStrategy
	CDNTemplate string
	Placeholder string
}

// ImageResolver resolves image references according to per-source policies
type ImageResolver struct {
	policies map[string]ImagePolicy
}

// NewImageResolver creates a resolver. Sources without a policy use
// StrategyDirect with no placeholder.
func NewImageResolver(policies map[string]ImagePolicy) *ImageResolver {
	p := make(map[string]ImagePolicy, len(policies))
	for k, v := range policies {
		p[k] = v
	}
	return &ImageResolver{policies: p}
}

// Resolve returns the image URL for ref, the source placeholder, or "".
func (r *ImageResolver) Resolve(source, ref string) string {
	policy := r.policies[source]

	var resolved string
	switch policy.Strategy {
	case StrategyCDN:
		resolved = cdnURL(policy.CDNTemplate, ref)
	default:
		resolved = directURL(ref)
	}

	if resolved == "" {
		return policy.Placeholder
	}
	return resolved
}

// cdnURL takes the first id of a list like "3:00a0a_abc,3:00b0b_def"
func cdnURL(template, ref string) string {
	if template == "" {
		template = CraigslistImageTemplate
	}
	first, _, _ := strings.Cut(strings.TrimSpace(ref), ",")
	if i := strings.LastIndex(first, ":"); i >= 0 {
		first = first[i+1:]
	}
	first = strings.TrimSpace(first)
	if first == "" || !imageIDRegex.MatchString(first) {
		return ""
	}
	return fmt.Sprintf(template, first)
}

func directURL(ref string) string {
	ref = strings.TrimSpace(ref)
	switch {
	case strings.HasPrefix(ref, "https://"), strings.HasPrefix(ref, "http://"):
		return ref
	case strings.HasPrefix(ref, "//"):
		return "https:" + ref
	}
	return ""
}
