// Package artifact materializes the terminal Project and MiniSite records
// from a fully processed prospect.
package artifact

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

// Slugify turns a project name into a URL slug. Non-alphanumeric runs
// collapse to single hyphens.
func Slugify(name string) string {
	var sb strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) && r < 128, unicode.IsDigit(r):
			sb.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				sb.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	slug := strings.Trim(sb.String(), "-")
	if slug == "" {
		slug = "project"
	}
	return slug
}

// slugProber lists existing slugs sharing a prefix; both repositories
// satisfy it, giving projects and mini-sites separate namespaces.
type slugProber interface {
	ListSlugsByPrefix(ctx context.Context, prefix string) ([]string, error)
}

// UniqueSlug disambiguates a base slug against the prober's namespace by
// appending the lowest unused integer suffix, starting at 2. Collisions are
// resolved deterministically, never surfaced as errors.
func UniqueSlug(ctx context.Context, probe slugProber, base string) (string, error) {
	existing, err := probe.ListSlugsByPrefix(ctx, base)
	if err != nil {
		return "", fmt.Errorf("probe slugs for %q: %w", base, err)
	}

	taken := make(map[string]bool, len(existing))
	for _, s := range existing {
		taken[s] = true
	}

	if !taken[base] {
		return base, nil
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d", base, n)
		if !taken[candidate] {
			return candidate, nil
		}
	}
}
