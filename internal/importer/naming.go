package importer

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	nonSlugChars = regexp.MustCompile("[^a-z0-9]+")
	nonSKUChars  = regexp.MustCompile("[^A-Z0-9]+")
	validSlug    = regexp.MustCompile("^[a-z0-9-]+$")
)

// Slugify lowercases name, replaces runs of non-alphanumerics with a single
// hyphen and trims hyphens from both ends.
func Slugify(name string) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(name), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > maxSlugLength {
		slug = strings.Trim(slug[:maxSlugLength], "-")
	}
	return slug
}

// SKUify builds an upper-case SKU stem from free text
func SKUify(text string) string {
	sku := nonSKUChars.ReplaceAllString(strings.ToUpper(text), "-")
	sku = strings.Trim(sku, "-")
	if len(sku) > maxSKULength {
		sku = strings.Trim(sku[:maxSKULength], "-")
	}
	return sku
}

func isValidSlug(slug string) bool {
	return validSlug.MatchString(slug)
}

// uniqueKey returns base, or the first of base-2, base-3, ... whose key is
// not taken. key maps a candidate to its comparison form. The base is
// shortened so that every candidate fits in maxLen.
func uniqueKey(base string, maxLen int, taken map[string]bool, key func(string) string) string {
	base = fitKey(base, "", maxLen)
	if !taken[key(base)] {
		return base
	}
	for n := 2; ; n++ {
		candidate := fitKey(base, fmt.Sprintf("-%d", n), maxLen)
		if !taken[key(candidate)] {
			return candidate
		}
	}
}

// fitKey cuts base so that base+suffix is at most maxLen runes long
func fitKey(base, suffix string, maxLen int) string {
	limit := maxLen - utf8.RuneCountInString(suffix)
	if runes := []rune(base); len(runes) > limit {
		base = strings.TrimRight(string(runes[:limit]), "-")
	}
	return base + suffix
}

// lookupBases adds the shortened stems uniqueKey falls back to for long
// bases, so stored keys derived from them are found as well.
func lookupBases(bases []string, maxLen int) []string {
	out := make([]string, 0, len(bases))
	for _, base := range bases {
		base = fitKey(base, "", maxLen)
		out = append(out, base)
		for width := 2; width <= 5; width++ {
			pad := strings.Repeat("-", width)
			if stem := strings.TrimSuffix(fitKey(base, pad, maxLen), pad); stem != base {
				out = append(out, stem)
			}
		}
	}
	return out
}

func identity(s string) string { return s }
