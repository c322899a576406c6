package importer

import (
	"context"
	"fmt"
	"strings"

	"catalog-import-service/internal/models"
)

// ScanStatus classifies a batch that is allowed to proceed
type ScanStatus string

const (
	ScanClear   ScanStatus = "clear"
	ScanPartial ScanStatus = "partial"
)

// Decision is the outcome of the conflict scan. It is either Proceed or
// Abort; callers type-switch on it before any write is attempted.
type Decision interface {
	isDecision()
}

// Proceed allows execution. Matches maps batch index to the stored category
// the record collides with.
type Proceed struct {
	Status    ScanStatus
	Matches   map[int]ExistingCategory
	Conflicts []models.Conflict
}

// Abort stops the batch before any mutation
type Abort struct {
	Conflicts []models.Conflict
}

func (Proceed) isDecision() {}
func (Abort) isDecision()   {}

// Candidate is a validated record together with its position in the batch
type Candidate struct {
	Index  int
	Record models.CategoryRecord
}

// Scan looks up every natural key of the batch in a single gateway read and
// classifies the batch under policy.
func Scan(ctx context.Context, gw Gateway, candidates []Candidate, policy models.ExistingPolicy) (Decision, error) {
	slugs := make([]string, 0, len(candidates))
	names := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c.Record.Slug != "" {
			slugs = append(slugs, c.Record.Slug)
		}
		names = append(names, c.Record.Name)
	}

	matches := make(map[int]ExistingCategory)
	var conflicts []models.Conflict
	if len(candidates) > 0 {
		existing, err := gw.FindExistingBySlugOrName(ctx, dedupe(slugs, identity), dedupe(names, strings.ToLower))
		if err != nil {
			return nil, fmt.Errorf("failed to look up existing categories: %w", err)
		}

		bySlug := make(map[string]ExistingCategory, len(existing))
		byName := make(map[string]ExistingCategory, len(existing))
		for _, e := range existing {
			bySlug[e.Slug] = e
			// first stored match wins for duplicate names
			if _, seen := byName[strings.ToLower(e.Name)]; !seen {
				byName[strings.ToLower(e.Name)] = e
			}
		}

		for _, c := range candidates {
			if c.Record.Slug != "" {
				if e, ok := bySlug[c.Record.Slug]; ok {
					matches[c.Index] = e
					conflicts = append(conflicts, models.Conflict{Index: c.Index, ExistingID: e.ID, Field: "slug", Value: c.Record.Slug})
					continue
				}
			}
			if e, ok := byName[strings.ToLower(c.Record.Name)]; ok {
				matches[c.Index] = e
				conflicts = append(conflicts, models.Conflict{Index: c.Index, ExistingID: e.ID, Field: "name", Value: c.Record.Name})
			}
		}
	}

	switch policy {
	case models.ExistingError:
		if len(conflicts) > 0 {
			return Abort{Conflicts: conflicts}, nil
		}
		return Proceed{Status: ScanClear, Matches: matches}, nil
	case models.ExistingSkip:
		status := ScanClear
		if len(conflicts) > 0 {
			status = ScanPartial
		}
		return Proceed{Status: status, Matches: matches, Conflicts: conflicts}, nil
	case models.ExistingReplace:
		return Proceed{Status: ScanClear, Matches: matches, Conflicts: conflicts}, nil
	}
	return nil, fmt.Errorf("%w: unknown policy %q", models.ErrInvalidOptions, policy)
}

// AbortMessage names every colliding record and the policies that would let
// the same batch through.
func AbortMessage(conflicts []models.Conflict) string {
	parts := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		parts = append(parts, fmt.Sprintf("#%d %s '%s' (existing id %s)", c.Index, c.Field, c.Value, c.ExistingID))
	}
	return fmt.Sprintf(
		"Import stopped: %d categor%s already exist: %s. No changes were made. Resubmit with existingCategories='skip' to keep the existing categories or existingCategories='replace' to overwrite them.",
		len(conflicts), plural(len(conflicts), "y", "ies"), strings.Join(parts, ", "))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func dedupe(values []string, key func(string) string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		k := key(v)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, v)
	}
	return out
}
