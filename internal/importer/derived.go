package importer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"catalog-import-service/internal/models"
)

const (
	fallbackSlug = "category"
	fallbackSKU  = "PRODUCT"
)

var ErrSlugRequired = errors.New("slug is required when slug generation is disabled")

type planKind int

const (
	planCreate planKind = iota
	planSkip
	planUpdate
	planReplace
)

func (k planKind) String() string {
	switch k {
	case planCreate:
		return "create"
	case planSkip:
		return "skip"
	case planUpdate:
		return "update"
	case planReplace:
		return "replace"
	}
	return "unknown"
}

// plan is a candidate with the action the executor will take for it
type plan struct {
	Candidate
	Kind     planKind
	Existing ExistingCategory
	Err      error
}

// buildPlans turns scan matches into per-record actions. Under replace a
// stored category is deleted at most once; later records matching it are
// created fresh.
func buildPlans(candidates []Candidate, matches map[int]ExistingCategory, opts models.ImportOptions) []plan {
	plans := make([]plan, len(candidates))
	replaced := make(map[string]bool)
	for i, c := range candidates {
		plans[i] = plan{Candidate: c, Kind: planCreate}
		existing, ok := matches[c.Index]
		if !ok {
			continue
		}
		switch opts.Policy() {
		case models.ExistingSkip:
			plans[i].Existing = existing
			plans[i].Kind = planSkip
			if opts.UpdateExisting {
				plans[i].Kind = planUpdate
			}
		case models.ExistingReplace:
			if replaced[existing.ID] {
				continue
			}
			replaced[existing.ID] = true
			plans[i].Existing = existing
			plans[i].Kind = planReplace
		}
	}
	return plans
}

// Generator fills in slugs, sort orders and SKUs for records about to be
// written. It works on the batch in order; every assignment sees the effect
// of the ones before it.
type Generator struct {
	gw                Gateway
	generateSlugs     bool
	generateSortOrder bool
	importProducts    bool
}

func NewGenerator(gw Gateway, opts models.ImportOptions) *Generator {
	return &Generator{
		gw:                gw,
		generateSlugs:     opts.ShouldGenerateSlugs(),
		generateSortOrder: opts.ShouldGenerateSortOrder(),
		importProducts:    opts.ShouldImportProducts(),
	}
}

// Assign resolves every derived field of plans in place
func (g *Generator) Assign(ctx context.Context, plans []plan) error {
	if err := g.assignSlugs(ctx, plans); err != nil {
		return err
	}

	seed := 0
	if g.generateSortOrder && needsSortOrder(plans) {
		current, err := g.gw.MaxCategorySortOrder(ctx)
		if err != nil {
			return fmt.Errorf("failed to read current sort order: %w", err)
		}
		seed = current
	}
	assignSortOrders(plans, seed, g.generateSortOrder)

	if g.importProducts {
		if err := g.assignSKUs(ctx, plans); err != nil {
			return err
		}
		for i := range plans {
			for j := range plans[i].Record.Products {
				orderImages(plans[i].Record.Products[j].Images)
			}
		}
	}
	return nil
}

func writes(p *plan) bool {
	return p.Err == nil && (p.Kind == planCreate || p.Kind == planReplace)
}

func replacedOwners(plans []plan) map[string]bool {
	owners := make(map[string]bool)
	for _, p := range plans {
		if p.Kind == planReplace {
			owners[p.Existing.ID] = true
		}
	}
	return owners
}

func (g *Generator) assignSlugs(ctx context.Context, plans []plan) error {
	taken := make(map[string]bool)
	var pending []int
	var bases []string

	for i := range plans {
		p := &plans[i]
		if !writes(p) {
			continue
		}
		if p.Record.Slug == "" && p.Kind == planReplace {
			p.Record.Slug = p.Existing.Slug
		}
		if p.Record.Slug != "" {
			taken[p.Record.Slug] = true
			continue
		}
		if !g.generateSlugs {
			p.Err = ErrSlugRequired
			continue
		}
		base := Slugify(p.Record.Name)
		if base == "" {
			base = fallbackSlug
		}
		pending = append(pending, i)
		bases = append(bases, base)
	}
	if len(pending) == 0 {
		return nil
	}

	stored, err := g.gw.ExistingSlugs(ctx, dedupe(lookupBases(bases, maxSlugLength), identity))
	if err != nil {
		return fmt.Errorf("failed to look up existing slugs: %w", err)
	}
	free := replacedOwners(plans)
	for slug, owner := range stored {
		if !free[owner] {
			taken[slug] = true
		}
	}

	for n, i := range pending {
		slug := uniqueKey(bases[n], maxSlugLength, taken, identity)
		taken[slug] = true
		plans[i].Record.Slug = slug
	}
	return nil
}

func needsSortOrder(plans []plan) bool {
	for i := range plans {
		p := &plans[i]
		if writes(p) && p.Record.SortOrder == nil && p.Kind == planCreate {
			return true
		}
	}
	return false
}

// assignSortOrders threads a running counter through the batch. next starts
// at the stored maximum; explicit values raise it. It returns the final
// counter value.
func assignSortOrders(plans []plan, next int, generate bool) int {
	for i := range plans {
		p := &plans[i]
		if !writes(p) {
			continue
		}
		if p.Record.SortOrder != nil {
			if *p.Record.SortOrder > next {
				next = *p.Record.SortOrder
			}
			continue
		}
		var order int
		switch {
		case p.Kind == planReplace:
			order = p.Existing.SortOrder
		case generate:
			next++
			order = next
		}
		p.Record.SortOrder = &order
	}
	return next
}

type skuSlot struct {
	plan, product, variant int
}

func (g *Generator) assignSKUs(ctx context.Context, plans []plan) error {
	free := replacedOwners(plans)
	taken := make(map[string]bool)

	claim := func(bases []string, slots []skuSlot, set func(skuSlot, string)) error {
		if len(slots) == 0 {
			return nil
		}
		stored, err := g.gw.ExistingSKUs(ctx, dedupe(lookupBases(bases, maxSKULength), strings.ToUpper))
		if err != nil {
			return fmt.Errorf("failed to look up existing SKUs: %w", err)
		}
		for sku, owner := range stored {
			if !free[owner] {
				taken[strings.ToUpper(sku)] = true
			}
		}
		for n, slot := range slots {
			sku := uniqueKey(bases[n], maxSKULength, taken, strings.ToUpper)
			taken[strings.ToUpper(sku)] = true
			set(slot, sku)
		}
		return nil
	}

	var slots []skuSlot
	var bases []string
	for i := range plans {
		if plans[i].Err != nil {
			continue
		}
		for j, product := range plans[i].Record.Products {
			if productReady(product) != nil {
				continue
			}
			base := product.SKU
			if base == "" {
				base = SKUify(product.Name)
			}
			if base == "" {
				base = fallbackSKU
			}
			slots = append(slots, skuSlot{plan: i, product: j})
			bases = append(bases, base)
		}
	}
	err := claim(bases, slots, func(s skuSlot, sku string) {
		plans[s.plan].Record.Products[s.product].SKU = sku
	})
	if err != nil {
		return err
	}

	productSlots := slots
	slots, bases = nil, nil
	for _, ps := range productSlots {
		product := &plans[ps.plan].Record.Products[ps.product]
		for k, variant := range product.Variants {
			base := variant.SKU
			if base == "" {
				base = variantSKU(product.SKU, variant, k)
			}
			slots = append(slots, skuSlot{plan: ps.plan, product: ps.product, variant: k})
			bases = append(bases, base)
		}
	}
	return claim(bases, slots, func(s skuSlot, sku string) {
		plans[s.plan].Record.Products[s.product].Variants[s.variant].SKU = sku
	})
}

func variantSKU(productSKU string, variant models.VariantRecord, position int) string {
	parts := []string{productSKU}
	if s := SKUify(variant.Size); s != "" {
		parts = append(parts, s)
	}
	if s := SKUify(variant.Color); s != "" {
		parts = append(parts, s)
	}
	if len(parts) == 1 {
		parts = append(parts, fmt.Sprintf("V%d", position+1))
	}
	return strings.Join(parts, "-")
}

// orderImages sorts images by their requested position, falling back to
// input position, and renumbers them from zero.
func orderImages(images []models.ImageRecord) {
	position := func(i int) int {
		if images[i].SortOrder != nil {
			return *images[i].SortOrder
		}
		return i
	}
	keys := make([]int, len(images))
	for i := range images {
		keys[i] = position(i)
	}
	idx := make([]int, len(images))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return keys[idx[a]] < keys[idx[b]] })

	ordered := make([]models.ImageRecord, len(images))
	for n, i := range idx {
		ordered[n] = images[i]
		order := n
		ordered[n].SortOrder = &order
	}
	copy(images, ordered)
}
