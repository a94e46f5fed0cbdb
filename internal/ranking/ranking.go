// Package ranking filters and orders the restaurant catalog for display.
//
// Rank is a pure function: filters are applied in sequence (all must hold),
// distances are computed against the selected origin when one is given,
// and a single stable sort orders the survivors. Equal keys keep their
// input order.
package ranking

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"organizer/internal/geo"
	"organizer/internal/models"
)

type SortKey string

const (
	SortName         SortKey = "name"
	SortOurRating    SortKey = "our_rating"
	SortGoogleRating SortKey = "google_rating"
	SortPriceAsc     SortKey = "price_asc"
	SortPriceDesc    SortKey = "price_desc"
	SortRecent       SortKey = "recent"
	SortDistance     SortKey = "distance"
)

// ParseSortKey accepts the sort names above. An empty string means name.
func ParseSortKey(s string) (SortKey, error) {
	switch key := SortKey(s); key {
	case "":
		return SortName, nil
	case SortName, SortOurRating, SortGoogleRating, SortPriceAsc, SortPriceDesc, SortRecent, SortDistance:
		return key, nil
	}
	return "", fmt.Errorf("unknown sort %q", s)
}

// Item is a catalog restaurant annotated with the couple's favorite flag.
type Item struct {
	Restaurant models.Restaurant
	Favorite   bool
}

// Ranked is one row of the output.
type Ranked struct {
	models.Restaurant
	Favorite   bool     `json:"is_favorite"`
	OurRating  *float64 `json:"our_rating"`
	DistanceKm *float64 `json:"distance_km"`
}

// Options selects and orders restaurants. Zero values disable a filter.
type Options struct {
	Category      string
	Cuisine       string
	Tour          *bool
	Prices        []int
	Visited       *bool
	FavoritesOnly bool
	Search        string
	Neighborhood  string
	// Origin enables distance computation. With RadiusKm > 0 only
	// restaurants with a location inside the radius are kept.
	Origin   *geo.Coordinate
	RadiusKm float64
	Sort     SortKey
}

type predicate func(Ranked) bool

// Rank returns a new slice; items is not modified.
func Rank(items []Item, opts Options) []Ranked {
	out := make([]Ranked, 0, len(items))
	for _, item := range items {
		r := Ranked{Restaurant: item.Restaurant, Favorite: item.Favorite}
		if rating, ok := item.Restaurant.OurRating(); ok {
			r.OurRating = &rating
		}
		if opts.Origin != nil {
			if d, ok := geo.MinDistanceKm(*opts.Origin, item.Restaurant.Locations); ok {
				r.DistanceKm = &d
			}
		}
		out = append(out, r)
	}

	for _, keep := range predicates(opts) {
		out = filter(out, keep)
	}
	sortRanked(out, opts.Sort)
	return out
}

func filter(rows []Ranked, keep predicate) []Ranked {
	kept := rows[:0]
	for _, r := range rows {
		if keep(r) {
			kept = append(kept, r)
		}
	}
	return kept
}

func predicates(opts Options) []predicate {
	var ps []predicate
	if opts.Category != "" {
		want := Fold(opts.Category)
		ps = append(ps, func(r Ranked) bool { return Fold(r.Category) == want })
	}
	if opts.Cuisine != "" {
		want := Fold(opts.Cuisine)
		ps = append(ps, func(r Ranked) bool { return Fold(r.Cuisine) == want })
	}
	if opts.Tour != nil {
		want := *opts.Tour
		ps = append(ps, func(r Ranked) bool { return r.IsTour == want })
	}
	if len(opts.Prices) > 0 {
		prices := make(map[int]bool, len(opts.Prices))
		for _, p := range opts.Prices {
			prices[p] = true
		}
		ps = append(ps, func(r Ranked) bool { return prices[r.PriceRange] })
	}
	if opts.Visited != nil {
		want := *opts.Visited
		ps = append(ps, func(r Ranked) bool { return r.Visited == want })
	}
	if opts.FavoritesOnly {
		ps = append(ps, func(r Ranked) bool { return r.Favorite })
	}
	if strings.TrimSpace(opts.Search) != "" {
		needle := Fold(strings.TrimSpace(opts.Search))
		ps = append(ps, func(r Ranked) bool { return matchesSearch(r.Restaurant, needle) })
	}
	if opts.Neighborhood != "" {
		want := Fold(opts.Neighborhood)
		ps = append(ps, func(r Ranked) bool {
			for _, loc := range r.Locations {
				if Fold(loc.Neighborhood) == want {
					return true
				}
			}
			return false
		})
	}
	if opts.Origin != nil && opts.RadiusKm > 0 {
		radius := opts.RadiusKm
		ps = append(ps, func(r Ranked) bool { return r.DistanceKm != nil && *r.DistanceKm <= radius })
	}
	return ps
}

func matchesSearch(r models.Restaurant, needle string) bool {
	fields := []string{r.Name, r.Cuisine, r.Category}
	for _, loc := range r.Locations {
		fields = append(fields, loc.Neighborhood, loc.Address)
	}
	for _, field := range fields {
		if strings.Contains(Fold(field), needle) {
			return true
		}
	}
	return false
}

func sortRanked(rows []Ranked, key SortKey) {
	var less func(a, b Ranked) bool
	switch key {
	case SortOurRating:
		less = func(a, b Ranked) bool { return descNilLast(a.OurRating, b.OurRating) }
	case SortGoogleRating:
		less = func(a, b Ranked) bool { return descNilLast(a.GoogleRating, b.GoogleRating) }
	case SortPriceAsc:
		less = func(a, b Ranked) bool { return a.PriceRange < b.PriceRange }
	case SortPriceDesc:
		less = func(a, b Ranked) bool { return a.PriceRange > b.PriceRange }
	case SortRecent:
		less = func(a, b Ranked) bool { return a.CreatedAt.After(b.CreatedAt) }
	case SortDistance:
		less = func(a, b Ranked) bool { return ascNilLast(a.DistanceKm, b.DistanceKm) }
	default:
		// a Collator is not safe for concurrent use
		col := collate.New(language.BrazilianPortuguese)
		less = func(a, b Ranked) bool { return col.CompareString(a.Name, b.Name) < 0 }
	}
	sort.SliceStable(rows, func(i, j int) bool { return less(rows[i], rows[j]) })
}

func descNilLast(a, b *float64) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	}
	return *a > *b
}

func ascNilLast(a, b *float64) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	}
	return *a < *b
}
