package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"

	"estatemap/internal/logging"
	"estatemap/internal/models"
	"estatemap/internal/place"
	"estatemap/internal/places"
)

// Searcher runs a text search and returns the stored candidate places
type Searcher interface {
	Search(ctx context.Context, query string, opts place.SearchOptions) ([]models.Place, error)
}

type Config struct {
	// Country is appended to queries, e.g. "Hong Kong"
	Country      string
	RegionCode   string
	LanguageCode string

	// AllowedPrimaryTypes restricts candidates when non-empty
	AllowedPrimaryTypes []string
}

// Resolver maps an extracted estate or building name to one place
type Resolver struct {
	search Searcher
	cfg    Config
	logger *logrus.Logger
}

func NewResolver(search Searcher, cfg Config, logger *logrus.Logger) *Resolver {
	return &Resolver{
		search: search,
		cfg:    cfg,
		logger: logging.OrDiscard(logger),
	}
}

// Resolve tries the query variants of name in order and picks a place from
// the first one that returns candidates. A nil place means not found. A
// failed Places call moves on to the next query; any other failure, such as
// an unreadable request cache or quota store, is returned.
func (r *Resolver) Resolve(ctx context.Context, name, district string) (*models.Place, error) {
	name = strings.TrimSpace(name)
	log := r.logger.WithFields(logrus.Fields{
		"name":     name,
		"district": district,
	})

	opts := place.SearchOptions{
		RegionCode:   r.cfg.RegionCode,
		LanguageCode: r.cfg.LanguageCode,
	}

	for _, query := range BuildQueries(name, district, r.cfg.Country) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		results, err := r.search.Search(ctx, query, opts)
		if err != nil {
			if !places.IsUpstream(err) {
				return nil, fmt.Errorf("search %q: %w", query, err)
			}
			log.WithError(err).WithField("query", query).Warn("Place search failed, trying next query")
			continue
		}

		candidates := withIDs(results)
		if len(candidates) == 0 {
			log.WithField("query", query).Debug("No candidates")
			continue
		}

		candidates = FilterRegions(candidates)
		if len(r.cfg.AllowedPrimaryTypes) > 0 {
			candidates = RestrictTypes(candidates, r.cfg.AllowedPrimaryTypes)
			if len(candidates) == 0 {
				log.WithField("query", query).Info("No candidate has an allowed primary type")
				return nil, nil
			}
		}

		picked := Pick(candidates, name)
		log.WithFields(logrus.Fields{
			"query":    query,
			"place_id": picked.ID,
			"picked":   picked.DisplayName.Text,
		}).Info("Resolved place")
		return picked, nil
	}

	return nil, nil
}

// BuildQueries returns the search strings for a name, most specific first,
// without duplicates. An empty name has no queries.
func BuildQueries(name, district, country string) []string {
	name = strings.TrimSpace(name)
	district = strings.TrimSpace(district)
	country = strings.TrimSpace(country)
	if name == "" {
		return nil
	}

	var variants []string
	if district != "" {
		variants = append(variants, join(name, district, country))
	}
	variants = append(variants, join(name, country), name)

	seen := make(map[string]bool, len(variants))
	queries := make([]string, 0, len(variants))
	for _, q := range variants {
		if !seen[q] {
			seen[q] = true
			queries = append(queries, q)
		}
	}
	return queries
}

func join(parts ...string) string {
	nonEmpty := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, ", ")
}

func withIDs(places []models.Place) []models.Place {
	out := make([]models.Place, 0, len(places))
	for _, p := range places {
		if p.ID != "" {
			out = append(out, p)
		}
	}
	return out
}

// FilterRegions drops region places. When every candidate is a region the
// list is returned unfiltered.
func FilterRegions(candidates []models.Place) []models.Place {
	var kept []models.Place
	for i := range candidates {
		if !candidates[i].IsRegion() {
			kept = append(kept, candidates[i])
		}
	}
	if len(kept) == 0 {
		return candidates
	}
	return kept
}

// RestrictTypes keeps candidates whose primary type is allowed. It may
// return an empty list.
func RestrictTypes(candidates []models.Place, allowed []string) []models.Place {
	allow := make(map[string]bool, len(allowed))
	for _, t := range allowed {
		allow[t] = true
	}
	var kept []models.Place
	for _, c := range candidates {
		if allow[c.PrimaryType] {
			kept = append(kept, c)
		}
	}
	return kept
}

// Pick chooses among candidates by display name, ignoring case: an exact
// match first, then the first name containing name, then the first
// candidate. It returns nil only for an empty list.
func Pick(candidates []models.Place, name string) *models.Place {
	if len(candidates) == 0 {
		return nil
	}

	fold := cases.Fold()
	want := fold.String(strings.TrimSpace(name))
	if want != "" {
		folded := make([]string, len(candidates))
		for i, c := range candidates {
			folded[i] = fold.String(c.DisplayName.Text)
		}
		for i, display := range folded {
			if display != "" && display == want {
				return &candidates[i]
			}
		}
		for i, display := range folded {
			if display != "" && strings.Contains(display, want) {
				return &candidates[i]
			}
		}
	}
	return &candidates[0]
}
