package tools

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/linkmcp/internal/browser/humanoid"
	"github.com/xkilldash9x/linkmcp/internal/selectors"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 25
	// resultsPerPage is how many people the site lists per results page.
	resultsPerPage = 10
)

type searchArgs struct {
	Query    string `json:"query"`
	Location string `json:"location,omitempty"`
	Limit    *int   `json:"limit,omitempty"`
}

// SearchData is the payload of a successful people search.
type SearchData struct {
	Query        string                   `json:"query"`
	Location     string                   `json:"location,omitempty"`
	Results      []selectors.SearchResult `json:"results"`
	TotalResults int                      `json:"total_results"`
	PagesVisited int                      `json:"pages_visited"`
}

func (e *Env) searchLimit(requested *int) (int, error) {
	ceiling := maxSearchLimit
	if cfgMax := e.cfg.Limits().MaxSearchResults; cfgMax > 0 && cfgMax < ceiling {
		ceiling = cfgMax
	}
	if requested == nil {
		return min(defaultSearchLimit, ceiling), nil
	}
	if *requested < 1 || *requested > ceiling {
		return 0, fmt.Errorf("limit must be between 1 and %d, got %d", ceiling, *requested)
	}
	return *requested, nil
}

// searchURL builds the people search address. Location is folded into the
// keywords since geo facets need site-internal ids.
func searchURL(query, location string, page int) string {
	keywords := strings.TrimSpace(query)
	if loc := strings.TrimSpace(location); loc != "" {
		keywords += " " + loc
	}
	v := url.Values{}
	v.Set("keywords", keywords)
	v.Set("origin", "GLOBAL_SEARCH_HEADER")
	if page > 1 {
		v.Set("page", strconv.Itoa(page))
	}
	return selectors.SiteOrigin + "/search/results/people/?" + v.Encode()
}

// SearchPeople runs a people search and returns up to limit results. A clean
// page without result entries is a successful empty search.
func SearchPeople(ctx context.Context, env *Env, raw map[string]any) Outcome {
	args, err := mapToStruct[searchArgs](raw)
	if err != nil {
		return Errorf("%v", err)
	}
	args.Query = strings.TrimSpace(args.Query)
	if args.Query == "" {
		return Errorf("query is required")
	}
	limit, err := env.searchLimit(args.Limit)
	if err != nil {
		return Errorf("%v", err)
	}

	c, err := env.begin(ctx, ToolSearchPeople)
	if err != nil {
		return browserUnavailable(err)
	}

	data := SearchData{Query: args.Query, Location: args.Location, Results: []selectors.SearchResult{}}
	seen := map[string]bool{}
	pages := (limit + resultsPerPage - 1) / resultsPerPage

	for page := 1; page <= pages && len(data.Results) < limit; page++ {
		if err := c.navigate(ctx, searchURL(args.Query, args.Location, page)); err != nil {
			return c.fault(ctx, err)
		}
		data.PagesVisited = page

		st, ok, out := c.settled(ctx, selectors.SearchResultItem, selectors.SearchNoResults)
		if out != nil {
			return *out
		}
		if !ok || st.anchor == selectors.SearchNoResults {
			break
		}
		if err := c.read(ctx); err != nil {
			return c.fault(ctx, err)
		}

		// Results below the fold render lazily.
		if _, err := c.scroll(ctx, humanoid.ScrollDown); err != nil {
			return c.fault(ctx, err)
		}
		if p, err := c.classify(ctx); err != nil {
			return c.fault(ctx, err)
		} else if p != nil {
			return c.needsHuman(ctx, p)
		}

		doc, err := c.document(ctx)
		if err != nil {
			return c.fault(ctx, err)
		}
		added := 0
		for _, r := range c.table.ExtractSearchResults(doc, 0) {
			if len(data.Results) >= limit {
				break
			}
			if seen[r.ProfileURL] {
				continue
			}
			seen[r.ProfileURL] = true
			data.Results = append(data.Results, r)
			added++
		}
		if added == 0 {
			break
		}
	}

	data.TotalResults = len(data.Results)
	c.logger.Info("Search finished.",
		zap.Int("results", data.TotalResults),
		zap.Int("pages", data.PagesVisited))
	return Success(data)
}
