package selectors

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// SiteOrigin resolves relative links found in page markup.
const SiteOrigin = "https://www.linkedin.com"

// SearchResult is one person entry on a results page.
type SearchResult struct {
	Name       string `json:"name"`
	Headline   string `json:"headline,omitempty"`
	Location   string `json:"location,omitempty"`
	ProfileURL string `json:"profile_url"`
}

// Position is one experience or education entry.
type Position struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
}

// Profile is the extracted content of a profile page.
type Profile struct {
	Name       string     `json:"name"`
	Headline   string     `json:"headline,omitempty"`
	Location   string     `json:"location,omitempty"`
	About      string     `json:"about,omitempty"`
	Experience []Position `json:"experience"`
	Education  []Position `json:"education"`
	ProfileURL string     `json:"profile_url"`
}

// ParseDocument builds a queryable document from page HTML.
func ParseDocument(markup string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("selectors: failed to parse page html: %w", err)
	}
	return doc, nil
}

// Find returns the selection for the first candidate of role that matches
// anything under root.
func (t *Table) Find(root *goquery.Selection, role Role) *goquery.Selection {
	for _, sel := range t.roles[role] {
		if s := root.Find(sel); s.Length() > 0 {
			return s
		}
	}
	return root.Find("__no_match__")
}

// Text returns the normalized text of the first match of role under root.
func (t *Table) Text(root *goquery.Selection, role Role) string {
	return VisibleText(t.Find(root, role).First())
}

// Has reports whether any candidate of role matches under root.
func (t *Table) Has(root *goquery.Selection, role Role) bool {
	return t.Find(root, role).Length() > 0
}

// ExtractSearchResults reads up to limit results. A page without result
// entries yields an empty, non-nil slice.
func (t *Table) ExtractSearchResults(doc *goquery.Document, limit int) []SearchResult {
	results := []SearchResult{}
	seen := map[string]bool{}
	t.Find(doc.Selection, SearchResultItem).EachWithBreak(func(_ int, item *goquery.Selection) bool {
		if limit > 0 && len(results) >= limit {
			return false
		}
		href, _ := t.Find(item, ResultLink).First().Attr("href")
		link := CanonicalProfileURL(href)
		name := t.Text(item, ResultName)
		// Out-of-network "LinkedIn Member" rows have no profile link.
		if name == "" || link == "" || seen[link] {
			return true
		}
		seen[link] = true
		results = append(results, SearchResult{
			Name:       name,
			Headline:   t.Text(item, ResultHeadline),
			Location:   t.Text(item, ResultLocation),
			ProfileURL: link,
		})
		return true
	})
	return results
}

// ExtractProfile reads a profile page. ok is false when the page has no
// profile name anchor.
func (t *Table) ExtractProfile(doc *goquery.Document, pageURL string) (Profile, bool) {
	root := doc.Selection
	name := t.Text(root, ProfileName)
	if name == "" {
		return Profile{}, false
	}
	return Profile{
		Name:       name,
		Headline:   t.Text(root, ProfileHeadline),
		Location:   t.Text(root, ProfileLocation),
		About:      t.Text(root, ProfileAbout),
		Experience: t.positions(root, ExperienceItem),
		Education:  t.positions(root, EducationItem),
		ProfileURL: CanonicalProfileURL(pageURL),
	}, true
}

func (t *Table) positions(root *goquery.Selection, role Role) []Position {
	out := []Position{}
	t.Find(root, role).Each(func(_ int, item *goquery.Selection) {
		title := t.Text(item, ItemTitle)
		if title == "" {
			return
		}
		out = append(out, Position{Title: title, Subtitle: t.Text(item, ItemSubtitle)})
	})
	return out
}

// ConnectionDegree returns the degree badge text ("1st", "2nd", ...) or "".
func (t *Table) ConnectionDegree(doc *goquery.Document) string {
	return t.Text(doc.Selection, ConnectedMarker)
}

// VisibleText collects the text of s, skipping script and style content and
// the screen-reader duplicates the site renders alongside visible labels.
// Whitespace is collapsed.
func VisibleText(s *goquery.Selection) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			b.WriteByte(' ')
			return
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "noscript", "template":
				return
			}
			if hasClass(n, "visually-hidden") {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key == "class" {
			for _, c := range strings.Fields(a.Val) {
				if c == class {
					return true
				}
			}
		}
	}
	return false
}

// CanonicalProfileURL resolves href against the site origin and strips the
// query, fragment and trailing slash. Non-profile links yield "".
func CanonicalProfileURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	base, _ := url.Parse(SiteOrigin)
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	u := base.ResolveReference(ref)
	if !IsProfilePath(u.Path) {
		return ""
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String()
}

// IsProfilePath reports whether p looks like /in/<slug>.
func IsProfilePath(p string) bool {
	rest, ok := strings.CutPrefix(p, "/in/")
	if !ok {
		return false
	}
	rest = strings.TrimSuffix(rest, "/")
	return rest != "" && !strings.Contains(rest, "/")
}
