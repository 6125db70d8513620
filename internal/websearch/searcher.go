// Package websearch gathers free-text snippets about Pokémon from well-known
// reference sites. There is no crawling: each site is probed at its canonical
// page for the query. Scraping is disabled by default and every site failure
// is isolated.
package websearch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/pokedexlab/orchestrator/internal/metrics"
	"github.com/pokedexlab/orchestrator/internal/ratecontrol"
)

// maxContentLength caps the text extracted from one page.
const maxContentLength = 1000

// Result is one web snippet.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Source  string `json:"source"`
	Content string `json:"content"`
}

type site struct {
	name string
	// urlFor turns a query into the site's canonical page URL.
	urlFor func(query string) string
}

// Searcher probes reference sites for snippets.
type Searcher struct {
	http       *http.Client
	enabled    bool
	maxResults int
	sites      []site
	logger     *zap.Logger
}

// New creates a searcher. When enabled is false every search returns nil,
// which keeps runs fast on flaky networks.
func New(timeout time.Duration, enabled bool, maxResults int, logger *zap.Logger) *Searcher {
	return &Searcher{
		http:       &http.Client{Timeout: timeout},
		enabled:    enabled,
		maxResults: maxResults,
		logger:     logger,
		sites: []site{
			{name: "Bulbapedia", urlFor: func(q string) string {
				return "https://bulbapedia.bulbagarden.net/wiki/" + titleCase(strings.ReplaceAll(strings.ToLower(q), " ", "_"))
			}},
			{name: "Serebii", urlFor: func(q string) string {
				return "https://www.serebii.net/pokedex/" + strings.ReplaceAll(strings.ToLower(q), " ", "") + ".shtml"
			}},
			{name: "Pokemon Database", urlFor: func(q string) string {
				return "https://pokemondb.net/pokedex/" + strings.ReplaceAll(strings.ToLower(q), " ", "-")
			}},
		},
	}
}

// SearchPokemonInfo probes each site for the query and returns up to
// maxResults snippets. A failing site contributes nothing.
func (s *Searcher) SearchPokemonInfo(ctx context.Context, query string) []Result {
	if !s.enabled {
		return nil
	}

	var results []Result
	for _, st := range s.sites {
		if len(results) >= s.maxResults {
			break
		}
		if r, ok := s.fetchPage(ctx, st, query); ok {
			results = append(results, r)
		}
	}
	if len(results) > s.maxResults {
		results = results[:s.maxResults]
	}
	return results
}

// SearchTrainingTips extracts training-related sentences for a Pokémon.
func (s *Searcher) SearchTrainingTips(ctx context.Context, pokemonName string) []string {
	results := s.SearchPokemonInfo(ctx, pokemonName+" training tips pokemon")
	keywords := []string{"train", "evolve", "level", "move", "ability", "stats"}
	return extractSentences(results, keywords, 20, 200, 5)
}

// SearchCompetitiveInfo extracts competitive-battling sentences.
func (s *Searcher) SearchCompetitiveInfo(ctx context.Context, pokemonName string) []string {
	results := s.SearchPokemonInfo(ctx, pokemonName+" competitive pokemon battle")
	keywords := []string{"moveset", "strategy", "tactic", "counter", "teammate"}
	return extractSentences(results, keywords, 20, 250, 5)
}

// SearchLocationInfo extracts sentences that mention catch locations.
func (s *Searcher) SearchLocationInfo(ctx context.Context, pokemonName string) []string {
	results := s.SearchPokemonInfo(ctx, pokemonName+" location catch pokemon")
	keywords := []string{"route", "cave", "forest", "mountain", "ocean", "sea", "lake", "river"}
	return extractSentences(results, keywords, 10, 150, 3)
}

func (s *Searcher) fetchPage(ctx context.Context, st site, query string) (Result, bool) {
	if err := ratecontrol.Wait(ctx, ratecontrol.UpstreamWeb); err != nil {
		s.logger.Warn("web rate limit wait aborted", zap.Error(err))
		return Result{}, false
	}

	url := st.urlFor(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		s.logger.Warn("web request build failed", zap.String("url", url), zap.Error(err))
		return Result{}, false
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := s.http.Do(req)
	if err != nil {
		s.logger.Warn("web request failed",
			zap.String("site", st.name),
			zap.String("url", url),
			zap.Error(err))
		metrics.FetchRequests.WithLabelValues(ratecontrol.UpstreamWeb, "error").Inc()
		return Result{}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.FetchRequests.WithLabelValues(ratecontrol.UpstreamWeb, fmt.Sprintf("%d", resp.StatusCode)).Inc()
		return Result{}, false
	}
	metrics.FetchRequests.WithLabelValues(ratecontrol.UpstreamWeb, "ok").Inc()

	content := extractText(resp.Body)
	if len(content) > maxContentLength {
		content = content[:maxContentLength]
	}

	return Result{
		Title:   fmt.Sprintf("%s - %s", titleCase(query), st.name),
		URL:     url,
		Source:  st.name,
		Content: content,
	}, true
}

// extractText walks the HTML and collects visible text, skipping script and
// style subtrees, collapsing whitespace.
func extractText(r io.Reader) string {
	doc, err := html.Parse(r)
	if err != nil {
		return ""
	}

	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, strings.Join(strings.Fields(t), " "))
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return strings.Join(parts, " ")
}

// extractSentences pulls keyword-bearing sentences out of snippet contents.
func extractSentences(results []Result, keywords []string, minLen, maxLen, limit int) []string {
	var out []string
	for _, r := range results {
		for _, sentence := range splitSentences(r.Content) {
			sentence = strings.TrimSpace(sentence)
			if len(sentence) <= minLen || len(sentence) >= maxLen {
				continue
			}
			lower := strings.ToLower(sentence)
			for _, kw := range keywords {
				if strings.Contains(lower, kw) {
					out = append(out, sentence)
					break
				}
			}
			if len(out) >= limit {
				return out
			}
		}
	}
	return out
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func splitSentences(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
}
