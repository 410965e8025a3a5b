package authority

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	prose "github.com/jdkato/prose/v2"
	"go.uber.org/zap"

	"github.com/ArunBNiah/venue-intel/pkg/logger"
)

// List is one external venue ranking worth flagging. Selector picks the
// elements holding venue names on the list page; when it matches nothing the
// scraper falls back to entity extraction over the page text.
type List struct {
	Name     string
	URL      string
	Selector string
}

func DefaultLists() []List {
	return []List{
		{
			Name:     "worlds_50_best_bars",
			URL:      "https://www.theworlds50best.com/bars/list",
			Selector: ".venue-name",
		},
		{
			Name:     "top_500_bars",
			URL:      "https://top500bars.com/ranking",
			Selector: ".bar-title",
		},
	}
}

type Scraper struct {
	httpClient *http.Client
	lists      []List
}

func NewScraper(lists []List, timeoutSec int) *Scraper {
	if len(lists) == 0 {
		lists = DefaultLists()
	}
	if timeoutSec <= 0 {
		timeoutSec = 15
	}
	return &Scraper{
		httpClient: &http.Client{
			Timeout: time.Duration(timeoutSec) * time.Second,
		},
		lists: lists,
	}
}

// FetchMentions scrapes every configured list and returns normalised venue
// name -> list names. A failing list is skipped, not fatal; authority data
// is a bonus signal.
func (s *Scraper) FetchMentions(ctx context.Context) (map[string][]string, error) {
	mentions := make(map[string][]string)
	failures := 0

	for _, list := range s.lists {
		names, err := s.fetchList(ctx, list)
		if err != nil {
			failures++
			logger.Warn("Authority list fetch failed",
				zap.String("list", list.Name),
				zap.Error(err),
			)
			continue
		}

		for _, name := range names {
			key := Normalize(name)
			if key == "" {
				continue
			}
			mentions[key] = append(mentions[key], list.Name)
		}
	}

	if failures == len(s.lists) {
		return nil, fmt.Errorf("all %d authority lists failed", failures)
	}

	logger.Info("Authority mentions fetched", zap.Int("venues", len(mentions)))
	return mentions, nil
}

func (s *Scraper) fetchList(ctx context.Context, list List) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, list.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	return ParseNames(doc, list.Selector), nil
}

// ParseNames pulls venue names out of a list page. Structured selectors win;
// otherwise named entities from the page text are used as a fallback.
func ParseNames(doc *goquery.Document, selector string) []string {
	var names []string
	seen := make(map[string]bool)

	doc.Find(selector).Each(func(i int, sel *goquery.Selection) {
		name := strings.TrimSpace(sel.Text())
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		names = append(names, name)
	})

	if len(names) > 0 {
		return names
	}

	doc.Find("script, style, nav, footer, header").Remove()
	text := strings.TrimSpace(doc.Find("body").Text())
	return ExtractNames(text)
}

// ExtractNames runs entity extraction over free text and keeps organisation
// and place entities, which is how venue names surface in prose rankings.
func ExtractNames(text string) []string {
	if text == "" {
		return nil
	}

	doc, err := prose.NewDocument(text)
	if err != nil {
		logger.Warn("Entity extraction failed", zap.Error(err))
		return nil
	}

	var names []string
	seen := make(map[string]bool)
	for _, ent := range doc.Entities() {
		if ent.Label != "ORGANIZATION" && ent.Label != "GPE" && ent.Label != "PERSON" {
			continue
		}
		name := strings.TrimSpace(ent.Text)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}

	return names
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9 ]+`)
var spaces = regexp.MustCompile(`\s+`)

// Normalize canonicalises a venue name for matching across sources: lower
// case, punctuation stripped, leading articles dropped.
func Normalize(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = nonAlnum.ReplaceAllString(n, " ")
	n = spaces.ReplaceAllString(n, " ")
	n = strings.TrimSpace(n)
	n = strings.TrimPrefix(n, "the ")
	return strings.TrimSpace(n)
}

// Match returns the list names mentioning the given venue, or nil.
func Match(venueName string, mentions map[string][]string) []string {
	return mentions[Normalize(venueName)]
}
