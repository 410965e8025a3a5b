package authority

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listFixture = `<!DOCTYPE html>
<html>
<body>
<nav>Home | Lists | About</nav>
<ol class="ranking">
  <li><span class="venue-name">Handshake Speakeasy</span><span class="city">Mexico City</span></li>
  <li><span class="venue-name">The Connaught Bar</span><span class="city">London</span></li>
  <li><span class="venue-name">Sips</span><span class="city">Barcelona</span></li>
  <li><span class="venue-name">Handshake Speakeasy</span><span class="city">Mexico City</span></li>
</ol>
<footer>Copyright</footer>
</body>
</html>`

func TestParseNamesWithSelector(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(listFixture))
	require.NoError(t, err)

	names := ParseNames(doc, ".venue-name")

	assert.Equal(t, []string{"Handshake Speakeasy", "The Connaught Bar", "Sips"}, names)
}

func TestParseNamesEmptySelectorFallsBack(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(listFixture))
	require.NoError(t, err)

	names := ParseNames(doc, ".does-not-exist")

	// Fallback runs entity extraction over the page text; it should not
	// panic and should not return selector-shaped duplicates.
	for i, name := range names {
		for j, other := range names {
			if i != j {
				assert.NotEqual(t, name, other)
			}
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"The Connaught Bar", "connaught bar"},
		{"Handshake Speakeasy", "handshake speakeasy"},
		{"  SIPS  ", "sips"},
		{"Bar Nouveau, Paris", "bar nouveau paris"},
		{"L'Antiquario", "l antiquario"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestMatch(t *testing.T) {
	mentions := map[string][]string{
		"connaught bar": {"worlds_50_best_bars", "top_500_bars"},
		"sips":          {"worlds_50_best_bars"},
	}

	assert.Equal(t, []string{"worlds_50_best_bars", "top_500_bars"}, Match("The Connaught Bar", mentions))
	assert.Equal(t, []string{"worlds_50_best_bars"}, Match("SIPS", mentions))
	assert.Nil(t, Match("Unknown Venue", mentions))
}

func TestFetchMentions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(listFixture))
	}))
	defer srv.Close()

	s := NewScraper([]List{
		{Name: "worlds_50_best_bars", URL: srv.URL, Selector: ".venue-name"},
	}, 5)

	mentions, err := s.FetchMentions(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"worlds_50_best_bars"}, mentions["connaught bar"])
	assert.Equal(t, []string{"worlds_50_best_bars"}, mentions["handshake speakeasy"])
	assert.Equal(t, []string{"worlds_50_best_bars"}, mentions["sips"])
}

func TestFetchMentionsAllListsFailing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := NewScraper([]List{
		{Name: "worlds_50_best_bars", URL: srv.URL, Selector: ".venue-name"},
	}, 5)

	_, err := s.FetchMentions(context.Background())
	assert.Error(t, err)
}
