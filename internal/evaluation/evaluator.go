package evaluation

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ArunBNiah/venue-intel/internal/authority"
	"github.com/ArunBNiah/venue-intel/internal/storage/sqlite"
	"github.com/ArunBNiah/venue-intel/pkg/logger"
)

// Evaluator checks scored rankings against external authority lists. A
// venue appearing on a curated ranking is treated as ground truth for
// "worth distributing into", so high fit scores should recover them.
type Evaluator struct {
	db      *sqlite.Client
	scraper *authority.Scraper
}

// Report summarises how well one city ranking recovers authority venues.
type Report struct {
	City    string
	Profile string
	TopK    int

	TotalRanked     int
	AuthorityVenues int
	AuthorityInTopK int

	PrecisionAtK      float64
	RecallAtK         float64
	MeanAuthorityRank float64
}

func NewEvaluator(db *sqlite.Client, scraper *authority.Scraper) *Evaluator {
	return &Evaluator{
		db:      db,
		scraper: scraper,
	}
}

// Annotate stamps stored venues with the authority lists mentioning them
// and returns how many venues matched.
func (e *Evaluator) Annotate(city string, mentions map[string][]string) (int, error) {
	venues, err := e.db.VenuesByCity(city)
	if err != nil {
		return 0, fmt.Errorf("failed to load venues: %w", err)
	}

	matched := 0
	for i := range venues {
		lists := authority.Match(venues[i].Name, mentions)
		if len(lists) == 0 {
			continue
		}
		venues[i].AuthorityLists = lists
		if err := e.db.UpsertVenue(&venues[i]); err != nil {
			return matched, fmt.Errorf("failed to save venue %s: %w", venues[i].PlaceID, err)
		}
		matched++
	}

	logger.Info("Authority mentions annotated",
		zap.String("city", city),
		zap.Int("matched", matched),
		zap.Int("venues", len(venues)),
	)

	return matched, nil
}

// FetchAndAnnotate scrapes the configured lists first, then annotates.
func (e *Evaluator) FetchAndAnnotate(ctx context.Context, city string) (int, error) {
	if e.scraper == nil {
		return 0, fmt.Errorf("no authority scraper configured")
	}

	mentions, err := e.scraper.FetchMentions(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch authority mentions: %w", err)
	}

	return e.Annotate(city, mentions)
}

// EvaluateRanking scores a stored ranking against authority mentions.
// Precision@k asks how much of the top k is authority-listed; recall asks
// how many authority venues the top k recovered.
func (e *Evaluator) EvaluateRanking(city, profile string, topK int, mentions map[string][]string) (*Report, error) {
	if topK <= 0 {
		topK = 10
	}

	scores, err := e.db.RankedScores(city, profile, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load ranking: %w", err)
	}
	if len(scores) == 0 {
		return nil, fmt.Errorf("no stored scores for %s under profile %s", city, profile)
	}

	report := &Report{
		City:        city,
		Profile:     profile,
		TopK:        topK,
		TotalRanked: len(scores),
	}

	var rankSum float64
	for i, s := range scores {
		venue, err := e.db.GetVenue(s.PlaceID)
		if err != nil || venue == nil {
			continue
		}

		if len(authority.Match(venue.Name, mentions)) == 0 {
			continue
		}

		report.AuthorityVenues++
		rankSum += float64(i + 1)
		if i < topK {
			report.AuthorityInTopK++
		}
	}

	k := topK
	if len(scores) < k {
		k = len(scores)
	}
	if k > 0 {
		report.PrecisionAtK = float64(report.AuthorityInTopK) / float64(k)
	}
	if report.AuthorityVenues > 0 {
		report.RecallAtK = float64(report.AuthorityInTopK) / float64(report.AuthorityVenues)
		report.MeanAuthorityRank = rankSum / float64(report.AuthorityVenues)
	}

	logger.Info("Ranking evaluated",
		zap.String("city", city),
		zap.String("profile", profile),
		zap.Float64("precision_at_k", report.PrecisionAtK),
		zap.Float64("recall_at_k", report.RecallAtK),
	)

	return report, nil
}

// GenerateReport renders a report for operators.
func (e *Evaluator) GenerateReport(report *Report) string {
	return fmt.Sprintf(`
Ranking Evaluation: %s / %s
===========================

Ranked Venues: %d
Authority Venues: %d
Authority in Top %d: %d

Precision@%d: %.3f
Recall@%d: %.3f
Mean Authority Rank: %.1f
`,
		report.City, report.Profile,
		report.TotalRanked,
		report.AuthorityVenues,
		report.TopK, report.AuthorityInTopK,
		report.TopK, report.PrecisionAtK,
		report.TopK, report.RecallAtK,
		report.MeanAuthorityRank,
	)
}
