package lookalike

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/ArunBNiah/venue-intel/internal/scoring"
	"github.com/ArunBNiah/venue-intel/internal/storage/sqlite"
	"github.com/ArunBNiah/venue-intel/internal/vector/milvus"
	"github.com/ArunBNiah/venue-intel/pkg/logger"
)

// VectorStore is the similarity backend. Implemented by the milvus client.
type VectorStore interface {
	Upsert(ctx context.Context, signatures []milvus.VenueSignature) error
	SearchSimilar(ctx context.Context, signature []float32, topK int, city, excludePlaceID string) ([]milvus.Match, error)
}

// Signature flattens a score breakdown into the fixed-width vector used for
// similarity search. The type score enters on its 0..1 normalisation and an
// absent theme score maps to the neutral midpoint so enriched and
// non-enriched venues stay comparable.
func Signature(b scoring.ScoreBreakdown) []float32 {
	theme := 0.5
	if b.ThemeScore != nil {
		theme = *b.ThemeScore
	}
	return []float32{
		float32(b.VScore),
		float32(b.RScore),
		float32(b.MScore),
		float32((b.TypeScore + 1.0) / 2.0),
		float32(b.PriceScore),
		float32(b.AttributeScore),
		float32(b.KeywordScore),
		float32(theme),
	}
}

// Finder answers "which venues score like these known-good ones" using
// stored score rows and the signature index.
type Finder struct {
	db      *sqlite.Client
	vectors VectorStore
}

func NewFinder(db *sqlite.Client, vectors VectorStore) *Finder {
	return &Finder{db: db, vectors: vectors}
}

// IndexCity pushes a city's stored scores for one profile into the
// signature index. Call after every re-score so searches see fresh vectors.
func (f *Finder) IndexCity(ctx context.Context, city, profile string) (int, error) {
	scores, err := f.db.RankedScores(city, profile, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to load scores: %w", err)
	}
	if len(scores) == 0 {
		return 0, nil
	}

	signatures := make([]milvus.VenueSignature, 0, len(scores))
	for _, s := range scores {
		venue, err := f.db.GetVenue(s.PlaceID)
		if err != nil {
			return 0, fmt.Errorf("failed to load venue %s: %w", s.PlaceID, err)
		}
		if venue == nil {
			continue
		}

		rec := s.ToRecord(*venue)
		signatures = append(signatures, milvus.VenueSignature{
			PlaceID:   s.PlaceID,
			Signature: Signature(rec.Breakdown),
			Name:      venue.Name,
			City:      venue.City,
			Profile:   profile,
			FitScore:  s.FitScore,
			ScoredAt:  s.ScoredAt,
		})
	}

	if err := f.vectors.Upsert(ctx, signatures); err != nil {
		return 0, fmt.Errorf("failed to index signatures: %w", err)
	}

	logger.Info("City signatures indexed",
		zap.String("city", city),
		zap.String("profile", profile),
		zap.Int("count", len(signatures)),
	)

	return len(signatures), nil
}

// Similar returns the venues scoring most like the given one.
func (f *Finder) Similar(ctx context.Context, placeID, city, profile string, topK int) ([]milvus.Match, error) {
	sig, err := f.signatureFor(placeID, city, profile)
	if err != nil {
		return nil, err
	}
	return f.vectors.SearchSimilar(ctx, sig, topK, city, placeID)
}

// SuccessProfile averages the signatures of seed venues, typically accounts
// that already stock the brand, into one target vector.
func (f *Finder) SuccessProfile(seedPlaceIDs []string, city, profile string) ([]float32, error) {
	if len(seedPlaceIDs) == 0 {
		return nil, fmt.Errorf("no seed venues given")
	}

	sum := make([]float64, milvus.SignatureDim)
	for _, placeID := range seedPlaceIDs {
		sig, err := f.signatureFor(placeID, city, profile)
		if err != nil {
			return nil, err
		}
		for i, v := range sig {
			sum[i] += float64(v)
		}
	}

	avg := make([]float32, milvus.SignatureDim)
	for i, v := range sum {
		avg[i] = float32(v / float64(len(seedPlaceIDs)))
	}
	return avg, nil
}

// Lookalikes finds target-market venues resembling a seed set of known-good
// source-market accounts. The success profile is built in sourceCity and the
// search runs in targetCity, so an account base in one market can prospect
// another. targetCity defaults to the source market.
func (f *Finder) Lookalikes(ctx context.Context, seedPlaceIDs []string, sourceCity, targetCity, profile string, topK int) ([]milvus.Match, error) {
	if targetCity == "" {
		targetCity = sourceCity
	}

	target, err := f.SuccessProfile(seedPlaceIDs, sourceCity, profile)
	if err != nil {
		return nil, err
	}

	matches, err := f.vectors.SearchSimilar(ctx, target, topK+len(seedPlaceIDs), targetCity, "")
	if err != nil {
		return nil, err
	}

	seeds := make(map[string]bool, len(seedPlaceIDs))
	for _, id := range seedPlaceIDs {
		seeds[id] = true
	}

	out := make([]milvus.Match, 0, topK)
	for _, m := range matches {
		if seeds[m.PlaceID] {
			continue
		}
		out = append(out, m)
		if len(out) == topK {
			break
		}
	}

	logger.Info("Lookalike search",
		zap.String("source_city", sourceCity),
		zap.String("target_city", targetCity),
		zap.Int("seeds", len(seedPlaceIDs)),
		zap.Int("matches", len(out)),
	)

	return out, nil
}

// ResolveAccounts maps free-text account names, the form a distributor's
// account list arrives in, to stored place IDs for a city. Matching tries
// normalised equality, then containment, then token overlap. Returns the
// resolved name -> place ID map and the names that matched nothing.
func (f *Finder) ResolveAccounts(city string, names []string) (map[string]string, []string, error) {
	venues, err := f.db.VenuesByCity(city)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load venues: %w", err)
	}

	resolved := make(map[string]string)
	var unmatched []string

	for _, name := range names {
		want := normalizeName(name)
		if want == "" {
			unmatched = append(unmatched, name)
			continue
		}

		bestID := ""
		bestScore := 0.0
		for _, v := range venues {
			have := normalizeName(v.Name)
			switch {
			case have == want:
				bestID, bestScore = v.PlaceID, 1.0
			case bestScore < 0.9 && len(want) >= 4 && len(have) >= 4 &&
				(strings.Contains(have, want) || strings.Contains(want, have)):
				bestID, bestScore = v.PlaceID, 0.9
			default:
				if s := tokenOverlap(want, have); s >= 0.5 && s > bestScore {
					bestID, bestScore = v.PlaceID, s
				}
			}
			if bestScore == 1.0 {
				break
			}
		}

		if bestID == "" {
			unmatched = append(unmatched, name)
			continue
		}
		resolved[name] = bestID
	}

	logger.Info("Accounts resolved",
		zap.String("city", city),
		zap.Int("resolved", len(resolved)),
		zap.Int("unmatched", len(unmatched)),
	)

	return resolved, unmatched, nil
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9 ]+`)
var spaces = regexp.MustCompile(`\s+`)

func normalizeName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	// Drop apostrophes rather than splitting on them so "Satan's" and
	// "Satans" normalise identically.
	n = strings.ReplaceAll(n, "'", "")
	n = nonAlnum.ReplaceAllString(n, " ")
	n = spaces.ReplaceAllString(n, " ")
	n = strings.TrimSpace(n)
	n = strings.TrimPrefix(n, "the ")
	return strings.TrimSpace(n)
}

// tokenOverlap is the Jaccard similarity over whitespace tokens.
func tokenOverlap(a, b string) float64 {
	at := strings.Fields(a)
	bt := strings.Fields(b)
	if len(at) == 0 || len(bt) == 0 {
		return 0
	}

	set := make(map[string]bool, len(at))
	for _, tok := range at {
		set[tok] = true
	}

	shared := 0
	union := len(set)
	for _, tok := range bt {
		if set[tok] {
			shared++
			set[tok] = false
		} else {
			union++
		}
	}
	return float64(shared) / float64(union)
}

func (f *Finder) signatureFor(placeID, city, profile string) ([]float32, error) {
	scores, err := f.db.RankedScores(city, profile, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load scores: %w", err)
	}
	for _, s := range scores {
		if s.PlaceID != placeID {
			continue
		}
		venue, err := f.db.GetVenue(placeID)
		if err != nil {
			return nil, fmt.Errorf("failed to load venue: %w", err)
		}
		if venue == nil {
			break
		}
		rec := s.ToRecord(*venue)
		return Signature(rec.Breakdown), nil
	}
	return nil, fmt.Errorf("no stored score for venue %s under profile %s", placeID, profile)
}
