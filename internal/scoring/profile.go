package scoring

import (
	"fmt"
	"math"
	"sort"
	"sync"
)

const weightTolerance = 1e-6

// Profile is a named brand lens: three top-level weights over (V, R, M) and
// five component weights inside M. Each group must sum to 1.0. Profiles are
// immutable per scoring run; switching profiles never requires re-fetching
// raw attributes.
type Profile struct {
	Name string `json:"name" mapstructure:"name"`

	WVolume    float64 `json:"w_volume" mapstructure:"w_volume"`
	WQuality   float64 `json:"w_quality" mapstructure:"w_quality"`
	WRelevance float64 `json:"w_relevance" mapstructure:"w_relevance"`

	WType      float64 `json:"w_type" mapstructure:"w_type"`
	WPrice     float64 `json:"w_price" mapstructure:"w_price"`
	WAttribute float64 `json:"w_attribute" mapstructure:"w_attribute"`
	WKeyword   float64 `json:"w_keyword" mapstructure:"w_keyword"`
	WTheme     float64 `json:"w_theme" mapstructure:"w_theme"`
}

// Validate fails loudly on weight tables that do not sum to 1.0. Silent
// renormalisation would be indistinguishable from a typo in the table.
func (p Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile has no name")
	}

	topSum := p.WVolume + p.WQuality + p.WRelevance
	if math.Abs(topSum-1.0) > weightTolerance {
		return fmt.Errorf("profile %q: top-level weights sum to %v, want 1.0", p.Name, topSum)
	}

	mSum := p.WType + p.WPrice + p.WAttribute + p.WKeyword + p.WTheme
	if math.Abs(mSum-1.0) > weightTolerance {
		return fmt.Errorf("profile %q: relevance component weights sum to %v, want 1.0", p.Name, mSum)
	}

	for _, w := range []float64{p.WVolume, p.WQuality, p.WRelevance, p.WType, p.WPrice, p.WAttribute, p.WKeyword, p.WTheme} {
		if w < 0 || w > 1 {
			return fmt.Errorf("profile %q: weight %v outside [0,1]", p.Name, w)
		}
	}

	return nil
}

func BuiltinProfiles() []Profile {
	return []Profile{
		{
			Name:    "premium_spirits",
			WVolume: 0.25, WQuality: 0.25, WRelevance: 0.50,
			WType: 0.35, WPrice: 0.25, WAttribute: 0.10, WKeyword: 0.10, WTheme: 0.20,
		},
		{
			Name:    "craft_beer",
			WVolume: 0.30, WQuality: 0.20, WRelevance: 0.50,
			WType: 0.20, WPrice: 0.10, WAttribute: 0.40, WKeyword: 0.15, WTheme: 0.15,
		},
		{
			Name:    "fine_wine",
			WVolume: 0.20, WQuality: 0.30, WRelevance: 0.50,
			WType: 0.30, WPrice: 0.30, WAttribute: 0.15, WKeyword: 0.10, WTheme: 0.15,
		},
		{
			Name:    "budget_drinks",
			WVolume: 0.35, WQuality: 0.15, WRelevance: 0.50,
			WType: 0.20, WPrice: 0.10, WAttribute: 0.45, WKeyword: 0.15, WTheme: 0.10,
		},
	}
}

// Registry holds validated profiles. Registration is the only write path, so
// scoring always sees weights that passed Validate. Registration happens at
// request time, so the map is guarded for concurrent handlers.
type Registry struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

func NewRegistry(profiles ...Profile) (*Registry, error) {
	r := &Registry{profiles: make(map[string]Profile)}
	for _, p := range profiles {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(p Profile) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("failed to register profile: %w", err)
	}
	r.mu.Lock()
	r.profiles[p.Name] = p
	r.mu.Unlock()
	return nil
}

func (r *Registry) Get(name string) (Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[name]
	return p, ok
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
