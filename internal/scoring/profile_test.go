package scoring

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinProfilesAreValid(t *testing.T) {
	profiles := BuiltinProfiles()
	require.Len(t, profiles, 4)

	for _, p := range profiles {
		t.Run(p.Name, func(t *testing.T) {
			assert.NoError(t, p.Validate())
		})
	}
}

func TestProfileValidate(t *testing.T) {
	valid := BuiltinProfiles()[0]

	tests := []struct {
		name    string
		mutate  func(*Profile)
		wantErr string
	}{
		{
			"missing name",
			func(p *Profile) { p.Name = "" },
			"no name",
		},
		{
			"top weights off by a hundredth",
			func(p *Profile) { p.WVolume += 0.01 },
			"top-level weights",
		},
		{
			"component weights do not sum",
			func(p *Profile) { p.WTheme = 0 },
			"component weights",
		},
		{
			"negative weight",
			func(p *Profile) { p.WVolume = -0.25; p.WQuality = 0.75 },
			"outside [0,1]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			err := p.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestProfileValidateTolerance(t *testing.T) {
	// Floating point assembly of weights must not trip validation.
	p := Profile{
		Name:    "tol",
		WVolume: 0.1 + 0.2, WQuality: 0.3, WRelevance: 0.4,
		WType: 0.2, WPrice: 0.2, WAttribute: 0.2, WKeyword: 0.2, WTheme: 0.2,
	}
	assert.NoError(t, p.Validate())
}

func TestRegistryRejectsInvalid(t *testing.T) {
	_, err := NewRegistry(Profile{Name: "broken", WVolume: 1.0})
	require.Error(t, err)

	r, err := NewRegistry(BuiltinProfiles()...)
	require.NoError(t, err)
	assert.Equal(t, []string{"budget_drinks", "craft_beer", "fine_wine", "premium_spirits"}, r.Names())

	got, ok := r.Get("premium_spirits")
	require.True(t, ok)
	assert.Equal(t, 0.50, got.WRelevance)

	_, ok = r.Get("vodka")
	assert.False(t, ok)
}

func TestRegistryConcurrentRegisterAndRead(t *testing.T) {
	r, err := NewRegistry(BuiltinProfiles()...)
	require.NoError(t, err)

	var wg sync.WaitGroup
	start := make(chan struct{})

	wg.Add(2)
	go func() {
		defer wg.Done()
		<-start
		for i := 0; i < 200; i++ {
			p := BuiltinProfiles()[0]
			p.Name = fmt.Sprintf("brand_%d", i)
			require.NoError(t, r.Register(p))
		}
	}()
	go func() {
		defer wg.Done()
		<-start
		for i := 0; i < 200; i++ {
			r.Get("premium_spirits")
			r.Names()
		}
	}()

	close(start)
	wg.Wait()

	got, ok := r.Get("brand_199")
	require.True(t, ok)
	assert.Equal(t, "brand_199", got.Name)
}
