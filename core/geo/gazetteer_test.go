package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGazetteer_GuessCity(t *testing.T) {
	g := Default()

	tests := []struct {
		name         string
		country      string
		city         string
		wantOk       bool
		wantTimezone string
		wantCountry  string
	}{
		{name: "ambiguous city", city: "Boston"},
		{name: "city disambiguated by country", country: "United States", city: "Boston", wantOk: true, wantTimezone: "America/New_York", wantCountry: "US"},
		{name: "other country", country: "United Kingdom", city: "Boston", wantOk: true, wantTimezone: "Europe/London", wantCountry: "GB"},
		{name: "unique city", city: "Bratislava", wantOk: true, wantTimezone: "Europe/Bratislava", wantCountry: "SK"},
		{name: "case-insensitive alternate name", city: "kosice", wantOk: true, wantTimezone: "Europe/Bratislava", wantCountry: "SK"},
		{name: "ambiguous capital", country: "United States"},
		{name: "capital", country: "Slovakia", wantOk: true, wantTimezone: "Europe/Bratislava", wantCountry: "SK"},
		{name: "unknown city", city: "Dummy City"},
		{name: "unknown city in known country", country: "Slovakia", city: "Dummy City", wantOk: true, wantTimezone: "Europe/Bratislava"},
		{name: "no candidates in country", country: "Japan", city: "Boston"},
		{name: "nothing", wantOk: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := g.GuessCity(tt.country, tt.city)
			require.Equal(t, tt.wantOk, ok)
			assert.Equal(t, tt.wantTimezone, c.Timezone)
			if tt.wantCountry != "" {
				assert.Equal(t, tt.wantCountry, c.CountryCode)
			}
		})
	}
}

func TestGazetteer_SearchCities(t *testing.T) {
	g := Default()

	assert.Len(t, g.SearchCities("Washington", true), 2)
	assert.Empty(t, g.SearchCities("washington", true))
	assert.Len(t, g.SearchCities("washington", false), 2)
	assert.Empty(t, g.SearchCities("", false))

	found := g.SearchCities("KASSA", false)
	if assert.Len(t, found, 1) {
		assert.Equal(t, "Košice", found[0].Name)
		assert.InDelta(t, 48.71395, found[0].Latitude, 1e-6)
		assert.InDelta(t, 21.25808, found[0].Longitude, 1e-6)
	}
}

func TestLoad(t *testing.T) {
	g, err := Load([]byte(`
cities:
  - {name: Springfield, countrycode: US, timezone: America/Chicago}
  - {name: Springfield, countrycode: US, timezone: America/New_York}
countries:
  - {name: Nowhere, iso: NW, capital: Springfield}
`))
	require.NoError(t, err)
	assert.Len(t, g.CitiesByName("Springfield"), 2)

	_, ok := g.GuessCity("Nowhere", "")
	assert.False(t, ok)

	_, err = Load([]byte("cities: {"))
	assert.Error(t, err)
}

func TestGazetteer_countries(t *testing.T) {
	g := Default()

	c, ok := g.CountryByName("czech republic")
	require.True(t, ok)
	assert.Equal(t, "CZ", c.ISO)
	assert.Contains(t, c.Languages, "cs")

	tests := []struct {
		name string
		want bool
	}{
		{name: "Slovakia", want: true},
		{name: "  slovakia ", want: true},
		{name: "Bahamas, The", want: true},
		{name: "Congo, Democratic Republic of the", want: true},
		{name: "Swaziland", want: true},
		{name: "United States of America", want: true},
		{name: CountryNotListed, want: true},
		{name: "Atlantis"},
		{name: "SK"},
		{name: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, g.IsCountry(tt.name))
		})
	}

	choices := g.CountryChoices()
	assert.Greater(t, len(choices), 200)
	assert.Contains(t, choices, "Slovakia")
	assert.NotContains(t, choices, "Swaziland", "aliases are accepted, not offered")
	assert.Equal(t, CountryNotListed, choices[len(choices)-1])
}

func TestGazetteer_capitals(t *testing.T) {
	g := Default()
	for _, name := range g.CountryChoices() {
		c, ok := g.CountryByName(name)
		if !ok || c.Capital == "" {
			continue
		}
		capitals := g.CitiesByName(c.Capital)
		require.NotEmpty(t, capitals, "capital of %s", name)
		for _, city := range capitals {
			assert.NotEmpty(t, city.Timezone, city.Name)
		}
	}

	city, ok := g.GuessCity("Swaziland", "")
	require.True(t, ok)
	assert.Equal(t, "Mbabane", city.Name)
	assert.Equal(t, "Africa/Mbabane", city.Timezone)
}

func TestGazetteer_languages(t *testing.T) {
	g := Default()

	l, ok := g.LanguageByName("Portuguese, Brazil")
	require.True(t, ok)
	assert.Equal(t, "Portuguese", l.Name)
	assert.Equal(t, "pt", l.ISO)

	assert.True(t, g.IsLanguage("Slovak"))
	assert.True(t, g.IsLanguage("mandarin"))
	assert.True(t, g.IsLanguage(OtherLanguage))
	assert.False(t, g.IsLanguage("Klingon"))
	assert.False(t, g.IsLanguage(""))

	choices := g.LanguageChoices()
	assert.Contains(t, choices, "English")
	assert.NotContains(t, choices, "Mandarin")
	assert.Equal(t, OtherLanguage, choices[len(choices)-1])
}

func TestDefault_shared(t *testing.T) {
	assert.Same(t, Default(), Default())
}
