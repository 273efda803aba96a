// Package geo guesses coordinates and timezones of free-text locations using an embedded gazetteer.
package geo

import (
	_ "embed"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

// Extra choices accepted besides the gazetteer entries.
const (
	CountryNotListed = "Country Not Listed"
	OtherLanguage    = "Other"
)

var (
	//go:embed data/gazetteer.yaml
	gazetteerData []byte

	defaultOnce      sync.Once
	defaultGazetteer *Gazetteer
)

type (
	City struct {
		Name           string   `yaml:"name"`
		AlternateNames []string `yaml:"alternatenames"`
		CountryCode    string   `yaml:"countrycode"`
		Latitude       float64  `yaml:"latitude"`
		Longitude      float64  `yaml:"longitude"`
		Timezone       string   `yaml:"timezone"`
		Population     int      `yaml:"population"`

		folded []string // case-folded name and alternate names
	}

	Country struct {
		Name      string   `yaml:"name"`
		ISO       string   `yaml:"iso"`
		Capital   string   `yaml:"capital"`
		Languages []string `yaml:"languages"` // ISO 639-1 codes
		Aliases   []string `yaml:"aliases"`
	}

	Language struct {
		Name    string   `yaml:"name"`
		ISO     string   `yaml:"iso"`
		Aliases []string `yaml:"aliases"`
	}

	// Gazetteer is read-only once loaded and safe for concurrent use.
	Gazetteer struct {
		cities    []City
		countries []Country
		languages []Language

		countryIndex  map[string]int // folded name or alias
		languageIndex map[string]int
	}
)

// Load parses a gazetteer document.
func Load(data []byte) (*Gazetteer, error) {
	var doc struct {
		Cities    []City     `yaml:"cities"`
		Countries []Country  `yaml:"countries"`
		Languages []Language `yaml:"languages"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "parsing gazetteer")
	}

	fold := cases.Fold()
	for i := range doc.Cities {
		c := &doc.Cities[i]
		c.folded = make([]string, 0, len(c.AlternateNames)+1)
		c.folded = append(c.folded, fold.String(c.Name))
		for _, alt := range c.AlternateNames {
			c.folded = append(c.folded, fold.String(alt))
		}
	}

	g := &Gazetteer{
		cities:        doc.Cities,
		countries:     doc.Countries,
		languages:     doc.Languages,
		countryIndex:  make(map[string]int, 2*len(doc.Countries)),
		languageIndex: make(map[string]int, 2*len(doc.Languages)),
	}
	for i, c := range doc.Countries {
		for _, name := range append([]string{c.Name}, c.Aliases...) {
			g.countryIndex[fold.String(name)] = i
		}
	}
	for i, l := range doc.Languages {
		for _, name := range append([]string{l.Name}, l.Aliases...) {
			g.languageIndex[fold.String(name)] = i
		}
	}
	return g, nil
}

// Default returns the embedded gazetteer, parsed once.
func Default() *Gazetteer {
	defaultOnce.Do(func() {
		g, err := Load(gazetteerData)
		if err != nil {
			panic(err)
		}
		defaultGazetteer = g
	})
	return defaultGazetteer
}

// SearchCities returns the cities whose name or one of its alternate names contains `query`.
func (g *Gazetteer) SearchCities(query string, caseSensitive bool) []City {
	if query == "" {
		return nil
	}
	if !caseSensitive {
		query = cases.Fold().String(query)
	}

	var found []City
	for _, c := range g.cities {
		names := c.folded
		if caseSensitive {
			names = append([]string{c.Name}, c.AlternateNames...)
		}
		for _, name := range names {
			if strings.Contains(name, query) {
				found = append(found, c)
				break
			}
		}
	}
	return found
}

// CitiesByName returns the cities named exactly `name`.
func (g *Gazetteer) CitiesByName(name string) []City {
	var found []City
	for _, c := range g.cities {
		if c.Name == name {
			found = append(found, c)
		}
	}
	return found
}

// CountryByName finds a country by its name or one of its aliases, ignoring case.
func (g *Gazetteer) CountryByName(name string) (Country, bool) {
	i, ok := g.countryIndex[cases.Fold().String(strings.TrimSpace(name))]
	if !ok {
		return Country{}, false
	}
	return g.countries[i], true
}

// LanguageByName finds a language by its name or one of its aliases, ignoring case.
func (g *Gazetteer) LanguageByName(name string) (Language, bool) {
	i, ok := g.languageIndex[cases.Fold().String(strings.TrimSpace(name))]
	if !ok {
		return Language{}, false
	}
	return g.languages[i], true
}

// IsCountry reports whether `name` is an accepted country choice.
func (g *Gazetteer) IsCountry(name string) bool {
	if name == CountryNotListed {
		return true
	}
	_, ok := g.CountryByName(name)
	return ok
}

// IsLanguage reports whether `name` is an accepted language choice.
func (g *Gazetteer) IsLanguage(name string) bool {
	if name == OtherLanguage {
		return true
	}
	_, ok := g.LanguageByName(name)
	return ok
}

// CountryChoices returns the country names offered in forms, in gazetteer order.
func (g *Gazetteer) CountryChoices() []string {
	choices := make([]string, 0, len(g.countries)+1)
	for _, c := range g.countries {
		choices = append(choices, c.Name)
	}
	return append(choices, CountryNotListed)
}

// LanguageChoices returns the language names offered in forms, in gazetteer order.
func (g *Gazetteer) LanguageChoices() []string {
	choices := make([]string, 0, len(g.languages)+1)
	for _, l := range g.languages {
		choices = append(choices, l.Name)
	}
	return append(choices, OtherLanguage)
}

// GuessCity picks the most likely city for a free-text city and country pair.
// A single match wins; otherwise the country narrows the candidates, and a country alone
// resolves to its capital when the capital's name is unambiguous.
func (g *Gazetteer) GuessCity(country, city string) (City, bool) {
	var candidates []City
	if city != "" {
		candidates = g.SearchCities(city, true)
		if len(candidates) == 0 {
			candidates = g.SearchCities(city, false)
		}
	}
	if len(candidates) == 1 {
		return candidates[0], true
	}

	ctry, ok := g.CountryByName(country)
	if !ok {
		return City{}, false
	}

	if len(candidates) > 0 {
		for _, c := range candidates {
			if c.CountryCode == ctry.ISO {
				return c, true
			}
		}
		return City{}, false
	}

	capitals := g.CitiesByName(ctry.Capital)
	if len(capitals) == 1 {
		return capitals[0], true
	}
	return City{}, false
}
