// Package catalog holds the immutable level and animal content with its
// per-locale translations.
package catalog

import (
	"fmt"

	"animal-quiz-service/internal/domain"
	"golang.org/x/text/language"
)

const fallbackEmoji = "\U0001f43e"

// LevelDefinition is a level as stored in YAML or in the catalog table.
type LevelDefinition struct {
	ID      int                `yaml:"id" json:"id"`
	Emoji   string             `yaml:"emoji" json:"emoji"`
	Title   map[string]string  `yaml:"title" json:"title"`
	Animals []AnimalDefinition `yaml:"animals" json:"animals"`
}

// AnimalDefinition is an animal with every translation.
type AnimalDefinition struct {
	Emoji    string              `yaml:"emoji" json:"emoji"`
	ImageURL string              `yaml:"image_url" json:"imageUrl"`
	Name     map[string]string   `yaml:"name" json:"name"`
	Hints    map[string][]string `yaml:"hints" json:"hints"`
	FunFacts map[string][]string `yaml:"fun_facts" json:"funFacts"`
}

type animalEntry struct {
	globalID int
	def      AnimalDefinition
}

type levelEntry struct {
	def     LevelDefinition
	animals []animalEntry
}

// Catalog is built once at startup and shared read-only by every service.
type Catalog struct {
	defaultLocale string
	locales       []string
	matcher       language.Matcher

	levels  []levelEntry
	byLevel map[int]int
	byID    map[int]animalEntry
}

// New validates the definitions and assigns each animal a 1-based global id
// in catalog order. The default locale is always supported and every animal
// must carry a name in it.
func New(levels []LevelDefinition, defaultLocale string, locales []string) (*Catalog, error) {
	if defaultLocale == "" {
		return nil, fmt.Errorf("catalog: default locale not configured")
	}
	supported := []string{defaultLocale}
	for _, l := range locales {
		if l != defaultLocale {
			supported = append(supported, l)
		}
	}
	tags := make([]language.Tag, 0, len(supported))
	for _, l := range supported {
		tag, err := language.Parse(l)
		if err != nil {
			return nil, fmt.Errorf("catalog: locale %q: %w", l, err)
		}
		tags = append(tags, tag)
	}

	c := &Catalog{
		defaultLocale: defaultLocale,
		locales:       supported,
		matcher:       language.NewMatcher(tags),
		byLevel:       make(map[int]int, len(levels)),
		byID:          make(map[int]animalEntry),
	}

	nextID := 1
	for _, lvl := range levels {
		if _, dup := c.byLevel[lvl.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate level id %d", lvl.ID)
		}
		entry := levelEntry{def: lvl}
		for i, animal := range lvl.Animals {
			if animal.Name[defaultLocale] == "" {
				return nil, fmt.Errorf("catalog: level %d animal %d has no %q name", lvl.ID, i, defaultLocale)
			}
			ae := animalEntry{globalID: nextID, def: animal}
			entry.animals = append(entry.animals, ae)
			c.byID[nextID] = ae
			nextID++
		}
		c.byLevel[lvl.ID] = len(c.levels)
		c.levels = append(c.levels, entry)
	}
	return c, nil
}

// DefaultLocale returns the configured fallback locale.
func (c *Catalog) DefaultLocale() string {
	return c.defaultLocale
}

// Locales returns the supported locales, default first.
func (c *Catalog) Locales() []string {
	return append([]string(nil), c.locales...)
}

// ResolveLocale maps an Accept-Language style preference (or a bare locale)
// onto a supported locale, falling back to the default.
func (c *Catalog) ResolveLocale(preference string) string {
	if preference == "" {
		return c.defaultLocale
	}
	tags, _, err := language.ParseAcceptLanguage(preference)
	if err != nil || len(tags) == 0 {
		return c.defaultLocale
	}
	_, idx, confidence := c.matcher.Match(tags...)
	if confidence == language.No || idx < 0 || idx >= len(c.locales) {
		return c.defaultLocale
	}
	return c.locales[idx]
}

// LevelIDs returns level ids in catalog order.
func (c *Catalog) LevelIDs() []int {
	ids := make([]int, len(c.levels))
	for i, l := range c.levels {
		ids[i] = l.def.ID
	}
	return ids
}

// AnimalCount returns the number of animals in a level, 0 when unknown.
func (c *Catalog) AnimalCount(levelID int) int {
	idx, ok := c.byLevel[levelID]
	if !ok {
		return 0
	}
	return len(c.levels[idx].animals)
}

// Layout is the per-level slot count the stores size progress against.
func (c *Catalog) Layout() domain.Layout {
	layout := domain.Layout{
		LevelIDs: c.LevelIDs(),
		Counts:   make(map[int]int, len(c.levels)),
	}
	for _, l := range c.levels {
		layout.Counts[l.def.ID] = len(l.animals)
	}
	return layout
}

// AnimalName returns the localized canonical name at a slot.
func (c *Catalog) AnimalName(levelID, index int, locale string) (string, bool) {
	idx, ok := c.byLevel[levelID]
	if !ok {
		return "", false
	}
	animals := c.levels[idx].animals
	if index < 0 || index >= len(animals) {
		return "", false
	}
	return c.translate(animals[index].def.Name, locale), true
}

// AnimalNameByID returns the localized name of an animal by its global id.
func (c *Catalog) AnimalNameByID(id int, locale string) (string, bool) {
	ae, ok := c.byID[id]
	if !ok {
		return "", false
	}
	return c.translate(ae.def.Name, locale), true
}

// Level returns one locale-resolved level.
func (c *Catalog) Level(levelID int, locale string) (domain.Level, bool) {
	idx, ok := c.byLevel[levelID]
	if !ok {
		return domain.Level{}, false
	}
	return c.resolveLevel(c.levels[idx], locale), true
}

// Levels returns every level resolved for locale, in catalog order.
func (c *Catalog) Levels(locale string) []domain.Level {
	out := make([]domain.Level, len(c.levels))
	for i, l := range c.levels {
		out[i] = c.resolveLevel(l, locale)
	}
	return out
}

// Flatten returns every animal of every level in catalog order.
func (c *Catalog) Flatten(locale string) []domain.Animal {
	out := make([]domain.Animal, 0, len(c.byID))
	for _, l := range c.levels {
		for _, a := range l.animals {
			out = append(out, c.resolveAnimal(a, locale))
		}
	}
	return out
}

func (c *Catalog) resolveLevel(l levelEntry, locale string) domain.Level {
	animals := make([]domain.Animal, len(l.animals))
	for i, a := range l.animals {
		animals[i] = c.resolveAnimal(a, locale)
	}
	return domain.Level{
		ID:      l.def.ID,
		Title:   c.translate(l.def.Title, locale),
		Emoji:   l.def.Emoji,
		Animals: animals,
	}
}

func (c *Catalog) resolveAnimal(a animalEntry, locale string) domain.Animal {
	emoji := a.def.Emoji
	if emoji == "" {
		emoji = fallbackEmoji
	}
	return domain.Animal{
		ID:       a.globalID,
		Name:     c.translate(a.def.Name, locale),
		Emoji:    emoji,
		ImageURL: a.def.ImageURL,
		Hints:    c.translateList(a.def.Hints, locale),
		FunFacts: c.translateList(a.def.FunFacts, locale),
	}
}

func (c *Catalog) translate(values map[string]string, locale string) string {
	if v, ok := values[locale]; ok && v != "" {
		return v
	}
	return values[c.defaultLocale]
}

func (c *Catalog) translateList(values map[string][]string, locale string) []string {
	list, ok := values[locale]
	if !ok || len(list) == 0 {
		list = values[c.defaultLocale]
	}
	out := make([]string, len(list))
	copy(out, list)
	return out
}
