package catalog

// Wire models for the upstream creature API, trimmed to the fields the app
// serves.

type Page struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []Ref   `json:"results"`
}

// Ref is a name + resource URL pair, the upstream's universal cross-link.
type Ref struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type Pokemon struct {
	ID             int           `json:"id"`
	Name           string        `json:"name"`
	Height         int           `json:"height"`
	Weight         int           `json:"weight"`
	BaseExperience int           `json:"base_experience"`
	Sprites        Sprites       `json:"sprites"`
	Stats          []Stat        `json:"stats"`
	Types          []TypeSlot    `json:"types"`
	Abilities      []AbilitySlot `json:"abilities"`
	Species        Ref           `json:"species"`
}

type Sprites struct {
	FrontDefault *string      `json:"front_default"`
	FrontShiny   *string      `json:"front_shiny"`
	BackDefault  *string      `json:"back_default"`
	BackShiny    *string      `json:"back_shiny"`
	Other        OtherSprites `json:"other"`
}

type OtherSprites struct {
	OfficialArtwork ArtworkSprites `json:"official-artwork"`
}

type ArtworkSprites struct {
	FrontDefault *string `json:"front_default"`
	FrontShiny   *string `json:"front_shiny"`
}

type Stat struct {
	BaseStat int `json:"base_stat"`
	Effort   int `json:"effort"`
	Stat     Ref `json:"stat"`
}

type TypeSlot struct {
	Slot int `json:"slot"`
	Type Ref `json:"type"`
}

type AbilitySlot struct {
	IsHidden bool `json:"is_hidden"`
	Slot     int  `json:"slot"`
	Ability  Ref  `json:"ability"`
}

type Species struct {
	ID                int          `json:"id"`
	Name              string       `json:"name"`
	FlavorTextEntries []FlavorText `json:"flavor_text_entries"`
	Genera            []Genus      `json:"genera"`
	Habitat           *Ref         `json:"habitat"`
	Color             Ref          `json:"color"`
}

type FlavorText struct {
	FlavorText string `json:"flavor_text"`
	Language   Ref    `json:"language"`
	Version    Ref    `json:"version"`
}

type Genus struct {
	Genus    string `json:"genus"`
	Language Ref    `json:"language"`
}

type typeListing struct {
	Pokemon []struct {
		Pokemon Ref `json:"pokemon"`
	} `json:"pokemon"`
}

// SearchResult is what a performed lookup yields.
type SearchResult struct {
	Query       string   `json:"query"`
	ResultCount int      `json:"resultCount"`
	FirstResult *Pokemon `json:"firstResult,omitempty"`
}
