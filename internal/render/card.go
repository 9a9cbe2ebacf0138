package render

import (
	"net/url"
	"strings"

	"plantscan/internal/plantid"
)

const maxSimilarImages = 3

// Card is the rendered view model of one suggestion.
type Card struct {
	Index         int          `json:"index"`
	Name          string       `json:"name"`
	CommonName    string       `json:"common_name"`
	Percent       int          `json:"probability_percent"`
	Band          Band         `json:"band"`
	Color         string       `json:"color"`
	Description   string       `json:"description"`
	Taxonomy      TaxonomyView `json:"taxonomy"`
	Synonyms      []string     `json:"synonyms,omitempty"`
	SimilarImages []string     `json:"similar_images,omitempty"`
	ReadMoreURL   string       `json:"read_more_url,omitempty"`
}

// TaxonomyView holds each rank with placeholders already applied.
type TaxonomyView struct {
	Kingdom string `json:"kingdom"`
	Phylum  string `json:"phylum"`
	Class   string `json:"class"`
	Order   string `json:"order"`
	Family  string `json:"family"`
	Genus   string `json:"genus"`
}

// Rows returns rank/value pairs in display order.
func (t TaxonomyView) Rows() [][2]string {
	return [][2]string{
		{"Kingdom", t.Kingdom},
		{"Phylum", t.Phylum},
		{"Class", t.Class},
		{"Order", t.Order},
		{"Family", t.Family},
		{"Genus", t.Genus},
	}
}

// Cards converts an identification response into cards, keeping the
// service's ordering. A nil response yields no cards.
func Cards(resp *plantid.Response) []Card {
	if resp == nil {
		return nil
	}
	cards := make([]Card, 0, len(resp.Suggestions))
	for i, suggestion := range resp.Suggestions {
		cards = append(cards, CardFor(i, suggestion))
	}
	return cards
}

// CardFor renders a single suggestion.
func CardFor(index int, s plantid.Suggestion) Card {
	probability := 0.0
	if s.Probability != nil {
		probability = *s.Probability
	}
	pct := Percent(probability)
	band := BandFor(pct)

	card := Card{
		Index:       index,
		Name:        orDefault(s.PlantName, UnknownPlant),
		CommonName:  UnknownCommonName,
		Percent:     pct,
		Band:        band,
		Color:       band.Color(),
		Description: NoDescription,
		Taxonomy:    taxonomyView(nil),
	}

	for _, img := range s.SimilarImages {
		if len(card.SimilarImages) == maxSimilarImages {
			break
		}
		link := img.URLSmall
		if link == "" {
			link = img.URL
		}
		if isWebURL(link) {
			card.SimilarImages = append(card.SimilarImages, link)
		}
	}

	details := s.PlantDetails
	if details == nil {
		return card
	}
	if len(details.CommonNames) > 0 {
		card.CommonName = orDefault(details.CommonNames[0], UnknownCommonName)
	}
	card.Taxonomy = taxonomyView(details.Taxonomy)
	for _, synonym := range details.Synonyms {
		if trimmed := strings.TrimSpace(synonym); trimmed != "" {
			card.Synonyms = append(card.Synonyms, trimmed)
		}
	}
	if details.WikiDescription != nil && strings.TrimSpace(details.WikiDescription.Value) != "" {
		card.Description = Truncate(strings.TrimSpace(details.WikiDescription.Value))
		if isWebURL(details.URL) {
			card.ReadMoreURL = strings.TrimSpace(details.URL)
		}
	}
	return card
}

func taxonomyView(t *plantid.Taxonomy) TaxonomyView {
	if t == nil {
		t = &plantid.Taxonomy{}
	}
	return TaxonomyView{
		Kingdom: orDefault(t.Kingdom, NotAvailable),
		Phylum:  orDefault(t.Phylum, NotAvailable),
		Class:   orDefault(t.Class, NotAvailable),
		Order:   orDefault(t.Order, NotAvailable),
		Family:  orDefault(t.Family, NotAvailable),
		Genus:   orDefault(t.Genus, NotAvailable),
	}
}

func isWebURL(raw string) bool {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}
