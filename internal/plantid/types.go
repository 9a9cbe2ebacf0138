package plantid

// Response is the identification document returned by plant.id. The payload is
// loosely typed upstream, so every nested object is optional.
type Response struct {
	ID                 int64        `json:"id,omitempty"`
	CustomID           *string      `json:"custom_id,omitempty"`
	Images             []Image      `json:"images,omitempty"`
	Suggestions        []Suggestion `json:"suggestions"`
	Modifiers          []string     `json:"modifiers,omitempty"`
	IsPlant            *bool        `json:"is_plant,omitempty"`
	IsPlantProbability *float64     `json:"is_plant_probability,omitempty"`
	FailCause          *string      `json:"fail_cause,omitempty"`
	UploadedDatetime   *float64     `json:"uploaded_datetime,omitempty"`
	FinishedDatetime   *float64     `json:"finished_datetime,omitempty"`
	MetaData           *MetaData    `json:"meta_data,omitempty"`
}

// Image references an uploaded image as stored by the service.
type Image struct {
	FileName string `json:"file_name"`
	URL      string `json:"url"`
}

// MetaData echoes request metadata.
type MetaData struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Date      string   `json:"date,omitempty"`
	Datetime  string   `json:"datetime,omitempty"`
}

// Suggestion is one candidate species.
type Suggestion struct {
	ID            int64          `json:"id,omitempty"`
	PlantName     string         `json:"plant_name"`
	Probability   *float64       `json:"probability,omitempty"`
	Confirmed     bool           `json:"confirmed,omitempty"`
	PlantDetails  *PlantDetails  `json:"plant_details,omitempty"`
	SimilarImages []SimilarImage `json:"similar_images,omitempty"`
}

// PlantDetails holds the detail fields requested via plant_details.
type PlantDetails struct {
	CommonNames     []string         `json:"common_names,omitempty"`
	URL             string           `json:"url,omitempty"`
	WikiDescription *WikiDescription `json:"wiki_description,omitempty"`
	Taxonomy        *Taxonomy        `json:"taxonomy,omitempty"`
	Synonyms        []string         `json:"synonyms,omitempty"`
	ScientificName  string           `json:"scientific_name,omitempty"`
	Language        string           `json:"language,omitempty"`
}

// WikiDescription is the description excerpt with its licensing.
type WikiDescription struct {
	Value       string `json:"value"`
	Citation    string `json:"citation,omitempty"`
	LicenseName string `json:"license_name,omitempty"`
	LicenseURL  string `json:"license_url,omitempty"`
}

// Taxonomy lists the ranks shown on a card.
type Taxonomy struct {
	Kingdom string `json:"kingdom,omitempty"`
	Phylum  string `json:"phylum,omitempty"`
	Class   string `json:"class,omitempty"`
	Order   string `json:"order,omitempty"`
	Family  string `json:"family,omitempty"`
	Genus   string `json:"genus,omitempty"`
}

// SimilarImage is a reference photo of the suggested species.
type SimilarImage struct {
	ID          string  `json:"id"`
	Similarity  float64 `json:"similarity"`
	URL         string  `json:"url"`
	URLSmall    string  `json:"url_small,omitempty"`
	Citation    string  `json:"citation,omitempty"`
	LicenseName string  `json:"license_name,omitempty"`
}

type identifyRequest struct {
	APIKey        string   `json:"api_key"`
	Images        []string `json:"images"`
	Modifiers     []string `json:"modifiers"`
	PlantLanguage string   `json:"plant_language"`
	PlantDetails  []string `json:"plant_details"`
}
