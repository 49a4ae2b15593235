package model

const defaultNoiseLevel = 40

type Venue struct {
	ID          string  `json:"id" dynamodbav:"id"`
	Name        string  `json:"name" dynamodbav:"name"`
	Category    string  `json:"category" dynamodbav:"category"`
	Rating      float64 `json:"rating" dynamodbav:"rating"`
	QuietRating int     `json:"quiet_rating" dynamodbav:"quiet_rating"`
	NoiseLevel  int     `json:"noise_level,omitempty" dynamodbav:"noise_level,omitempty"`
	Lat         float64 `json:"lat" dynamodbav:"lat"`
	Lng         float64 `json:"lng" dynamodbav:"lng"`
	District    string  `json:"district,omitempty" dynamodbav:"district,omitempty"`
	Description string  `json:"description,omitempty" dynamodbav:"description,omitempty"`
	ImageURL    string  `json:"image_url,omitempty" dynamodbav:"image_url,omitempty"`
}

// Noise returns the measured noise level, falling back to a typical indoor
// value for venues that were never measured.
func (v Venue) Noise() int {
	if v.NoiseLevel <= 0 {
		return defaultNoiseLevel
	}

	return v.NoiseLevel
}

// VenueFilter is a conjunction of threshold and equality predicates.
// Zero values disable the corresponding predicate.
type VenueFilter struct {
	MinQuietRating int
	Category       string
	MaxNoiseLevel  int
}

func (f VenueFilter) Match(v Venue) bool {
	if v.QuietRating < f.MinQuietRating {
		return false
	}
	if f.Category != "" && v.Category != f.Category {
		return false
	}
	if f.MaxNoiseLevel > 0 && v.Noise() > f.MaxNoiseLevel {
		return false
	}

	return true
}
