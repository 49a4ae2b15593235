package model

type Source string

const (
	SourceDatabase   Source = "database"
	SourceGenerative Source = "generative"
	SourceStatic     Source = "static"
)

const MaxMatchReasons = 3

type Location struct {
	Lat        float64  `json:"lat"`
	Lng        float64  `json:"lng"`
	DistanceKm *float64 `json:"distanceKm,omitempty"`
	Address    string   `json:"address,omitempty"`
}

// Recommendation is derived per round and never stored; only its ID survives
// in ConversationContext.LastRecommendations.
type Recommendation struct {
	ID           string   `json:"spotId"`
	Name         string   `json:"name"`
	Score        float64  `json:"score"`
	MatchReasons []string `json:"matchReasons"`
	Category     string   `json:"category"`
	Rating       float64  `json:"rating"`
	QuietRating  int      `json:"quietRating"`
	NoiseLevel   int      `json:"noiseLevel"`
	Location     Location `json:"location"`
	Description  string   `json:"description"`
	ImageURL     *string  `json:"imageUrl"`
	Source       Source   `json:"source"`
}

func ClampScore(score float64) float64 {
	return min(max(score, 0), 1)
}

func CapReasons(reasons []string) []string {
	if len(reasons) > MaxMatchReasons {
		return reasons[:MaxMatchReasons]
	}

	return reasons
}
