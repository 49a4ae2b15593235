package model

import "slices"

type Field string

const (
	FieldCategory   Field = "category"
	FieldLocation   Field = "location"
	FieldPurpose    Field = "purpose"
	FieldAtmosphere Field = "atmosphere"
)

// RequiredFields lists the fields gathered before recommending, in the order
// they are asked for.
var RequiredFields = []Field{FieldCategory, FieldLocation, FieldPurpose}

type Purpose string

const (
	PurposeWork  Purpose = "work"
	PurposeStudy Purpose = "study"
	PurposeRest  Purpose = "rest"
	PurposeDate  Purpose = "date"
)

const AtmosphereQuiet = "quiet"

type Preferences struct {
	Category   string   `json:"category,omitempty" dynamodbav:"category,omitempty"`
	Location   string   `json:"location,omitempty" dynamodbav:"location,omitempty"`
	Purpose    Purpose  `json:"purpose,omitempty" dynamodbav:"purpose,omitempty"`
	Atmosphere []string `json:"atmosphere,omitempty" dynamodbav:"atmosphere,omitempty"`
}

func (p Preferences) Clone() Preferences {
	p.Atmosphere = slices.Clone(p.Atmosphere)
	return p
}

func (p Preferences) Has(field Field) bool {
	switch field {
	case FieldCategory:
		return p.Category != ""
	case FieldLocation:
		return p.Location != ""
	case FieldPurpose:
		return p.Purpose != ""
	case FieldAtmosphere:
		return len(p.Atmosphere) > 0
	default:
		return false
	}
}

func (p Preferences) IsEmpty() bool {
	return !p.Has(FieldCategory) && !p.Has(FieldLocation) && !p.Has(FieldPurpose) && !p.Has(FieldAtmosphere)
}

func (p Preferences) Quiet() bool {
	return slices.Contains(p.Atmosphere, AtmosphereQuiet)
}

// Merge overlays every field set in other on top of p. The last mention of a
// field always wins.
func (p Preferences) Merge(other Preferences) Preferences {
	result := p.Clone()

	if other.Category != "" {
		result.Category = other.Category
	}
	if other.Location != "" {
		result.Location = other.Location
	}
	if other.Purpose != "" {
		result.Purpose = other.Purpose
	}
	if len(other.Atmosphere) > 0 {
		result.Atmosphere = slices.Clone(other.Atmosphere)
	}

	return result
}

// Missing returns the required fields that are still unset, in asking order.
func (p Preferences) Missing() []Field {
	var missing []Field

	for _, field := range RequiredFields {
		if !p.Has(field) {
			missing = append(missing, field)
		}
	}

	return missing
}
