package dynamo

import (
	"strings"

	"quietspot/app/model"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/samber/oops"
)

// defaultNoiseLevel mirrors model.Venue.Noise for items without a noise_level.
const defaultNoiseLevel = 40

// filterExpression renders a VenueFilter as a DynamoDB FilterExpression.
// An empty expression means the filter matches everything.
func filterExpression(filter model.VenueFilter) (string, map[string]string, map[string]dynamodbtypes.AttributeValue, error) {
	var clauses []string
	names := make(map[string]string)
	values := make(map[string]dynamodbtypes.AttributeValue)

	add := func(placeholder string, value any) error {
		av, err := attributevalue.Marshal(value)
		if err != nil {
			return oops.In("dynamo").With("placeholder", placeholder).Wrapf(err, "failed to marshal filter value")
		}

		values[placeholder] = av
		return nil
	}

	if filter.MinQuietRating > 0 {
		names["#quiet"] = "quiet_rating"
		if err := add(":minQuiet", filter.MinQuietRating); err != nil {
			return "", nil, nil, err
		}
		clauses = append(clauses, "#quiet >= :minQuiet")
	}

	if filter.Category != "" {
		names["#category"] = "category"
		if err := add(":category", filter.Category); err != nil {
			return "", nil, nil, err
		}
		clauses = append(clauses, "#category = :category")
	}

	if filter.MaxNoiseLevel > 0 {
		names["#noise"] = "noise_level"
		if err := add(":maxNoise", filter.MaxNoiseLevel); err != nil {
			return "", nil, nil, err
		}

		if defaultNoiseLevel <= filter.MaxNoiseLevel {
			clauses = append(clauses, "(attribute_not_exists(#noise) OR #noise <= :maxNoise)")
		} else {
			clauses = append(clauses, "#noise <= :maxNoise")
		}
	}

	if len(clauses) == 0 {
		return "", nil, nil, nil
	}

	return strings.Join(clauses, " AND "), names, values, nil
}
