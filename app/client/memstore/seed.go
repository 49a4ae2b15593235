package memstore

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"quietspot/app/model"

	"github.com/samber/oops"
)

// LoadVenues reads one JSON venue per line from path and stores each of them.
// Blank lines are skipped.
func (s *Store) LoadVenues(ctx context.Context, path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, oops.In("memstore").With("path", path).Wrapf(err, "failed to open seed file")
	}
	defer file.Close()

	count := 0
	lineNo := 0

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var venue model.Venue
		if err = json.Unmarshal([]byte(line), &venue); err != nil {
			return count, oops.In("memstore").With("path", path).With("line", lineNo).Wrapf(err, "failed to parse venue")
		}

		if err = s.PutVenue(ctx, venue); err != nil {
			return count, fmt.Errorf("line %d: %w", lineNo, err)
		}

		count++
	}

	if err = scanner.Err(); err != nil {
		return count, oops.In("memstore").With("path", path).Wrapf(err, "error reading seed file")
	}

	return count, nil
}
