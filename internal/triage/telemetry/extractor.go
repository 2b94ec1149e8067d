// internal/triage/telemetry/extractor.go
package telemetry

import (
	"regexp"
	"sort"
	"strings"

	"github.com/swarnavarsha1/gmail-outlook-automation/internal/models"
)

// Entity is a fleet reference found in message text.
type Entity struct {
	Type models.EntityType
	ID   string
}

// Deterministic extraction rules, most specific first. A bare number with
// no qualifying keyword is never treated as an entity; misattributing it
// would ground the draft on the wrong record.
var extractionRules = []struct {
	entityType models.EntityType
	pattern    *regexp.Regexp
}{
	{models.EntityVehicle, regexp.MustCompile(`(?i)\b(?:truck|vehicle|van|unit)\s*(?:id\s*)?#?\s*(\d+)\b`)},
	{models.EntityDriver, regexp.MustCompile(`(?i)\bdriver\b\s*(?:id\b\s*)?#?\s*([A-Za-z0-9][A-Za-z0-9-]*)\b`)},
	{models.EntityLocation, regexp.MustCompile(`(?i)\b(?:location|address|site|depot)\s*(?:id\s*)?#?\s*(\d+)\b`)},
}

// ExtractEntities scans the text and returns each distinct fleet entity,
// in order of first appearance. Each (type, id) pair appears once no matter
// how often the text repeats it.
func ExtractEntities(text string) []Entity {
	type match struct {
		entity Entity
		offset int
	}

	var matches []match
	seen := make(map[Entity]bool)

	for _, rule := range extractionRules {
		for _, loc := range rule.pattern.FindAllStringSubmatchIndex(text, -1) {
			id := strings.ToLower(text[loc[2]:loc[3]])
			entity := Entity{Type: rule.entityType, ID: id}
			if seen[entity] {
				continue
			}
			seen[entity] = true
			matches = append(matches, match{entity: entity, offset: loc[0]})
		}
	}

	// Restore document order across rule types.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].offset < matches[j].offset
	})

	entities := make([]Entity, 0, len(matches))
	for _, m := range matches {
		entities = append(entities, m.entity)
	}
	return entities
}
