package pricing

import "strings"

var partTerms = map[string]string{
	"left":  "left earbud",
	"right": "right earbud",
	"case":  "charging case",
}

// PartTerm maps a part type to the phrase sellers use in listing titles.
// Unrecognised part types are returned unchanged.
func PartTerm(partType string) string {
	if term, ok := partTerms[strings.ToLower(strings.TrimSpace(partType))]; ok {
		return term
	}
	return partType
}

// BuildSearchQuery composes "{generation} [{connector}] {part term}".
func BuildSearchQuery(generation, partType, connectorType string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{generation, connectorType, PartTerm(partType)} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}
