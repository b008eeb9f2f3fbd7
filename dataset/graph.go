package dataset

import (
	"regexp"
	"strconv"
	"strings"
)

// Delimiters of the extraction response format.
const (
	TupleDelimiter   = "<|>"
	RecordDelimiter  = "\n<|>\n"
	CompletionMarker = "<|COMPLETE|>"
)

// Entity is one extracted entity record.
type Entity struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// Relationship links two entities with a strength score.
type Relationship struct {
	Source      string  `json:"source"`
	Target      string  `json:"target"`
	Description string  `json:"description"`
	Strength    float64 `json:"strength"`
}

// Graph is the parsed form of an extraction response.
type Graph struct {
	Entities      []Entity       `json:"entities"`
	Relationships []Relationship `json:"relationships"`
}

var (
	entityPattern       = regexp.MustCompile(`\("entity"[^)]+\)`)
	relationshipPattern = regexp.MustCompile(`\("relationship"[^)]+\)`)
)

// SplitRecords splits an extraction response into its raw records.
// Records are matched by shape first; when nothing matches, the
// response is split on the record delimiter instead.
func SplitRecords(result string) []string {
	result = strings.ReplaceAll(result, CompletionMarker, "")

	records := entityPattern.FindAllString(result, -1)
	records = append(records, relationshipPattern.FindAllString(result, -1)...)
	if len(records) > 0 {
		return records
	}

	var out []string
	for _, part := range strings.Split(result, RecordDelimiter) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ParseGraph parses an extraction response into entities and
// relationships. Records that do not carry enough fields are dropped.
func ParseGraph(result string) Graph {
	var g Graph
	for _, record := range SplitRecords(result) {
		switch {
		case strings.HasPrefix(record, `("entity"`):
			if e, ok := parseEntity(record); ok {
				g.Entities = append(g.Entities, e)
			}
		case strings.HasPrefix(record, `("relationship"`):
			if r, ok := parseRelationship(record); ok {
				g.Relationships = append(g.Relationships, r)
			}
		}
	}
	return g
}

func parseEntity(record string) (Entity, bool) {
	fields := recordFields(record)
	if len(fields) < 3 {
		return Entity{}, false
	}
	return Entity{
		Name:        fields[0],
		Category:    fields[1],
		Description: fields[2],
	}, true
}

func parseRelationship(record string) (Relationship, bool) {
	fields := recordFields(record)
	if len(fields) < 4 {
		return Relationship{}, false
	}

	strength, err := strconv.ParseFloat(fields[3], 64)
	if err != nil {
		strength = 0
	}
	return Relationship{
		Source:      fields[0],
		Target:      fields[1],
		Description: fields[2],
		Strength:    strength,
	}, true
}

// recordFields strips the record's parentheses and returns the tuple
// fields after the kind tag, whitespace-trimmed.
func recordFields(record string) []string {
	record = strings.TrimSpace(record)
	record = strings.TrimPrefix(record, "(")
	record = strings.TrimSuffix(record, ")")

	parts := strings.Split(record, TupleDelimiter)
	if len(parts) < 2 {
		return nil
	}

	fields := parts[1:]
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}
