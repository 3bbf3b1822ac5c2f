package manifest

import "fmt"

// strategy is one independent way to turn manifest text into a Record.
type strategy struct {
	name  string
	parse func(string) (*Record, error)
}

// strategies are tried in order; the first success wins. The structured
// parser is authoritative, the regex fallback salvages damaged input.
var strategies = []strategy{
	{name: "keyvalues", parse: parseStructured},
	{name: "regex", parse: parseFallback},
}

// ParseManifest parses manifest text using the ordered strategy list.
// It returns ErrNoManifest (wrapped) when no strategy yields a usable record.
func ParseManifest(raw string) (*Record, error) {
	var lastErr error
	for _, s := range strategies {
		record, err := s.parse(raw)
		if err == nil {
			return record, nil
		}
		lastErr = fmt.Errorf("%s parser: %w", s.name, err)
	}
	return nil, lastErr
}

// PrimaryManifestID selects the manifest id of the primary depot: the first
// depot in priority that is present with a non-empty manifest id, otherwise
// the first depot in record order with a non-empty manifest id. Returns
// "", false when the record has no usable depot.
func PrimaryManifestID(record *Record, priority []string) (string, bool) {
	if record == nil {
		return "", false
	}

	for _, want := range priority {
		for _, d := range record.Depots {
			if d.DepotID == want && d.ManifestID != "" {
				return d.ManifestID, true
			}
		}
	}

	for _, d := range record.Depots {
		if d.ManifestID != "" {
			return d.ManifestID, true
		}
	}

	return "", false
}

// InstalledManifestIDs returns every non-empty manifest id in the record.
// Order follows the depot table; callers must not rely on it.
func InstalledManifestIDs(record *Record) []string {
	if record == nil {
		return nil
	}
	var ids []string
	for _, d := range record.Depots {
		if d.ManifestID != "" {
			ids = append(ids, d.ManifestID)
		}
	}
	return ids
}
