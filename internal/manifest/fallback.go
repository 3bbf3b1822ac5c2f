package manifest

import (
	"regexp"
	"strconv"
)

// Field patterns for the regex strategy. Each matches one `"key" "value"`
// pair regardless of surrounding structure, so a truncated or brace-damaged
// manifest still yields its fields.
var (
	reBuildID     = regexp.MustCompile(`(?i)"buildid"\s*"([^"]*)"`)
	reName        = regexp.MustCompile(`(?i)"name"\s*"([^"]*)"`)
	reStateFlags  = regexp.MustCompile(`(?i)"StateFlags"\s*"([^"]*)"`)
	reLastUpdated = regexp.MustCompile(`(?i)"LastUpdated"\s*"([^"]*)"`)
	reBetaKey     = regexp.MustCompile(`(?i)"betakey"\s*"([^"]*)"`)

	reInstalledDepots = regexp.MustCompile(`(?i)"InstalledDepots"\s*\{`)
	reDepotEntry      = regexp.MustCompile(`"(\d+)"\s*\{([^{}]*)\}`)
	reDepotManifest   = regexp.MustCompile(`(?i)"manifest"\s*"([^"]*)"`)
	reDepotSize       = regexp.MustCompile(`(?i)"size"\s*"(\d+)"`)
	reDepotUpdated    = regexp.MustCompile(`(?i)"LastUpdated"\s*"([^"]*)"`)
)

// parseFallback extracts the same fields as the structured parser using
// regular expressions only. It never fails on malformed structure; it fails
// only when nothing usable was found.
func parseFallback(raw string) (*Record, error) {
	record := &Record{
		BuildID:     firstGroup(reBuildID, raw),
		Name:        firstGroup(reName, raw),
		StateFlags:  firstGroup(reStateFlags, raw),
		LastUpdated: firstGroup(reLastUpdated, raw),
		BetaKey:     firstGroup(reBetaKey, raw),
	}

	if block := installedDepotsBlock(raw); block != "" {
		for _, m := range reDepotEntry.FindAllStringSubmatch(block, -1) {
			body := m[2]
			d := Depot{
				DepotID:     m[1],
				ManifestID:  firstGroup(reDepotManifest, body),
				LastUpdated: firstGroup(reDepotUpdated, body),
			}
			if sz := firstGroup(reDepotSize, body); sz != "" {
				if v, err := strconv.ParseInt(sz, 10, 64); err == nil {
					d.SizeBytes = v
				}
			}
			record.Depots = append(record.Depots, d)
		}
	}

	if record.Empty() {
		return nil, ErrNoManifest
	}
	return record, nil
}

func firstGroup(re *regexp.Regexp, s string) string {
	if m := re.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return ""
}

// installedDepotsBlock returns the brace-balanced body of the
// InstalledDepots block, or the remainder of the input when the closing
// brace is missing (truncated manifests).
func installedDepotsBlock(raw string) string {
	loc := reInstalledDepots.FindStringIndex(raw)
	if loc == nil {
		return ""
	}

	depth := 1
	start := loc[1]
	for i := start; i < len(raw); i++ {
		switch raw[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start:i]
			}
		}
	}
	return raw[start:]
}
