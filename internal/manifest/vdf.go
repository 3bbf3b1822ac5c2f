package manifest

import (
	"fmt"
	"strconv"
	"strings"
)

// node is one level of a parsed keyvalues tree. Pairs preserves input order.
type node struct {
	pairs []pair
}

type pair struct {
	key   string
	value string // set for leaf pairs
	block *node  // set for nested blocks
}

// get returns the first leaf value for key, case-insensitively.
func (n *node) get(key string) string {
	for _, p := range n.pairs {
		if p.block == nil && strings.EqualFold(p.key, key) {
			return p.value
		}
	}
	return ""
}

// child returns the first nested block for key, case-insensitively.
func (n *node) child(key string) *node {
	for _, p := range n.pairs {
		if p.block != nil && strings.EqualFold(p.key, key) {
			return p.block
		}
	}
	return nil
}

// parseStructured parses Valve-style text keyvalues:
//
//	"key"    "value"
//	"key"    { ...nested pairs... }
//
// Line comments starting with // are skipped. Returns an error for malformed
// input so the caller can fall through to the regex strategy.
func parseStructured(raw string) (*Record, error) {
	tokens, err := tokenize(raw)
	if err != nil {
		return nil, err
	}

	root, rest, err := parseBlock(tokens)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("trailing tokens after keyvalues root")
	}

	record := extractRecord(root)
	if record.Empty() {
		return nil, ErrNoManifest
	}
	return record, nil
}

type token struct {
	kind tokenKind
	text string
}

type tokenKind int

const (
	tokenString tokenKind = iota
	tokenOpen
	tokenClose
)

func tokenize(raw string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(raw) {
		c := raw[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			i++
		case c == '/' && i+1 < len(raw) && raw[i+1] == '/':
			for i < len(raw) && raw[i] != '\n' {
				i++
			}
		case c == '{':
			tokens = append(tokens, token{kind: tokenOpen})
			i++
		case c == '}':
			tokens = append(tokens, token{kind: tokenClose})
			i++
		case c == '"':
			text, next, err := scanQuoted(raw, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: tokenString, text: text})
			i = next
		default:
			// Bare (unquoted) tokens appear in some tool output; accept
			// them up to the next whitespace or brace.
			start := i
			for i < len(raw) && !strings.ContainsRune(" \t\r\n{}\"", rune(raw[i])) {
				i++
			}
			tokens = append(tokens, token{kind: tokenString, text: raw[start:i]})
		}
	}
	return tokens, nil
}

func scanQuoted(raw string, start int) (string, int, error) {
	var sb strings.Builder
	i := start + 1
	for i < len(raw) {
		c := raw[i]
		switch c {
		case '\\':
			if i+1 >= len(raw) {
				return "", 0, fmt.Errorf("dangling escape at offset %d", i)
			}
			switch raw[i+1] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case '\\', '"':
				sb.WriteByte(raw[i+1])
			default:
				sb.WriteByte(raw[i+1])
			}
			i += 2
		case '"':
			return sb.String(), i + 1, nil
		default:
			sb.WriteByte(c)
			i++
		}
	}
	return "", 0, fmt.Errorf("unterminated string starting at offset %d", start)
}

// parseBlock consumes key/value and key/block pairs until the token stream
// ends or an unmatched close brace is seen.
func parseBlock(tokens []token) (*node, []token, error) {
	n := &node{}
	for len(tokens) > 0 {
		switch tokens[0].kind {
		case tokenClose:
			return n, tokens, nil
		case tokenOpen:
			return nil, nil, fmt.Errorf("unexpected '{' without key")
		}

		key := tokens[0].text
		tokens = tokens[1:]
		if len(tokens) == 0 {
			return nil, nil, fmt.Errorf("key %q without value", key)
		}

		switch tokens[0].kind {
		case tokenString:
			n.pairs = append(n.pairs, pair{key: key, value: tokens[0].text})
			tokens = tokens[1:]
		case tokenOpen:
			child, rest, err := parseBlock(tokens[1:])
			if err != nil {
				return nil, nil, err
			}
			if len(rest) == 0 || rest[0].kind != tokenClose {
				return nil, nil, fmt.Errorf("unterminated block for key %q", key)
			}
			n.pairs = append(n.pairs, pair{key: key, block: child})
			tokens = rest[1:]
		case tokenClose:
			return nil, nil, fmt.Errorf("key %q followed by '}'", key)
		}
	}
	return n, nil, nil
}

// extractRecord pulls the known fields out of a parsed tree. The tree may be
// rooted at the file level (with an "AppState" wrapper block) or already be
// the AppState body.
func extractRecord(root *node) *Record {
	body := root
	if app := root.child("AppState"); app != nil {
		body = app
	}

	record := &Record{
		BuildID:     body.get("buildid"),
		Name:        body.get("name"),
		StateFlags:  body.get("StateFlags"),
		LastUpdated: body.get("LastUpdated"),
		BetaKey:     body.get("betakey"),
	}

	// The beta key normally lives in a nested config block.
	if record.BetaKey == "" {
		for _, cfg := range []string{"UserConfig", "MountedConfig"} {
			if c := body.child(cfg); c != nil {
				if key := c.get("betakey"); key != "" {
					record.BetaKey = key
					break
				}
			}
		}
	}

	if depots := body.child("InstalledDepots"); depots != nil {
		for _, p := range depots.pairs {
			if p.block == nil {
				continue
			}
			d := Depot{
				DepotID:     p.key,
				ManifestID:  p.block.get("manifest"),
				LastUpdated: p.block.get("LastUpdated"),
			}
			if sz := p.block.get("size"); sz != "" {
				if v, err := strconv.ParseInt(sz, 10, 64); err == nil {
					d.SizeBytes = v
				}
			}
			record.Depots = append(record.Depots, d)
		}
	}

	return record
}
