package matcher

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/net/html"

	"github.com/mckeimic/mitmscripts/internal/finding"
	"github.com/mckeimic/mitmscripts/internal/observation"
)

// javascriptTypes are media types that mark a response body as JavaScript.
var javascriptTypes = map[string]bool{
	"application/javascript":   true,
	"application/x-javascript": true,
	"application/ecmascript":   true,
	"text/javascript":          true,
	"text/ecmascript":          true,
}

// ScriptMatcher extracts the scripts a response pulls in: external
// <script src> references and inline script blocks in HTML documents, plus
// responses that are themselves JavaScript. External collaborators consume
// these details to fetch and vulnerability-scan the script bodies.
type ScriptMatcher struct{}

func (m *ScriptMatcher) Kind() finding.Kind {
	return finding.KindEmbeddedScript
}

func (m *ScriptMatcher) Match(obs *observation.Observation) ([]finding.Detail, error) {
	contentType := obs.ContentType()

	if javascriptTypes[contentType] {
		return []finding.Detail{{
			ID:    obs.URL.String(),
			Value: obs.URL.String(),
		}}, nil
	}

	if contentType != "text/html" && contentType != "application/xhtml+xml" {
		return nil, nil
	}
	if len(obs.Body) == 0 {
		return nil, nil
	}

	return extractScripts(obs)
}

func extractScripts(obs *observation.Observation) ([]finding.Detail, error) {
	doc, err := html.Parse(bytes.NewReader(obs.Body))
	if err != nil {
		return nil, err
	}

	var details []finding.Detail
	seen := map[string]bool{}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "script" {
			if d, ok := scriptDetail(obs, n); ok && !seen[d.ID] {
				seen[d.ID] = true
				details = append(details, d)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return details, nil
}

func scriptDetail(obs *observation.Observation, n *html.Node) (finding.Detail, bool) {
	for _, attr := range n.Attr {
		if attr.Key != "src" {
			continue
		}
		src := strings.TrimSpace(attr.Val)
		if src == "" {
			continue
		}
		resolved := src
		if ref, err := obs.URL.Parse(src); err == nil {
			resolved = ref.String()
		}
		return finding.Detail{ID: resolved, Value: resolved}, true
	}

	// Inline block: identity is the content hash so the same snippet served
	// on many pages of a host collapses into one record.
	var body strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			body.WriteString(c.Data)
		}
	}
	code := strings.TrimSpace(body.String())
	if code == "" {
		return finding.Detail{}, false
	}

	sum := sha256.Sum256([]byte(code))
	hash := hex.EncodeToString(sum[:8])
	return finding.Detail{
		ID:      "inline:" + hash,
		Value:   hash,
		Context: obs.URL.String(),
	}, true
}
