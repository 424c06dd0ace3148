package viewing

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// parseJSONFragment extracts the first balanced brace-delimited fragment from
// model output and unmarshals it. Models routinely wrap JSON in prose or code
// fences; total absence of a parseable fragment is an error.
func parseJSONFragment(raw string, v any) error {
	frag, err := firstJSONObject(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(frag), v)
}

func firstJSONObject(s string) (string, error) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", errors.New("no JSON object found")
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", errors.New("unbalanced JSON object")
}

var (
	scriptRe = regexp.MustCompile(`(?is)<script.*?</script>`)
	svgTagRe = regexp.MustCompile(`(?is)<svg[^>]*>`)
)

// sanitizeSVG trims model output down to the svg document, strips script
// blocks, and guarantees the root element carries the SVG namespace so
// browsers will render it.
func sanitizeSVG(raw string) (string, error) {
	start := strings.Index(strings.ToLower(raw), "<svg")
	end := strings.LastIndex(strings.ToLower(raw), "</svg>")
	if start < 0 || end < 0 || end < start {
		return "", errors.New("no svg document in output")
	}
	svg := raw[start : end+len("</svg>")]
	svg = scriptRe.ReplaceAllString(svg, "")
	root := svgTagRe.FindString(svg)
	if root == "" {
		return "", errors.New("malformed svg root")
	}
	if !strings.Contains(root, "xmlns") {
		patched := strings.Replace(root, "<svg", `<svg xmlns="http://www.w3.org/2000/svg"`, 1)
		svg = strings.Replace(svg, root, patched, 1)
	}
	return svg, nil
}
