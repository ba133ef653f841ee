package sources

import (
	"bytes"
	"encoding/json"
	"regexp"

	"github.com/PuerkitoBio/goquery"
)

// ytInitialData locator.
//
// Watch and search pages inject the client render state as one large object
// assigned to ytInitialData. The statement around it varies by page and by
// revision (var or window[...], with or without the closing </script>), so the
// locator runs an ordered list of strategies and keeps the first whose capture
// decodes as a JSON object.

const ytInitialDataMarker = "ytInitialData"

// locateStrategy returns the candidate JSON text found in markup.
type locateStrategy func(markup []byte) ([]byte, bool)

var initialDataPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?s)var ytInitialData = (\{.*?\});</script>`),
	regexp.MustCompile(`(?s)var ytInitialData = (\{.*?\});`),
	regexp.MustCompile(`(?s)window\["ytInitialData"\]\s*=\s*(\{.*?\});`),
	regexp.MustCompile(`(?s)ytInitialData = (\{.*?\});</script>`),
	regexp.MustCompile(`(?s)ytInitialData = (\{.*?\});`),
}

var locateStrategies = func() []locateStrategy {
	var out []locateStrategy
	for _, re := range initialDataPatterns {
		out = append(out, regexStrategy(re))
	}
	return append(out, scriptScanStrategy)
}()

func regexStrategy(re *regexp.Regexp) locateStrategy {
	return func(markup []byte) ([]byte, bool) {
		m := re.FindSubmatch(markup)
		if len(m) < 2 {
			return nil, false
		}
		return m[1], true
	}
}

// scriptScanStrategy walks <script> elements and cuts the object after the
// marker by brace depth. It survives pages where a string inside the state
// contains "};", which trips the lazy patterns above.
func scriptScanStrategy(markup []byte) ([]byte, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return nil, false
	}
	var found []byte
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := []byte(s.Text())
		idx := bytes.Index(text, []byte(ytInitialDataMarker))
		if idx < 0 {
			return true
		}
		rest := text[idx+len(ytInitialDataMarker):]
		start := bytes.IndexByte(rest, '{')
		if start < 0 {
			return true
		}
		if obj := extractJSONObject(rest[start:]); obj != nil {
			found = obj
			return false
		}
		return true
	})
	return found, found != nil
}

// extractJSONObject returns the complete JSON object starting at b[0] == '{'
// by tracking brace depth outside string literals.
func extractJSONObject(b []byte) []byte {
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	depth := 0
	inStr, escaped := false, false
	for i, c := range b {
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return b[:i+1]
			}
		}
	}
	return nil
}

// LocateInitialData finds and decodes the ytInitialData object in raw page markup.
// It returns ok=false when no strategy yields a decodable JSON object; that is a
// normal outcome (consent wall, error page, markup change), never an error.
func LocateInitialData(markup []byte) (Node, bool) {
	for _, strategy := range locateStrategies {
		raw, ok := strategy(markup)
		if !ok {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
			continue
		}
		return NewNode(obj), true
	}
	return Node{}, false
}
