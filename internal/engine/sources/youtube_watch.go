package sources

import "strings"

// ReadDescription pulls the full description text out of a watch page.
//
// The description lives on the first videoSecondaryInfoRenderer entry of
// contents.twoColumnWatchNextResults.results.results.contents. The current
// encoding is attributedDescription.content; older pages split it into
// description.runs[].text, which is joined without separators. Only the first
// secondary-info entry is considered. Returns ok=false when neither encoding
// yields text.
func ReadDescription(tree Node) (string, bool) {
	entries := tree.Path("contents", "twoColumnWatchNextResults", "results", "results", "contents").Items()
	for _, entry := range entries {
		info := entry.Key("videoSecondaryInfoRenderer")
		if !info.Exists() {
			continue
		}
		if text, ok := info.Path("attributedDescription", "content").Str(); ok && text != "" {
			return text, true
		}
		runs := info.Path("description", "runs").Items()
		var b strings.Builder
		for _, r := range runs {
			b.WriteString(r.Key("text").StrOr(""))
		}
		if b.Len() > 0 {
			return b.String(), true
		}
		return "", false
	}
	return "", false
}
