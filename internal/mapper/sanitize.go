package mapper

import "github.com/microcosm-cc/bluemonday"

// sanitizer strips story HTML down to a fixed allow-list. PRX descriptions
// frequently carry Word-export markup; disallowed tags are removed, not
// escaped, and their text content kept (script/style contents dropped).
type sanitizer struct {
	policy *bluemonday.Policy
}

func newSanitizer() *sanitizer {
	p := bluemonday.NewPolicy()
	p.AllowElements(
		"a", "p", "strong", "em", "ul", "ol", "li",
		"h1", "h2", "h3", "h4", "h5", "h6",
	)
	p.AllowAttrs("href").OnElements("a")
	p.AllowStandardURLs()
	return &sanitizer{policy: p}
}

// Clean applies the allow-list policy to the given HTML fragment.
func (s *sanitizer) Clean(html string) string {
	if html == "" {
		return ""
	}
	return s.policy.Sanitize(html)
}
