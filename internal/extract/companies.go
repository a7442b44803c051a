package extract

import (
	"regexp"
	"strings"
	"unicode"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

var leadingArticles = map[string]struct{}{
	"the": {}, "a": {}, "an": {},
}

var corporateSuffixes = map[string]struct{}{
	"inc": {}, "inc.": {}, "corp": {}, "corp.": {}, "ltd": {}, "ltd.": {},
	"llc": {}, "co": {}, "co.": {}, "company": {}, "plc": {}, "group": {},
	"holdings": {},
}

// cleanCompanyName tidies a captured company name for display. Inner
// capitalization is preserved ("BigCorp" stays "BigCorp"); only words
// that arrived fully lowercased get their first rune capitalized.
func cleanCompanyName(raw string) string {
	s := whitespaceRe.ReplaceAllString(strings.TrimSpace(raw), " ")
	if s == "" {
		return ""
	}
	words := strings.Fields(s)
	for len(words) > 0 {
		if _, ok := leadingArticles[strings.ToLower(words[0])]; !ok {
			break
		}
		words = words[1:]
	}
	for i, w := range words {
		if w == strings.ToLower(w) {
			words[i] = capitalizeFirst(w)
		}
	}
	return strings.Join(words, " ")
}

func capitalizeFirst(w string) string {
	r := []rune(w)
	if len(r) == 0 {
		return w
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// normalizeCompanyName produces the comparison form used in deal
// fingerprints: lowercased, suffix-stripped, whitespace-collapsed.
func normalizeCompanyName(name string) string {
	words := strings.Fields(strings.ToLower(name))
	for len(words) > 0 {
		last := strings.TrimSuffix(words[len(words)-1], ",")
		if _, ok := corporateSuffixes[last]; !ok {
			break
		}
		words = words[:len(words)-1]
	}
	return strings.Join(words, " ")
}
