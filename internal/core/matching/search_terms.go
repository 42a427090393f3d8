package matching

import "strings"

// GenerateSearchTerms 由食材名稱產生去重的搜尋詞，最具體的在前
func GenerateSearchTerms(name string) []string {
	original := normalize(name)
	if original == "" {
		return nil
	}

	var cleaned []string
	for _, tok := range tokenize(original) {
		if stopWords[tok] || prepWords[tok] {
			continue
		}
		cleaned = append(cleaned, tok)
	}

	terms := make([]string, 0, 6)
	seen := make(map[string]bool)
	add := func(term string) {
		if term == "" || seen[term] {
			return
		}
		seen[term] = true
		terms = append(terms, term)
	}

	if len(cleaned) == 0 {
		add(original)
		return terms
	}

	add(strings.Join(cleaned, " "))
	add(original)

	for _, tok := range cleaned {
		for _, syn := range synonyms[tok] {
			add(syn)
		}
	}

	if len(cleaned) > 1 {
		add(cleaned[len(cleaned)-1])
		if !sizeWords[cleaned[0]] {
			add(cleaned[0])
		}
	}

	return terms
}
