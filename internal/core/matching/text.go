package matching

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// stopWords 冠詞與介系詞
var stopWords = map[string]bool{
	"de": true, "het": true, "een": true, "van": true, "met": true,
	"en": true, "of": true, "voor": true, "in": true, "op": true,
	"aan": true, "naar": true, "uit": true, "zonder": true,
	"the": true, "a": true, "an": true, "with": true, "and": true,
	"for": true, "to": true,
}

// prepWords 處理方式描述詞，"gehakt" 是商品名稱不在其中
var prepWords = map[string]bool{
	"gesneden": true, "fijngesneden": true, "gehakte": true, "fijngehakte": true,
	"geraspte": true, "geraspt": true, "gesnipperde": true, "gekookte": true,
	"gebakken": true, "geschilde": true, "verse": true, "vers": true,
	"blokjes": true, "plakjes": true, "reepjes": true, "ringen": true,
	"chopped": true, "fresh": true, "grated": true, "diced": true,
	"sliced": true, "minced": true, "peeled": true, "cooked": true,
}

// sizeWords 份量描述詞，不單獨作為搜尋詞
var sizeWords = map[string]bool{
	"half": true, "halve": true, "kwart": true, "quarter": true,
	"groot": true, "grote": true, "klein": true, "kleine": true,
	"middelgrote": true, "large": true, "small": true, "medium": true,
}

// synonyms 常見食材的替代搜尋詞
var synonyms = map[string][]string{
	"tomaten":     {"tomaat"},
	"tomaat":      {"tomaten"},
	"ui":          {"uien"},
	"uien":        {"ui"},
	"knoflook":    {"knoflookteentjes"},
	"aardappelen": {"aardappel"},
	"aardappel":   {"aardappelen"},
	"eieren":      {"scharreleieren", "ei"},
	"ei":          {"eieren"},
	"room":        {"kookroom", "slagroom"},
	"bloem":       {"tarwebloem"},
	"boter":       {"roomboter"},
	"melk":        {"halfvolle melk"},
	"kip":         {"kipfilet"},
	"kipfilet":    {"kip"},
	"gehakt":      {"rundergehakt", "half-om-half gehakt"},
	"parmezaan":   {"parmigiano reggiano"},
	"paprika":     {"rode paprika"},
	"champignons": {"kastanjechampignons"},
}

// normalize 統一為 NFC 小寫並去除前後空白
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(s)))
}

// tokenize 以空白切分並去除標點
func tokenize(s string) []string {
	fields := strings.Fields(s)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ",.;:()!?\"'")
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

func tokenSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}
