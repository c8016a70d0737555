package scoring

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/alexanderksmi/doffin-hunter/internal/model"
)

// normalize folds text for containment checks: NFC composition followed by
// Norwegian lowercasing. A new Caser is built per call because Casers are
// stateful and Score must be safe for concurrent use.
func normalize(s string) string {
	if s == "" {
		return ""
	}
	return cases.Lower(language.Norwegian).String(norm.NFC.String(s))
}

// term is a keyword with its folded form.
type term struct {
	raw    string
	folded string
	weight int
}

// uniqueRequirements folds and deduplicates minimum requirements. The first
// spelling of a keyword wins; blank keywords are dropped.
func uniqueRequirements(reqs []model.MinimumRequirement) []term {
	seen := make(map[string]bool, len(reqs))
	out := make([]term, 0, len(reqs))
	for _, r := range reqs {
		raw := strings.TrimSpace(r.Keyword)
		folded := normalize(raw)
		if folded == "" || seen[folded] {
			continue
		}
		seen[folded] = true
		out = append(out, term{raw: raw, folded: folded})
	}
	return out
}

// uniqueKeywords folds and deduplicates weighted keywords, keeping the weight
// of the first occurrence.
func uniqueKeywords(kws []model.WeightedKeyword) []term {
	seen := make(map[string]bool, len(kws))
	out := make([]term, 0, len(kws))
	for _, k := range kws {
		raw := strings.TrimSpace(k.Keyword)
		folded := normalize(raw)
		if folded == "" || seen[folded] {
			continue
		}
		seen[folded] = true
		out = append(out, term{raw: raw, folded: folded, weight: k.Weight})
	}
	return out
}

// uniqueCodes trims and deduplicates profile CPV prefixes.
func uniqueCodes(codes []model.CPVCode) []term {
	seen := make(map[string]bool, len(codes))
	out := make([]term, 0, len(codes))
	for _, c := range codes {
		code := strings.TrimSpace(c.Code)
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		out = append(out, term{raw: code, folded: code, weight: c.Weight})
	}
	return out
}

// tenderCodes trims tender CPV codes and drops blanks.
func tenderCodes(codes []string) []string {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}
