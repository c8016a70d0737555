package scoring

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"

	"github.com/alexanderksmi/doffin-hunter/internal/model"
)

// SweepFingerprint never equals a real fingerprint. Cleaning up a profile
// with it and an empty result set removes every evaluation of that profile.
const SweepFingerprint = "sweep"

type weightedEntry struct {
	key    string
	weight int
}

// Fingerprint summarizes a profile's matching criteria. It changes whenever a
// keyword, CPV code or weight changes and ignores list order and letter case,
// matching how the engine deduplicates.
func Fingerprint(p model.Profile) string {
	reqs := make([]string, 0, len(p.MinimumRequirements))
	for _, r := range uniqueRequirements(p.MinimumRequirements) {
		reqs = append(reqs, r.folded)
	}
	sort.Strings(reqs)

	h := sha256.Sum256([]byte(canonicalForm(
		reqs,
		canonicalWeighted(uniqueKeywords(p.SupportKeywords)),
		canonicalWeighted(uniqueKeywords(p.NegativeKeywords)),
		canonicalWeighted(uniqueCodes(p.CPVCodes)),
	)))
	return fmt.Sprintf("%x", h[:16])
}

// canonicalForm writes each section as a tag followed by length-prefixed
// entries, so no keyword text can imitate a section or entry boundary.
func canonicalForm(reqs []string, support, negative, cpv []weightedEntry) string {
	var b strings.Builder
	b.WriteString("r")
	for _, r := range reqs {
		fmt.Fprintf(&b, "|%d:%s", len(r), r)
	}
	for _, sec := range []struct {
		tag     string
		entries []weightedEntry
	}{{"s", support}, {"n", negative}, {"c", cpv}} {
		b.WriteString("\n" + sec.tag)
		for _, e := range sec.entries {
			fmt.Fprintf(&b, "|%d:%s=%d", len(e.key), e.key, e.weight)
		}
	}
	return b.String()
}

func canonicalWeighted(terms []term) []weightedEntry {
	out := make([]weightedEntry, 0, len(terms))
	for _, t := range terms {
		out = append(out, weightedEntry{key: t.folded, weight: t.weight})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key < out[j].key })
	return out
}
