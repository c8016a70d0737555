package scoring

import (
	"fmt"
	"strings"

	"github.com/alexanderksmi/doffin-hunter/internal/model"
)

const (
	// ExplanationGateFailed is the explanation of a tender that matched no
	// minimum requirement.
	ExplanationGateFailed = "fails minimum requirement gate"
	// ExplanationNoMatches is used when a qualified evaluation has nothing to list.
	ExplanationNoMatches = "no matches"

	explanationSeparator = ", "
)

// explain renders the derivation of a qualified evaluation, e.g.
// "it (title), drift +2, support +1, CPV 7200 +1 = 4 poeng".
func explain(ev *model.Evaluation) string {
	var parts []string
	for _, m := range ev.MetRequirements {
		parts = append(parts, fmt.Sprintf("%s (%s)", m.Keyword, m.FoundIn))
	}
	for _, m := range ev.MatchedSupportKeywords {
		parts = append(parts, fmt.Sprintf("%s %+d", m.Keyword, m.Weight))
	}
	for _, m := range ev.MatchedNegativeKeywords {
		parts = append(parts, fmt.Sprintf("%s %+d", m.Keyword, m.Weight))
	}
	for _, m := range ev.MatchedCPVCodes {
		parts = append(parts, fmt.Sprintf("CPV %s %+d", m.Code, m.Weight))
	}
	if len(parts) == 0 {
		return ExplanationNoMatches
	}
	return fmt.Sprintf("%s = %d poeng", strings.Join(parts, explanationSeparator), ev.TotalScore)
}
