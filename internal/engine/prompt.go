package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/veracity-group/truthscan-cli/internal/model"
)

const promptPreamble = `You are auditing what an AI assistant tells users about a specific business.
Below is the owner-attested ground truth for the business. Compare what you
currently know and would tell a user about this business against these facts.

Report how accurate your own knowledge is as an integer score from 0 to 100,
and list every statement you would have made that contradicts the ground
truth. Reply with ONLY a JSON object in this exact shape:

{"accuracy_score": <0-100>, "inaccuracies": [{"claim": "<the false statement>", "expected": "<what the ground truth says>", "severity": "critical|high|medium|low"}]}

If everything you know matches the ground truth, return an empty
inaccuracies list.`

// AuditPrompt builds the probe sent to every engine for one entity.
func AuditPrompt(e model.Entity) string {
	var b strings.Builder
	b.WriteString(promptPreamble)
	b.WriteString("\n\nGround truth:\n")
	fmt.Fprintf(&b, "Business name: %s\n", e.Name)
	if e.Address != "" {
		fmt.Fprintf(&b, "Address: %s\n", e.Address)
	}
	if e.Phone != "" {
		fmt.Fprintf(&b, "Phone: %s\n", e.Phone)
	}
	if e.Website != "" {
		fmt.Fprintf(&b, "Website: %s\n", e.Website)
	}
	if len(e.Hours) > 0 {
		b.WriteString("Hours:\n")
		days := make([]string, 0, len(e.Hours))
		for day := range e.Hours {
			days = append(days, day)
		}
		sort.Strings(days)
		for _, day := range days {
			fmt.Fprintf(&b, "  %s: %s\n", day, e.Hours[day])
		}
	}
	if len(e.Amenities) > 0 {
		fmt.Fprintf(&b, "Amenities: %s\n", strings.Join(e.Amenities, ", "))
	}
	return b.String()
}
