package negotiator

import (
	"regexp"
	"strconv"
	"strings"
)

// clauseStartRe matches a line opening a numbered clause, e.g. "1. Rent" or
// "2) Term: 12 months".
var clauseStartRe = regexp.MustCompile(`^\s*(\d+)[.)]\s+(.*)$`)

// ParseAgreement scrapes the structured clauses out of an agreement draft.
// Everything before the first numbered clause is left in the text but not
// turned into a clause; a draft without numbered sections yields no clauses.
func ParseAgreement(text string) Agreement {
	agreement := Agreement{Text: text}

	var current *Clause
	var body []string

	flush := func() {
		if current == nil {
			return
		}
		current.Body = strings.TrimSpace(strings.Join(body, "\n"))
		agreement.Clauses = append(agreement.Clauses, *current)
		current = nil
		body = nil
	}

	for _, line := range strings.Split(text, "\n") {
		m := clauseStartRe.FindStringSubmatch(line)
		if m == nil {
			if current != nil {
				body = append(body, line)
			}
			continue
		}
		flush()

		number, _ := strconv.Atoi(m[1])
		title, rest := splitClauseHeading(m[2])
		current = &Clause{Number: number, Title: title}
		if rest != "" {
			body = append(body, rest)
		}
	}
	flush()

	return agreement
}

// splitClauseHeading separates "Title: first sentence of body" headings.
// Without a colon the whole heading is the title.
func splitClauseHeading(heading string) (title, rest string) {
	heading = strings.TrimSpace(heading)
	if i := strings.Index(heading, ":"); i >= 0 {
		return strings.TrimSpace(heading[:i]), strings.TrimSpace(heading[i+1:])
	}
	return heading, ""
}
