package promptstyle

import "strings"

const marker = "BC_PROMPT_STYLE_V1"

// ApplySystem prepends a short grounding block to a system prompt. mode is
// "json" for structured output and anything else for prose.
func ApplySystem(system string, mode string) string {
	base := strings.TrimSpace(system)
	if base == "" || strings.Contains(base, marker) {
		return base
	}

	var b strings.Builder
	b.WriteString(marker)
	b.WriteString("\nYou answer questions about business documents such as insurance policies, contracts and HR or compliance manuals.")
	b.WriteString("\nUse only the supplied document excerpts as evidence; do not invent facts, figures or citations.")
	if strings.EqualFold(strings.TrimSpace(mode), "json") {
		b.WriteString("\nReturn a single JSON object that conforms to the schema and contains no extra keys.")
	} else {
		b.WriteString("\nDo not add preambles or commentary outside the requested format.")
	}
	b.WriteString("\n---\n")
	b.WriteString(base)
	return b.String()
}
