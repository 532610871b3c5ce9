package ollama

import (
	"context"
	"strings"
)

// sectionInstructions describes what each known section should contain.
// Unknown section names get a generic instruction.
var sectionInstructions = map[string]string{
	"lecture_notes": "Comprehensive, well-structured lecture notes in markdown. " +
		"Use headings for each topic, bullet points for details, and preserve " +
		"definitions, formulas, and examples.",
	"summary": "A concise summary of the lecture in a few paragraphs, covering " +
		"the main topics and conclusions.",
	"qa_cards": "Question and answer study cards. Format each card as " +
		"'Q: <question>' on one line and 'A: <answer>' on the next.",
	"key_points": "The most important takeaways as a short bullet list.",
}

const sectionStartMarker = "SECTION_START"

const sectionEndMarker = "SECTION_END"

// GenerateSections asks the model for every named section in one request,
// delimited by SECTION_START/SECTION_END markers, and parses the response.
// Sections the model omits are absent from the returned map.
func (c *Client) GenerateSections(ctx context.Context, contextText string, names []string) (map[string]string, error) {
	prompt := buildSectionsPrompt(contextText, names)
	response, err := c.Generate(ctx, prompt, nil)
	if err != nil {
		return nil, err
	}
	return ParseSections(response, names), nil
}

func buildSectionsPrompt(contextText string, names []string) string {
	var b strings.Builder
	b.WriteString("You are producing study materials from a lecture transcript and slides.\n")
	b.WriteString("Produce the following sections. Wrap each one in marker lines exactly as shown:\n\n")
	for _, name := range names {
		instruction, ok := sectionInstructions[name]
		if !ok {
			instruction = "Content for the '" + name + "' section."
		}
		b.WriteString(sectionStartMarker)
		b.WriteString(" ")
		b.WriteString(name)
		b.WriteString("\n<")
		b.WriteString(instruction)
		b.WriteString(">\n")
		b.WriteString(sectionEndMarker)
		b.WriteString("\n\n")
	}
	b.WriteString("Do not add text outside the markers.\n\n")
	b.WriteString("Lecture content:\n\n")
	b.WriteString(contextText)
	return b.String()
}

// ParseSections extracts marker-delimited sections from a model response.
// Only requested names are returned; empty bodies are dropped.
func ParseSections(response string, names []string) map[string]string {
	requested := make(map[string]struct{}, len(names))
	for _, name := range names {
		requested[name] = struct{}{}
	}

	sections := make(map[string]string)
	lines := strings.Split(response, "\n")
	var current string
	var body []string
	flush := func() {
		if current == "" {
			return
		}
		text := strings.TrimSpace(strings.Join(body, "\n"))
		if text != "" {
			if _, ok := requested[current]; ok {
				sections[current] = text
			}
		}
		current = ""
		body = nil
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, sectionStartMarker):
			flush()
			current = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(trimmed, sectionStartMarker)))
		case trimmed == sectionEndMarker:
			flush()
		default:
			if current != "" {
				body = append(body, line)
			}
		}
	}
	// Tolerate a missing trailing end marker.
	flush()
	return sections
}
