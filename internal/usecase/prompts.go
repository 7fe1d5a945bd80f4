package usecase

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"minirag/internal/domain"
)

//go:embed templates/*.txt
var promptFS embed.FS

var prompts = template.Must(template.ParseFS(promptFS, "templates/*.txt"))

type answerPromptData struct {
	Context string
	Query   string
}

type summaryPromptData struct {
	Entries []domain.HistoryEntry
}

// buildContext renders hits as "Source: <title>" blocks separated by "---".
func buildContext(hits []domain.Hit) string {
	parts := make([]string, len(hits))
	for i, h := range hits {
		parts[i] = fmt.Sprintf("Source: %s\n%s\n", h.Title, h.Text)
	}
	return strings.Join(parts, "\n---\n")
}

func renderPrompt(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.String(), nil
}
