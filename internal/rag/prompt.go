package rag

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pribylovaa/risk-assistant/internal/models"
)

const (
	maxExamples  = 10
	maxFileNames = 10
	maxItems     = 5
)

const systemPrompt = "You are an occupational safety and health expert."

// buildQuery формирует текст для эмбеддинга.
func buildQuery(task, element string) string {
	return fmt.Sprintf("Work task: %s\nOne of the work elements of this task is %q.", task, element)
}

// distinctFileNames возвращает уникальные непустые имена файлов в порядке появления.
func distinctFileNames(docs []models.RAGDocument) []string {
	seen := make(map[string]struct{}, len(docs))
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		if d.FileName == "" {
			continue
		}
		if _, ok := seen[d.FileName]; ok {
			continue
		}
		seen[d.FileName] = struct{}{}
		out = append(out, d.FileName)
		if len(out) == maxFileNames {
			break
		}
	}

	return out
}

// buildPrompt собирает промпт: до 10 примеров, список файлов знаний и
// требуемый формат ответа.
func buildPrompt(task, element string, docs []models.RAGDocument) string {
	var examples strings.Builder
	for i, d := range docs {
		if i == maxExamples {
			break
		}
		fmt.Fprintf(&examples, "%d. Hazard: %s\n   Risk mitigation: %s\n   File name: %s\n",
			i+1, d.Hazard, d.RiskMitigation, d.FileName)
	}

	files, _ := json.Marshal(distinctFileNames(docs))

	return fmt.Sprintf(`For the work task and work element below, list newly anticipated hazards and
risk mitigation measures: exactly 10 items split into two groups.
Write hazards and measures as full sentences.

1. "rags" (5 items): based on the reference cases below. For each item set
   "knowledge_file" to the most relevant file name from %s.
2. "llms" (5 items): from your own knowledge only, without the reference cases.
   Set "knowledge_file" to %q.

"category" must be one of: %q, %q, %q, %q.

Output only a JSON object of the form:
{"rags": [{"hazard": "...", "risk_mitigation": "...", "category": "...", "knowledge_file": "..."}],
 "llms": [{"hazard": "...", "risk_mitigation": "...", "category": "...", "knowledge_file": %q}]}

# Work task: %s
# Work element: %s

Reference cases:
%s`,
		files,
		models.LLMGenerated,
		models.CategoryDesign, models.CategoryEngineering, models.CategoryAdministrative, models.CategoryPPE,
		models.LLMGenerated,
		task, element,
		examples.String(),
	)
}

// parseResult разбирает ответ модели. Ответ, который не является JSON-объектом,
// возвращается как raw_response. Markdown-ограждение ```json снимается.
func parseResult(raw string) *models.RAGResult {
	body := strings.TrimSpace(raw)
	if strings.HasPrefix(body, "```") {
		body = strings.TrimPrefix(body, "```json")
		body = strings.TrimPrefix(body, "```")
		body = strings.TrimSuffix(strings.TrimSpace(body), "```")
		body = strings.TrimSpace(body)
	}

	var parsed struct {
		RAGs []models.RiskItem `json:"rags"`
		LLMs []models.RiskItem `json:"llms"`
	}
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return &models.RAGResult{RawResponse: raw}
	}

	if len(parsed.RAGs) > maxItems {
		parsed.RAGs = parsed.RAGs[:maxItems]
	}
	if len(parsed.LLMs) > maxItems {
		parsed.LLMs = parsed.LLMs[:maxItems]
	}

	return &models.RAGResult{RAGs: parsed.RAGs, LLMs: parsed.LLMs}
}
