package services

import (
	"fmt"
	"strings"

	"modelhub-backend/internal/models"
)

const (
	descriptionLimit = 100
	hubModelsURL     = "https://hub.opengradient.ai/models"
)

// FormatModelsForPrompt renders one "name|task|author|description" line per
// record, in input order.
func FormatModelsForPrompt(records []models.ModelRecord) string {
	lines := make([]string, 0, len(records))
	for _, m := range records {
		lines = append(lines, strings.Join([]string{
			m.Name(),
			m.Field("taskName"),
			m.Field("authorUsername"),
			shortDescription(m.Field("description")),
		}, "|"))
	}
	return strings.Join(lines, "\n")
}

func shortDescription(desc string) string {
	runes := []rune(desc)
	if len(runes) > descriptionLimit {
		runes = runes[:descriptionLimit]
	}
	return strings.TrimSpace(strings.ReplaceAll(string(runes), "\n", " "))
}

// BuildSystemPrompt wraps the rendered model list in the assistant's
// instructions.
func BuildSystemPrompt(count int, modelsText string) string {
	var b strings.Builder

	b.WriteString("You are an assistant for the OpenGradient Model Hub platform.\n")
	b.WriteString(fmt.Sprintf("You have %d AI models available.\n\n", count))
	b.WriteString("Format: name|category|author|description\n\n")

	b.WriteString(`RULES:
1. Search by ALL fields - name, category, author and description
2. Suggest ONLY real models from the list
3. Give exact model names
4. Explain why each model fits the request
5. If nothing found - say so honestly
6. Answer in the same language the user writes in
7. NEVER mention how many models you searched through or processed - just give the results directly
`)
	b.WriteString(fmt.Sprintf("8. After recommending models always add at the end: \"You can find these models on %s search\"\n", hubModelsURL))
	b.WriteString("9. Always recommend AT LEAST 7 models per request if possible\n\n")

	b.WriteString(`You also have knowledge about these OpenGradient ecosystem products:

**twin.fun** (https://www.twin.fun/):
A marketplace for AI-powered digital twins - agents modeled after real people (crypto influencers, investors, builders). Each twin has a tradeable Key on a bonding curve. Holding keys unlocks access to chat with the twin, pitch ideas, debate, get feedback. Built onchain.

**BitQuant** (https://www.bitquant.io/):
An open-source AI agent framework by OpenGradient for building quantitative AI agents. Focuses on ML-powered analytics, trading strategies, portfolio management, and DeFi quant analysis.

`)

	b.WriteString("MODEL LIST:\n")
	b.WriteString(modelsText)

	return b.String()
}
