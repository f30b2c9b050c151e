package curate

import (
	"encoding/json"
	"fmt"

	"github.com/TobiSchelling/cyberbrief/internal/llm"
	"github.com/TobiSchelling/cyberbrief/internal/news"
)

const systemPrompt = "You are an assistant that helps filter and summarize news articles based on a user query."

const queryTemplate = "Cybersecurity incidents or announcements that are important for a company from %s in the %s sector as well as major global news."

const instructionTemplate = `Given the user query and the list of news articles below, select the %d articles most relevant to the query. If several articles cover the same story, pick only one of them.

Then write a summary of the selected articles in less than 150 words. The summary should read as a briefing for the user, not as a list of the articles.

Return the integer ids of the selected articles. Reply only with a JSON object of this form:
{"articles": [<id>, <id>, ...], "summary": "<summary>"}

User query: %s

Articles:
%s`

// replySchema is the structured output requested from providers that support it.
var replySchema = &llm.Schema{
	Type: "object",
	Properties: map[string]*llm.Schema{
		"articles": {Type: "array", Items: &llm.Schema{Type: "integer"}},
		"summary":  {Type: "string"},
	},
	Required: []string{"articles", "summary"},
}

// Instruction is the relevance query for a country and sector.
func Instruction(country news.Country, sector string) string {
	return fmt.Sprintf(queryTemplate, country, sector)
}

// BuildPrompt renders the selection prompt with the records projected to
// their ids and titles.
func BuildPrompt(q news.Query, records []news.Record) (string, error) {
	titles, err := json.Marshal(news.Project(records))
	if err != nil {
		return "", fmt.Errorf("encoding titles: %w", err)
	}
	return fmt.Sprintf(instructionTemplate, q.ArticleCount, Instruction(q.Country, q.Sector), titles), nil
}
