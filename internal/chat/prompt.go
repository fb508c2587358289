package chat

import (
	"fmt"
	"strings"

	"github.com/suarabot/suarabot/internal/embed"
	"github.com/suarabot/suarabot/internal/models"
)

// historyWindow is how many recent messages feed the prompt.
const historyWindow = 6

// ContextBlock renders retrieval matches best-first, each tagged with a
// relevance marker so the model weighs them correctly.
func ContextBlock(matches []embed.Match) string {
	parts := make([]string, 0, len(matches))
	for i, m := range matches {
		priority := "MOST RELEVANT"
		if i > 0 {
			priority = fmt.Sprintf("Relevance: %.1f%%", m.Score*100)
		}
		parts = append(parts, fmt.Sprintf("[%s - Source: %s]\n%s", priority, m.Source, m.Text))
	}
	return strings.Join(parts, "\n\n---\n\n")
}

func historyBlock(history []models.ChatMessage) string {
	if len(history) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\nRecent conversation history:\n")
	for _, m := range history {
		role := "Customer"
		if m.Role == models.RoleAssistant {
			role = "Assistant"
		}
		fmt.Fprintf(&b, "%s: %s\n", role, m.Content)
	}
	return b.String()
}

// buildPrompt assembles the user-turn prompt: the question, retrieval
// context when there is any, and the recent conversation history.
func buildPrompt(message string, matches []embed.Match, history []models.ChatMessage) string {
	historyText := historyBlock(history)

	if len(matches) > 0 {
		context := "\n\nRelevant information from knowledge base (sorted by relevance):\n" + ContextBlock(matches)
		return fmt.Sprintf(`Answer the customer's question using the provided knowledge base information and conversation history for context.

Customer Question: %s
%s
%s

CRITICAL INSTRUCTIONS:
1. Consider the conversation history to understand the context and maintain continuity
2. The customer is asking: "%s"
3. Look for the EXACT information that answers this specific question
4. If they ask "how many" or "how much", look for NUMBERS and QUANTITIES
5. IGNORE unrelated information that does not answer their question
6. Use ONLY the information that directly answers their question
7. Be specific and cite the exact numbers and details found
8. Reference previous conversation if relevant to the current question

What does the knowledge base say about their specific question?`, message, context, historyText, message)
	}

	return fmt.Sprintf(`Please answer the following customer question based on your general knowledge. Since no specific business information was found, provide a helpful general response and suggest the customer contact the business directly for specific details.

Customer Question: %s
%s

Instructions:
1. Consider the conversation history to maintain context and continuity
2. Provide a helpful, general response
3. Acknowledge that specific business details should be verified
4. Maintain a professional customer service tone
5. Suggest appropriate next steps for the customer`, message, historyText)
}
