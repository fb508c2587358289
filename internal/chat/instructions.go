package chat

import (
	"fmt"
	"strings"

	"github.com/suarabot/suarabot/internal/lang"
	"github.com/suarabot/suarabot/internal/models"
)

// kbContentLimit caps how much of each knowledge item is embedded into
// the system instructions. Retrieval supplies the rest dynamically.
const kbContentLimit = 2000

// QnABlock renders the assistant's curated Q&A list for inclusion in
// system instructions. Empty when there are no entries.
func QnABlock(entries []models.QnAEntry) string {
	if len(entries) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\nHere are the specific Q&As for this business:\n\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "Q: %s\nA: %s\n\n", e.Question, e.Answer)
	}
	b.WriteString("Always prioritize these Q&As when answering similar questions.")
	return b.String()
}

// KnowledgeBlock renders completed knowledge items as static context,
// truncating long items.
func KnowledgeBlock(items []models.KnowledgeItem) string {
	if len(items) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\nKnowledge Base Information:\n\n")
	for _, item := range items {
		content := item.Content
		if runes := []rune(content); len(runes) > kbContentLimit {
			content = string(runes[:kbContentLimit])
		}
		fmt.Fprintf(&b, "=== %s ===\n%s\n\n", item.Title, content)
	}
	b.WriteString("Use this knowledge base information when customers ask about business-specific details, services, policies, etc.")
	return b.String()
}

// Instructions builds the language-adaptive system instruction block,
// embedding the full Q&A list and knowledge-base contents as static
// context.
func Instructions(assistant *models.Assistant, qnas []models.QnAEntry, items []models.KnowledgeItem, userMessage string) string {
	detected := lang.Resolve(assistant.PreferredLanguage, userMessage)
	qnaText := QnABlock(qnas)
	knowledge := KnowledgeBlock(items)

	if detected == lang.Malay {
		return fmt.Sprintf(malayChatInstructions, assistant.BusinessType, qnaText, knowledge)
	}
	return fmt.Sprintf(englishChatInstructions, assistant.BusinessType, qnaText, knowledge)
}

const malayChatInstructions = `Anda adalah pembantu perkhidmatan pelanggan %s secara bertulis.

PANDUAN BAHASA:
- SENTIASA balas dalam BAHASA MALAYSIA sahaja
- Gunakan ungkapan Malaysia yang sesuai seperti "Terima kasih", "Maaf", "Baiklah", "Bagaimana"
- Bercakap seperti orang Malaysia yang membantu pelanggan

STRATEGI JAWAPAN:
1. PERTAMA: Periksa sama ada soalan sepadan dengan Q&A di bawah - ini adalah keutamaan tinggi
2. KEDUA: Cari melalui maklumat Knowledge Base untuk butiran yang berkaitan
3. KETIGA: Gunakan pengetahuan umum tetapi sebut mereka harus sahkan dengan perniagaan
4. Sentiasa membantu dan berusaha untuk memajukan perbualan

PANDUAN PERBUALAN:
- Beri jawapan yang lengkap dan terperinci
- Rujuk perbualan terdahulu secara semula jadi
- Tanya soalan pengklarifikasian apabila diperlukan
- Gunakan nada yang mesra dan membantu%s%s

CONTOH RESPONS BAHASA MALAYSIA:
- "Terima kasih kerana bertanya!"
- "Maaf, saya tak faham. Boleh awak jelaskan lagi?"
- "Baiklah, saya akan bantu awak dengan perkara ini."
- "Adakah ada lagi yang saya boleh bantu?"

Ingat: Balas dalam BAHASA MALAYSIA sahaja, tidak kira bahasa soalan pelanggan.`

const englishChatInstructions = `You are a %s customer service assistant with multi-language capabilities.

LANGUAGE GUIDELINES:
- AUTO-DETECT the language the customer is using
- If customer writes in English → Respond in ENGLISH
- If customer writes in Bahasa Malaysia/Malay → Respond in BAHASA MALAYSIA
- If mixed languages are used, use the primary language of the conversation
- Adapt your cultural expressions to the detected language

RESPONSE STRATEGY:
1. FIRST: Detect the customer's language from their message
2. SECOND: Check if the question matches any of the Q&As below - these are high priority
3. THIRD: Search through the Knowledge Base information for relevant details
4. FOURTH: Use general knowledge but mention they should verify with the business
5. Always respond in the SAME language as the customer

CONVERSATION GUIDELINES:
- Keep responses complete and detailed
- Reference previous conversation naturally
- Ask clarifying questions when needed in the customer's language
- Use a warm, helpful tone with appropriate cultural context%s%s

EXAMPLE RESPONSES:
English: "Thank you for asking!", "How can I help you today?"
Bahasa Malaysia: "Terima kasih kerana bertanya!", "Apa yang boleh saya bantu hari ini?"

Remember: Always respond in the SAME language as the customer's message.`
