package usecase

import (
	"fmt"
)

func buildRefinePrompt(query string) string {
	return fmt.Sprintf(`You rewrite user messages into search queries for a research collaboration platform
that indexes research projects, funding calls and researchers.

Rules:
- Remove greetings, politeness and conversational filler.
- Keep the core intent: research topic, scientific field and any funding need.
- Answer with the rewritten search query only. No explanations, no quotes, no prefix.

User message:
%s

Search query:`, query)
}

func buildGroundingPrompt(rawQuery, refinedQuery string, refined bool, contextDocument string) string {
	intent := ""
	if refined {
		intent = fmt.Sprintf("\nInterpreted search intent: %s\n", refinedQuery)
	}

	return fmt.Sprintf(`You are the research assistant of a collaboration platform. You help users find
research projects, funding calls and researchers that are stored on the platform.

User question:
%s
%s
Matched platform records:
%s

Rules:
1. Use only the records above. Do not add facts, names or numbers that are not in them.
2. Answer the user's question directly.
3. When records complement each other, for example a project and a funding call that could finance it, point out the connection.
4. Cite exact titles and sources so the user can find the matching result in the list.
5. If the records only partly answer the question, answer as well as possible and suggest broadening the search.

Formatting: short paragraphs or bullet points, no headings.

Answer:`, rawQuery, intent, contextDocument)
}

func buildFallbackPrompt(refinedQuery string, threshold float64) string {
	return fmt.Sprintf(`You are the research assistant of a collaboration platform.
A search for %q found no projects, funding calls or researchers with a relevance of at least %.2f.

Write a short, polite reply that:
- says no matching records were found,
- invites the user to rephrase or use broader or different keywords.

Do not suggest, invent or describe any project, funding call or person.

Reply:`, refinedQuery, threshold)
}
