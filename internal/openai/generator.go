package openai

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/peptiq-labs/peptiq/internal/domain"
)

// MaxAnswerLength is the hard cap on generated answer text. Longer answers
// are clamped at the last word boundary that fits.
const MaxAnswerLength = 1000

const systemPromptBase = `You are a research assistant answering questions about peptides for an educational audience. Answer only from the context provided. If the context does not cover the question, say so plainly. Keep answers factual, concise and in plain prose without markdown formatting.`

// GenerateAnswer produces an answer for the query grounded in contextText,
// honoring every active restriction. The returned text is already cleaned and
// clamped.
func (c *Client) GenerateAnswer(ctx context.Context, query domain.Query, contextText string, restrictions domain.RestrictionSet) (string, error) {
	if strings.TrimSpace(contextText) == "" {
		return "", ErrEmptyText
	}

	answer, err := c.api.CreateChatCompletion(ctx, buildSystemPrompt(restrictions), buildUserPrompt(query, contextText))
	if err != nil {
		return "", domain.NewTransientUpstreamError("failed to generate answer", err)
	}

	return CleanAnswer(answer), nil
}

func buildSystemPrompt(restrictions domain.RestrictionSet) string {
	if restrictions.Empty() {
		return systemPromptBase
	}

	var b strings.Builder
	b.WriteString(systemPromptBase)
	b.WriteString("\n\nIMPORTANT RESTRICTIONS TO FOLLOW:\n")
	for _, s := range restrictions.Statements() {
		fmt.Fprintf(&b, "- %s\n", s)
	}
	return strings.TrimRight(b.String(), "\n")
}

func buildUserPrompt(query domain.Query, contextText string) string {
	question := strings.TrimSpace(query.Text)
	switch query.Mode {
	case domain.QueryModeSpecific:
		question = fmt.Sprintf("About the peptide %s: %s", query.PeptideName, question)
	case domain.QueryModeRecommendation:
		if question == "" {
			question = fmt.Sprintf("Which peptides are similar to %s, and why?", query.PeptideName)
		} else {
			question = fmt.Sprintf("Recommend peptides similar to %s. %s", query.PeptideName, question)
		}
	}
	return fmt.Sprintf("Context:\n%s\n\nQuestion: %s", contextText, question)
}

var (
	markdownHeading = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	markdownEmph    = regexp.MustCompile(`(\*{1,3}|_{1,3})([^*_]+)(\*{1,3}|_{1,3})`)
	markdownCode    = regexp.MustCompile("`{1,3}")
	markdownBullet  = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
)

// CleanAnswer strips markdown artifacts the model emits despite the prompt
// and clamps the result to MaxAnswerLength at a word boundary.
func CleanAnswer(answer string) string {
	out := markdownHeading.ReplaceAllString(answer, "")
	out = markdownEmph.ReplaceAllString(out, "$2")
	out = markdownCode.ReplaceAllString(out, "")
	out = markdownBullet.ReplaceAllString(out, "- ")
	out = strings.TrimSpace(out)

	// clamp in runes so a multi-byte character is never cut in half
	runes := []rune(out)
	if len(runes) <= MaxAnswerLength {
		return out
	}
	clamped := string(runes[:MaxAnswerLength])
	if idx := strings.LastIndexByte(clamped, ' '); idx > 0 {
		clamped = clamped[:idx]
	}
	return strings.TrimRight(clamped, " .,;:") + "..."
}
