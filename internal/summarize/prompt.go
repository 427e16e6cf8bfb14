package summarize

import (
	"fmt"
	"strings"

	"aura/internal/meeting"
)

const notesSystem = `You maintain live notes for a meeting that is still in progress.
Merge the new transcript into the previous notes and output the complete, updated notes.
Format rules:
- Start with one title line written as **## Title ##**.
- Every main point is a line starting with "• ".
- Supporting details go on lines starting with "+ " under their main point.
- Keep decisions, numbers, owners and deadlines. Drop greetings, filler and repetition.
- Output only the notes, with no preamble or closing remarks.`

const titleSystem = `Analyze the following text from a meeting. Create a short, descriptive title (3-5 words) that accurately describes the main topic. Respond with ONLY the title itself, and nothing else.`

const answerSystem = `Based ONLY on the provided meeting notes below, answer the user's question. Do not use any outside knowledge. If the answer is not in the notes, say so.`

func notesPrompt(previous string, context []meeting.Hit, transcript string) string {
	var b strings.Builder

	b.WriteString("--- PREVIOUS NOTES ---\n")
	if strings.TrimSpace(previous) == "" {
		b.WriteString("(none yet)\n")
	} else {
		b.WriteString(strings.TrimRight(previous, "\n"))
		b.WriteString("\n")
	}

	b.WriteString("\n--- RELEVANT EARLIER DISCUSSION ---\n")
	if len(context) == 0 {
		b.WriteString("(none)\n")
	}
	for _, h := range context {
		fmt.Fprintf(&b, "[%d] %s\n", h.Pos, strings.TrimSpace(h.Text))
	}

	b.WriteString("\n--- NEW TRANSCRIPT ---\n")
	b.WriteString(strings.TrimSpace(transcript))
	b.WriteString("\n")
	return b.String()
}

func titlePrompt(summary string) string {
	return "--- TEXT ---\n" + summary + "\n\n--- TITLE ---"
}

func answerPrompt(summary, question string) string {
	return "--- MEETING NOTES ---\n" + summary + "\n\n--- USER QUESTION ---\n" + question + "\n\n--- ANSWER ---"
}
