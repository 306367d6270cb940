package anthropic

import "fmt"

// buildChatSystemPrompt creates the system prompt for a tutoring chat turn
func buildChatSystemPrompt(subject string) string {
	prompt := `You are a patient, encouraging tutor helping a K-12 student study. Your task is to help the student understand the material, not to do their work for them.

**Guidelines:**
- Explain concepts step by step in language appropriate for the student
- When the student asks for an answer, guide them toward it with leading questions before revealing it
- Use short worked examples where they help
- If a question is ambiguous, ask a clarifying question
- Never produce content unrelated to studying; politely redirect off-topic requests`

	if subject != "" {
		prompt += fmt.Sprintf("\n\n**Current subject:** %s", subject)
	}

	return prompt
}

// buildHomeworkPrompt creates the prompt for generating a practice problem set
func buildHomeworkPrompt(subject, topic, gradeLevel string, count int) string {
	prompt := fmt.Sprintf(`You are a tutor preparing a practice worksheet. Generate exactly %d practice problems for the subject %q.`, count, subject)

	if topic != "" {
		prompt += fmt.Sprintf("\nFocus the problems on this topic: %s", topic)
	}
	if gradeLevel != "" {
		prompt += fmt.Sprintf("\nTarget difficulty: %s", gradeLevel)
	}

	prompt += `

**Guidelines:**
- Vary problem difficulty from easy to challenging
- Every problem must have a single unambiguous answer
- Hints should point at the method, never give away the answer

**Response Format:**
Return your worksheet as a JSON object with this exact structure:

{
  "title": "Worksheet title",
  "problems": [
    {
      "prompt": "The problem statement",
      "answer": "The expected answer",
      "hint": "A hint for the student"
    }
  ]
}

**Important:** Return ONLY the JSON object, no additional text or explanation.`

	return prompt
}
