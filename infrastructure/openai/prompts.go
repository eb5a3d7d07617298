package openai

import (
	"fmt"
	"strings"
)

const validationSystemPrompt = "You are an expert at evaluating and enhancing automation scenario descriptions. " +
	"You help make them clear, professional, and valuable to users. Always respond with valid JSON only."

const enhanceSystemPrompt = "You are a helpful assistant that analyzes automation scenarios and provides structured metadata. " +
	"Always respond with valid JSON only."

const categorizeSystemPrompt = "You categorize automation scenarios. Respond with only the category name."

func validationPrompt(title, description, apps, category string, categories []string) string {
	return fmt.Sprintf(`Analyze this Make.com scenario submission and provide validation and enhancement suggestions.

Title: %s
Description: %s
Apps: %s
Category: %s

Evaluate:
1. Is this a legitimate automation scenario (not spam)?
2. Quality of description (clarity, completeness)
3. Suggest an improved title if needed
4. Suggest an enhanced description (more professional, clear value proposition)
5. Suggest the best category from: %s
6. Overall confidence in this being a valid submission (0-1)

Respond with JSON only:
{
  "isValid": boolean,
  "quality": "high" | "medium" | "low",
  "issues": [string],
  "suggestedTitle": string,
  "suggestedDescription": string,
  "suggestedCategory": string,
  "confidence": number
}

If isValid is false, list specific issues. If valid, issues should be empty array.`,
		title, description, apps, category, strings.Join(categories, ", "))
}

func enhancePrompt(title, description, apps, instructions string) string {
	extra := ""
	if instructions != "" {
		extra = "Instructions: " + instructions
	}
	return fmt.Sprintf(`Analyze this Make.com automation scenario and provide metadata in JSON format.

Title: %s
Description: %s
Apps used: %s
%s

Please provide:
1. useCase: A concise one-sentence description of what problem this automation solves (max 100 characters)
2. complexity: One of "Beginner", "Intermediate", or "Advanced" based on the technical requirements
3. tags: An array of 3-5 relevant keywords/tags (lowercase, single words or short phrases)

Return ONLY valid JSON in this exact format:
{
  "useCase": "string",
  "complexity": "Beginner" | "Intermediate" | "Advanced",
  "tags": ["tag1", "tag2", "tag3"]
}`, title, description, apps, extra)
}

func categorizePrompt(description, apps string, categories []string) string {
	var list strings.Builder
	for _, c := range categories {
		list.WriteString("- " + c + "\n")
	}
	return fmt.Sprintf(`Based on this automation scenario, suggest the best category.

Description: %s
Apps used: %s

Available categories:
%s
Respond with just the category name, nothing else.`, description, apps, list.String())
}
