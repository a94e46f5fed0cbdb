package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

func str(description string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Description: description}
}

func number(description string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeNumber, Description: description}
}

func integer(description string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeInteger, Description: description}
}

func nullable(s *genai.Schema) *genai.Schema {
	s.Nullable = genai.Ptr(true)
	return s
}

func arrayOf(items *genai.Schema) *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Items: items}
}

func object(properties map[string]*genai.Schema, required ...string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeObject, Properties: properties, Required: required}
}

var ingredientSchema = object(map[string]*genai.Schema{
	"name":     str("ingredient name without quantity"),
	"quantity": nullable(number("amount, null when not given")),
	"unit":     str("unit of measure, empty when not given"),
	"note":     str("preparation remark"),
}, "name")

var ingredientListSchema = object(map[string]*genai.Schema{
	"ingredients": arrayOf(ingredientSchema),
}, "ingredients")

var recipeSchema = object(map[string]*genai.Schema{
	"title":        str("recipe title"),
	"category":     str("recipe category"),
	"servings":     integer("number of servings"),
	"prep_minutes": integer("total preparation time in minutes"),
	"ingredients":  arrayOf(ingredientSchema),
	"steps":        arrayOf(str("one preparation step")),
	"tags":         arrayOf(str("short tag")),
}, "title", "ingredients", "steps")

var nutritionSchema = object(map[string]*genai.Schema{
	"calories":  number("kcal per serving"),
	"protein_g": number("grams of protein per serving"),
	"carbs_g":   number("grams of carbohydrates per serving"),
	"fat_g":     number("grams of fat per serving"),
	"fiber_g":   number("grams of fiber per serving"),
}, "calories", "protein_g", "carbs_g", "fat_g", "fiber_g")

// extractJSON finds the first complete JSON object or array in text. Search
// grounded answers cannot use a response schema, so the model often wraps
// the JSON in prose or markdown fences.
func extractJSON(text string) (string, bool) {
	start := strings.IndexAny(text, "{[")
	for start >= 0 {
		if end, ok := matchBracket(text, start); ok {
			candidate := text[start : end+1]
			if json.Valid([]byte(candidate)) {
				return candidate, true
			}
		}
		next := strings.IndexAny(text[start+1:], "{[")
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

// matchBracket returns the index of the bracket closing text[start],
// skipping over string literals.
func matchBracket(text string, start int) (int, bool) {
	var stack []byte
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != ch {
				return 0, false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

func decodeJSON(op, text string, out any) error {
	raw, ok := extractJSON(text)
	if !ok {
		return &Error{Op: op, Message: "model response has no JSON: " + truncate(text, 200)}
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return &Error{Op: op, Message: fmt.Sprintf("model response does not match the expected shape: %v", err), Err: err}
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
