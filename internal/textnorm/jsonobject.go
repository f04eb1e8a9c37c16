package textnorm

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fencedJSONPattern = regexp.MustCompile("(?is)```(?:json)?\\s*(.*?)\\s*```")

// ExtractJSONObject finds the first JSON object in noisy model output. It tries the whole
// text, then the first fenced code block, then the span from the first '{' to the last '}'.
// It returns nil when none of those decode to an object.
func ExtractJSONObject(text string) map[string]any {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return nil
	}

	if obj := decodeObject(raw); obj != nil {
		return obj
	}

	if match := fencedJSONPattern.FindStringSubmatch(raw); len(match) == 2 && strings.TrimSpace(match[1]) != "" {
		if obj := decodeObject(match[1]); obj != nil {
			return obj
		}
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start != -1 && end > start {
		return decodeObject(raw[start : end+1])
	}

	return nil
}

func decodeObject(s string) map[string]any {
	var value any
	if err := json.Unmarshal([]byte(s), &value); err != nil {
		return nil
	}
	obj, ok := value.(map[string]any)
	if !ok {
		return nil
	}
	return obj
}
