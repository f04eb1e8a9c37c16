package ailink

import (
	"errors"
	"strings"

	"github.com/scoutline/scoutline/internal/ailink/prompt"
)

func applyVars(template string, vars map[string]string) string {
	result := template
	for key, value := range vars {
		result = strings.ReplaceAll(result, "{{"+key+"}}", value)
	}
	return result
}

// applyConditionals handles {{#if var}}content{{else}}fallback{{/if}} blocks.
// If the variable exists and is non-empty, the content is included; otherwise the fallback is used.
func applyConditionals(template string, vars map[string]string) string {
	result := template
	for {
		start := strings.Index(result, "{{#if")
		if start == -1 {
			break
		}
		tagEnd := strings.Index(result[start:], "}}")
		if tagEnd == -1 {
			break
		}
		tagEnd += start

		varName := strings.TrimSpace(result[start+len("{{#if") : tagEnd])
		blockStart := tagEnd + 2

		elseStart, elseEnd, endStart, endEnd := findConditionalBlock(result, blockStart)
		if endStart == -1 {
			break
		}

		ifContent := result[blockStart:endStart]
		elseContent := ""
		if elseStart != -1 {
			ifContent = result[blockStart:elseStart]
			elseContent = result[elseEnd:endStart]
		}

		value, exists := vars[varName]
		replacement := elseContent
		if exists && strings.TrimSpace(value) != "" {
			replacement = ifContent
		}

		result = result[:start] + replacement + result[endEnd:]
	}
	return result
}

func findConditionalBlock(input string, start int) (int, int, int, int) {
	depth := 0
	elseStart := -1
	elseEnd := -1

	pos := start
	for {
		openIdx := strings.Index(input[pos:], "{{")
		if openIdx == -1 {
			return -1, -1, -1, -1
		}
		openIdx += pos

		closeIdx := strings.Index(input[openIdx:], "}}")
		if closeIdx == -1 {
			return -1, -1, -1, -1
		}
		closeIdx += openIdx

		tag := strings.TrimSpace(input[openIdx+2 : closeIdx])
		switch {
		case tag == "#if" || strings.HasPrefix(tag, "#if "):
			depth++
		case tag == "/if":
			if depth == 0 {
				return elseStart, elseEnd, openIdx, closeIdx + 2
			}
			depth--
		case tag == "else" && depth == 0 && elseStart == -1:
			elseStart = openIdx
			elseEnd = closeIdx + 2
		}

		pos = closeIdx + 2
	}
}

// renderPrompt renders the system and user templates. Conditionals are resolved before
// substitution so that variable values are never parsed as template syntax. An empty user
// template yields an empty user message.
func renderPrompt(def *prompt.Prompt, vars map[string]string) (string, string, error) {
	if def == nil {
		return "", "", errors.New("prompt is required")
	}

	system := applyVars(applyConditionals(def.Config.SystemTemplate, vars), vars)
	user := applyVars(applyConditionals(def.Config.UserTemplate, vars), vars)

	if strings.TrimSpace(system) == "" {
		return "", "", errors.New("system prompt is required")
	}
	return system, strings.TrimRight(user, "\n"), nil
}
