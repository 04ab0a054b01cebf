package narrate

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrEmptyResponse is returned for a blank model reply.
var ErrEmptyResponse = errors.New("empty response")

// ParseJSONResponse decodes a JSON reply into out, tolerating markdown code
// fences around it.
func ParseJSONResponse(text string, out any) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyResponse
	}

	if strings.HasPrefix(text, "```") {
		lines := strings.Split(text, "\n")
		endIdx := len(lines)
		for i := len(lines) - 1; i > 0; i-- {
			if strings.TrimSpace(lines[i]) == "```" {
				endIdx = i
				break
			}
		}
		text = strings.Join(lines[1:endIdx], "\n")
	}

	return json.Unmarshal([]byte(text), out)
}
