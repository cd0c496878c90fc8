package aws

import "encoding/json"

// eventType extracts the top-level "type" field of a JSON event, if any.
func eventType(message []byte) string {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(message, &env); err != nil {
		return ""
	}
	return env.Type
}
