package main

import "encoding/json"

type chunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// deltaContent extrae el texto incremental de un chunk de chat completions.
func deltaContent(data string) (string, bool) {
	var c chunk
	if err := json.Unmarshal([]byte(data), &c); err != nil || len(c.Choices) == 0 {
		return "", false
	}
	return c.Choices[0].Delta.Content, true
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
