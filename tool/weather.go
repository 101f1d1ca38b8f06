package tool

import (
	"context"
	"encoding/json"
	"fmt"
)

// WeatherTool returns the demo weather tool. It answers with canned data and
// exists mainly to exercise the tool-call path without touching the system.
func WeatherTool() Definition {
	return Definition{
		Name:        "get_weather",
		Description: "Get the current weather in a given location",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"location": map[string]any{
					"type":        "string",
					"description": "The city, e.g. San Francisco",
				},
			},
			"required": []string{"location"},
		},
		Handler: func(ctx context.Context, raw json.RawMessage) (string, error) {
			var args struct {
				Location string `json:"location"`
			}
			if err := json.Unmarshal(raw, &args); err != nil {
				return "", err
			}
			return fmt.Sprintf("The weather in %s is rainy with storms.", args.Location), nil
		},
	}
}
