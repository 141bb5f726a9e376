package mcp

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/mark3labs/mcp-go/mcp"
)

// bindArguments decodes tool arguments into target using json tags.
// Clients that send every parameter as a string (JSON-encoded arrays,
// "true", "3") are coerced to the field types.
func bindArguments(request mcp.CallToolRequest, target interface{}) error {
	if _, ok := request.GetRawArguments().(map[string]interface{}); !ok {
		return fmt.Errorf("invalid arguments format")
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			jsonStringHook,
			mapstructure.StringToSliceHookFunc(","),
		),
		Result:  target,
		TagName: "json",
	})
	if err != nil {
		return err
	}
	return decoder.Decode(request.GetArguments())
}

// jsonStringHook parses string values that hold JSON arrays or objects.
func jsonStringHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String {
		return data, nil
	}
	raw := strings.TrimSpace(data.(string))
	if raw == "" {
		return data, nil
	}

	switch to.Kind() {
	case reflect.Slice:
		if strings.HasPrefix(raw, "[") && strings.HasSuffix(raw, "]") {
			ptr := reflect.New(to)
			if err := json.Unmarshal([]byte(raw), ptr.Interface()); err == nil {
				return ptr.Elem().Interface(), nil
			}
		}
	case reflect.Map, reflect.Struct:
		if strings.HasPrefix(raw, "{") && strings.HasSuffix(raw, "}") {
			var out interface{}
			if err := json.Unmarshal([]byte(raw), &out); err == nil {
				return out, nil
			}
		}
	}
	return data, nil
}

// marshalToolResponse returns response as a JSON text result.
func marshalToolResponse(response interface{}) (*mcp.CallToolResult, error) {
	jsonData, err := json.Marshal(response)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}
