package tool

import (
	"encoding/json"
	"fmt"
	"strings"

	contractx "github.com/ventaluz/ventaluz/agent/contract"
)

// Argument decoding is strict: a malformed argument fails the tool call
// with an error string fed back into the reasoning loop, never a Go
// error that would abort the turn.

func stringArg(args map[string]any, key string) (string, error) {
	raw, ok := args[key]
	if !ok {
		return "", fmt.Errorf("%w: %s is required", contractx.ErrToolInput, key)
	}
	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string", key)
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("%s must not be empty", key)
	}
	return value, nil
}

func optionalStringArg(args map[string]any, key string) (string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return "", nil
	}
	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string", key)
	}
	return strings.TrimSpace(value), nil
}

func floatArg(args map[string]any, key string) (float64, error) {
	raw, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s is required", contractx.ErrToolInput, key)
	}
	return toFloat(raw, key)
}

func intArg(args map[string]any, key string, fallback int) (int, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return fallback, nil
	}
	value, err := toFloat(raw, key)
	if err != nil {
		return 0, err
	}
	n := int(value)
	if float64(n) != value {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return n, nil
}

func toFloat(raw any, key string) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		value, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("%s must be a number", key)
		}
		return value, nil
	default:
		return 0, fmt.Errorf("%s must be a number", key)
	}
}

func itemsArg(args map[string]any, key string) ([]contractx.DirectOrderItem, error) {
	raw, ok := args[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s is required", contractx.ErrToolInput, key)
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%s must be an array", key)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("%s must not be empty", key)
	}

	items := make([]contractx.DirectOrderItem, 0, len(list))
	for i, entry := range list {
		obj, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s[%d] must be an object", key, i)
		}
		productID, err := stringArg(obj, "product_id")
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %v", key, i, err)
		}
		quantity, err := intArg(obj, "quantity", 1)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %v", key, i, err)
		}
		if quantity < 1 {
			return nil, fmt.Errorf("%s[%d]: quantity must be >= 1", key, i)
		}
		items = append(items, contractx.DirectOrderItem{
			ProductID: productID,
			Quantity:  quantity,
		})
	}
	return items, nil
}
