package backend

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// unwrap 去掉后端可能附加的外层包装（{data: ...}、{order: ...}、{books: [...]}），最多两层
func unwrap(body []byte, keys ...string) []byte {
	current := bytes.TrimSpace(body)
	for depth := 0; depth < 2; depth++ {
		if len(current) == 0 || current[0] != '{' {
			return current
		}
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(current, &obj); err != nil {
			return current
		}
		next, ok := pick(obj, keys)
		if !ok {
			return current
		}
		current = bytes.TrimSpace(next)
	}
	return current
}

func pick(obj map[string]json.RawMessage, keys []string) (json.RawMessage, bool) {
	for _, key := range keys {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) == 0 || string(trimmed) == "null" {
			continue
		}
		if trimmed[0] == '{' || trimmed[0] == '[' {
			return trimmed, true
		}
	}
	return nil, false
}

func decodeRawMap(body []byte) (map[string]interface{}, bool) {
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, false
	}
	return raw, true
}

func readString(raw map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		value, ok := raw[key]
		if !ok || value == nil {
			continue
		}
		switch typed := value.(type) {
		case string:
			if v := strings.TrimSpace(typed); v != "" {
				return v
			}
		case float64:
			return strconv.FormatInt(int64(typed), 10)
		case bool:
			return strconv.FormatBool(typed)
		}
	}
	return ""
}

func readMap(raw map[string]interface{}, key string) map[string]interface{} {
	if nested, ok := raw[key].(map[string]interface{}); ok {
		return nested
	}
	return nil
}

func errorMessage(body []byte) string {
	raw, ok := decodeRawMap(body)
	if !ok {
		msg := strings.TrimSpace(string(body))
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return msg
	}
	return readString(raw, "message", "error", "msg")
}
