package common

import (
	"encoding/json"
	"strconv"
	"strings"
)

// AsString 將鬆散型別的 JSON 值轉為字串
func AsString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// AsFloat 將鬆散型別的 JSON 值轉為浮點數
func AsFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(val), ",", "."), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// StringField 依序嘗試多個鍵，回傳第一個非空字串
func StringField(m map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if s := AsString(m[key]); s != "" {
			return s
		}
	}
	return ""
}

// NumberField 依序嘗試多個鍵，回傳第一個可解析的數值
func NumberField(m map[string]interface{}, keys ...string) (float64, bool) {
	for _, key := range keys {
		if v, ok := m[key]; ok && v != nil {
			if f, ok := AsFloat(v); ok {
				return f, true
			}
		}
	}
	return 0, false
}

// MapField 取得巢狀物件
func MapField(m map[string]interface{}, key string) (map[string]interface{}, bool) {
	nested, ok := m[key].(map[string]interface{})
	return nested, ok
}

// ListField 取得陣列欄位
func ListField(m map[string]interface{}, key string) []interface{} {
	list, _ := m[key].([]interface{})
	return list
}
