package export

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// FormatValue renders a cell as text. Nil renders as the empty string.
func FormatValue(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case json.Number:
		return typed.String()
	case bool:
		return strconv.FormatBool(typed)
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case map[string]any, []any:
		data, err := json.Marshal(typed)
		if err != nil {
			return fmt.Sprint(typed)
		}
		return string(data)
	default:
		return fmt.Sprint(typed)
	}
}

// sqlValue maps a cell to a driver value, keeping nulls.
func sqlValue(value any) any {
	if value == nil {
		return nil
	}
	return FormatValue(value)
}
