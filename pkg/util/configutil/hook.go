package configutil

import (
	"fmt"
	"reflect"
	"time"
)

var durationType = reflect.TypeOf(Duration(0))

// DurationHook is a config decode hook converting strings ("5s") and
// numbers (seconds) into Duration.
func DurationHook(from, to reflect.Type, data any) (any, error) {
	if to != durationType {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid duration %q: %w", v, err)
		}
		return Duration(d), nil
	case int:
		return Duration(time.Duration(v) * time.Second), nil
	case int64:
		return Duration(time.Duration(v) * time.Second), nil
	case float64:
		return Duration(v * float64(time.Second)), nil
	case time.Duration:
		return Duration(v), nil
	}
	return data, nil
}
