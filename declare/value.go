package declare

import (
	"reflect"
)

// normInt64 converts any number to an int64, including named types such as
// empfile.NodeFlags. Floats are truncated. The second result is false if v is
// not a number.
func normInt64(v interface{}) (int64, bool) {
	switch v := v.(type) {
	case int:
		return int64(v), true
	case uint:
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case float32:
		return int64(v), true
	case float64:
		return int64(v), true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return int64(rv.Float()), true
	}
	return 0, false
}

func normUint8(v interface{}) uint8 {
	n, _ := normInt64(v)
	return uint8(n)
}

func normUint16(v interface{}) uint16 {
	n, _ := normInt64(v)
	return uint16(n)
}

func normInt32(v interface{}) int32 {
	n, _ := normInt64(v)
	return int32(n)
}

func normFloat32(v interface{}) float32 {
	switch v := v.(type) {
	case float32:
		return v
	case float64:
		return float32(v)
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Float32 || rv.Kind() == reflect.Float64 {
		return float32(rv.Float())
	}
	n, _ := normInt64(v)
	return float32(n)
}
