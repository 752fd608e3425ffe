package anonymizer

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Normalize converts a header value into its canonical serialisable form:
//
//   - signed and unsigned fixed-width integers become int64 (uint64 values
//     above math.MaxInt64 stay uint64)
//   - float32 and float64 become float64
//   - time.Time becomes an ISO-8601 string ("2006-01-02" for midnight UTC,
//     RFC 3339 with nanoseconds otherwise)
//   - slices and arrays of any depth become nested []any, so pixel buffers
//     serialise as nested JSON arrays
//   - string-keyed maps become map[string]any
//
// Everything else is returned unchanged. Normalize is idempotent.
func Normalize(v any) any {
	switch x := v.(type) {
	case nil, string, bool, int64, float64:
		return x
	case time.Time:
		return isoFormat(x)
	case *time.Time:
		if x == nil {
			return nil
		}
		return isoFormat(*x)
	case []byte:
		// Raw bytes are a buffer of small integers, not text.
		out := make([]any, len(x))
		for i, b := range x {
			out[i] = int64(b)
		}
		return out
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return u
		}
		return int64(u)
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return []any{}
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = Normalize(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = Normalize(iter.Value().Interface())
		}
		return out
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return Normalize(rv.Elem().Interface())
	}

	return v
}

// NormalizeHeader returns a normalised copy of a header.
func NormalizeHeader(h map[string]any) map[string]any {
	out := make(map[string]any, len(h))
	for k, v := range h {
		out[k] = Normalize(v)
	}
	return out
}

func isoFormat(t time.Time) string {
	if t.Location() == time.UTC && t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.RFC3339Nano)
}

// stringForm renders a normalised value the way it is fed to the digest.
// Scalars follow Python's str(): nil is "None", booleans are "True" and
// "False", and floats keep a ".0" or switch to exponent form.
func stringForm(v any) string {
	switch x := Normalize(v).(type) {
	case nil:
		return "None"
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float64:
		return floatForm(x)
	case bool:
		if x {
			return "True"
		}
		return "False"
	default:
		return fmt.Sprint(x)
	}
}

// floatForm is the shortest round-trip rendering of f, in exponent form when
// the decimal exponent is below -4 or at least 16.
func floatForm(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}

	sci := strconv.FormatFloat(f, 'e', -1, 64)
	exp, _ := strconv.Atoi(sci[strings.LastIndexByte(sci, 'e')+1:])
	if f != 0 && (exp < -4 || exp >= 16) {
		return sci
	}

	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
