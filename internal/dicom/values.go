package dicom

import (
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom"
)

// scalarValue converts the first value of an element into int, float64 or string.
func scalarValue(elem *dicom.Element) (any, bool) {
	if elem == nil || elem.Value == nil {
		return nil, false
	}

	switch v := elem.Value.GetValue().(type) {
	case []string:
		if len(v) == 0 {
			return "", true
		}
		s := strings.TrimSpace(v[0])
		switch elem.RawValueRepresentation {
		case "IS":
			if n, err := strconv.Atoi(s); err == nil {
				return n, true
			}
		case "DS":
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return f, true
			}
		}
		return s, true
	case []int:
		if len(v) > 0 {
			return v[0], true
		}
	case []float64:
		if len(v) > 0 {
			return v[0], true
		}
	case []byte:
		return strings.TrimRight(string(v), " \x00"), true
	}

	return nil, false
}

// floatValues returns all values of a numeric or decimal-string element.
func floatValues(elem *dicom.Element) ([]float64, bool) {
	if elem == nil || elem.Value == nil {
		return nil, false
	}

	switch v := elem.Value.GetValue().(type) {
	case []float64:
		return v, len(v) > 0
	case []int:
		out := make([]float64, len(v))
		for i, n := range v {
			out[i] = float64(n)
		}
		return out, len(out) > 0
	case []string:
		out := make([]float64, 0, len(v))
		for _, s := range v {
			f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil, false
			}
			out = append(out, f)
		}
		return out, len(out) > 0
	}

	return nil, false
}
