package template

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"jbench/internal/benchmark"
)

// fallbackPrecision is used where log10 is undefined: zero, negative,
// NaN and infinite values.
const fallbackPrecision = 2

// Precision returns the number of decimals used to print v, so that values
// show roughly two significant digits: max(0, 1 - floor(log10(v))).
func Precision(v float64) int {
	if !(v > 0) || math.IsInf(v, 0) {
		return fallbackPrecision
	}

	e := math.Floor(math.Log10(v))
	// Log10 may land just below an exact power of ten.
	if math.Pow(10, e+1) <= v {
		e++
	} else if math.Pow(10, e) > v {
		e--
	}
	return max(0, 1-int(e))
}

// FormatValue prints v with Precision(v) decimals.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', Precision(v), 64)
}

// Render writes the template to w, replacing every macro with the formatted
// value of its local key. results is keyed by Measurement.Key().
func (t *Template) Render(w io.Writer, results map[string]benchmark.Result) error {
	for _, s := range t.Segments {
		var out string
		switch s := s.(type) {
		case Text:
			out = s.Value
		case Macro:
			key := s.Measurement.Key()
			res, ok := results[key]
			if !ok {
				return fmt.Errorf("no result for measurement %s", key)
			}
			v, err := res.Lookup(s.LocalKey)
			if err != nil {
				return fmt.Errorf("%s in %s: %w", s.Raw, key, err)
			}
			out = FormatValue(v)
		}
		if _, err := io.WriteString(w, out); err != nil {
			return err
		}
	}
	return nil
}
