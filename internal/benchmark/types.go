package benchmark

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingKey is returned when a result payload has no value for the requested key.
var ErrMissingKey = errors.New("missing result key")

// Param is a single name:value binding passed to the benchmark executable.
type Param struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func (p Param) String() string {
	return p.Name + ":" + p.Value
}

// Measurement identifies one benchmark invocation: a dotted benchmark id
// plus an ordered parameter list. It is the unit of result caching.
type Measurement struct {
	Benchmark string  `json:"benchmark"`
	Params    []Param `json:"params,omitempty"`
}

// Key returns the identity key of the measurement, e.g. "core.call.native(lang:cpp, n:3)".
// Parameter order is significant.
func (m Measurement) Key() string {
	parts := make([]string, len(m.Params))
	for i, p := range m.Params {
		parts[i] = p.String()
	}
	return fmt.Sprintf("%s(%s)", m.Benchmark, strings.Join(parts, ", "))
}

// ParamArgs returns the parameters formatted as executable arguments.
func (m Measurement) ParamArgs() []string {
	args := make([]string, len(m.Params))
	for i, p := range m.Params {
		args[i] = p.String()
	}
	return args
}

// Result is the payload returned by an invokeBenchmark call.
type Result struct {
	Times  map[string]float64 `json:"times"`
	Memory map[string]float64 `json:"memory"`
}

// Time returns the named timing value.
func (r Result) Time(key string) (float64, error) {
	v, ok := r.Times[key]
	if !ok {
		return 0, fmt.Errorf("times.%s: %w", key, ErrMissingKey)
	}
	return v, nil
}

// Lookup resolves key in the merged memory and times namespace.
// Times are merged last, so they win on a name collision.
func (r Result) Lookup(key string) (float64, error) {
	if v, ok := r.Times[key]; ok {
		return v, nil
	}
	if v, ok := r.Memory[key]; ok {
		return v, nil
	}
	return 0, fmt.Errorf("%s: %w", key, ErrMissingKey)
}

// MinResult returns the key-wise minimum of a and b. Keys present in only
// one of the two are kept as is.
func MinResult(a, b Result) Result {
	return Result{
		Times:  minMap(a.Times, b.Times),
		Memory: minMap(a.Memory, b.Memory),
	}
}

func minMap(a, b map[string]float64) map[string]float64 {
	if a == nil && b == nil {
		return nil
	}
	out := make(map[string]float64, len(a))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		if cur, ok := out[k]; !ok || v < cur {
			out[k] = v
		}
	}
	return out
}

type calibration struct {
	IterationsCount *int `json:"iterations_count"`
}
