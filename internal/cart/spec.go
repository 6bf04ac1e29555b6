package cart

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rshade/cvindex/internal/nutrient"
)

// ErrBadSpec is returned for an item spec that cannot be parsed.
var ErrBadSpec = errors.New("item spec must look like name:protein,fat,carbs,fiber,sugar[xN]")

// Spec is a parsed "name:protein,fat,carbs,fiber,sugar[xN]" item.
type Spec struct {
	Name   string          `json:"name" yaml:"name"`
	Vector nutrient.Vector `json:"vector" yaml:"vector"`
	// Count is the trailing xN multiplier, 1 when absent.
	Count float64 `json:"count" yaml:"count"`
}

// ParseSpec parses one item spec. Missing trailing macros are 0, so
// "apple:0.5,0.3,25" is valid.
func ParseSpec(s string) (Spec, error) {
	idx := strings.LastIndex(s, ":")
	if idx <= 0 {
		return Spec{}, fmt.Errorf("%w: %q", ErrBadSpec, s)
	}
	name := strings.TrimSpace(s[:idx])
	body := strings.TrimSpace(s[idx+1:])
	if name == "" || body == "" {
		return Spec{}, fmt.Errorf("%w: %q", ErrBadSpec, s)
	}

	spec := Spec{Name: name, Count: 1}
	if x := strings.LastIndexAny(body, "xX*"); x >= 0 {
		n, err := strconv.ParseFloat(strings.TrimSpace(body[x+1:]), 64)
		if err != nil || n < 0 || math.IsNaN(n) || math.IsInf(n, 0) {
			return Spec{}, fmt.Errorf("%w: bad multiplier in %q", ErrBadSpec, s)
		}
		spec.Count = n
		body = body[:x]
	}

	parts := strings.Split(body, ",")
	if len(parts) > 5 {
		return Spec{}, fmt.Errorf("%w: too many values in %q", ErrBadSpec, s)
	}
	fields := []*float64{&spec.Vector.Protein, &spec.Vector.Fat, &spec.Vector.TotalCarbs, &spec.Vector.Fiber, &spec.Vector.Sugar}
	for i, p := range parts {
		p = strings.TrimSuffix(strings.TrimSpace(p), "g")
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return Spec{}, fmt.Errorf("%w: bad value %q in %q", ErrBadSpec, parts[i], s)
		}
		*fields[i] = v
	}
	if err := spec.Vector.Validate(); err != nil {
		return Spec{}, err
	}
	return spec, nil
}

// Quantity returns Count as a cart quantity. Fractional counts are
// rejected.
func (s Spec) Quantity() (int, error) {
	if s.Count != math.Trunc(s.Count) {
		return 0, fmt.Errorf("%w: quantity %v is not a whole number", ErrBadSpec, s.Count)
	}
	return int(s.Count), nil
}
