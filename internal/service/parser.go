package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/Harshitk-cp/signalrealm/internal/domain"
)

var ErrUnparseableResponse = errors.New("model response is not a JSON object")

var (
	leadingFence  = regexp.MustCompile("^\\s*```(?:json|JSON)?[ \\t]*\\n?")
	trailingFence = regexp.MustCompile("\\n?[ \\t]*```\\s*$")
)

// StripCodeFences removes a Markdown code fence wrapped around model output.
func StripCodeFences(raw string) string {
	s := leadingFence.ReplaceAllString(raw, "")
	s = trailingFence.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// ParseAnalysisResponse maps a model's JSON answer onto the layer's analysis
// fields. Unknown keys are dropped. For the surface layer temperature and
// density are always present, nil when missing or not numeric.
//
// When the content cannot be decoded the returned map is empty and the error
// wraps ErrUnparseableResponse; callers treat that as zero fields produced.
func ParseAnalysisResponse(raw string, layer domain.Layer) (domain.FieldMap, error) {
	var decoded map[string]any
	if err := json.Unmarshal([]byte(StripCodeFences(raw)), &decoded); err != nil {
		return domain.FieldMap{}, fmt.Errorf("%w: %v", ErrUnparseableResponse, err)
	}
	if decoded == nil {
		return domain.FieldMap{}, ErrUnparseableResponse
	}

	fields := domain.FieldMap{}
	for key, v := range decoded {
		name, ok := domain.FieldForKey(layer, key)
		if !ok {
			continue
		}
		switch name {
		case domain.FieldTemperature, domain.FieldDensity:
			// set below
		case domain.FieldTitle, domain.FieldSummary:
			if s, ok := v.(string); ok {
				fields[name] = s
			}
		default:
			fields[name] = v
		}
	}

	if layer == domain.LayerSurface {
		fields[domain.FieldTemperature] = toFloat(decoded["temperature"])
		fields[domain.FieldDensity] = toFloat(decoded["density"])
	}
	return fields, nil
}

// toFloat returns nil for anything that is not a finite number. ParseFloat
// accepts "NaN" and "Inf", which JSON cannot carry.
func toFloat(v any) *float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// hasValues reports whether any field carries a non-nil value.
func hasValues(fields domain.FieldMap) bool {
	for _, v := range fields {
		if v == nil {
			continue
		}
		if f, ok := v.(*float64); ok && f == nil {
			continue
		}
		return true
	}
	return false
}

// filterFields keeps only the requested field names.
func filterFields(fields domain.FieldMap, requested []string) domain.FieldMap {
	out := make(domain.FieldMap, len(requested))
	for _, name := range requested {
		if v, ok := fields[name]; ok {
			out[name] = v
		}
	}
	return out
}
