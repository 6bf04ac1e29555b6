package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rshade/cvindex/internal/nutrient"
)

// ScoreRequest is the body of a scoring call. AnchorID is the wire form
// of the anchor (see nutrient.Anchor.WireID).
type ScoreRequest struct {
	AggregatedInputData nutrient.Vector `json:"aggregated_input_data"`
	AnchorID            string          `json:"anchor_id"`
}

// NewScoreRequest builds a request for vector balanced on anchor.
func NewScoreRequest(vector nutrient.Vector, anchor nutrient.Anchor) ScoreRequest {
	vector.NetCarbs = nil
	return ScoreRequest{AggregatedInputData: vector, AnchorID: anchor.WireID()}
}

// ScoreResponse is the scorer's reply.
type ScoreResponse struct {
	PredictedSpike float64         `json:"predicted_spike"`
	InputData      nutrient.Vector `json:"input_data"`
	BalancedMacros nutrient.Vector `json:"balanced_macros"`
	BaseRatio      float64         `json:"base_ratio"`
	TierLabel      string          `json:"tier_label"`
	TierColor      string          `json:"tier_color"`
}

// FlexFloat decodes a JSON number, a numeric string ("10", "2.5 g") or
// null. Set is false for null, absent and empty-string values.
type FlexFloat struct {
	Value float64
	Set   bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = FlexFloat{}
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "g"))
		if s == "" {
			*f = FlexFloat{}
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("not a number: %q", s)
		}
		*f = FlexFloat{Value: v, Set: true}
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = FlexFloat{Value: v, Set: true}
	return nil
}

// MarshalJSON writes the number, or null when unset.
func (f FlexFloat) MarshalJSON() ([]byte, error) {
	if !f.Set {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// Or returns the value, or def when unset.
func (f FlexFloat) Or(def float64) float64 {
	if !f.Set {
		return def
	}
	return f.Value
}

// OCRResponse holds per-serving label values and the container's serving count.
type OCRResponse struct {
	Protein           FlexFloat `json:"protein"`
	TotalFat          FlexFloat `json:"total_fat"`
	TotalCarbohydrate FlexFloat `json:"total_carbohydrate"`
	DietaryFiber      FlexFloat `json:"dietary_fiber"`
	TotalSugars       FlexFloat `json:"total_sugars"`
	Servings          FlexFloat `json:"servings"`
}

// PerServing maps the label fields onto a vector, missing fields as 0.
func (r OCRResponse) PerServing() nutrient.Vector {
	return nutrient.Vector{
		Protein:    r.Protein.Or(0),
		Fat:        r.TotalFat.Or(0),
		TotalCarbs: r.TotalCarbohydrate.Or(0),
		Fiber:      r.DietaryFiber.Or(0),
		Sugar:      r.TotalSugars.Or(0),
	}
}

// ServingCount returns the serving count, defaulting to 1 when it is
// missing or not positive.
func (r OCRResponse) ServingCount() float64 {
	if !r.Servings.Set || r.Servings.Value <= 0 {
		return 1
	}
	return r.Servings.Value
}

// LookupRequest is the body of an AI lookup call.
type LookupRequest struct {
	FoodName string `json:"food_name"`
}

// LookupResponse holds the estimated macros for one serving. Any field may
// be null.
type LookupResponse struct {
	Protein    FlexFloat `json:"protein"`
	Fat        FlexFloat `json:"fat"`
	TotalCarbs FlexFloat `json:"total_carbs"`
	Sugar      FlexFloat `json:"sugar"`
	Fiber      FlexFloat `json:"fiber"`
}

// Vector maps the response onto a vector, null fields as 0.
func (r LookupResponse) Vector() nutrient.Vector {
	return nutrient.Vector{
		Protein:    r.Protein.Or(0),
		Fat:        r.Fat.Or(0),
		TotalCarbs: r.TotalCarbs.Or(0),
		Fiber:      r.Fiber.Or(0),
		Sugar:      r.Sugar.Or(0),
	}
}

// Image is an image region to send for OCR.
type Image struct {
	Filename    string
	ContentType string
	Data        io.Reader
}

// HealthResponse is the body of a health probe.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// errorBody covers both validation ({"detail":[...]}) and plain
// ({"detail":"..."}) error responses.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}
