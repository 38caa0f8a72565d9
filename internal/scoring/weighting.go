package scoring

import (
	"errors"
	"fmt"
	"math"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
)

// Scheme names a fixed blend of course components.
type Scheme string

const (
	SchemeTPExam   Scheme = "TP_EXAM"
	SchemeTPTDExam Scheme = "TP_TD_EXAM"
)

var ErrUnknownScheme = errors.New("unknown weighting scheme")

var schemeWeights = map[Scheme]map[models.EvaluationType]float64{
	SchemeTPExam: {
		models.EvaluationTP:   0.30,
		models.EvaluationExam: 0.70,
	},
	SchemeTPTDExam: {
		models.EvaluationTP:   0.20,
		models.EvaluationTD:   0.20,
		models.EvaluationExam: 0.60,
	},
}

// Weights returns a copy of the weights of a scheme.
func Weights(scheme Scheme) (map[models.EvaluationType]float64, error) {
	w, ok := schemeWeights[scheme]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScheme, scheme)
	}
	out := make(map[models.EvaluationType]float64, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out, nil
}

// CourseGrade blends component grades (each out of 20) with the scheme's
// weights. Every component the scheme names must be present.
func CourseGrade(scheme Scheme, components map[models.EvaluationType]float64) (float64, error) {
	weights, ok := schemeWeights[scheme]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownScheme, scheme)
	}

	var total float64
	for kind, weight := range weights {
		grade, ok := components[kind]
		if !ok {
			return 0, fmt.Errorf("missing %s component for scheme %s", kind, scheme)
		}
		total += ClampScore(grade, 20) * weight
	}
	return math.Round(total*100) / 100, nil
}
