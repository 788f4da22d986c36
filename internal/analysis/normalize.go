package analysis

import (
	"encoding/json"
	"fmt"

	"github.com/sagarsarangi/startup-check/models"
)

// ParseError means the completion text contained no syntactically valid JSON
// payload. Raw keeps the offending text for logs.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("completion is not valid JSON: %v", e.Err) }

func (e *ParseError) Unwrap() error { return e.Err }

// SchemaError means the payload parsed but violates the data model: a missing
// required field, a wrong radarChart length, or a non-numeric score.
type SchemaError struct {
	Field string
}

func (e *SchemaError) Error() string { return fmt.Sprintf("schema violation at %s", e.Field) }

// rawResult mirrors AnalysisResult with pointers on required fields so that
// absence can be told apart from a zero value. Missing fields are hard
// failures; the normalizer never fabricates data to fill a gap.
type rawResult struct {
	OverallScore    *float64        `json:"overallScore"`
	MarketPotential *float64        `json:"marketPotential"`
	Innovation      *float64        `json:"innovation"`
	Feasibility     *float64        `json:"feasibility"`
	Strengths       []string        `json:"strengths"`
	Concerns        []string        `json:"concerns"`
	Recommendations []string        `json:"recommendations"`
	RadarChart      []rawRadarPoint `json:"radarChart"`
	CompetitorScore []rawCompetitor `json:"competitorScores"`
	MarketInsights  *rawInsights    `json:"marketInsights"`
}

type rawRadarPoint struct {
	Subject string   `json:"subject"`
	Score   *float64 `json:"score"`
}

type rawCompetitor struct {
	Name  string   `json:"name"`
	Score *float64 `json:"score"`
}

type rawInsights struct {
	MarketSize      *rawMarketSize      `json:"marketSize"`
	GrowthRate      *rawGrowthRate      `json:"growthRate"`
	FundingActivity *rawFundingActivity `json:"fundingActivity"`
}

type rawMarketSize struct {
	Value  *string `json:"value"`
	Source string  `json:"source"`
	Detail string  `json:"detail"`
}

type rawGrowthRate struct {
	Value  *string `json:"value"`
	Trend  string  `json:"trend"`
	Source string  `json:"source"`
}

type rawFundingActivity struct {
	Value        *string `json:"value"`
	Last5Years   string  `json:"last5Years"`
	TopInvestors string  `json:"topInvestors"`
}

// Normalize parses raw completion text into an AnalysisResult. The model's
// output is treated as adversarial free text: the JSON payload is located
// defensively, required structure is enforced hard, and out-of-range scores
// are clamped rather than rejected. On success the returned value always
// passes models.AnalysisResult.Validate.
func Normalize(raw string) (models.AnalysisResult, error) {
	payload, err := extractJSON(raw)
	if err != nil {
		return models.AnalysisResult{}, &ParseError{Raw: raw, Err: err}
	}

	var r rawResult
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		if typeErr, ok := err.(*json.UnmarshalTypeError); ok {
			return models.AnalysisResult{}, &SchemaError{Field: typeErr.Field}
		}
		return models.AnalysisResult{}, &ParseError{Raw: raw, Err: err}
	}

	if err := checkRequired(&r); err != nil {
		return models.AnalysisResult{}, err
	}

	result := models.AnalysisResult{
		OverallScore:    *r.OverallScore,
		MarketPotential: *r.MarketPotential,
		Innovation:      *r.Innovation,
		Feasibility:     *r.Feasibility,
		Strengths:       r.Strengths,
		Concerns:        r.Concerns,
		Recommendations: r.Recommendations,
		MarketInsights: models.MarketInsights{
			MarketSize: models.MarketSizeInsight{
				Value:  *r.MarketInsights.MarketSize.Value,
				Source: r.MarketInsights.MarketSize.Source,
				Detail: r.MarketInsights.MarketSize.Detail,
			},
			GrowthRate: models.GrowthRateInsight{
				Value:  *r.MarketInsights.GrowthRate.Value,
				Trend:  r.MarketInsights.GrowthRate.Trend,
				Source: r.MarketInsights.GrowthRate.Source,
			},
			FundingActivity: models.FundingActivityInsight{
				Value:        *r.MarketInsights.FundingActivity.Value,
				Last5Years:   r.MarketInsights.FundingActivity.Last5Years,
				TopInvestors: r.MarketInsights.FundingActivity.TopInvestors,
			},
		},
	}
	for _, p := range r.RadarChart {
		result.RadarChart = append(result.RadarChart, models.RadarPoint{
			Subject:  p.Subject,
			Score:    *p.Score,
			FullMark: models.ScoreMax,
		})
	}
	for _, c := range r.CompetitorScore {
		result.CompetitorScore = append(result.CompetitorScore, models.CompetitorScore{
			Name:  c.Name,
			Score: *c.Score,
		})
	}

	result.Clamp()
	return result, nil
}

// checkRequired enforces presence and cardinality. Strengths, concerns and
// recommendations must exist, but their 3-5 item count is advisory only.
func checkRequired(r *rawResult) error {
	switch {
	case r.OverallScore == nil:
		return &SchemaError{Field: "overallScore"}
	case r.MarketPotential == nil:
		return &SchemaError{Field: "marketPotential"}
	case r.Innovation == nil:
		return &SchemaError{Field: "innovation"}
	case r.Feasibility == nil:
		return &SchemaError{Field: "feasibility"}
	case r.Strengths == nil:
		return &SchemaError{Field: "strengths"}
	case r.Concerns == nil:
		return &SchemaError{Field: "concerns"}
	case r.Recommendations == nil:
		return &SchemaError{Field: "recommendations"}
	}

	if len(r.RadarChart) != models.RadarAxes {
		return &SchemaError{Field: "radarChart"}
	}
	for i, p := range r.RadarChart {
		if p.Score == nil {
			return &SchemaError{Field: fmt.Sprintf("radarChart[%d].score", i)}
		}
	}

	if n := len(r.CompetitorScore); n < models.CompetitorMin || n > models.CompetitorMax {
		return &SchemaError{Field: "competitorScores"}
	}
	for i, c := range r.CompetitorScore {
		if c.Score == nil {
			return &SchemaError{Field: fmt.Sprintf("competitorScores[%d].score", i)}
		}
	}

	if r.MarketInsights == nil {
		return &SchemaError{Field: "marketInsights"}
	}
	switch {
	case r.MarketInsights.MarketSize == nil:
		return &SchemaError{Field: "marketInsights.marketSize"}
	case r.MarketInsights.MarketSize.Value == nil:
		return &SchemaError{Field: "marketInsights.marketSize.value"}
	case r.MarketInsights.GrowthRate == nil:
		return &SchemaError{Field: "marketInsights.growthRate"}
	case r.MarketInsights.GrowthRate.Value == nil:
		return &SchemaError{Field: "marketInsights.growthRate.value"}
	case r.MarketInsights.FundingActivity == nil:
		return &SchemaError{Field: "marketInsights.fundingActivity"}
	case r.MarketInsights.FundingActivity.Value == nil:
		return &SchemaError{Field: "marketInsights.fundingActivity.value"}
	}

	return nil
}
