package models

import (
	"fmt"
	"strings"
)

// StartupInput is the submission collected from the form. All three fields are
// required and must be non-empty after trimming.
type StartupInput struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// Validate reports whether the input may start a run.
func (in StartupInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name", ErrEmptyField)
	}
	if strings.TrimSpace(in.Category) == "" {
		return fmt.Errorf("%w: category", ErrEmptyField)
	}
	if strings.TrimSpace(in.Description) == "" {
		return fmt.Errorf("%w: description", ErrEmptyField)
	}
	return nil
}

// AnalysisResult is the normalized model output. Instances produced by the
// normalizer always satisfy Validate; anything read back from storage is
// re-checked before it reaches rendering.
type AnalysisResult struct {
	OverallScore    float64           `json:"overallScore"`
	MarketPotential float64           `json:"marketPotential"`
	Innovation      float64           `json:"innovation"`
	Feasibility     float64           `json:"feasibility"`
	Strengths       []string          `json:"strengths"`
	Concerns        []string          `json:"concerns"`
	Recommendations []string          `json:"recommendations"`
	RadarChart      []RadarPoint      `json:"radarChart"`
	CompetitorScore []CompetitorScore `json:"competitorScores"`
	MarketInsights  MarketInsights    `json:"marketInsights"`
}

type RadarPoint struct {
	Subject  string  `json:"subject"`
	Score    float64 `json:"score"`
	FullMark float64 `json:"fullMark"`
}

// CompetitorScore keeps the full competitor name; display truncation happens on
// the read side, never at storage time.
type CompetitorScore struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

type MarketInsights struct {
	MarketSize      MarketSizeInsight      `json:"marketSize"`
	GrowthRate      GrowthRateInsight      `json:"growthRate"`
	FundingActivity FundingActivityInsight `json:"fundingActivity"`
}

type MarketSizeInsight struct {
	Value  string `json:"value"`
	Source string `json:"source"`
	Detail string `json:"detail"`
}

type GrowthRateInsight struct {
	Value  string `json:"value"`
	Trend  string `json:"trend"`
	Source string `json:"source"`
}

type FundingActivityInsight struct {
	Value        string `json:"value"`
	Last5Years   string `json:"last5Years"`
	TopInvestors string `json:"topInvestors"`
}

const (
	// ScoreMin and ScoreMax bound every numeric score in an AnalysisResult.
	ScoreMin = 0.0
	ScoreMax = 10.0

	// RadarAxes is the number of radarChart entries the schema requires.
	RadarAxes = 6

	// CompetitorMin and CompetitorMax bound the competitorScores count.
	CompetitorMin = 3
	CompetitorMax = 5
)

// RadarSubjects is the fixed vocabulary the prompt instructs the model to use.
// Alternate subjects are tolerated; rendering does not depend on these labels.
var RadarSubjects = [RadarAxes]string{
	"Market Size",
	"Competition",
	"Innovation",
	"Scalability",
	"Technical Feasibility",
	"Market Timing",
}

// Validate checks every structural invariant of the schema. Counts of
// strengths/concerns/recommendations are advisory and not enforced here.
func (r AnalysisResult) Validate() error {
	scores := map[string]float64{
		"overallScore":    r.OverallScore,
		"marketPotential": r.MarketPotential,
		"innovation":      r.Innovation,
		"feasibility":     r.Feasibility,
	}
	for field, v := range scores {
		if v < ScoreMin || v > ScoreMax {
			return fmt.Errorf("%s out of range: %g", field, v)
		}
	}
	if len(r.RadarChart) != RadarAxes {
		return fmt.Errorf("radarChart must have %d entries, got %d", RadarAxes, len(r.RadarChart))
	}
	for i, p := range r.RadarChart {
		if p.Score < ScoreMin || p.Score > ScoreMax {
			return fmt.Errorf("radarChart[%d].score out of range: %g", i, p.Score)
		}
	}
	if n := len(r.CompetitorScore); n < CompetitorMin || n > CompetitorMax {
		return fmt.Errorf("competitorScores must have %d-%d entries, got %d", CompetitorMin, CompetitorMax, n)
	}
	for i, c := range r.CompetitorScore {
		if c.Score < ScoreMin || c.Score > ScoreMax {
			return fmt.Errorf("competitorScores[%d].score out of range: %g", i, c.Score)
		}
	}
	return nil
}

// Clamp forces every numeric score into [ScoreMin, ScoreMax] and pins
// radarChart fullMark to ScoreMax.
func (r *AnalysisResult) Clamp() {
	r.OverallScore = clampScore(r.OverallScore)
	r.MarketPotential = clampScore(r.MarketPotential)
	r.Innovation = clampScore(r.Innovation)
	r.Feasibility = clampScore(r.Feasibility)
	for i := range r.RadarChart {
		r.RadarChart[i].Score = clampScore(r.RadarChart[i].Score)
		r.RadarChart[i].FullMark = ScoreMax
	}
	for i := range r.CompetitorScore {
		r.CompetitorScore[i].Score = clampScore(r.CompetitorScore[i].Score)
	}
}

func clampScore(v float64) float64 {
	if v < ScoreMin {
		return ScoreMin
	}
	if v > ScoreMax {
		return ScoreMax
	}
	return v
}
