package analysis

import (
	"fmt"

	"github.com/sagarsarangi/startup-check/models"
)

// promptTemplate states the output schema verbatim. The normalizer has no
// structural contract with the model other than this text, so the schema block
// must stay in sync with models.AnalysisResult field for field.
const promptTemplate = `You are an expert startup analyst with access to market data and research capabilities.

Analyze the following startup idea and return ONLY valid JSON output. Do not include any markdown or commentary. Follow this schema exactly:

{
  "overallScore": number (0 to 10, based on comprehensive analysis),
  "marketPotential": number (0 to 10, based on researched market data),
  "innovation": number (0 to 10, compared to existing solutions),
  "feasibility": number (0 to 10, considering technical and business factors),
  "strengths": string[] (3-5 key advantages based on market research),
  "concerns": string[] (3-5 main risks and challenges identified),
  "recommendations": string[] (3-5 actionable suggestions based on industry analysis),
  "radarChart": [
    { "subject": "Market Size", "score": number, "fullMark": 10 },
    { "subject": "Competition", "score": number, "fullMark": 10 },
    { "subject": "Innovation", "score": number, "fullMark": 10 },
    { "subject": "Scalability", "score": number, "fullMark": 10 },
    { "subject": "Technical Feasibility", "score": number, "fullMark": 10 },
    { "subject": "Market Timing", "score": number, "fullMark": 10 }
  ],
  "competitorScores": [
    { "name": string (max 25 characters, real company names), "score": number (based on market position) }
  ] (include minimum 3 and maximum 5 competitors with highest scores),
  "marketInsights": {
    "marketSize": {
      "value": string (current market size with currency/units),
      "source": string (specific research source or "Industry Analysis" if aggregated),
      "detail": string (TAM/SAM context and growth projections)
    },
    "growthRate": {
      "value": string (CAGR percentage with timeframe),
      "trend": string (market direction and key drivers),
      "source": string (research source or report name)
    },
    "fundingActivity": {
      "value": string (recent funding amounts in the sector),
      "last5Years": string (funding trend and total invested),
      "topInvestors": string (actual VC firms active in this space - max 3 names)
    }
  }
}

Never fabricate statistics, funding amounts, or company information. If specific data is unavailable, use industry averages and clearly indicate the methodology used.

Startup to Analyze:
Name: %s
Category: %s
Description: %s
`

// BuildPrompt renders the analysis prompt for one submission. Pure string
// construction: same input, same output, no I/O.
func BuildPrompt(input models.StartupInput) string {
	return fmt.Sprintf(promptTemplate, input.Name, input.Category, input.Description)
}
