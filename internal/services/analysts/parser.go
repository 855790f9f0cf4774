package analysts

import (
	"encoding/json"
	"strings"

	"github.com/lunahan/aestimo/internal/models"
)

// extractJSON pulls the JSON payload out of a model response, handling
// fenced code blocks and surrounding prose.
func extractJSON(response string) string {
	response = strings.TrimSpace(response)

	if strings.Contains(response, "```") {
		lines := strings.Split(response, "\n")
		var jsonLines []string
		inBlock := false
		for _, line := range lines {
			trimmed := strings.TrimSpace(line)
			if strings.HasPrefix(trimmed, "```") {
				if inBlock {
					break
				}
				inBlock = true
				continue
			}
			if inBlock {
				jsonLines = append(jsonLines, line)
			}
		}
		if len(jsonLines) > 0 {
			return strings.TrimSpace(strings.Join(jsonLines, "\n"))
		}
	}

	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start >= 0 && end > start {
		return response[start : end+1]
	}
	return response
}

// parseAnalystReport decodes one perspective's report. Anything that fails
// to parse or validate degrades to the neutral sentinel carrying the head
// of the raw content.
func parseAnalystReport(content string, p models.Perspective) *models.AnalystReport {
	var report models.AnalystReport
	if err := json.Unmarshal([]byte(extractJSON(content)), &report); err != nil {
		return models.FallbackReport(content)
	}
	if report.AnalystName == "" {
		report.AnalystName = p.AnalystName()
	}
	if report.Scores == nil {
		report.Scores = map[string]int{}
	}
	report.ClampScores()
	if err := report.Validate(); err != nil {
		return models.FallbackReport(content)
	}
	return &report
}

// parseSupervisorReport decodes the final decision report.
func parseSupervisorReport(content string) *models.SupervisorReport {
	var report models.SupervisorReport
	if err := json.Unmarshal([]byte(extractJSON(content)), &report); err != nil {
		return models.FallbackSupervisorReport(content)
	}
	if report.AnalystName == "" {
		report.AnalystName = models.AnalystNameSupervisor
	}
	if err := report.Validate(); err != nil {
		return models.FallbackSupervisorReport(content)
	}
	return &report
}

// parseDebaterReport decodes one debate side's report, falling back to a
// neutral statement under the side's display name.
func parseDebaterReport(content, defaultName string) *models.DebaterReport {
	fallback := func() *models.DebaterReport {
		head := []rune(content)
		if len(head) > 200 {
			head = head[:200]
		}
		return &models.DebaterReport{
			AnalystName:    defaultName,
			Viewpoint:      models.ViewpointNeutral,
			CoreArguments:  []string{"解析失败"},
			Rebuttals:      []string{"解析失败"},
			FinalStatement: "解析失败: " + string(head) + "...",
		}
	}

	var report models.DebaterReport
	if err := json.Unmarshal([]byte(extractJSON(content)), &report); err != nil {
		return fallback()
	}
	if report.AnalystName == "" {
		report.AnalystName = defaultName
	}
	if err := report.Validate(); err != nil {
		return fallback()
	}
	return &report
}

// parseDebateReport decodes the judge's synthesis.
func parseDebateReport(content string) *models.DebateReport {
	fallback := func() *models.DebateReport {
		head := []rune(content)
		if len(head) > 200 {
			head = head[:200]
		}
		return &models.DebateReport{
			AnalystName:    models.AnalystNameDebateJudge,
			FinalViewpoint: models.ViewpointNeutral,
			FinalReason:    "解析失败: " + string(head) + "...",
		}
	}

	var report models.DebateReport
	if err := json.Unmarshal([]byte(extractJSON(content)), &report); err != nil {
		return fallback()
	}
	if report.AnalystName == "" {
		report.AnalystName = models.AnalystNameDebateJudge
	}
	if err := report.Validate(); err != nil {
		return fallback()
	}
	return &report
}
