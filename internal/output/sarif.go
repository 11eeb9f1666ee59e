package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dshills/codemate/internal/review"
)

const sarifSchema = "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/main/sarif-2.1/schema/sarif-schema-2.1.0.json"

// SARIFWriter outputs issues in SARIF v2.1.0 format.
type SARIFWriter struct {
	Version string
}

func (s *SARIFWriter) Write(w io.Writer, result review.Result) error {
	data, err := json.MarshalIndent(buildSARIF(result, s.Version), "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling SARIF: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing SARIF: %w", err)
	}
	_, err = fmt.Fprintln(w)
	return err
}

// SARIF schema types (v2.1.0)

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version,omitempty"`
	InformationURI string      `json:"informationUri"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID            string             `json:"id"`
	DefaultConfig sarifDefaultConfig `json:"defaultConfiguration"`
}

type sarifDefaultConfig struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations"`
	Fixes     []sarifFix      `json:"fixes,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int `json:"startLine"`
}

type sarifFix struct {
	Description sarifMessage `json:"description"`
}

func buildSARIF(result review.Result, version string) sarifLog {
	rules := []sarifRule{}
	results := []sarifResult{}
	seen := make(map[string]bool)

	for _, issue := range result.Issues {
		ruleID := issue.Rule
		if ruleID == "" {
			ruleID = "unknown"
		}
		if !seen[ruleID] {
			seen[ruleID] = true
			rules = append(rules, sarifRule{
				ID:            ruleID,
				DefaultConfig: sarifDefaultConfig{Level: severityToLevel(issue.Severity)},
			})
		}

		loc := sarifLocation{PhysicalLocation: sarifPhysicalLocation{
			ArtifactLocation: sarifArtifactLocation{URI: issue.Path},
		}}
		if issue.HasLine() {
			loc.PhysicalLocation.Region = &sarifRegion{StartLine: issue.Line}
		}

		r := sarifResult{
			RuleID:    ruleID,
			Level:     severityToLevel(issue.Severity),
			Message:   sarifMessage{Text: issue.Message},
			Locations: []sarifLocation{loc},
		}
		if issue.Suggestion != "" {
			r.Fixes = []sarifFix{{Description: sarifMessage{Text: issue.Suggestion}}}
		}
		results = append(results, r)
	}

	return sarifLog{
		Version: "2.1.0",
		Schema:  sarifSchema,
		Runs: []sarifRun{{
			Tool: sarifTool{Driver: sarifDriver{
				Name:           "codemate",
				Version:        version,
				InformationURI: "https://github.com/dshills/codemate",
				Rules:          rules,
			}},
			Results: results,
		}},
	}
}

// severityToLevel maps issue severity to a SARIF level.
func severityToLevel(s review.Severity) string {
	switch s {
	case review.SeverityError:
		return "error"
	case review.SeverityWarning:
		return "warning"
	default:
		return "note"
	}
}
