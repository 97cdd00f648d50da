package guardian

import (
	"encoding/json"
	"fmt"
)

// scanResponse mirrors the wire shape of a successful scan response.
type scanResponse struct {
	Verdict      string   `json:"verdict"`
	Score        *float64 `json:"score"`
	Confidence   *float64 `json:"confidence"`
	ScanTimeMS   float64  `json:"scan_time_ms"`
	Engine       string   `json:"engine"`
	PatternCount int      `json:"pattern_count"`
	Threats      []Threat `json:"threats"`
	Categories   []string `json:"categories"`

	LieutenantVerdict *string  `json:"lieutenant_verdict"`
	LieutenantScore   *float64 `json:"lieutenant_score"`
	SpectreVerdict    *string  `json:"spectre_verdict"`
	SpectreConfidence *float64 `json:"spectre_confidence"`
	ArcVerdict        *string  `json:"arc_verdict"`
	ArcScore          *float64 `json:"arc_score"`
}

// parseScanResult maps a raw scan response onto the result model. The
// blocked flag is derived locally from the verdict so the invariant
// blocked == (verdict == BLOCK) holds regardless of what the server sends.
func parseScanResult(body []byte) (*ScanResult, error) {
	var resp scanResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: malformed scan response: %v", ErrService, err)
	}

	verdict := Verdict(resp.Verdict)
	switch verdict {
	case VerdictAllow, VerdictBlock:
	case "":
		verdict = VerdictAllow
	default:
		return nil, fmt.Errorf("%w: unknown verdict %q", ErrService, resp.Verdict)
	}

	// The v1 engine reports only one of score/confidence; fall back to the
	// other so both fields are always populated.
	score, confidence := 0.0, 0.0
	switch {
	case resp.Score != nil && resp.Confidence != nil:
		score, confidence = *resp.Score, *resp.Confidence
	case resp.Score != nil:
		score, confidence = *resp.Score, *resp.Score
	case resp.Confidence != nil:
		score, confidence = *resp.Confidence, *resp.Confidence
	}

	engine := resp.Engine
	if engine == "" {
		engine = "unknown"
	}

	return &ScanResult{
		Verdict:      verdict,
		Blocked:      verdict == VerdictBlock,
		Score:        score,
		Confidence:   confidence,
		ScanTimeMS:   resp.ScanTimeMS,
		Engine:       engine,
		PatternCount: resp.PatternCount,
		Threats:      resp.Threats,
		Categories:   resp.Categories,

		LieutenantVerdict: resp.LieutenantVerdict,
		LieutenantScore:   resp.LieutenantScore,
		SpectreVerdict:    resp.SpectreVerdict,
		SpectreConfidence: resp.SpectreConfidence,
		ArcVerdict:        resp.ArcVerdict,
		ArcScore:          resp.ArcScore,

		Raw: json.RawMessage(body),
	}, nil
}

// unmarshalResponse decodes a 2xx body into out with a service-error wrap
// on malformed payloads.
func unmarshalResponse(body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: malformed response: %v", ErrService, err)
	}
	return nil
}
