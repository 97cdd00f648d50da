package guardian

import "encoding/json"

// Verdict is the server's classification outcome for a scanned text.
type Verdict string

const (
	// VerdictAllow indicates the text passed all detection layers.
	VerdictAllow Verdict = "ALLOW"
	// VerdictBlock indicates at least one detection layer flagged the text.
	VerdictBlock Verdict = "BLOCK"
)

// Severity grades an individual threat finding.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Threat is a single detection finding inside a scan.
type Threat struct {
	PatternID   string   `json:"pattern_id"`
	PatternName string   `json:"pattern_name"`
	Category    string   `json:"category"`
	Severity    Severity `json:"severity"`
	// MatchedText is the substring of the input that caused the match.
	MatchedText string `json:"matched_text"`
}

// ScanResult is the parsed outcome of a single scan. It is only ever
// produced from a successful server response and is not mutated afterwards.
type ScanResult struct {
	Verdict Verdict `json:"verdict"`
	// Blocked is always exactly Verdict == VerdictBlock.
	Blocked      bool     `json:"blocked"`
	Score        float64  `json:"score"`
	Confidence   float64  `json:"confidence"`
	ScanTimeMS   float64  `json:"scan_time_ms"`
	Engine       string   `json:"engine"`
	PatternCount int      `json:"pattern_count"`
	Threats      []Threat `json:"threats"`
	Categories   []string `json:"categories"`

	// Per-layer sub-verdicts, populated by the v2 engine only. Nil for v1.
	LieutenantVerdict *string  `json:"lieutenant_verdict,omitempty"`
	LieutenantScore   *float64 `json:"lieutenant_score,omitempty"`
	SpectreVerdict    *string  `json:"spectre_verdict,omitempty"`
	SpectreConfidence *float64 `json:"spectre_confidence,omitempty"`
	ArcVerdict        *string  `json:"arc_verdict,omitempty"`
	ArcScore          *float64 `json:"arc_score,omitempty"`

	// Raw is the unparsed response payload, kept for forward compatibility
	// with fields this SDK version does not model.
	Raw json.RawMessage `json:"-"`
}

// BatchItem holds the outcome for one element of a batch. Exactly one of
// Result and Err is set.
type BatchItem struct {
	Result *ScanResult
	Err    error
}

// BatchResult aggregates a batch scan. Items is index-aligned with the
// input texts regardless of dispatch order.
type BatchResult struct {
	Total   int
	Blocked int
	Allowed int
	Failed  int
	Items   []BatchItem
}

// UsageInfo reports quota consumption for the caller's API key.
type UsageInfo struct {
	ScansUsed int    `json:"scans_used"`
	ScanLimit int    `json:"scan_limit"`
	Plan      string `json:"plan"`
}

// HealthInfo reports the remote service's health status.
type HealthInfo struct {
	Status string `json:"status"`
	Engine string `json:"engine"`
}

// ConversationMessage is one turn of a structured conversation history.
type ConversationMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
