// Package risk implements the heuristic deterioration-risk scoring rules.
// The rule table is a fixed, inspectable demo heuristic, not a learned model
// and not a medical device.
package risk

import "strings"

const (
	baseScore = 0.25
	minProb   = 0.01
	maxProb   = 0.98

	// Bounds for the cumulative free-text adjustment.
	minDelta = -0.25
	maxDelta = 0.25

	incWeight = 0.04
	decWeight = -0.03
)

// Keywords matched case-insensitively against clinical notes.
var (
	increasingKeywords = []string{
		"低血压", "血压下降", "心率过快", "尿量减少", "少尿", "乳酸", "皮肤冰冷", "四肢冰冷", "皮肤湿冷",
		"st段抬高", "心肌梗死", "mi", "左室功能不全", "ef降低", "灌注不足", "意识模糊",
	}
	decreasingKeywords = []string{
		"好转", "稳定", "无胸痛", "症状缓解", "灌注改善", "意识清醒", "血压稳定",
	}
)

// Score maps a patient record to a base risk probability in [0.01, 0.98].
// It is total: absent or malformed fields contribute nothing and never fail.
func Score(patient map[string]any) float64 {
	score := baseScore

	vitals := section(patient, "vitals")
	labs := section(patient, "labs")
	history := section(patient, "history")

	if v, ok := num(vitals, "MAP"); ok && v < 65 {
		score += 0.18
	}
	if v, ok := num(vitals, "CI"); ok && v < 2.2 {
		score += 0.17
	}
	if v, ok := num(vitals, "PAWP"); ok && v > 18 {
		score += 0.10
	}
	if v, ok := num(vitals, "HR"); ok && v > 110 {
		score += 0.05
	}
	if v, ok := num(labs, "lactate"); ok && v >= 2 {
		score += 0.12
	}
	if v, ok := num(labs, "EF"); ok && v < 35 {
		score += 0.12
	}
	// 6h urine output preferred, 24h as fallback (ml/kg/h rough proxy).
	urine, ok := num(labs, "urine_output_6h")
	if !ok || urine == 0 {
		urine, ok = num(labs, "urine_output_24h")
	}
	if ok && urine < 0.5 {
		score += 0.08
	}
	if truthy(history, "AMI_recent") || truthy(history, "STEMI") || truthy(history, "MI") {
		score += 0.08
	}

	return clamp(score, minProb, maxProb)
}

// Adjust maps a free-text clinical note to a bounded probability delta in
// [-0.25, 0.25]. Empty text yields 0.
func Adjust(text string) float64 {
	if text == "" {
		return 0.0
	}
	t := strings.ToLower(text)
	delta := 0.0
	for _, kw := range increasingKeywords {
		if strings.Contains(t, kw) {
			delta += incWeight
		}
	}
	for _, kw := range decreasingKeywords {
		if strings.Contains(t, kw) {
			delta += decWeight
		}
	}
	return clamp(delta, minDelta, maxDelta)
}

// Recompute derives the current probability from the patient record and the
// full note history. Always recomputed from scratch, never drifted
// incrementally, so replaying the same note sequence is idempotent.
func Recompute(patient map[string]any, notes []string) float64 {
	prob := Score(patient)
	for _, note := range notes {
		prob += Adjust(note)
	}
	return clamp(prob, minProb, maxProb)
}

func section(patient map[string]any, key string) map[string]any {
	if m, ok := patient[key].(map[string]any); ok {
		return m
	}
	return nil
}

// num extracts an optional numeric signal; absent or non-numeric values are
// treated as "no signal".
func num(m map[string]any, key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

// truthy mirrors the permissive history-flag check: boolean true, any
// non-zero number, or any non-empty string counts.
func truthy(m map[string]any, key string) bool {
	switch v := m[key].(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		return v != ""
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
