package risk

import (
	"math"
	"testing"
)

func TestScoreScenario(t *testing.T) {
	patient := map[string]any{
		"patient_id": "P1",
		"vitals":     map[string]any{"MAP": 60.0, "HR": 120.0},
		"labs":       map[string]any{"lactate": 3.0},
	}
	// 0.25 base + 0.18 MAP + 0.05 HR + 0.12 lactate
	got := Score(patient)
	if math.Abs(got-0.60) > 1e-9 {
		t.Fatalf("expected 0.60, got %v", got)
	}
}

func TestScoreEmptyRecord(t *testing.T) {
	if got := Score(map[string]any{}); got != 0.25 {
		t.Fatalf("expected base 0.25, got %v", got)
	}
}

func TestScoreBounds(t *testing.T) {
	cases := []map[string]any{
		{},
		{"vitals": map[string]any{"MAP": 50.0, "CI": 1.0, "PAWP": 25.0, "HR": 130.0}},
		{
			"vitals":  map[string]any{"MAP": 50.0, "CI": 1.0, "PAWP": 25.0, "HR": 130.0},
			"labs":    map[string]any{"lactate": 5.0, "EF": 20.0, "urine_output_6h": 0.2},
			"history": map[string]any{"STEMI": true},
		},
		{"vitals": "not a map", "labs": []any{1, 2}},
		{"vitals": map[string]any{"MAP": "low"}},
	}
	for i, patient := range cases {
		got := Score(patient)
		if got < 0.01 || got > 0.98 {
			t.Fatalf("case %d: score %v out of range", i, got)
		}
	}
}

func TestScoreMalformedFieldsContributeNothing(t *testing.T) {
	patient := map[string]any{
		"vitals": map[string]any{"MAP": "sixty", "HR": nil},
		"labs":   map[string]any{"lactate": []any{3}},
	}
	if got := Score(patient); got != 0.25 {
		t.Fatalf("malformed fields should not contribute, got %v", got)
	}
}

func TestScoreUrinePreference(t *testing.T) {
	patient := map[string]any{
		"labs": map[string]any{"urine_output_6h": 0.3, "urine_output_24h": 1.0},
	}
	if got := Score(patient); math.Abs(got-0.33) > 1e-9 {
		t.Fatalf("expected 6h value to win, got %v", got)
	}
	// zero 6h output falls back to the 24h value
	patient = map[string]any{
		"labs": map[string]any{"urine_output_6h": 0.0, "urine_output_24h": 1.0},
	}
	if got := Score(patient); got != 0.25 {
		t.Fatalf("expected 24h fallback, got %v", got)
	}
}

func TestScoreHistoryFlags(t *testing.T) {
	for _, flag := range []string{"AMI_recent", "STEMI", "MI"} {
		patient := map[string]any{"history": map[string]any{flag: true}}
		if got := Score(patient); math.Abs(got-0.33) > 1e-9 {
			t.Fatalf("flag %s: expected 0.33, got %v", flag, got)
		}
	}
	patient := map[string]any{"history": map[string]any{"MI": false}}
	if got := Score(patient); got != 0.25 {
		t.Fatalf("false flag should not contribute, got %v", got)
	}
}

func TestAdjustEmpty(t *testing.T) {
	if got := Adjust(""); got != 0.0 {
		t.Fatalf("empty text should yield 0, got %v", got)
	}
}

func TestAdjustKeywords(t *testing.T) {
	cases := []struct {
		text string
		want float64
	}{
		{"血压下降", 0.04},
		{"好转", -0.03},
		{"血压下降，随后好转", 0.01},
		{"患者ST段抬高", 0.04}, // case-insensitive
		{"无明显变化", 0.0},
	}
	for _, tc := range cases {
		got := Adjust(tc.text)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("Adjust(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestAdjustBounds(t *testing.T) {
	// Every increasing keyword at once still clamps at +0.25.
	all := ""
	for _, kw := range increasingKeywords {
		all += kw + " "
	}
	if got := Adjust(all); got != 0.25 {
		t.Fatalf("expected clamp at 0.25, got %v", got)
	}
	all = ""
	for i := 0; i < 20; i++ {
		all += "好转 稳定 无胸痛 症状缓解 灌注改善 意识清醒 血压稳定 "
	}
	// seven decreasing keywords, each counted once per call
	if got := Adjust(all); math.Abs(got-(-0.21)) > 1e-9 {
		t.Fatalf("expected -0.21, got %v", got)
	}
}

func TestRecomputeIdempotent(t *testing.T) {
	patient := map[string]any{
		"vitals": map[string]any{"MAP": 60.0, "HR": 120.0},
		"labs":   map[string]any{"lactate": 3.0},
	}
	notes := []string{"血压下降", "好转"}
	first := Recompute(patient, notes)
	second := Recompute(patient, notes)
	if first != second {
		t.Fatalf("recompute not idempotent: %v vs %v", first, second)
	}
	if math.Abs(first-0.61) > 1e-9 {
		t.Fatalf("expected 0.60 + 0.04 - 0.03 = 0.61, got %v", first)
	}
}

func TestRecomputeMonotonicOnIncreasingNote(t *testing.T) {
	patient := map[string]any{"vitals": map[string]any{"MAP": 60.0}}
	notes := []string{"稳定"}
	before := Recompute(patient, notes)
	after := Recompute(patient, append(notes, "少尿 乳酸"))
	if after < before {
		t.Fatalf("increasing-risk note decreased probability: %v -> %v", before, after)
	}
}

func TestRecomputeClamped(t *testing.T) {
	patient := map[string]any{
		"vitals":  map[string]any{"MAP": 50.0, "CI": 1.0, "PAWP": 25.0, "HR": 130.0},
		"labs":    map[string]any{"lactate": 5.0, "EF": 20.0, "urine_output_6h": 0.2},
		"history": map[string]any{"STEMI": true},
	}
	notes := []string{"低血压 少尿 乳酸 灌注不足", "皮肤湿冷 意识模糊"}
	if got := Recompute(patient, notes); got != 0.98 {
		t.Fatalf("expected clamp at 0.98, got %v", got)
	}
}
