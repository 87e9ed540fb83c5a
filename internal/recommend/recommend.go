// Package recommend holds the rule-based measure recommendations used when
// the external model degrades to an empty list.
package recommend

import "github.com/graphcare/backend/internal/domain"

const maxMeasures = 6

// Measures maps the current probability and patient record to a ranked list
// of clinical measures via a fixed threshold table.
func Measures(prob float64, patient domain.PatientRecord) []domain.MeasureItem {
	var recs []domain.MeasureItem

	switch {
	case prob >= 0.7:
		recs = append(recs,
			domain.MeasureItem{Measure: "紧急升压支持（去甲肾上腺素优先）", Reason: "高风险休克：需快速恢复灌注压力"},
			domain.MeasureItem{Measure: "完善血流动力学监测（动脉置管/有创血压）", Reason: "实时评估MAP与用药反应"},
			domain.MeasureItem{Measure: "床旁超声/心电图，评估心功能与机械并发症", Reason: "明确病因指导治疗"},
			domain.MeasureItem{Measure: "评估机械循环支持（IABP/Impella/VA-ECMO）", Reason: "药物反应差时的升级策略"},
		)
	case prob >= 0.4:
		recs = append(recs,
			domain.MeasureItem{Measure: "升压药滴定维持MAP≥65 mmHg", Reason: "灌注保护"},
			domain.MeasureItem{Measure: "利尿剂/血管活性药物个体化调整", Reason: "容量与后负荷管理"},
			domain.MeasureItem{Measure: "动态监测乳酸与尿量", Reason: "判断组织灌注变化"},
			domain.MeasureItem{Measure: "心超评估泵功能", Reason: "决定是否需正性肌力药物"},
		)
	default:
		recs = append(recs,
			domain.MeasureItem{Measure: "密切观察+基础监测", Reason: "当前风险较低"},
			domain.MeasureItem{Measure: "优化液体管理与镇痛/镇静", Reason: "避免诱发因素"},
			domain.MeasureItem{Measure: "必要时复查乳酸与心超", Reason: "动态评估风险"},
		)
	}

	if congested(patient) {
		recs = append(recs, domain.MeasureItem{
			Measure: "利尿与后负荷降低",
			Reason:  "静脉淤血提示前负荷/后负荷过高",
		})
	}

	if len(recs) > maxMeasures {
		recs = recs[:maxMeasures]
	}
	return recs
}

// congested reports the venous-congestion addendum: PAWP > 18 or BNP > 400.
func congested(patient domain.PatientRecord) bool {
	if v, ok := num(section(patient, "vitals"), "PAWP"); ok && v > 18 {
		return true
	}
	if v, ok := num(section(patient, "labs"), "BNP"); ok && v > 400 {
		return true
	}
	return false
}

func section(patient domain.PatientRecord, key string) map[string]any {
	if m, ok := patient[key].(map[string]any); ok {
		return m
	}
	return nil
}

func num(m map[string]any, key string) (float64, bool) {
	v, ok := m[key].(float64)
	return v, ok
}
