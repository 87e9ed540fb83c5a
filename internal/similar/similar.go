// Package similar produces the illustrative similar-case frequency list.
// The list is cosmetic presentation data, deterministic per seed, not a
// decision component.
package similar

import (
	"hash/fnv"
	"math"
	"math/rand"

	"github.com/graphcare/backend/internal/domain"
)

type template struct {
	measure string
	offset  float64
	lo, hi  float64
}

var templates = []template{
	{"去甲肾上腺素滴定", 0, 0.15, 0.95},
	{"正性肌力（多巴酚丁胺/米力农）", -0.1, 0.05, 0.85},
	{"IABP 评估/使用", -0.2, 0.05, 0.7},
	{"VA-ECMO 转诊/启动", -0.3, 0.02, 0.5},
}

// Cases builds the jittered, normalized frequency list for the given
// probability. The same seed always yields the same list.
func Cases(prob float64, seed string) []domain.SimilarCaseItem {
	h := fnv.New64a()
	h.Write([]byte(seed))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	vals := make([]float64, len(templates))
	total := 0.0
	for i, tpl := range templates {
		jitter := rng.Float64()*0.2 - 0.1
		v := prob + tpl.offset + jitter
		if v < tpl.lo {
			v = tpl.lo
		}
		if v > tpl.hi {
			v = tpl.hi
		}
		vals[i] = v
		total += v
	}
	if total <= 0 {
		total = 1.0
	}

	items := make([]domain.SimilarCaseItem, len(templates))
	for i, tpl := range templates {
		items[i] = domain.SimilarCaseItem{
			Measure:   tpl.measure,
			Frequency: math.Round(vals[i]/total*1000) / 1000,
		}
	}
	return items
}
