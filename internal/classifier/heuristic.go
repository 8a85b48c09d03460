package classifier

import (
	"context"
	"regexp"
	"strings"

	"github.com/Tributary-ai-services/aether-insights/internal/analysis"
	"github.com/Tributary-ai-services/aether-insights/internal/models"
)

// Score weights for name analysis
const (
	typeHintScore = 2
	patternScore  = 3
	keywordScore  = 2
	maxScore      = 10.0
)

type semanticRule struct {
	semantic models.SemanticType
	patterns []*regexp.Regexp
	keywords []string
	hints    []string
}

func rule(t models.SemanticType, patterns, keywords, hints []string) semanticRule {
	r := semanticRule{semantic: t, keywords: keywords, hints: hints}
	for _, p := range patterns {
		r.patterns = append(r.patterns, regexp.MustCompile(`^(?:`+p+`)`))
	}
	return r
}

// rules are evaluated in order; ties keep the earlier rule.
var rules = []semanticRule{
	rule(models.SemanticIdentifier,
		[]string{`.*id$`, `.*_id$`, `^id.*`, `.*key$`, `.*_key$`},
		[]string{"id", "key", "identifier", "uuid", "guid"},
		[]string{"integer", "string"}),
	rule(models.SemanticPersonalName,
		[]string{`.*name$`, `first.*name`, `last.*name`, `full.*name`},
		[]string{"name", "firstname", "lastname", "fullname", "username"},
		[]string{"string"}),
	rule(models.SemanticEmail,
		[]string{`.*email$`, `.*mail$`},
		[]string{"email", "mail", "e-mail"},
		[]string{"string"}),
	rule(models.SemanticPhone,
		[]string{`.*phone$`, `.*tel$`, `.*mobile$`},
		[]string{"phone", "telephone", "mobile", "tel"},
		[]string{"string"}),
	rule(models.SemanticAddress,
		[]string{`.*address$`, `.*street$`, `.*city$`, `.*state$`, `.*zip$`, `.*postal$`},
		[]string{"address", "street", "city", "state", "zip", "postal", "country"},
		[]string{"string"}),
	rule(models.SemanticDateTime,
		[]string{`.*date$`, `.*time$`, `created.*`, `updated.*`, `.*_at$`, `.*_on$`},
		[]string{"date", "time", "created", "updated", "timestamp"},
		[]string{"date", "string"}),
	rule(models.SemanticCurrency,
		[]string{`.*price$`, `.*cost$`, `.*amount$`, `.*salary$`, `.*revenue$`, `.*profit$`},
		[]string{"price", "cost", "amount", "salary", "revenue", "profit", "money", "currency", "dollar"},
		[]string{"float", "integer"}),
	rule(models.SemanticPercentage,
		[]string{`.*rate$`, `.*ratio$`, `.*percent$`, `.*pct$`},
		[]string{"rate", "ratio", "percent", "percentage", "pct"},
		[]string{"float"}),
	rule(models.SemanticCategory,
		[]string{`.*type$`, `.*category$`, `.*class$`, `.*group$`, `.*status$`},
		[]string{"type", "category", "class", "group", "status", "classification"},
		[]string{"string"}),
	rule(models.SemanticQuantity,
		[]string{`.*count$`, `.*number$`, `.*qty$`, `.*quantity$`, `.*size$`},
		[]string{"count", "number", "quantity", "qty", "size", "total"},
		[]string{"integer", "float"}),
	rule(models.SemanticCoordinates,
		[]string{`.*lat$`, `.*lng$`, `.*lon$`, `.*latitude$`, `.*longitude$`},
		[]string{"latitude", "longitude", "lat", "lng", "lon", "coordinates"},
		[]string{"float"}),
	rule(models.SemanticURL,
		[]string{`.*url$`, `.*link$`, `.*website$`},
		[]string{"url", "link", "website", "uri"},
		[]string{"string"}),
	rule(models.SemanticDescription,
		[]string{`.*desc$`, `.*description$`, `.*comment$`, `.*note$`},
		[]string{"description", "desc", "comment", "note", "remarks"},
		[]string{"string"}),
}

var (
	phoneDigits  = regexp.MustCompile(`[^0-9+]`)
	phoneValue   = regexp.MustCompile(`^\+?[1-9]?[0-9]{7,15}$`)
	currencyEdge = regexp.MustCompile(`^[$£€¥]|[$£€¥]$`)
)

// Heuristic classifies columns from their names and sample values without
// leaving the process.
type Heuristic struct{}

// NewHeuristic creates the in-process classifier
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

// Name identifies the classifier in reports
func (h *Heuristic) Name() string {
	return ModeLocal
}

// Classify never fails; columns without any signal are unknown.
func (h *Heuristic) Classify(ctx context.Context, req models.ClassificationRequest) ([]models.ColumnClassification, error) {
	out := make([]models.ColumnClassification, 0, len(req.Columns))
	for _, col := range req.Columns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, classifyColumn(col))
	}
	return out, nil
}

func classifyColumn(col models.ClassificationColumn) models.ColumnClassification {
	hint := typeHint(models.DetectedType(col.Type))
	nameType, nameScore := scoreName(col.Name, hint)

	result := models.ColumnClassification{
		ColumnName:   col.Name,
		OriginalType: col.Type,
		SemanticType: nameType,
		Confidence:   normalize(nameScore),
		Method:       "name_analysis",
	}
	if valueType, valueScore, ok := scoreValues(col, hint); ok && valueScore > nameScore {
		result.SemanticType = valueType
		result.Confidence = normalize(valueScore)
		result.Method = "value_analysis"
	}
	return result
}

// typeHint collapses detected types onto the coarse hints the rules use
func typeHint(t models.DetectedType) string {
	switch {
	case t == models.TypeInteger:
		return "integer"
	case t.IsNumeric():
		return "float"
	case t.IsTemporal():
		return "date"
	default:
		return "string"
	}
}

func scoreName(name, hint string) (models.SemanticType, int) {
	lower := strings.ToLower(strings.TrimSpace(name))
	best, bestScore := models.SemanticUnknown, 0
	for _, r := range rules {
		score := 0
		for _, h := range r.hints {
			if h == hint {
				score += typeHintScore
			}
		}
		for _, p := range r.patterns {
			if p.MatchString(lower) {
				score += patternScore
			}
		}
		for _, k := range r.keywords {
			if strings.Contains(lower, k) {
				score += keywordScore
			}
		}
		if score > bestScore {
			best, bestScore = r.semantic, score
		}
	}
	return best, bestScore
}

func scoreValues(col models.ClassificationColumn, hint string) (models.SemanticType, int, bool) {
	values := analysis.NonMissing(col.SampleValues)
	if len(values) == 0 {
		return "", 0, false
	}
	numeric := hint == "integer" || hint == "float"

	for _, v := range values {
		if analysis.IsEmail(v) {
			return models.SemanticEmail, 5, true
		}
	}
	if hint == "string" {
		for _, v := range values {
			if phoneValue.MatchString(phoneDigits.ReplaceAllString(v, "")) {
				return models.SemanticPhone, 5, true
			}
		}
	}
	for _, v := range values {
		if strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://") {
			return models.SemanticURL, 5, true
		}
	}
	for _, v := range values {
		if currencyEdge.MatchString(v) {
			return models.SemanticCurrency, 4, true
		}
	}

	head := values
	if len(head) > 5 {
		head = head[:5]
	}
	dates := 0
	for _, v := range head {
		if _, ok := analysis.ParseDate(v, ""); ok {
			dates++
		}
	}
	if float64(dates) >= float64(len(head))*0.8 {
		return models.SemanticDateTime, 4, true
	}

	if numeric {
		lower := strings.ToLower(col.Name)
		nums := make([]float64, 0, len(values))
		for _, v := range values {
			if f, ok := analysis.ParseNumber(v); ok {
				nums = append(nums, f)
			}
		}
		if len(nums) > 0 {
			if strings.Contains(lower, "lat") && within(nums, 90) {
				return models.SemanticCoordinates, 4, true
			}
			if (strings.Contains(lower, "lng") || strings.Contains(lower, "lon")) && within(nums, 180) {
				return models.SemanticCoordinates, 4, true
			}
		}
	}
	return "", 0, false
}

func within(nums []float64, bound float64) bool {
	for _, f := range nums {
		if f < -bound || f > bound {
			return false
		}
	}
	return true
}

func normalize(score int) float64 {
	if score <= 0 {
		return 0
	}
	if float64(score) >= maxScore {
		return 1
	}
	return float64(score) / maxScore
}
