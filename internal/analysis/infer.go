// Package analysis infers column types and computes column statistics.
package analysis

import (
	"math"
	"strconv"
	"strings"

	"github.com/Tributary-ai-services/aether-insights/internal/models"
)

// InferOptions tune the type inference heuristics
type InferOptions struct {
	// SampleSize caps how many non-null values are examined per column.
	SampleSize int
	// Threshold is the match ratio a classifier must exceed.
	Threshold float64
	// LooseThreshold applies to phone and zip detection.
	LooseThreshold float64
	// CategoricalLimit is the distinct count at or below which strings are categorical.
	CategoricalLimit int
	// IdentifierRatio is the unique ratio above which tokens are identifiers.
	IdentifierRatio float64
}

// DefaultInferOptions returns the standard heuristics
func DefaultInferOptions() InferOptions {
	return InferOptions{
		SampleSize:       1000,
		Threshold:        0.8,
		LooseThreshold:   0.7,
		CategoricalLimit: 20,
		IdentifierRatio:  0.95,
	}
}

// ColumnType is the result of inferring one column
type ColumnType struct {
	Type        models.DetectedType
	Subtype     string
	Confidence  float64
	StorageType string
	// Format is the time layout for date and datetime columns.
	Format string
}

// Inferencer classifies columns from their raw values
type Inferencer struct {
	opt InferOptions
}

// NewInferencer creates an inferencer, filling unset options with defaults
func NewInferencer(opt InferOptions) *Inferencer {
	def := DefaultInferOptions()
	if opt.SampleSize <= 0 {
		opt.SampleSize = def.SampleSize
	}
	if opt.Threshold <= 0 || opt.Threshold > 1 {
		opt.Threshold = def.Threshold
	}
	if opt.LooseThreshold <= 0 || opt.LooseThreshold > 1 {
		opt.LooseThreshold = def.LooseThreshold
	}
	if opt.CategoricalLimit <= 0 {
		opt.CategoricalLimit = def.CategoricalLimit
	}
	if opt.IdentifierRatio <= 0 || opt.IdentifierRatio > 1 {
		opt.IdentifierRatio = def.IdentifierRatio
	}
	return &Inferencer{opt: opt}
}

// Options returns the effective options
func (in *Inferencer) Options() InferOptions {
	return in.opt
}

// sample returns up to SampleSize values spread evenly over the column.
func (in *Inferencer) sample(values []string) []string {
	if len(values) <= in.opt.SampleSize {
		return values
	}
	out := make([]string, 0, in.opt.SampleSize)
	step := float64(len(values)) / float64(in.opt.SampleSize)
	for i := 0; i < in.opt.SampleSize; i++ {
		out = append(out, values[int(float64(i)*step)])
	}
	return out
}

// Infer classifies a column. Classifiers run in priority order and the first
// whose match ratio exceeds the threshold wins. A column without values is
// unknown.
func (in *Inferencer) Infer(name string, raw []string) ColumnType {
	present := NonMissing(raw)
	if len(present) == 0 {
		return ColumnType{Type: models.TypeUnknown, StorageType: models.StorageString}
	}
	values := in.sample(present)
	uniqueRatio := float64(countDistinct(values)) / float64(len(values))
	storage := storageType(values)

	result := func(t models.DetectedType, subtype string, confidence float64) ColumnType {
		return ColumnType{Type: t, Subtype: subtype, Confidence: round(confidence, 4), StorageType: storage}
	}

	if ok, conf := in.isBoolean(values); ok {
		return result(models.TypeBoolean, "binary", conf)
	}
	if ct, ok := in.numericFamily(name, values, uniqueRatio); ok {
		ct.StorageType = storage
		return ct
	}
	if layout, hasTime, r := DetectDateLayout(values); r > in.opt.Threshold {
		ct := result(models.TypeDate, "", r)
		if hasTime {
			ct.Type = models.TypeDateTime
		}
		ct.Format = layout
		return ct
	}
	if r := ratio(values, IsTimeOfDay); r > in.opt.Threshold {
		return result(models.TypeTime, "", r)
	}
	if t, r, ok := in.identifierShaped(name, values); ok {
		return result(t, "", r)
	}

	distinct := countDistinct(values)
	switch {
	case distinct <= in.opt.CategoricalLimit || uniqueRatio < 0.5:
		return result(models.TypeCategorical, cardinalitySubtype(distinct), 1-uniqueRatio/2)
	case uniqueRatio >= in.opt.IdentifierRatio && ratio(values, HasWhitespace) < 1-in.opt.Threshold:
		return result(models.TypeIdentifier, "", uniqueRatio)
	default:
		return result(models.TypeText, "", 1-ratio(values, func(v string) bool { return !HasWhitespace(v) })/2)
	}
}

// isBoolean requires every value to come from a single token pair.
func (in *Inferencer) isBoolean(values []string) (bool, float64) {
	distinct := make(map[string]struct{}, 2)
	var pair booleanPair
	for i, v := range values {
		p, ok := booleanPairFor(v)
		if !ok {
			return false, 0
		}
		if i == 0 {
			pair = p
		} else if p != pair {
			return false, 0
		}
		distinct[strings.ToLower(v)] = struct{}{}
		if len(distinct) > 2 {
			return false, 0
		}
	}
	return true, 1
}

func (in *Inferencer) numericFamily(name string, values []string, uniqueRatio float64) (ColumnType, bool) {
	th := in.opt.Threshold

	plain := ratio(values, func(v string) bool { _, ok := ParseNumber(v); return ok })
	currency := ratio(values, func(v string) bool { _, ok := ParseCurrency(v); return ok })
	symbols := ratio(values, HasCurrencySymbol)
	percentSigns := ratio(values, func(v string) bool { return strings.HasSuffix(v, "%") })
	percent := ratio(values, func(v string) bool { _, ok := ParsePercentage(v); return ok })

	switch {
	case percentSigns > 0.3 && percent > th:
		return ColumnType{Type: models.TypePercentage, Subtype: numericSubtype(uniqueRatio), Confidence: round(percent, 4)}, true
	case symbols > 0.3 && currency > th:
		return ColumnType{Type: models.TypeCurrency, Subtype: numericSubtype(uniqueRatio), Confidence: round(currency, 4)}, true
	case plain <= th:
		return ColumnType{}, false
	}

	nums := make([]float64, 0, len(values))
	for _, v := range values {
		if f, ok := ParseNumber(v); ok {
			nums = append(nums, f)
		}
	}
	conf := round(plain, 4)

	if nameHasToken(name, "zip", "zipcode", "postal", "postcode") && ratio(values, IsZip) > in.opt.LooseThreshold {
		return ColumnType{Type: models.TypeZip, Confidence: conf}, true
	}
	if nameHasToken(name, "id", "key", "index", "code") && uniqueRatio > in.opt.IdentifierRatio {
		return ColumnType{Type: models.TypeIdentifier, Subtype: "numeric", Confidence: conf}, true
	}
	if nameHasToken(name, "lat", "latitude") && inRange(nums, -90, 90) > 0.95 {
		return ColumnType{Type: models.TypeLatitude, Confidence: conf}, true
	}
	if nameHasToken(name, "lon", "lng", "long", "longitude") && inRange(nums, -180, 180) > 0.95 {
		return ColumnType{Type: models.TypeLongitude, Confidence: conf}, true
	}
	if nameHas(name, "price", "cost", "amount", "revenue", "salary", "fee", "total", "sum") {
		return ColumnType{Type: models.TypeCurrency, Subtype: numericSubtype(uniqueRatio), Confidence: conf}, true
	}
	if nameHas(name, "percent", "pct", "rate", "ratio") && inRange(nums, 0, 100) > th {
		return ColumnType{Type: models.TypePercentage, Subtype: numericSubtype(uniqueRatio), Confidence: conf}, true
	}

	integers := ratio(values, func(v string) bool { _, ok := ParseInteger(v); return ok })
	if integers > th {
		return ColumnType{Type: models.TypeInteger, Subtype: numericSubtype(uniqueRatio), Confidence: conf}, true
	}
	return ColumnType{Type: models.TypeFloat, Subtype: numericSubtype(uniqueRatio), Confidence: conf}, true
}

func (in *Inferencer) identifierShaped(name string, values []string) (models.DetectedType, float64, bool) {
	th := in.opt.Threshold
	if r := ratio(values, IsEmail); r > th {
		return models.TypeEmail, r, true
	}
	if r := ratio(values, IsURL); r > th {
		return models.TypeURL, r, true
	}
	if r := ratio(values, IsUUID); r > th {
		return models.TypeUUID, r, true
	}
	if r := ratio(values, IsIP); r > th {
		return models.TypeIP, r, true
	}
	if r := ratio(values, IsCreditCard); r > th {
		return models.TypeCreditCard, r, true
	}
	if r := ratio(values, IsPhone); r > in.opt.LooseThreshold {
		return models.TypePhone, r, true
	}
	if nameHasToken(name, "zip", "zipcode", "postal", "postcode") {
		if r := ratio(values, IsZip); r > in.opt.LooseThreshold {
			return models.TypeZip, r, true
		}
	}
	return "", 0, false
}

func storageType(values []string) string {
	ints, floats, bools := true, true, true
	for _, v := range values {
		if ints {
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				ints = false
			}
		}
		if floats {
			if _, ok := ParseNumber(v); !ok || thousandsPattern.MatchString(v) {
				floats = false
			}
		}
		if bools {
			l := strings.ToLower(v)
			bools = l == "true" || l == "false"
		}
	}
	switch {
	case bools:
		return models.StorageBool
	case ints:
		return models.StorageInt64
	case floats:
		return models.StorageFloat64
	default:
		return models.StorageString
	}
}

func numericSubtype(uniqueRatio float64) string {
	if uniqueRatio > 0.5 {
		return "continuous"
	}
	return "discrete"
}

func cardinalitySubtype(distinct int) string {
	switch {
	case distinct <= 2:
		return "binary"
	case distinct <= 10:
		return "low_cardinality"
	case distinct <= 50:
		return "medium_cardinality"
	default:
		return "high_cardinality"
	}
}

func countDistinct(values []string) int {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
	}
	return len(seen)
}

func inRange(nums []float64, lo, hi float64) float64 {
	if len(nums) == 0 {
		return 0
	}
	n := 0
	for _, f := range nums {
		if f >= lo && f <= hi {
			n++
		}
	}
	return float64(n) / float64(len(nums))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
