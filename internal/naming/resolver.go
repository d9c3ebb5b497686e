// Package naming extracts semantic hints from free-text plan and structure
// identifiers: prescription dose, laterality, breathing technique, and
// anatomic site. Resolution is an ordered rule table over the upper-cased
// identifier; no rule matching is never an error, just a zero field.
package naming

import (
	"regexp"
	"strconv"
	"strings"
)

// DoseSource records where a resolved dose value came from.
type DoseSource string

const (
	DoseFromName DoseSource = "name-derived"
	DoseNotFound DoseSource = "not-found"
)

// Laterality is the treated side hint.
type Laterality string

const (
	LateralityLeft      Laterality = "LEFT"
	LateralityRight     Laterality = "RIGHT"
	LateralityBilateral Laterality = "BILATERAL"
	LateralityNone      Laterality = ""
)

// Resolution is the result of resolving one identifier.
type Resolution struct {
	DoseCGy         float64
	DoseSource      DoseSource
	Laterality      Laterality
	BreathingMethod string
	SiteHint        string
}

// HasDose reports whether a numeric dose pattern matched.
func (r Resolution) HasDose() bool { return r.DoseSource == DoseFromName }

// doseRule pairs a numeric pattern with its conversion to cGy. Rules run in
// order and the first match wins, so the 5-digit rule must precede the
// 4-digit rule (a 5-digit run contains a 4-digit one).
type doseRule struct {
	pattern *regexp.Regexp
	toCGy   func(raw float64) float64
}

var doseRules = []doseRule{
	// Five digits: raw value scaled down by 100, then read as cGy. This is
	// the literal behaviour of the clinical naming convention in use; it is
	// inconsistent with the 4-digit rule and must be confirmed before any
	// reuse with a different convention.
	{regexp.MustCompile(`(?:^|[^\d.])(\d{5})(?:[^\d]|$)`), func(raw float64) float64 { return raw / 100 }},
	// Four digits: cGy verbatim ("PTV5400" -> 5400 cGy).
	{regexp.MustCompile(`(?:^|[^\d.])(\d{4})(?:[^\d]|$)`), func(raw float64) float64 { return raw }},
	// Decimal Gy ("54.0Gy", "PTV 50.4" -> cGy).
	{regexp.MustCompile(`(\d{1,2}\.\d)`), func(raw float64) float64 { return raw * 100 }},
}

// breathingRules maps identifier tokens to breathing methods. Ordered:
// IABC/EABC are more specific than ABC and must win over it.
var breathingRules = []struct {
	token  string
	method string
}{
	{"IABC", "Inspiration ABC"},
	{"EABC", "Expiration ABC"},
	{"ABC", "ABC"},
	{"BH", "Breath hold"},
	{"DIBH", "Breath hold"},
	{"FB", "Free breathing"},
	{"4D", "4D-CT"},
	{"GATING", "Gating"},
	{"GATED", "Gating"},
}

// siteRules maps tokens to anatomic-site hints.
var siteRules = []struct {
	token string
	site  string
}{
	{"BREAST", "Breast"},
	{"CHESTWALL", "Chest wall"},
	{"CW", "Chest wall"},
	{"LUNG", "Lung"},
	{"PROST", "Prostate"},
	{"BRAIN", "Brain"},
	{"H&N", "Head and neck"},
	{"HN", "Head and neck"},
	{"LIVER", "Liver"},
	{"PELVIS", "Pelvis"},
	{"RECTUM", "Rectum"},
	{"ESOPH", "Esophagus"},
	{"SPINE", "Spine"},
}

var (
	leftTokenRe  = regexp.MustCompile(`(?:^|[^A-Z])LT(?:[^A-Z]|$)`)
	rightTokenRe = regexp.MustCompile(`(?:^|[^A-Z])RT(?:[^A-Z]|$)`)
)

// Resolve applies the ordered pattern rules to one identifier. Pure and
// deterministic; a rule that does not match simply leaves its field zero.
func Resolve(identifier string) Resolution {
	upper := strings.ToUpper(strings.TrimSpace(identifier))
	res := Resolution{DoseSource: DoseNotFound}
	if upper == "" {
		return res
	}

	for _, rule := range doseRules {
		m := rule.pattern.FindStringSubmatch(upper)
		if m == nil {
			continue
		}
		raw, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		res.DoseCGy = rule.toCGy(raw)
		res.DoseSource = DoseFromName
		break
	}

	for _, rule := range breathingRules {
		if strings.Contains(upper, rule.token) {
			res.BreathingMethod = rule.method
			break
		}
	}

	res.Laterality = lateralityOf(upper)

	for _, rule := range siteRules {
		if strings.Contains(upper, rule.token) {
			res.SiteHint = rule.site
			break
		}
	}

	return res
}

// lateralityOf reads the side from one identifier. LT/RT only count as
// stand-alone tokens, so "PTV_RT" reads as right but "HEART" does not.
func lateralityOf(upper string) Laterality {
	left := strings.Contains(upper, "LEFT") || leftTokenRe.MatchString(upper)
	right := strings.Contains(upper, "RIGHT") || rightTokenRe.MatchString(upper)
	switch {
	case strings.Contains(upper, "BILATERAL"):
		return LateralityBilateral
	case left && right:
		return LateralityBilateral
	case left:
		return LateralityLeft
	case right:
		return LateralityRight
	}
	return LateralityNone
}

// ResolveLaterality scans a whole identifier set. Left and right markers on
// different structures escalate to bilateral.
func ResolveLaterality(identifiers []string) Laterality {
	var left, right bool
	for _, id := range identifiers {
		switch lateralityOf(strings.ToUpper(id)) {
		case LateralityBilateral:
			return LateralityBilateral
		case LateralityLeft:
			left = true
		case LateralityRight:
			right = true
		}
	}
	switch {
	case left && right:
		return LateralityBilateral
	case left:
		return LateralityLeft
	case right:
		return LateralityRight
	}
	return LateralityNone
}
