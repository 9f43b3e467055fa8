package services

import "strings"

// Closed theme vocabulary. Categories are slugs on events; labels are the
// human-readable topic names theme groups are published under.
const (
	CategoryPolicy     = "policy"
	CategoryHealthcare = "healthcare"
	CategorySafety     = "safety"
	CategoryProducts   = "products"
	CategoryResearch   = "research"
	CategoryGeneral    = "general"
)

var categoryLabels = map[string]string{
	CategoryPolicy:     "AI Policy & Regulation",
	CategoryHealthcare: "AI in Healthcare",
	CategorySafety:     "AI Safety & Security",
	CategoryProducts:   "AI Products & Services",
	CategoryResearch:   "AI Research & Development",
	CategoryGeneral:    "General Developments",
}

var categoryKeywords = map[string][]string{
	CategoryPolicy: {
		"policy", "regulation", "government", "white house", "congress",
		"law", "ban", "oversight", "lawsuit", "lobbying", "antitrust",
	},
	CategoryHealthcare: {
		"health", "medical", "doctor", "cancer", "patient", "hospital",
		"diagnosis", "treatment", "disease", "drug", "clinical",
	},
	CategorySafety: {
		"safety", "security", "risk", "threat", "vulnerability", "attack",
		"breach", "exploit", "misuse", "alignment",
	},
	CategoryProducts: {
		"launch", "release", "integration", "app", "feature", "service",
		"platform", "tool", "product", "pricing", "subscription",
	},
	CategoryResearch: {
		"research", "breakthrough", "study", "university", "scientist",
		"discovery", "paper", "benchmark", "model", "dataset",
	},
}

// CategorizeText assigns the category whose keyword list matches the text
// most often; ties go to the alphabetically first category so assignment
// is deterministic. No match at all falls back to the general bucket.
func CategorizeText(text string) string {
	lowered := strings.ToLower(text)

	best := CategoryGeneral
	bestMatches := 0
	for _, category := range orderedCategories {
		matches := 0
		for _, keyword := range categoryKeywords[category] {
			if strings.Contains(lowered, keyword) {
				matches++
			}
		}
		if matches > bestMatches {
			bestMatches = matches
			best = category
		}
	}
	return best
}

var orderedCategories = []string{
	CategoryHealthcare,
	CategoryPolicy,
	CategoryProducts,
	CategoryResearch,
	CategorySafety,
}

// CategoryLabel returns the display name for a category slug. Unknown
// slugs keep themselves as the label so nothing is ever dropped.
func CategoryLabel(category string) string {
	if label, ok := categoryLabels[category]; ok {
		return label
	}
	if category == "" {
		return categoryLabels[CategoryGeneral]
	}
	return strings.ToUpper(category[:1]) + category[1:]
}
