// Package category assigns documents to a fixed taxonomy using an ordered
// keyword rule list. Classification is deterministic: no model calls, no
// randomness, so re-running it on unchanged input always yields the same
// label.
package category

import "strings"

// Miscellaneous is the fallback label when no rule matches.
const Miscellaneous = "Miscellaneous"

type rule struct {
	label    string
	keywords []string
}

// rules are checked in priority order. The first rule whose keyword appears
// as a case-insensitive substring wins. Filename rules run first; content
// rules only run when no filename rule matched.
var rules = []rule{
	{"Technical Documentation", []string{"api", "sdk", "technical", "architecture", "specification", "reference", "installation", "configuration", "readme", "changelog"}},
	{"Training & Education", []string{"training", "tutorial", "course", "lesson", "curriculum", "onboarding", "education"}},
	{"Legal & Compliance", []string{"legal", "compliance", "contract", "agreement", "policy", "regulation", "license", "terms", "epa", "osha", "certification"}},
	{"Reports & Analysis", []string{"report", "analysis", "metrics", "quarterly", "annual", "statistics", "benchmark"}},
	{"Project Management", []string{"project", "roadmap", "milestone", "sprint", "backlog", "timeline", "charter", "retrospective"}},
	{"User Data & Profiles", []string{"user", "profile", "customer", "account", "member", "roster"}},
	{"Medical & Healthcare", []string{"medical", "health", "patient", "clinical", "prescription", "diagnosis"}},
	{"Templates & Forms", []string{"template", "form", "checklist", "worksheet", "questionnaire"}},
	{"Research & Development", []string{"research", "experiment", "study", "prototype", "hypothesis", "findings"}},
	{"Standard Operating Procedures", []string{"sop", "procedure", "operating", "protocol", "workflow", "instructions"}},
}

// secondaryContentRules catch content with distinctive phrasing that the
// keyword rules miss. They only ever run against content, after both
// filename and content passes over the primary rules came up empty.
var secondaryContentRules = []rule{
	{"Legal & Compliance", []string{"pursuant to", "hereinafter", "shall not", "governed by the laws"}},
	{"Research & Development", []string{"abstract:", "methodology", "in conclusion, our results"}},
	{"Standard Operating Procedures", []string{"step 1:", "before you begin", "required equipment"}},
}

// maxContentSample bounds how much content is scanned; classification should
// not read megabytes of text to pick a label.
const maxContentSample = 2000

// Classify maps a filename and a sample of document content to a taxonomy
// label. The filename is authoritative: content is only consulted when no
// filename rule matches.
func Classify(filename, contentSample string) string {
	name := strings.ToLower(filename)
	for _, r := range rules {
		if matches(name, r.keywords) {
			return r.label
		}
	}

	sample := strings.ToLower(contentSample)
	if len(sample) > maxContentSample {
		sample = sample[:maxContentSample]
	}
	if sample != "" {
		for _, r := range rules {
			if matches(sample, r.keywords) {
				return r.label
			}
		}
		for _, r := range secondaryContentRules {
			if matches(sample, r.keywords) {
				return r.label
			}
		}
	}

	return Miscellaneous
}

// All returns the full taxonomy in priority order, ending with the fallback.
func All() []string {
	labels := make([]string, 0, len(rules)+1)
	for _, r := range rules {
		labels = append(labels, r.label)
	}
	return append(labels, Miscellaneous)
}

func matches(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
