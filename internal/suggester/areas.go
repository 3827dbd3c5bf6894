package suggester

import "regexp"

// areaRule pairs a matcher with its area label. Rules are evaluated in
// order and the first match wins, so the table below is the single place
// that defines classification priority.
type areaRule struct {
	area    string
	matcher *regexp.Regexp
}

var areaRules = []areaRule{
	{"ci/infra", regexp.MustCompile(`(?i)\b(ci|cd|pipeline|docker|deploy|deployment|infra|k8s|kubernetes|helm|terraform|jenkins|workflow)\b`)},
	{"tests", regexp.MustCompile(`(?i)\b(test|tests|testing|spec|coverage)\b`)},
	{"docs", regexp.MustCompile(`(?i)\b(doc|docs|documentation|readme|changelog)\b`)},
	{"frontend", regexp.MustCompile(`(?i)\b(ui|ux|frontend|css|html|react|vue|component|styling)\b`)},
	{"backend", regexp.MustCompile(`(?i)\b(api|backend|server|endpoint|database|db|migration|schema)\b`)},
	{"ansible", regexp.MustCompile(`(?i)\b(ansible|playbook|role|inventory)\b`)},
	{"config", regexp.MustCompile(`(?i)\b(config|configuration|settings|env|environment)\b`)},
}

// generalArea is the fallback when no rule matches.
const generalArea = "general"

// classifyArea returns the content area of a commit message.
func classifyArea(message string) string {
	for _, rule := range areaRules {
		if rule.matcher.MatchString(message) {
			return rule.area
		}
	}
	return generalArea
}
