// Package advisor suggests best-practice improvements for synthesized
// templates. Rules read resource properties, so they only fire on what the
// template actually configures.
package advisor

import (
	"sort"

	wetwire "github.com/lex00/wetwire-cdk-go"
)

// Categories.
const (
	CategorySecurity    = "security"
	CategoryReliability = "reliability"
	CategoryCost        = "cost"
	CategoryOperations  = "operations"
)

// Severities, most severe first.
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

var severityRank = map[string]int{SeverityHigh: 3, SeverityMedium: 2, SeverityLow: 1}

// Options configures the advisor.
type Options struct {
	// Category filters suggestions: "all" (or empty), "security",
	// "reliability", "cost" or "operations".
	Category string
	// MinSeverity drops suggestions below this severity.
	MinSeverity string
	// Disabled lists rule IDs to skip.
	Disabled []string
}

// Result contains suggestions sorted by severity, then resource.
type Result struct {
	Suggestions []wetwire.AdviceSuggestion
	Summary     wetwire.AdviceSummary
}

// Rule is a single check against resources of one CloudFormation type.
type Rule struct {
	ID       string
	Category string
	Severity string
	Type     string
	Title    string
	// Check returns the finding message and fix, or ok=false when the
	// resource complies.
	Check func(props map[string]any) (message, fix string, ok bool)
}

// Advise applies every rule to every resource of the template.
func Advise(t *wetwire.Template, opts Options) *Result {
	disabled := make(map[string]bool, len(opts.Disabled))
	for _, id := range opts.Disabled {
		disabled[id] = true
	}
	minRank := severityRank[opts.MinSeverity]

	result := &Result{}
	for id, def := range t.Resources {
		for _, rule := range rulesForType(def.Type) {
			if disabled[rule.ID] || severityRank[rule.Severity] < minRank {
				continue
			}
			if opts.Category != "" && opts.Category != "all" && rule.Category != opts.Category {
				continue
			}
			msg, fix, ok := rule.Check(def.Properties)
			if !ok {
				continue
			}
			result.Suggestions = append(result.Suggestions, wetwire.AdviceSuggestion{
				Rule:     rule.ID,
				Category: rule.Category,
				Severity: rule.Severity,
				Resource: id,
				Type:     def.Type,
				Message:  msg,
				Fix:      fix,
			})
		}
	}

	sort.Slice(result.Suggestions, func(i, j int) bool {
		a, b := result.Suggestions[i], result.Suggestions[j]
		if severityRank[a.Severity] != severityRank[b.Severity] {
			return severityRank[a.Severity] > severityRank[b.Severity]
		}
		if a.Resource != b.Resource {
			return a.Resource < b.Resource
		}
		return a.Rule < b.Rule
	})
	result.Summary = calculateSummary(result.Suggestions)
	return result
}

// calculateSummary tallies suggestions by category.
func calculateSummary(suggestions []wetwire.AdviceSuggestion) wetwire.AdviceSummary {
	summary := wetwire.AdviceSummary{ByCategory: map[string]int{}}
	for _, s := range suggestions {
		summary.ByCategory[s.Category]++
		summary.Total++
	}
	return summary
}

// Rules returns every rule, sorted by ID.
func Rules() []Rule {
	var all []Rule
	for _, rules := range rulesByType {
		all = append(all, rules...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all
}

func rulesForType(resourceType string) []Rule {
	return rulesByType[resourceType]
}
