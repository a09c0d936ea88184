package metric

import (
	"regexp"
	"strings"
)

// Classifier decides whether an expression is a single re-aggregatable
// aggregate call, and which one.
type Classifier interface {
	// Match returns the aggregate keyword in upper case.
	Match(expression string) (keyword string, ok bool)
}

// ClassifierFunc adapts a plain function to the Classifier interface.
type ClassifierFunc func(string) (string, bool)

// Match calls f(expression).
func (f ClassifierFunc) Match(expression string) (string, bool) {
	return f(expression)
}

// aggregatePattern matches one recognized aggregate whose argument list
// runs to the end of the string. It cannot check that the parentheses
// balance, so "SUM(a) + MAX(b)" still matches.
// TODO: replace with a parser over the SQL expression grammar so that
// "SUM(a) + MAX(b)" is rejected.
var aggregatePattern = regexp.MustCompile(`^(?i)(sum|min|max|count)\(.*\)$`)

// AggregateClassifier is the default Classifier.
type AggregateClassifier struct{}

// Match implements Classifier.
func (AggregateClassifier) Match(expression string) (string, bool) {
	m := aggregatePattern.FindStringSubmatch(expression)
	if m == nil {
		return "", false
	}
	return strings.ToUpper(m[1]), true
}
