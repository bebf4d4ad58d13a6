// Package news fetches the two article lists that appear in the report.
package news

import (
	"strings"
)

// Query is a keyword search: every group must match, and a group matches
// when any of its terms does.
type Query struct {
	// Name labels the query in logs and metrics.
	Name string

	// Groups are ANDed; the terms of one group are ORed.
	Groups [][]string

	// PageSize caps the number of articles returned.
	PageSize int

	// Language is an ISO-639-1 code.
	Language string
}

// CryptoQuery selects general cryptocurrency news.
func CryptoQuery() Query {
	return Query{
		Name:     "crypto",
		Groups:   [][]string{{"cryptocurrency", "bitcoin", "ethereum"}},
		PageSize: 10,
		Language: "en",
	}
}

// PolicyQuery selects news about crypto regulation and government policy.
func PolicyQuery() Query {
	return Query{
		Name: "policy",
		Groups: [][]string{
			{"regulation", "policy", "government"},
			{"cryptocurrency", "bitcoin", "crypto"},
		},
		PageSize: 5,
		Language: "en",
	}
}

// String renders the query in NewsAPI boolean syntax, e.g.
// "(regulation OR policy) AND (bitcoin OR crypto)".
// A single group is rendered without parentheses.
func (q Query) String() string {
	groups := make([]string, 0, len(q.Groups))
	for _, g := range q.Groups {
		if len(g) == 0 {
			continue
		}
		groups = append(groups, strings.Join(g, " OR "))
	}

	if len(groups) == 1 {
		return groups[0]
	}
	for i, g := range groups {
		groups[i] = "(" + g + ")"
	}
	return strings.Join(groups, " AND ")
}

// Matches reports whether text satisfies the query, case-insensitively.
// A query without terms matches everything.
func (q Query) Matches(text string) bool {
	text = strings.ToLower(text)
	for _, group := range q.Groups {
		if len(group) == 0 {
			continue
		}
		matched := false
		for _, term := range group {
			if strings.Contains(text, strings.ToLower(term)) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}
