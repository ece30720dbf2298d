// Package querygen turns news feed items into plausible search queries. The
// queries seed the session random engine and give scenarios something a
// human would actually search for.
package querygen

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Item is a single parsed feed entry.
type Item struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

// Evaluator derives a search query from an item. An empty result discards the item.
type Evaluator interface {
	Evaluate(item Item) string
}

// EvaluatorFunc adapts a function to Evaluator.
type EvaluatorFunc func(item Item) string

// Evaluate calls f(item).
func (f EvaluatorFunc) Evaluate(item Item) string {
	return f(item)
}

// Normal returns the lower-cased title.
var Normal = EvaluatorFunc(func(item Item) string {
	return strings.ToLower(item.Title)
})

// Headline extracts a query from a news article by matching the words of its
// URL slug back to the headline. Words that start with a capital letter in
// the headline (nouns, names) are kept, as are the first two slug words when
// longer than two characters. At most four words are used.
var Headline = EvaluatorFunc(evaluateHeadline)

const maxHeadlineWords = 4

// umlauts restores the first transliterated umlaut of each kind in the slug.
var umlauts = [][2]string{{"ue", "ü"}, {"ae", "ä"}, {"oe", "ö"}}

func evaluateHeadline(item Item) string {
	slug := item.Link
	if i := strings.LastIndex(slug, "/"); i >= 0 {
		slug = slug[i+1:]
	}
	for _, u := range umlauts {
		slug = strings.Replace(slug, u[0], u[1], 1)
	}

	title := []rune(item.Title)
	lower := make([]rune, len(title))
	for i, r := range title {
		lower[i] = unicode.ToLower(r)
	}
	lowerTitle := string(lower)

	var words []string
	for i, word := range strings.Split(slug, "-") {
		if word == "" || containsWord(words, word) {
			continue
		}
		pos := strings.Index(lowerTitle, word)
		if pos < 0 {
			continue
		}
		first, _ := utf8.DecodeRuneInString(word)
		titleChar := title[utf8.RuneCountInString(lowerTitle[:pos])]
		n := utf8.RuneCountInString(word)

		if (titleChar != first && n > 1) || (i < 2 && n > 2) {
			if len(words) >= maxHeadlineWords {
				break
			}
			words = append(words, word)
		}
	}
	return strings.Join(words, " ")
}

// containsWord reports whether word already occurs in the query built so far.
func containsWord(words []string, word string) bool {
	return strings.Contains(strings.Join(words, " "), word)
}
