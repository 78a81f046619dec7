package spacetraveling

import (
	"strings"

	"github.com/eringen/spacetraveling/richtext"
)

// WordsPerMinute is the reading speed behind ReadingTime.
const WordsPerMinute = 200

// WordCount counts whitespace-separated words in every section heading and
// body.
func WordCount(post PostDetail) int {
	words := 0
	for _, s := range post.Data.Content {
		words += len(strings.Fields(s.Heading))
		words += len(strings.Fields(richtext.AsText(s.Body)))
	}
	return words
}

// ReadingTime returns the estimated reading time in whole minutes, rounded up.
// A post without content takes 0 minutes.
func ReadingTime(post PostDetail) int {
	return (WordCount(post) + WordsPerMinute - 1) / WordsPerMinute
}
