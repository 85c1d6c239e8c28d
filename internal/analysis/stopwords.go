package analysis

import "strings"

// stopwords is the default English stopword set used by the n-gram extractor
// and keyword selection.
var stopwords = buildSet(`
a about above after again against all also am an and any are as at
be because been before being below between both but by can could
did do does doing down during each few for from further had has have
having he her here hers herself him himself his how i if in into is it
its itself just me more most my myself no nor not now of off on once
only or other our ours ourselves out over own same she should so some
such than that the their theirs them themselves then there these they
this those through to too under until up very was we were what when
where which while who whom why will with would you your yours yourself
yourselves
`)

func buildSet(words string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(words) {
		set[w] = true
	}
	return set
}

// IsStopword reports whether the lowercased word is an English stopword.
func IsStopword(word string) bool {
	return stopwords[strings.ToLower(word)]
}
