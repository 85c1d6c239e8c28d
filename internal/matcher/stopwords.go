package matcher

// domainStopwords are generic technical and note-taking terms that make poor
// anchors regardless of TF-IDF weight. Tier-4 keyword matching skips them.
var domainStopwords = buildSet(
	"note", "notes", "document", "documents", "file", "files", "page", "pages",
	"section", "sections", "chapter", "item", "items", "list", "lists",
	"topic", "topics", "idea", "ideas", "thought", "thoughts", "draft",
	"summary", "overview", "introduction", "conclusion", "reference",
	"references", "example", "examples", "detail", "details", "content",
	"info", "information", "data", "system", "systems",
	"process", "processes", "project", "projects", "task", "tasks", "work",
	"time", "type", "types", "kind", "part", "parts", "thing", "things",
	"way", "ways", "case", "cases", "point", "points", "issue", "issues",
	"problem", "problems", "question", "questions", "answer", "answers",
	"method", "methods", "approach", "result", "results", "value", "values",
	"code", "function", "functions", "class", "classes", "object", "objects",
	"variable", "variables", "config", "setting", "settings", "option",
	"options", "default", "version", "update", "updates", "change", "changes",
	"user", "users", "name", "names", "term", "terms", "word", "words",
	"text", "link", "links", "tag", "tags", "meeting", "meetings", "daily",
	"weekly", "today", "tomorrow", "yesterday",
)

func buildSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// IsDomainStopword reports whether a normalized keyword is too generic to
// serve as an anchor.
func IsDomainStopword(word string) bool {
	return domainStopwords[word]
}
