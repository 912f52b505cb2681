// Package corpus defines the labelled document record and the sources that
// load them: the course XML collection format and in-memory slices.
package corpus

// Document is one labelled record of the collection. ID is the ordinal
// assigned when the source is loaded and is stable for the run; records are
// never mutated after loading.
type Document struct {
	ID         int    `json:"id"`
	Title      string `json:"title"`
	Body       string `json:"body"`
	Query      string `json:"query"`
	Relevant   bool   `json:"relevant"`
	SearchTask int    `json:"search_task"`
}

// Field selects the text of a document that is indexed.
type Field string

const (
	FieldBody  Field = "body"
	FieldTitle Field = "title"
	FieldAll   Field = "all"
)

// Text returns the text of field f.
func (d Document) Text(f Field) string {
	switch f {
	case FieldTitle:
		return d.Title
	case FieldAll:
		return d.Title + " " + d.Body
	default:
		return d.Body
	}
}
