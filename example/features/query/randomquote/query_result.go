package randomquote

import "fmt"

// Quote is the result of GetRandomQuote.
type Quote struct {
	Quote  string `json:"quote"`
	Author string `json:"author"`
}

// String renders the quote the way the CLI prints it.
func (q Quote) String() string {
	return fmt.Sprintf("\"%s\" – %s", q.Quote, q.Author)
}
