// Package dates turns natural-language due dates ("tomorrow 5pm",
// "next friday") into due values for optimistic patches. The server parses
// the same string again and its result replaces the local guess once the
// command is confirmed.
package dates

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/mschirtzinger/todosync/internal/schema"
)

// ErrNoDate is returned when the text contains no recognizable date.
var ErrNoDate = errors.New("no date found")

// Parser parses English date expressions.
type Parser struct {
	w   *when.Parser
	loc *time.Location
}

// NewParser returns a parser resolving dates in loc (time.Local if nil).
func NewParser(loc *time.Location) *Parser {
	if loc == nil {
		loc = time.Local
	}
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &Parser{w: w, loc: loc}
}

// Parse resolves text relative to now. Expressions that name a time of day
// yield a floating date-time due ("2024-01-11T17:00:00"); the others a
// date-only due. String keeps the original text and Lang is "en".
func (p *Parser) Parse(text string, now time.Time) (*schema.Due, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrNoDate
	}

	// Parse against midnight: a result still at midnight carried no time.
	y, m, d := now.In(p.loc).Date()
	base := time.Date(y, m, d, 0, 0, 0, 0, p.loc)

	r, err := p.w.Parse(text, base)
	if err != nil {
		return nil, fmt.Errorf("failed to parse date %q: %w", text, err)
	}
	if r == nil {
		return nil, fmt.Errorf("%q: %w", text, ErrNoDate)
	}

	t := r.Time.In(p.loc)
	due := &schema.Due{String: text, Lang: "en"}
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		due.Date = t.Format(schema.DateLayout)
	} else {
		due.Date = t.Format("2006-01-02T15:04:05")
	}
	return due, nil
}

// Fields returns the due date as patch fields.
func Fields(due *schema.Due) schema.Fields {
	if due == nil {
		return schema.Fields{"due": nil}
	}
	return schema.Fields{"due": map[string]any{
		"date":   due.Date,
		"string": due.String,
		"lang":   due.Lang,
	}}
}
