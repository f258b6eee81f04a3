// Package template parses the semi-structured message templates and renders
// them with variable substitution and per-template date-format directives.
package template

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"
	"time"

	"nsa-scheduler/internal/common/errors"
	"nsa-scheduler/internal/common/logger"
)

// Kind selects which stored template document to render.
type Kind string

const (
	KindText  Kind = "text"
	KindEmail Kind = "email"
)

// Well-known substitution variable names.
const (
	VarCustomerFirstName = "_customer_firstname"
	VarCustomerLastName  = "_customer_lastname"
	VarDealerName        = "_dealer_name"
	VarApptDate          = "_appt_date"
	VarApptStartTime     = "_appt_start_time"
)

// Display patterns recognized in date_format directives. Any other pattern
// value falls back to a fixed ISO-like representation.
const (
	PatternLongDate = "EEEE, MMMM dd, yyyy"
	PatternClock12  = "hh:mm a"
)

// Var is one substitution variable. Order matters: substitution runs one
// ReplaceAll pass per variable over the whole remaining text, so a value that
// contains a later variable's name will be re-matched. That cascading
// behavior is intentional and must not be replaced by a single-pass tokenizer.
type Var struct {
	Name  string
	Value string
}

// Renderer holds the raw template text per kind. The raw text is re-parsed on
// every render so date-format directives are freshly interpreted per message.
type Renderer struct {
	raw    map[Kind]string
	logger logger.Logger
}

func NewRenderer(textRaw, emailRaw string, log logger.Logger) *Renderer {
	return &Renderer{
		raw: map[Kind]string{
			KindText:  textRaw,
			KindEmail: emailRaw,
		},
		logger: log,
	}
}

// LoadRenderer reads both template documents from disk.
func LoadRenderer(textPath, emailPath string, log logger.Logger) (*Renderer, error) {
	textRaw, err := os.ReadFile(textPath)
	if err != nil {
		return nil, fmt.Errorf("read text template %s: %w", textPath, err)
	}
	emailRaw, err := os.ReadFile(emailPath)
	if err != nil {
		return nil, fmt.Errorf("read email template %s: %w", emailPath, err)
	}
	return NewRenderer(string(textRaw), string(emailRaw), log), nil
}

// Render substitutes variables into the template of the given kind and
// returns the rendered subject (empty for text) and body. It never fails: a
// malformed template degrades to raw-body rendering.
func (r *Renderer) Render(kind Kind, vars []Var) (string, string) {
	doc := r.parse(kind)

	vars = applyDateFormats(vars, doc.dateFormats)

	subject := substitute(doc.subject, vars)
	body := substitute(doc.body, vars)

	// The email transport rejects bodies containing newlines.
	if kind == KindEmail {
		body = strings.ReplaceAll(body, "\n", "")
	}

	return subject, body
}

// directive pairs a symbolic variable name with its requested display pattern.
type directive struct {
	varName string
	pattern string
}

type parsedTemplate struct {
	subject     string
	body        string
	dateFormats []directive
}

type templateDoc struct {
	XMLName     xml.Name
	Subject     *string  `xml:"subject"`
	Body        *string  `xml:"body"`
	DateFormats []string `xml:"date_format"`
}

// parse interprets the raw text as markup. On malformed markup the entire raw
// text becomes the body with no subject and no directives.
func (r *Renderer) parse(kind Kind) parsedTemplate {
	raw := r.raw[kind]

	var doc templateDoc
	if err := xml.Unmarshal([]byte(strings.TrimSpace(raw)), &doc); err != nil {
		r.logger.Warn("template parse failed, using raw text as body", map[string]interface{}{
			"kind":  string(kind),
			"error": errors.NewTemplateParseFailedError(string(kind), err).Error(),
		})
		return parsedTemplate{body: raw}
	}

	out := parsedTemplate{}
	if doc.Subject != nil {
		out.subject = *doc.Subject
	}
	if doc.Body != nil {
		out.body = *doc.Body
	}
	for _, df := range doc.DateFormats {
		parts := strings.Split(df, "#")
		if len(parts) == 2 {
			out.dateFormats = append(out.dateFormats, directive{varName: parts[1], pattern: parts[0]})
		}
	}
	return out
}

// applyDateFormats rewrites the appointment date/time variable values
// according to the template's directives. If the raw values do not parse as
// "YYYY-MM-DD" and "HH:MM:SS" the originals are kept.
func applyDateFormats(vars []Var, directives []directive) []Var {
	if len(directives) == 0 {
		return vars
	}

	dateStr := lookup(vars, VarApptDate)
	timeStr := lookup(vars, VarApptStartTime)
	dt, err := time.Parse("2006-01-02 15:04:05", dateStr+" "+timeStr)
	if err != nil {
		return vars
	}

	formatted := make(map[string]string)
	for _, d := range directives {
		switch d.varName {
		case VarApptDate:
			if d.pattern == PatternLongDate {
				formatted[VarApptDate] = dt.Format("Monday, January 02, 2006")
			} else {
				formatted[VarApptDate] = dt.Format("2006-01-02")
			}
		case VarApptStartTime:
			if d.pattern == PatternClock12 {
				formatted[VarApptStartTime] = dt.Format("03:04 PM")
			} else {
				formatted[VarApptStartTime] = dt.Format("15:04:05")
			}
		}
	}

	out := make([]Var, len(vars))
	copy(out, vars)
	for i := range out {
		if v, ok := formatted[out[i].Name]; ok {
			out[i].Value = v
		}
	}
	return out
}

// substitute replaces every occurrence of every variable token, one full
// ReplaceAll pass per variable in list order.
func substitute(text string, vars []Var) string {
	for _, v := range vars {
		text = strings.ReplaceAll(text, v.Name, v.Value)
	}
	return text
}

func lookup(vars []Var, name string) string {
	for _, v := range vars {
		if v.Name == name {
			return v.Value
		}
	}
	return ""
}
