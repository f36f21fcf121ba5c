package oracle

import (
	_ "embed"
	"os"
	"strings"
	"text/template"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"github.com/trezcool/kazi/core/submission"
)

//go:embed prompts.toml
var defaultPrompts []byte

type promptsFile struct {
	Grading struct {
		Prompt string `toml:"prompt"`
	} `toml:"grading"`
	Trend struct {
		Prompt     string `toml:"prompt"`
		Entry      string `toml:"entry"`
		DateLayout string `toml:"date_layout"`
	} `toml:"trend"`
}

// Prompts holds the parsed prompt templates.
type Prompts struct {
	grading    *template.Template
	trend      *template.Template
	trendEntry *template.Template
	dateLayout string
}

type gradingData struct {
	Description string
	Content     string
}

type trendData struct {
	ClassName string
	Grades    string
}

type trendEntryData struct {
	SubmittedAt     string
	AssignmentTitle string
	Grade           int
}

// LoadPrompts parses the prompts file at path, or the embedded prompts when path is empty.
func LoadPrompts(path string) (*Prompts, error) {
	raw := defaultPrompts
	if path != "" {
		var err error
		if raw, err = os.ReadFile(path); err != nil {
			return nil, errors.Wrap(err, "reading prompts file")
		}
	}
	return parsePrompts(raw)
}

func parsePrompts(raw []byte) (*Prompts, error) {
	var pf promptsFile
	if err := toml.Unmarshal(raw, &pf); err != nil {
		return nil, errors.Wrap(err, "decoding prompts")
	}

	p := &Prompts{dateLayout: pf.Trend.DateLayout}
	if p.dateLayout == "" {
		p.dateLayout = "2006-01-02 15:04:05"
	}
	var err error
	if p.grading, err = parseTemplate("grading", pf.Grading.Prompt); err != nil {
		return nil, err
	}
	if p.trend, err = parseTemplate("trend", pf.Trend.Prompt); err != nil {
		return nil, err
	}
	if p.trendEntry, err = parseTemplate("trend entry", pf.Trend.Entry); err != nil {
		return nil, err
	}
	return p, nil
}

func parseTemplate(name, text string) (*template.Template, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.Errorf("%s prompt is missing", name)
	}
	tmpl, err := template.New(name).Parse(text)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s prompt", name)
	}
	return tmpl, nil
}

func execute(tmpl *template.Template, data interface{}) (string, error) {
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", errors.Wrapf(err, "rendering %s prompt", tmpl.Name())
	}
	return sb.String(), nil
}

// GradingPrompt embeds both inputs verbatim.
func (p *Prompts) GradingPrompt(description, content string) (string, error) {
	return execute(p.grading, gradingData{Description: description, Content: content})
}

// TrendPrompt expects points in chronological order.
func (p *Prompts) TrendPrompt(className string, points []submission.TrendPoint) (string, error) {
	entries := make([]string, 0, len(points))
	for _, pt := range points {
		entry, err := execute(p.trendEntry, trendEntryData{
			SubmittedAt:     pt.SubmittedAt.Format(p.dateLayout),
			AssignmentTitle: pt.AssignmentTitle,
			Grade:           pt.Grade,
		})
		if err != nil {
			return "", err
		}
		entries = append(entries, entry)
	}
	return execute(p.trend, trendData{ClassName: className, Grades: strings.Join(entries, ", ")})
}
