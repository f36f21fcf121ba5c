package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pkg/errors"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/submission"
	"github.com/trezcool/kazi/services/metrics"
)

// Failure texts all start with failurePrefix so callers can tell them from file content.
const (
	failurePrefix = "[extraction failed] "

	MsgPDFFailed         = failurePrefix + "could not extract PDF content"
	MsgDOCXFailed        = failurePrefix + "could not extract DOCX content"
	MsgDOCFailed         = failurePrefix + "could not extract DOC content"
	MsgUnsupportedFormat = failurePrefix + "unsupported file format"
	MsgUnexpected        = failurePrefix + "unexpected error"
)

const documentXML = "word/document.xml"

// Extractor pulls plain text out of the documents attached to submissions.
type Extractor struct {
	logger core.Logger
}

var _ submission.ContentExtractor = (*Extractor)(nil)

func NewExtractor(logger core.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// IsFailure reports whether text is a failure text returned by Extract.
func (e *Extractor) IsFailure(text string) bool {
	return strings.HasPrefix(text, failurePrefix)
}

// Extract returns the trimmed text of the file at path, ext being its lowered extension without dot.
// It never fails: errors are logged and a failure text is returned instead.
func (e *Extractor) Extract(path, ext string) (text string) {
	defer func() {
		if r := recover(); r != nil { // malformed documents may panic the PDF reader
			e.logger.Error("extracting file content", errors.Errorf("panic: %v", r), map[string]interface{}{"path": path})
			text = MsgUnexpected
		}
		outcome := metrics.OutcomeOK
		if e.IsFailure(text) {
			outcome = metrics.OutcomeFailed
		}
		metrics.ExtractionsTotal.WithLabelValues(ext, outcome).Inc()
	}()

	var err error
	switch ext {
	case "pdf":
		if text, err = pdfText(path); err != nil {
			e.logger.Warn("extracting PDF content", err, map[string]interface{}{"path": path})
			return fmt.Sprintf("%s: %v", MsgPDFFailed, err)
		}
	case "docx":
		if text, err = docxText(path); err != nil {
			e.logger.Warn("extracting DOCX content", err, map[string]interface{}{"path": path})
			return fmt.Sprintf("%s: %v", MsgDOCXFailed, err)
		}
	case "doc":
		// only Word 2007+ documents saved with the legacy extension are supported
		if text, err = docxText(path); err != nil {
			e.logger.Warn("extracting DOC content", err, map[string]interface{}{"path": path})
			return fmt.Sprintf("%s: %v", MsgDOCFailed, err)
		}
	default:
		return fmt.Sprintf("%s: .%s", MsgUnsupportedFormat, ext)
	}
	return strings.TrimSpace(text)
}

func pdfText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "opening PDF")
	}
	defer func() { _ = f.Close() }()

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", errors.Wrapf(err, "reading page %d", i)
		}
		sb.WriteString(pageText)
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

func docxText(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", errors.Wrap(err, "opening document archive")
	}
	defer func() { _ = zr.Close() }()

	for _, f := range zr.File {
		if f.Name != documentXML {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", errors.Wrap(err, "opening document body")
		}
		defer func() { _ = rc.Close() }()
		return paragraphs(rc)
	}
	return "", errors.Errorf("%s not found", documentXML)
}

// paragraphs returns the text runs of a WordprocessingML body, one line per paragraph.
func paragraphs(r io.Reader) (string, error) {
	var (
		out    bytes.Buffer
		inText bool
		inTabs bool // tab stop definitions, not tabs
	)
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", errors.Wrap(err, "decoding document body")
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tabs":
				inTabs = true
			case "tab":
				if !inTabs {
					out.WriteByte('\t')
				}
			case "br", "cr":
				out.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "tabs":
				inTabs = false
			case "p":
				out.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				out.Write(t)
			}
		}
	}
	return out.String(), nil
}
