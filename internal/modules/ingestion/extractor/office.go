package extractor

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/sanskar-502/Bajaj-Cloud/internal/domain"
)

func extractDOCX(path string) (*Result, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open docx: %v", domain.ErrExtractionFailed, err)
	}
	defer zr.Close()

	raw, err := readZipEntry(&zr.Reader, "word/document.xml")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExtractionFailed, err)
	}
	paras, err := docxParagraphs(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: parse docx: %v", domain.ErrExtractionFailed, err)
	}
	return &Result{Text: strings.Join(paras, "\n")}, nil
}

// docxParagraphs returns the non-empty body-level paragraphs of word/document.xml.
func docxParagraphs(raw []byte) ([]string, error) {
	dec := xml.NewDecoder(strings.NewReader(string(raw)))
	var (
		stack []string
		cur   strings.Builder
		inT   bool
		out   []string
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			name := t.Name.Local
			parent := last(stack)
			stack = append(stack, name)
			switch {
			case name == "p" && parent == "body":
				cur.Reset()
			case name == "t":
				inT = true
			case name == "tab" && inBodyParagraph(stack):
				cur.WriteString("\t")
			case (name == "br" || name == "cr") && inBodyParagraph(stack):
				cur.WriteString("\n")
			}
		case xml.EndElement:
			name := t.Name.Local
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			switch {
			case name == "t":
				inT = false
			case name == "p" && last(stack) == "body":
				if s := cur.String(); strings.TrimSpace(s) != "" {
					out = append(out, s)
				}
			}
		case xml.CharData:
			if inT && inBodyParagraph(stack) {
				cur.Write(t)
			}
		}
	}
	return out, nil
}

func inBodyParagraph(stack []string) bool {
	for i := 1; i < len(stack); i++ {
		if stack[i] == "p" && stack[i-1] == "body" {
			return true
		}
	}
	return false
}

var slideNameRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

func extractPPTX(path string) (*Result, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open pptx: %v", domain.ErrExtractionFailed, err)
	}
	defer zr.Close()

	type slide struct {
		n    int
		file *zip.File
	}
	var slides []slide
	for _, f := range zr.File {
		m := slideNameRe.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		slides = append(slides, slide{n: n, file: f})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].n < slides[j].n })

	var texts []string
	for _, s := range slides {
		raw, err := readZipFile(s.file)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrExtractionFailed, err)
		}
		shapes, err := slideShapeTexts(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: parse slide %d: %v", domain.ErrExtractionFailed, s.n, err)
		}
		texts = append(texts, shapes...)
	}
	return &Result{Text: strings.Join(texts, "\n"), PageCount: intPtr(len(slides))}, nil
}

// slideShapeTexts returns the non-empty text of each top-level shape on a slide.
// A shape's paragraphs are joined with "\n".
func slideShapeTexts(raw []byte) ([]string, error) {
	dec := xml.NewDecoder(strings.NewReader(string(raw)))
	var (
		stack   []string
		inShape bool
		inT     bool
		paras   []string
		para    strings.Builder
		out     []string
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			name := t.Name.Local
			parent := last(stack)
			stack = append(stack, name)
			switch {
			case name == "sp" && parent == "spTree":
				inShape = true
				paras = paras[:0]
			case name == "p" && inShape:
				para.Reset()
			case name == "t" && inShape:
				inT = true
			case name == "br" && inShape:
				para.WriteString("\v")
			}
		case xml.EndElement:
			name := t.Name.Local
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			switch {
			case name == "t":
				inT = false
			case name == "p" && inShape:
				paras = append(paras, para.String())
			case name == "sp" && inShape && last(stack) == "spTree":
				inShape = false
				if s := strings.Join(paras, "\n"); s != "" {
					out = append(out, s)
				}
			}
		case xml.CharData:
			if inT {
				para.Write(t)
			}
		}
	}
	return out, nil
}

func readZipEntry(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name == name {
			return readZipFile(f)
		}
	}
	return nil, fmt.Errorf("missing %s", name)
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func last(stack []string) string {
	if len(stack) == 0 {
		return ""
	}
	return stack[len(stack)-1]
}
