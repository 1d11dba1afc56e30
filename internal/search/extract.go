package search

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// MaxResumeText caps the extracted text stored per document.
const MaxResumeText = 64 * 1024

var ErrUnsupportedType = errors.New("unsupported resume type")

// ExtractText returns the plain text of a PDF or DOCX resume. Legacy .doc
// files are not readable and return ErrUnsupportedType.
func ExtractText(data []byte, contentType string) (string, error) {
	var (
		text string
		err  error
	)
	switch strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0])) {
	case mimePDF:
		text, err = extractPDF(data)
	case mimeDOCX:
		text, err = extractDOCX(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}
	if err != nil {
		return "", err
	}

	text = strings.Join(strings.Fields(text), " ")
	if len(text) > MaxResumeText {
		text = text[:MaxResumeText]
	}
	return text, nil
}

func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		defer rc.Close()
		return docxText(rc)
	}
	return "", errors.New("docx: word/document.xml not found")
}

func docxText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var buf strings.Builder
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("docx xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.Write(t)
		case xml.EndElement:
			if t.Name.Local == "p" || t.Name.Local == "br" {
				buf.WriteByte('\n')
			}
		}
	}
	return buf.String(), nil
}
