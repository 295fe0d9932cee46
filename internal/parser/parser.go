package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/readpace/internal/blocks"
)

// Options controls segmentation.
type Options struct {
	// HandleTables turns each table row into a paragraph of " | "-joined
	// cells. When false, tables and everything inside them are skipped.
	HandleTables bool
	// Sanitize runs raw HTML through an allow-list policy before parsing.
	// It only applies to front ends that read markup from bytes.
	Sanitize bool
}

// Parser converts raw document bytes into a block sequence.
type Parser interface {
	Parse(r io.Reader, opts Options) ([]blocks.Block, error)
}

// Format identifies a document type.
type Format string

const (
	FormatHTML     Format = "html"
	FormatMarkdown Format = "md"
	FormatText     Format = "txt"
	FormatCSV      Format = "csv"
	FormatDOCX     Format = "docx"
	FormatPDF      Format = "pdf"
)

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]Format{
	".html":     FormatHTML,
	".htm":      FormatHTML,
	".xhtml":    FormatHTML,
	".md":       FormatMarkdown,
	".markdown": FormatMarkdown,
	".txt":      FormatText,
	".csv":      FormatCSV,
	".docx":     FormatDOCX,
	".pdf":      FormatPDF,
}

// FormatForFile maps a filename to its format by extension.
func FormatForFile(filename string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	f, ok := SupportedExtensions[ext]
	if !ok {
		return "", fmt.Errorf("unsupported file extension: %s", ext)
	}
	return f, nil
}

// ForFormat returns the parser for a format. pdfFallback enables the
// pdftotext fallback for PDFs the Go reader cannot handle.
func ForFormat(format Format, pdfFallback bool) (Parser, error) {
	switch format {
	case FormatHTML:
		return &HTMLParser{}, nil
	case FormatMarkdown:
		return &MarkdownParser{}, nil
	case FormatText:
		return &TextParser{}, nil
	case FormatCSV:
		return &CSVParser{}, nil
	case FormatDOCX:
		return &DOCXParser{}, nil
	case FormatPDF:
		return &PDFParser{FallbackPdftotext: pdfFallback}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %q", format)
	}
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string) (Parser, error) {
	f, err := FormatForFile(filename)
	if err != nil {
		return nil, err
	}
	return ForFormat(f, false)
}
