package document

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFileType is returned for any file that is not a PDF or DOCX.
var ErrUnsupportedFileType = errors.New("unsupported file type: only PDF and DOCX files are supported")

// Kind identifies a supported document format.
type Kind int

const (
	PDF Kind = iota + 1
	DOCX
)

func (k Kind) String() string {
	switch k {
	case PDF:
		return "pdf"
	case DOCX:
		return "docx"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// KindFromPath resolves the document kind from the file extension, ignoring case.
func KindFromPath(path string) (Kind, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return PDF, nil
	case ".docx":
		return DOCX, nil
	default:
		return 0, fmt.Errorf("%w (got %q)", ErrUnsupportedFileType, filepath.Ext(path))
	}
}

// Document is a stored upload with its extracted text.
type Document struct {
	Name string
	Kind Kind
	Text string
}
