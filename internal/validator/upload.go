package validator

import (
	"path/filepath"
	"strings"

	"github.com/SAP-F-2025/evaluation-service/internal/errors"
)

// UploadPolicy bounds what may be handed to the submission path.
type UploadPolicy struct {
	MaxBytes          int64
	AllowedExtensions []string
}

var DefaultAllowedExtensions = []string{
	".pdf", ".doc", ".docx", ".odt", ".txt", ".md",
	".zip", ".tar", ".gz",
	".go", ".py", ".java", ".c", ".cpp", ".js", ".ts", ".sql", ".ipynb",
}

// ValidateUpload rejects files that are too large or of a type outside the
// allow list.
func (p UploadPolicy) ValidateUpload(fileName string, size int64) error {
	if p.MaxBytes > 0 && size > p.MaxBytes {
		return errors.NewValidationErrorWithRule("files", "exceeds the maximum upload size", "upload_size", fileName)
	}
	if size <= 0 {
		return errors.NewValidationErrorWithRule("files", "is empty", "required", fileName)
	}

	allowed := p.AllowedExtensions
	if len(allowed) == 0 {
		allowed = DefaultAllowedExtensions
	}
	ext := strings.ToLower(filepath.Ext(fileName))
	for _, a := range allowed {
		if ext == strings.ToLower(a) {
			return nil
		}
	}
	return errors.NewValidationErrorWithRule("files", "has a file type that is not accepted", "upload_type", fileName)
}
