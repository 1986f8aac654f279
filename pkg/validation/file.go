package validation

import (
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	apperrors "petro-planning/pkg/errors"
)

const workbookMimeType = "application/zip"

// ValidateWorkbook проверяет размер, расширение и сигнатуру загруженной
// книги .xlsx. После проверки курсор возвращается в начало файла.
func ValidateWorkbook(fileHeader *multipart.FileHeader, file io.ReadSeeker, maxSizeMB int64) error {
	if maxSizeMB > 0 {
		maxSizeBytes := maxSizeMB * 1024 * 1024
		if fileHeader.Size > maxSizeBytes {
			return apperrors.NewValidationError("размер файла (%.2f MB) превышает лимит в %d MB",
				float64(fileHeader.Size)/1024/1024, maxSizeMB)
		}
	}

	if ext := strings.ToLower(filepath.Ext(fileHeader.Filename)); ext != ".xlsx" {
		return apperrors.NewValidationError("ожидается файл .xlsx, получен '%s'", fileHeader.Filename)
	}

	// Сигнатура: .xlsx - это zip-архив
	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return apperrors.NewValidationError("ошибка чтения файла")
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return apperrors.NewValidationError("ошибка обработки файла")
	}

	if mimeType := http.DetectContentType(buffer[:n]); mimeType != workbookMimeType {
		return apperrors.NewValidationError("недопустимый формат файла: %s", mimeType)
	}
	return nil
}
