package utils

import (
	"mime"
	"path/filepath"
	"strings"
)

// DetectContentType guesses the object content type from the file extension.
func DetectContentType(key string) string {
	switch strings.ToLower(filepath.Ext(key)) {
	case ".csv":
		return "text/csv; charset=utf-8"
	case ".parquet":
		return "application/vnd.apache.parquet"
	case ".db", ".sqlite":
		return "application/vnd.sqlite3"
	}
	if mimeType := mime.TypeByExtension(filepath.Ext(key)); mimeType != "" {
		return mimeType
	}
	return "application/octet-stream"
}
