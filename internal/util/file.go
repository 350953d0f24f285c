package util

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"
)

// DetectMimeType 读取文件头部探测 MIME 类型
func DetectMimeType(reader io.Reader) (string, error) {
	buffer := make([]byte, 512)
	n, err := reader.Read(buffer)
	if err != nil && err != io.EOF {
		return "", err
	}
	return http.DetectContentType(buffer[:n]), nil
}

// ValidateAttachment checks the extension against the allow list and rejects
// executables that only pretend to be text.
func ValidateAttachment(filename string, reader io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	allowed := false
	for _, e := range AllowedAttachmentExtensions {
		if e == ext {
			allowed = true
			break
		}
	}
	if !allowed {
		return "", Validationf("file type %q is not allowed", ext)
	}

	mimeType, err := DetectMimeType(reader)
	if err != nil {
		return "", err
	}
	if mimeType == "application/x-msdownload" || mimeType == "application/x-executable" {
		return mimeType, Validationf("file content %q is not allowed", mimeType)
	}
	return mimeType, nil
}
