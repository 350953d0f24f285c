package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

// 作业附件允许的类型
const (
	MimePDF         = "application/pdf"
	MimeZip         = "application/zip"
	MimeOctetStream = "application/octet-stream"
	MaxUploadBytes  = 20 << 20
)

var (
	AllowedAttachmentExtensions = []string{".pdf", ".zip", ".txt", ".md", ".png", ".jpg", ".jpeg", ".go", ".py", ".js", ".ts"}
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)
