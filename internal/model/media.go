package model

const (
	MaxImageSizeBytes = 5 * 1024 * 1024
	ImageCacheControl = "public, max-age=31536000"
	ImageExt          = ".jpg"

	ProfilePhotoFolder = "profiles"
	ProfilePhotoWidth  = 200
	ProfilePhotoHeight = 200

	TicketImageFolder    = "tickets"
	TicketImageMaxWidth  = 800
	TicketImageMaxHeight = 800
)

// Supported image content types for upload validation
const (
	ContentTypeJPEG = "image/jpeg"
	ContentTypePNG  = "image/png"
	ContentTypeGIF  = "image/gif"
	ContentTypeWebP = "image/webp"
)

var allowedImageTypes = map[string]struct{}{
	ContentTypeJPEG: {},
	ContentTypePNG:  {},
	ContentTypeGIF:  {},
	ContentTypeWebP: {},
}

// Error codes for HTTP responses
const (
	CodeFileTooLarge     = "FILE_TOO_LARGE"
	CodeInvalidImageType = "INVALID_IMAGE_TYPE"
	CodeUploadsDisabled  = "UPLOADS_DISABLED"
)

var (
	ErrFileTooLarge     = kind(ErrInvalidInput, "file too large")
	ErrInvalidImageType = kind(ErrInvalidInput, "invalid image type")
	ErrUploadsDisabled  = kind(ErrInvalidInput, "image uploads are not configured")
)

// UploadResult is where a stored object lives: URL is public, Key is the
// bucket key used to delete it later.
type UploadResult struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// IsAllowedImageType reports if the provided content type is supported
func IsAllowedImageType(contentType string) bool {
	_, ok := allowedImageTypes[contentType]
	return ok
}
