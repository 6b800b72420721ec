package httpapi

// defaultMaxUploadBytes bounds multipart uploads (16 MiB).
const defaultMaxUploadBytes int64 = 16 << 20

// maxUploadBytes controls the maximum accepted request body for upload endpoints.
var maxUploadBytes = defaultMaxUploadBytes

// SetMaxUploadBytes configures the upload limit. Non-positive restores the default.
func SetMaxUploadBytes(n int64) {
	if n <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
		return
	}
	maxUploadBytes = n
}

// maxBatchImages bounds /analyze-batch. Zero means unlimited.
var maxBatchImages = 0

// SetMaxBatchImages sets the per-request image limit for batches (0 disables).
func SetMaxBatchImages(n int) {
	if n < 0 {
		n = 0
	}
	maxBatchImages = n
}

// CORS configuration (opt-in). If disabled, no CORS middleware is added.
var (
	corsEnabled        bool
	corsAllowedOrigins []string
	corsAllowedMethods []string
	corsAllowedHeaders []string
)

// SetCORSOptions configures CORS behavior for the HTTP server.
func SetCORSOptions(enabled bool, origins, methods, headers []string) {
	corsEnabled = enabled
	corsAllowedOrigins = append([]string(nil), origins...)
	corsAllowedMethods = append([]string(nil), methods...)
	corsAllowedHeaders = append([]string(nil), headers...)
}
