package service

import "errors"

// Request-caused failures surface as 4xx; the API layer maps each sentinel to
// a status and an error code.
var (
	ErrMissingField            = errors.New("missing required field")
	ErrInvalidField            = errors.New("invalid field")
	ErrNoFileUploaded          = errors.New("no file uploaded")
	ErrEmptyFile               = errors.New("uploaded file is empty")
	ErrFileTooLarge            = errors.New("uploaded file exceeds the size limit")
	ErrUnsupportedFileType     = errors.New("only .jpg, .jpeg and .png images are accepted")
	ErrUserNotFound            = errors.New("user not found")
	ErrInsufficientCredits     = errors.New("insufficient credits")
	ErrSignatureMismatch       = errors.New("payment signature mismatch")
	ErrImageProcessingFailed   = errors.New("image processing failed")
	ErrVisionAnalysisRefused   = errors.New("could not analyze image")
	ErrIncompatibleImageFormat = errors.New("incompatible image format")
)

// Provider-side failures surface as 5xx.
var (
	ErrGenerationFailed          = errors.New("image generation failed")
	ErrMalformedUpstreamResponse = errors.New("malformed response from image provider")
	ErrAIUnavailable             = errors.New("image generation is not configured")
)

// ErrorCode names the failure for API bodies and metrics. Anything not
// recognised is "Unknown".
func ErrorCode(err error) string {
	code, _ := Classify(err)
	return code
}

// Classify returns the code and the sentinel that err wraps, or "Unknown"
// and nil.
func Classify(err error) (string, error) {
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return c.code, c.err
		}
	}
	return "Unknown", nil
}

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrMissingField, "MissingField"},
	{ErrInvalidField, "InvalidField"},
	{ErrNoFileUploaded, "NoFileUploaded"},
	{ErrEmptyFile, "EmptyFile"},
	{ErrFileTooLarge, "FileTooLarge"},
	{ErrUnsupportedFileType, "UnsupportedFileType"},
	{ErrUserNotFound, "UserNotFound"},
	{ErrInsufficientCredits, "InsufficientCredits"},
	{ErrSignatureMismatch, "SignatureMismatch"},
	{ErrImageProcessingFailed, "ImageProcessingFailed"},
	{ErrVisionAnalysisRefused, "VisionAnalysisRefused"},
	{ErrIncompatibleImageFormat, "IncompatibleImageFormat"},
	{ErrAIUnavailable, "AIUnavailable"},
	{ErrMalformedUpstreamResponse, "MalformedUpstreamResponse"},
	{ErrGenerationFailed, "GenerationFailed"},
}
