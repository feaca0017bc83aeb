package playback

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Errors
var (
	ErrAlreadyCreated  = errors.New("screen already created")
	ErrNotCreated      = errors.New("screen not created")
	ErrReleased        = errors.New("session released")
	ErrIndexOutOfRange = errors.New("playlist index out of range")
)

// Engine error codes, grouped the way the engine reports them.
const (
	ErrorCodeUnspecified                 = 1000
	ErrorCodeRemoteError                 = 1001
	ErrorCodeIOUnspecified               = 2000
	ErrorCodeIOFileNotFound              = 2005
	ErrorCodeIONoPermission              = 2006
	ErrorCodeParsingContainerMalformed   = 3001
	ErrorCodeParsingContainerUnsupported = 3003
	ErrorCodeDecoderInitFailed           = 4001
	ErrorCodeDecodingFailed              = 4003
)

var errorCodeNames = map[int]string{
	ErrorCodeUnspecified:                 "ERROR_CODE_UNSPECIFIED",
	ErrorCodeRemoteError:                 "ERROR_CODE_REMOTE_ERROR",
	ErrorCodeIOUnspecified:               "ERROR_CODE_IO_UNSPECIFIED",
	ErrorCodeIOFileNotFound:              "ERROR_CODE_IO_FILE_NOT_FOUND",
	ErrorCodeIONoPermission:              "ERROR_CODE_IO_NO_PERMISSION",
	ErrorCodeParsingContainerMalformed:   "ERROR_CODE_PARSING_CONTAINER_MALFORMED",
	ErrorCodeParsingContainerUnsupported: "ERROR_CODE_PARSING_CONTAINER_UNSUPPORTED",
	ErrorCodeDecoderInitFailed:           "ERROR_CODE_DECODER_INIT_FAILED",
	ErrorCodeDecodingFailed:              "ERROR_CODE_DECODING_FAILED",
}

// ErrorCodeName returns the symbolic name of an engine error code.
func ErrorCodeName(code int) string {
	if name, ok := errorCodeNames[code]; ok {
		return name
	}
	return fmt.Sprintf("custom error code %d", code)
}

// EngineError is a playback failure reported by the engine.
type EngineError struct {
	Code    int
	Message string
}

// NewEngineError creates an engine error with the given code.
func NewEngineError(code int, message string) *EngineError {
	return &EngineError{Code: code, Message: message}
}

// CodeName returns the symbolic name of the error code.
func (e *EngineError) CodeName() string {
	return ErrorCodeName(e.Code)
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %s", e.CodeName(), e.Message)
}
