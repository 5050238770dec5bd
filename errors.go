package sea

import "errors"

// Sentinel errors returned by Encode/Decode and the streaming API. Every
// codec error this package returns satisfies errors.Is against exactly one
// of these; extra context is added by wrapping with fmt.Errorf("...: %w", err),
// never by inventing a new sentinel. Errors from the underlying reader,
// writer or file system, filecache errors from FileReader.Chunk, and the
// error WriteFrame returns after Close are returned without a sentinel.
var (
	ErrBadMagic           = errors.New("sea: bad magic")
	ErrUnsupportedVersion = errors.New("sea: unsupported version")
	ErrBadReserved        = errors.New("sea: bad reserved byte")
	ErrBadChunkType       = errors.New("sea: bad chunk type")
	ErrTruncated          = errors.New("sea: truncated input")
	ErrBadMetadata        = errors.New("sea: invalid metadata")
	ErrParamOutOfRange    = errors.New("sea: parameter out of range")
	ErrEncodeOverflow     = errors.New("sea: encoded chunk exceeds chunk size")
)

// DecodeError wraps a decode failure together with whatever PCM the decoder
// had already produced before hitting it, per the fail-fast policy: the
// first invalid chunk stops decoding but does not discard prior progress.
type DecodeError struct {
	Err     error
	Partial *Result
}

func (e *DecodeError) Error() string {
	return e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
