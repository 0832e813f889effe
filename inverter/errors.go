package inverter

// DecodeError reports that the source image could not be opened or decoded.
// A missing source file satisfies errors.Is(err, fs.ErrNotExist).
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string { return "decode " + e.Path + ": " + e.Err.Error() }

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError reports that the destination image could not be written.
// No destination file is left behind when it is returned.
type EncodeError struct {
	Path string
	Err  error
}

func (e *EncodeError) Error() string { return "encode " + e.Path + ": " + e.Err.Error() }

func (e *EncodeError) Unwrap() error { return e.Err }

// InvertError reports that a decoded image could not be transformed.
// It signals a broken internal invariant rather than bad input.
type InvertError struct {
	Err error
}

func (e *InvertError) Error() string { return "invert: " + e.Err.Error() }

func (e *InvertError) Unwrap() error { return e.Err }
