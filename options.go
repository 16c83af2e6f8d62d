package bufcursor

import "log/slog"

// Options configure a BufferCursor.
type Options struct {
	// MaxKeySize is the capacity of the key scratch buffer. Composed keys
	// never grow past it.
	MaxKeySize int

	// InitialValueSize is the starting capacity of the value scratch
	// buffer, which doubles on demand.
	InitialValueSize int

	// Direct allocates both scratch buffers in anonymous memory mappings.
	Direct bool

	// RequireDirect makes NewWithBuffers reject heap scratch buffers and
	// implies Direct for New.
	RequireDirect bool

	// Logger receives debug records for side transitions and buffer
	// growth. Nil discards them unless SetDebugLog is on.
	Logger *slog.Logger
}

// DefaultOptions returns the options New uses when given nil.
func DefaultOptions() *Options {
	return &Options{
		MaxKeySize:       MaxKeySize,
		InitialValueSize: DefaultValueSize,
	}
}

// Validate checks the size settings.
func (o *Options) Validate() error {
	if o.MaxKeySize <= 0 || int64(o.MaxKeySize) > MaxScratchSize {
		return errorf(ErrInvalidArgument, "max key size %d out of range (0, %d]", o.MaxKeySize, MaxScratchSize)
	}
	if o.InitialValueSize < 0 || int64(o.InitialValueSize) > MaxScratchSize {
		return errorf(ErrInvalidArgument, "initial value size %d out of range [0, %d]", o.InitialValueSize, MaxScratchSize)
	}
	return nil
}

func (o *Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return defaultLogger()
}
