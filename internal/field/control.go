package field

import (
	"context"
	"errors"
	"io"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/parisxmas/OxiDB/OxiPortal/internal/errs"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/schema"
)

// Endpoint selects the upload route.
type Endpoint string

const (
	EndpointMedia Endpoint = "media"
	EndpointFile  Endpoint = "file"
)

// Uploader stores a file and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, endpoint Endpoint, filename string, r io.Reader) (string, error)
}

var (
	ErrReadOnly      = errors.New("field is read-only")
	ErrUploadBusy    = errors.New("an upload is already in progress")
	ErrNotUploadable = errors.New("field does not accept uploads")
	ErrNoUploader    = errors.New("no uploader configured")
)

// Control is a rendered field: its kind, current value and change
// callback. Only upload controls perform I/O.
type Control struct {
	Field    *schema.Field
	Kind     Kind
	Required bool
	// Err is the validation message shown next to the control.
	Err string

	onChange func(any)
	uploader Uploader

	mu        sync.Mutex
	value     any
	uploadErr string
	uploading atomic.Bool
}

// Render resolves f and binds value and onChange. onChange may be nil.
func Render(f *schema.Field, value any, onChange func(any)) *Control {
	return &Control{
		Field:    f,
		Kind:     Resolve(f),
		value:    value,
		onChange: onChange,
	}
}

// WithUploader sets the uploader used by upload controls.
func (c *Control) WithUploader(u Uploader) *Control {
	c.uploader = u
	return c
}

func (c *Control) Value() any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Text is the value as the input shows it.
func (c *Control) Text() string {
	return Decode(c.Field, c.Value())
}

// Set encodes raw input and emits the result through onChange.
func (c *Control) Set(raw string) error {
	if c.Kind == KindReadOnly {
		return ErrReadOnly
	}
	v, err := Encode(c.Field, raw)
	if err != nil {
		return err
	}
	c.emit(v)
	return nil
}

// Toggle sets a checkbox or flag control.
func (c *Control) Toggle(on bool) error {
	switch c.Kind {
	case KindCheckbox:
		c.emit(toggleValue(c.Field, on))
	case KindFlag:
		c.emit(boolToInt(on))
	default:
		return errors.New("field is not a toggle")
	}
	return nil
}

// Clear empties an upload control.
func (c *Control) Clear() error {
	if c.Kind != KindUpload {
		return ErrNotUploadable
	}
	c.mu.Lock()
	c.uploadErr = ""
	c.mu.Unlock()
	c.emit("")
	return nil
}

func (c *Control) emit(v any) {
	c.mu.Lock()
	c.value = v
	c.mu.Unlock()
	if c.onChange != nil {
		c.onChange(v)
	}
}

// Endpoint is the upload route for this control.
func (c *Control) Endpoint() Endpoint {
	if IsMedia(c.Field) {
		return EndpointMedia
	}
	return EndpointFile
}

// Uploading reports whether an upload is in flight.
func (c *Control) Uploading() bool {
	return c.uploading.Load()
}

// UploadError is the message of the last failed upload.
func (c *Control) UploadError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.uploadErr
}

// Upload sends r and, on success, sets the value to the returned URL. A
// failure is kept as the inline upload error and the value is unchanged.
// Only one upload per control may be in flight.
func (c *Control) Upload(ctx context.Context, filename string, r io.Reader) error {
	if c.Kind != KindUpload {
		return ErrNotUploadable
	}
	if c.uploader == nil {
		return errs.Upload(c.Field.Name, ErrNoUploader)
	}
	if !c.uploading.CompareAndSwap(false, true) {
		return ErrUploadBusy
	}
	defer c.uploading.Store(false)

	url, err := c.uploader.Upload(ctx, c.Endpoint(), filename, r)
	if err != nil {
		c.mu.Lock()
		c.uploadErr = err.Error()
		c.mu.Unlock()
		return errs.Upload(c.Field.Name, err)
	}
	c.mu.Lock()
	c.uploadErr = ""
	c.mu.Unlock()
	c.emit(url)
	return nil
}

// Select starts Upload in the background and reports its result on the
// returned channel.
func (c *Control) Select(ctx context.Context, filename string, r io.Reader) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- c.Upload(ctx, filename, r)
	}()
	return done
}

// toggleValue stores a checkbox in its column's base type.
func toggleValue(f *schema.Field, on bool) any {
	switch f.BaseType() {
	case schema.TypeInteger:
		return boolToInt(on)
	case schema.TypeNumber:
		return float64(boolToInt(on))
	case schema.TypeString:
		return strconv.FormatBool(on)
	}
	return on
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
