// Package codec provides the table-codec contract and format registry for
// frameset's pluggable table storage encodings.
//
// This package contains the public contract every format must implement.
// Concrete codec implementations live in pkg/codecs/ subdirectories and
// register themselves in their init() functions.
package codec

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/leapstack-labs/frameset/pkg/core"
)

// DataDir is the subdirectory of an entityset root that holds table files.
const DataDir = "data"

// Codec reads and writes a single entity table in one storage format.
// Implementations must be side-effect-free on their input: a codec that has
// to transform a table before writing works on a copy, never on the
// caller's record.
type Codec interface {
	// Format returns the format tag this codec is registered under.
	Format() string

	// Write stores tbl for entity entityID under root's data directory and
	// returns the loading info a reader needs to get it back. The returned
	// info carries location, format tag and params; the dtype map is
	// merged in by the manifest writer.
	Write(ctx context.Context, tbl *core.Table, root, entityID string, params map[string]any) (core.LoadingInfo, error)

	// Read loads the table back from root using the recorded loading info,
	// then re-casts every column to the dtype map recorded in the
	// manifest. The wire format's own type inference is never trusted over
	// the manifest's recorded truth.
	Read(ctx context.Context, info core.LoadingInfo, root string) (*core.Table, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]func(*slog.Logger) Codec)
)

// Register adds a codec factory to the registry.
// Called by codec implementations in their init() functions.
func Register(format string, factory func(*slog.Logger) Codec) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[format] = factory
}

// Get retrieves a codec factory by format tag.
func Get(format string) (func(*slog.Logger) Codec, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[format]
	return f, ok
}

// New creates a codec for the given format tag. The logger is passed to the
// codec constructor (nil uses a discard logger).
func New(format string, logger *slog.Logger) (Codec, error) {
	if format == "" {
		return nil, fmt.Errorf("table format not specified")
	}
	factory, ok := Get(format)
	if !ok {
		return nil, &UnknownFormatError{
			Format:    format,
			Supported: List(),
		}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return factory(logger), nil
}

// List returns all registered format tags (sorted).
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	formats := make([]string, 0, len(registry))
	for f := range registry {
		formats = append(formats, f)
	}
	sort.Strings(formats)
	return formats
}

// IsRegistered checks if a format tag is registered.
func IsRegistered(format string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[format]
	return ok
}

// UnknownFormatError is returned when a table format tag is requested that
// no codec is registered for, on write or read alike.
type UnknownFormatError struct {
	Format    string
	Supported []string
}

func (e *UnknownFormatError) Error() string {
	return fmt.Sprintf("unsupported table format %q: must be one of the following formats: %s",
		e.Format, strings.Join(e.Supported, ", "))
}
