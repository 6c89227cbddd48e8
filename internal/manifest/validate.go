package manifest

import (
	"errors"
	"fmt"
	"os"
)

// ErrUnknownOperation marks an operation name that does not resolve in the
// operation registry.
var ErrUnknownOperation = errors.New("unknown operation")

// supportedDestinations lists the format/compression pairs the serializers
// implement.
var supportedDestinations = map[string][]string{
	FormatTSV:     {CompressionTarGz, CompressionNone},
	FormatNT:      {CompressionGz, CompressionNone},
	FormatJournal: {CompressionGz, CompressionNone},
}

// ValidateOptions tunes manifest validation.
type ValidateOptions struct {
	// KnownOperation reports whether an operation name resolves. When nil,
	// operation names are not checked.
	KnownOperation func(name string) bool
	// CheckFiles verifies that every source input file exists on disk.
	CheckFiles bool
}

// Validate checks the manifest against the static schema rules. All problems
// found are reported, joined into a single error.
func (m *Manifest) Validate(opts ValidateOptions) error {
	var problems []error

	if m.Configuration.OutputDirectory == "" {
		problems = append(problems, fmt.Errorf("configuration.output_directory is required"))
	}
	if m.MergedGraph.Name == "" {
		problems = append(problems, fmt.Errorf("merged_graph.name is required"))
	}
	if len(m.MergedGraph.Source) == 0 {
		problems = append(problems, fmt.Errorf("merged_graph.source must declare at least one source"))
	}
	if len(m.MergedGraph.Destination) == 0 {
		problems = append(problems, fmt.Errorf("merged_graph.destination must declare at least one destination"))
	}

	for _, key := range m.SourceKeys() {
		src := m.MergedGraph.Source[key]
		if src.Name == "" {
			problems = append(problems, fmt.Errorf("source %s: name is required", key))
		}
		switch src.Input.Format {
		case FormatTSV, FormatOboJSON:
		case "":
			problems = append(problems, fmt.Errorf("source %s: input.format is required", key))
		default:
			problems = append(problems, fmt.Errorf("source %s: unsupported input format %q", key, src.Input.Format))
		}
		if len(src.Input.Filename) == 0 {
			problems = append(problems, fmt.Errorf("source %s: input.filename must list at least one file", key))
		}
		if opts.CheckFiles {
			for _, path := range src.Input.Filename {
				if _, err := os.Stat(path); err != nil {
					problems = append(problems, fmt.Errorf("source %s: input file %s: %w", key, path, err))
				}
			}
		}
	}

	for i, op := range m.MergedGraph.Operations {
		if op.Name == "" {
			problems = append(problems, fmt.Errorf("operation %d: name is required", i))
			continue
		}
		if opts.KnownOperation != nil && !opts.KnownOperation(op.Name) {
			problems = append(problems, fmt.Errorf("operation %s: %w", op.Name, ErrUnknownOperation))
		}
	}

	filenames := make(map[string]string)
	for _, key := range m.DestinationKeys() {
		dst := m.MergedGraph.Destination[key]
		if dst.Filename == "" {
			problems = append(problems, fmt.Errorf("destination %s: filename is required", key))
		}
		compressions, ok := supportedDestinations[dst.Format]
		if !ok {
			if dst.Format == "" {
				problems = append(problems, fmt.Errorf("destination %s: format is required", key))
			} else {
				problems = append(problems, fmt.Errorf("destination %s: unsupported format %q", key, dst.Format))
			}
			continue
		}
		if !containsString(compressions, dst.Compression) {
			problems = append(problems, fmt.Errorf("destination %s: compression %q is not supported for format %q", key, dst.Compression, dst.Format))
		}
		if prev, dup := filenames[dst.Filename]; dup && dst.Filename != "" {
			problems = append(problems, fmt.Errorf("destination %s: filename %q already used by destination %s", key, dst.Filename, prev))
		} else {
			filenames[dst.Filename] = key
		}
	}

	return errors.Join(problems...)
}

func containsString(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
