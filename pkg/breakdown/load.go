package breakdown

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pierrec/lz4/v4"
	"gopkg.in/yaml.v3"
)

// Format is a payload encoding.
type Format string

// Supported payload encodings.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

const extLZ4 = ".lz4"

// Sentinel errors for payload loading.
var (
	// ErrEmptyPayloadPath indicates no payload path was given.
	ErrEmptyPayloadPath = errors.New("payload path is required")
	// ErrUnsupportedFormat indicates the payload file extension is not recognised.
	ErrUnsupportedFormat = errors.New("unsupported payload format")
)

// Decode reads a JSON payload from r.
func Decode(r io.Reader) (Payload, error) {
	var payload Payload

	err := json.NewDecoder(r).Decode(&payload)
	if err != nil {
		return Payload{}, fmt.Errorf("decode payload: %w", err)
	}

	return payload, nil
}

// DecodeYAML reads a YAML payload from r.
func DecodeYAML(r io.Reader) (Payload, error) {
	var payload Payload

	err := yaml.NewDecoder(r).Decode(&payload)
	if err != nil {
		return Payload{}, fmt.Errorf("decode yaml payload: %w", err)
	}

	return payload, nil
}

// FormatForPath picks the encoding from the file extension, looking through
// a trailing .lz4 suffix.
func FormatForPath(path string) (Format, error) {
	name := strings.TrimSuffix(strings.ToLower(path), extLZ4)

	switch filepath.Ext(name) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// ReadFile returns the raw, decompressed payload bytes stored at path.
// Files ending in .lz4 are read as LZ4 frames.
func ReadFile(path string) ([]byte, error) {
	if path == "" {
		return nil, ErrEmptyPayloadPath
	}

	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open payload: %w", err)
	}

	defer file.Close()

	var reader io.Reader = file
	if strings.HasSuffix(strings.ToLower(path), extLZ4) {
		reader = lz4.NewReader(file)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read payload %s: %w", path, err)
	}

	return data, nil
}

// Load reads and decodes the payload stored at path.
func Load(path string) (Payload, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return Payload{}, err
	}

	data, err := ReadFile(path)
	if err != nil {
		return Payload{}, err
	}

	return DecodeBytes(data, format)
}

// DecodeBytes decodes data in the given format.
func DecodeBytes(data []byte, format Format) (Payload, error) {
	switch format {
	case FormatJSON:
		return Decode(bytes.NewReader(data))
	case FormatYAML:
		return DecodeYAML(bytes.NewReader(data))
	default:
		return Payload{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}
