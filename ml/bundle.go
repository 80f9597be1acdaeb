package ml

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// BundleVersion is bumped whenever the persisted layout changes.
const BundleVersion = 1

// Bundle pairs a fitted pipeline with the feature order it was fit on. It is
// written once per training run and only ever read afterwards.
type Bundle struct {
	Model    *Pipeline `json:"model"`
	Features []string  `json:"features"`
	Metadata Metadata  `json:"metadata"`
}

// Metadata records how and from what a bundle was trained.
type Metadata struct {
	Version    int        `json:"version"`
	CreatedAt  time.Time  `json:"created_at"`
	Dataset    string     `json:"dataset"`
	TrainRows  int        `json:"train_rows"`
	TestRows   int        `json:"test_rows"`
	Seed       int64      `json:"seed"`
	TestRatio  float64    `json:"test_ratio"`
	Evaluation Evaluation `json:"evaluation"`
}

type codec interface {
	marshal(b *Bundle) ([]byte, error)
	unmarshal(data []byte, b *Bundle) error
}

type jsonCodec struct{}

func (jsonCodec) marshal(b *Bundle) ([]byte, error) {
	return json.MarshalIndent(b, "", "  ")
}

func (jsonCodec) unmarshal(data []byte, b *Bundle) error {
	return json.Unmarshal(data, b)
}

// msgpackCodec reuses the json struct tags so both formats share one layout.
type msgpackCodec struct{}

func (msgpackCodec) marshal(b *Bundle) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(b); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (msgpackCodec) unmarshal(data []byte, b *Bundle) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(b)
}

func codecFor(path string) codec {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".msgpack", ".mpk":
		return msgpackCodec{}
	default:
		return jsonCodec{}
	}
}

// Save writes the bundle to path, creating the parent directory and
// replacing any previous bundle atomically.
func (b *Bundle) Save(path string) error {
	if b.Model == nil {
		return ErrNotFitted
	}
	payload, err := codecFor(path).marshal(b)
	if err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create bundle dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".bundle-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// LoadBundle reads and checks a bundle. Any error means the bundle must not
// be served.
func LoadBundle(path string) (*Bundle, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrBundleNotFound, path)
		}
		return nil, err
	}

	var b Bundle
	if err := codecFor(path).unmarshal(payload, &b); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrInvalidBundle, path, err)
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidBundle, path, err)
	}
	return &b, nil
}

// Validate checks that the bundle can be served.
func (b *Bundle) Validate() error {
	if b.Metadata.Version != BundleVersion {
		return fmt.Errorf("unsupported bundle version %d", b.Metadata.Version)
	}
	if b.Model == nil {
		return errors.New("bundle has no model")
	}
	if err := CheckFeatureOrder(b.Features); err != nil {
		return err
	}
	if !slices.Equal(b.Features, b.Model.Features) {
		return fmt.Errorf("bundle features %v differ from model features %v", b.Features, b.Model.Features)
	}
	return b.Model.validate()
}
