package io

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/procmeta/pkg/bpmn"
	"github.com/matzehuels/procmeta/pkg/errors"
)

// Format tags the JSON layout; readers reject any other value.
const Format = "procmeta/v1"

type document struct {
	Format string `json:"format"`
	*bpmn.DocumentMetadata
}

// WriteJSON encodes meta as indented JSON and writes it to w.
func WriteJSON(meta *bpmn.DocumentMetadata, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(document{Format: Format, DocumentMetadata: meta}); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// Marshal returns the JSON encoding written by [WriteJSON].
func Marshal(meta *bpmn.DocumentMetadata) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteJSON(meta, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportJSON writes meta to a JSON file at path.
func ExportJSON(meta *bpmn.DocumentMetadata, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteJSON(meta, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadJSON decodes a metadata document from r. It does not close r.
func ReadJSON(r io.Reader) (*bpmn.DocumentMetadata, error) {
	doc := document{DocumentMetadata: &bpmn.DocumentMetadata{}}
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode")
	}
	if doc.Format != Format {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported format %q (want %q)", doc.Format, Format)
	}
	if err := validate(doc.DocumentMetadata); err != nil {
		return nil, err
	}
	return doc.DocumentMetadata, nil
}

// Unmarshal decodes data written by [Marshal].
func Unmarshal(data []byte) (*bpmn.DocumentMetadata, error) {
	return ReadJSON(bytes.NewReader(data))
}

// ImportJSON reads the JSON file at path.
func ImportJSON(path string) (*bpmn.DocumentMetadata, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	meta, err := ReadJSON(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return meta, nil
}

func validate(meta *bpmn.DocumentMetadata) error {
	for pi, p := range meta.Processes {
		if p == nil {
			return errors.New(errors.ErrCodeInvalidFormat, "process %d is null", pi)
		}
		seen := make(map[string]bool, len(p.Nodes))
		for ni, n := range p.Nodes {
			if n == nil || n.ID == "" {
				return errors.New(errors.ErrCodeInvalidFormat, "process %s: node %d has no id", p.ID, ni)
			}
			if seen[n.ID] {
				return errors.New(errors.ErrCodeInvalidFormat, "process %s: duplicate node %q", p.ID, n.ID)
			}
			seen[n.ID] = true
		}
	}
	return nil
}
