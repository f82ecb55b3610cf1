// Package store implements the on-disk cache entry layout.
//
// Each source owns one slot directory named by its cache key:
//
//	<root>/<cacheKey>/
//	  index.json          (manifest: checksum, created, output metadata)
//	  <outputId>.<format>  (artifact files)
//
// The manifest is written last and its presence is the sole completeness
// signal: a reader never observes a manifest whose artifact files are
// missing. Any unreadable or unparsable manifest reads as a cache miss.
package store

import (
	"encoding/json"
	"fmt"
)

// ManifestName is the manifest filename inside a slot directory.
const ManifestName = "index.json"

// Metadata describes one generated output variant. Only transform-produced
// scalar fields are persisted; anything derived from the current build
// context (the served reference, the absolute artifact path) is recomputed
// on every load.
type Metadata struct {
	OutputID string
	Format   string
	Width    int
	Height   int

	// Extra carries additional transform-produced scalar fields, flattened
	// into the metadata object on disk.
	Extra map[string]any
}

// Filename returns the artifact filename inside the slot directory.
func (m Metadata) Filename() string {
	return m.OutputID + "." + m.Format
}

// MarshalJSON flattens Extra into the metadata object.
func (m Metadata) MarshalJSON() ([]byte, error) {
	obj := make(map[string]any, len(m.Extra)+4)
	for k, v := range m.Extra {
		obj[k] = v
	}
	obj["outputId"] = m.OutputID
	obj["format"] = m.Format
	if m.Width > 0 {
		obj["width"] = m.Width
	}
	if m.Height > 0 {
		obj["height"] = m.Height
	}
	return json.Marshal(obj)
}

// UnmarshalJSON collects unknown fields back into Extra.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}

	str := func(key string) string {
		v, _ := obj[key].(string)
		return v
	}
	num := func(key string) int {
		v, _ := obj[key].(float64)
		return int(v)
	}

	m.OutputID = str("outputId")
	m.Format = str("format")
	m.Width = num("width")
	m.Height = num("height")

	delete(obj, "outputId")
	delete(obj, "format")
	delete(obj, "width")
	delete(obj, "height")
	if len(obj) > 0 {
		m.Extra = obj
	} else {
		m.Extra = nil
	}

	if m.OutputID == "" {
		return fmt.Errorf("metadata missing outputId")
	}
	if m.Format == "" {
		return fmt.Errorf("metadata missing format")
	}
	return nil
}

// Manifest is the durable description of one cache slot: the source checksum
// it was built from, its creation time, and the set of output variants.
type Manifest struct {
	Checksum  string     `json:"checksum"`
	Created   int64      `json:"created"` // unix milliseconds
	Metadatas []Metadata `json:"metadatas"`
}

// Fresh reports whether the slot is still valid for the source's current
// checksum. Any mismatch invalidates the entire slot.
func (m *Manifest) Fresh(checksum string) bool {
	return m.Checksum == checksum
}

// Find returns the metadata for an output ID, if present.
func (m *Manifest) Find(outputID string) (Metadata, bool) {
	for _, md := range m.Metadatas {
		if md.OutputID == outputID {
			return md, true
		}
	}
	return Metadata{}, false
}
