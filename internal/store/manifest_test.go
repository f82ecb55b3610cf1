package store

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataJSONFlattensExtra(t *testing.T) {
	t.Parallel()

	meta := Metadata{
		OutputID: "abc",
		Format:   "webp",
		Width:    300,
		Height:   150,
		Extra:    map[string]any{"quality": float64(80)},
	}

	data, err := json.Marshal(meta)
	require.NoError(t, err)

	var obj map[string]any
	require.NoError(t, json.Unmarshal(data, &obj))
	assert.Equal(t, "abc", obj["outputId"])
	assert.Equal(t, "webp", obj["format"])
	assert.Equal(t, float64(300), obj["width"])
	assert.Equal(t, float64(80), obj["quality"], "extra fields are flattened, not nested")

	var back Metadata
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, meta, back)
}

func TestMetadataJSONOmitsZeroDimensions(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(Metadata{OutputID: "abc", Format: "svg"})
	require.NoError(t, err)

	var obj map[string]any
	require.NoError(t, json.Unmarshal(data, &obj))
	_, hasWidth := obj["width"]
	assert.False(t, hasWidth)
}

func TestMetadataUnmarshalRejectsIncomplete(t *testing.T) {
	t.Parallel()

	var meta Metadata
	assert.Error(t, json.Unmarshal([]byte(`{"format":"png"}`), &meta))
	assert.Error(t, json.Unmarshal([]byte(`{"outputId":"abc"}`), &meta))
}

func TestManifestSchema(t *testing.T) {
	t.Parallel()

	m := Manifest{
		Checksum: "c1",
		Created:  1700000000000,
		Metadatas: []Metadata{
			{OutputID: "i1", Format: "png", Width: 300, Height: 150},
		},
	}

	data, err := json.Marshal(&m)
	require.NoError(t, err)

	var obj map[string]any
	require.NoError(t, json.Unmarshal(data, &obj))
	assert.Contains(t, obj, "checksum")
	assert.Contains(t, obj, "created")
	assert.Contains(t, obj, "metadatas")
}

func TestManifestFreshAndFind(t *testing.T) {
	t.Parallel()

	m := Manifest{Checksum: "c1", Metadatas: []Metadata{{OutputID: "i1", Format: "png"}}}

	assert.True(t, m.Fresh("c1"))
	assert.False(t, m.Fresh("c2"))

	meta, ok := m.Find("i1")
	assert.True(t, ok)
	assert.Equal(t, "i1.png", meta.Filename())

	_, ok = m.Find("i2")
	assert.False(t, ok)
}
