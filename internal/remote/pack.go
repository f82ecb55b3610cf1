package remote

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
)

// SlotInfo records how one cache slot is stored remotely: the content hash
// of its packed form and the digest of the layer holding it.
type SlotInfo struct {
	Hash  string `json:"hash"`
	Layer string `json:"layer"`
}

// PackSlot packs a slot's files into a binary blob:
//
//	[nameLen u16][name][dataLen u64][data]...
//
// Files are sorted by name, so packing is deterministic and identical slots
// always produce identical layer digests; registries then skip re-uploading
// unchanged layers by digest.
func PackSlot(files map[string][]byte) []byte {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	lenBuf := make([]byte, 8)

	for _, name := range names {
		data := files[name]

		binary.BigEndian.PutUint16(lenBuf[:2], uint16(len(name)))
		buf.Write(lenBuf[:2])
		buf.WriteString(name)

		binary.BigEndian.PutUint64(lenBuf, uint64(len(data)))
		buf.Write(lenBuf)
		buf.Write(data)
	}
	return buf.Bytes()
}

// UnpackSlot reverses PackSlot.
func UnpackSlot(data []byte) (map[string][]byte, error) {
	files := make(map[string][]byte)
	buf := bytes.NewReader(data)

	for buf.Len() > 0 {
		var nameLen uint16
		if err := binary.Read(buf, binary.BigEndian, &nameLen); err != nil {
			return nil, fmt.Errorf("read name length: %w", err)
		}

		nameBuf := make([]byte, nameLen)
		if _, err := io.ReadFull(buf, nameBuf); err != nil {
			return nil, fmt.Errorf("read name: %w", err)
		}

		var dataLen uint64
		if err := binary.Read(buf, binary.BigEndian, &dataLen); err != nil {
			return nil, fmt.Errorf("read data length: %w", err)
		}

		fileData := make([]byte, dataLen)
		if _, err := io.ReadFull(buf, fileData); err != nil {
			return nil, fmt.Errorf("read data: %w", err)
		}

		files[string(nameBuf)] = fileData
	}

	return files, nil
}

// SlotHash fingerprints a slot's packed content.
func SlotHash(files map[string][]byte) string {
	h := sha256.Sum256(PackSlot(files))
	return "sha256:" + hex.EncodeToString(h[:])
}
