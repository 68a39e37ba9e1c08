package serialization

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
)

// SafeTensors format:
// [8 bytes: header_size (uint64 LE)]
// [header_size bytes: JSON header]
// [tensor data: raw bytes]

const safeTensorsMetadataKey = "__metadata__"

// SafeTensorInfo describes a tensor in the SafeTensors header.
type SafeTensorInfo struct {
	DType       string   `json:"dtype"`
	Shape       []int64  `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"` // [start, end)
}

// ExportSafeTensors writes tensors in SafeTensors format. Tensors are written
// in alphabetical order by name with dtype F32 and shape [rows, cols].
func ExportSafeTensors(w io.Writer, tensors []NamedTensor, metadata map[string]string) error {
	sorted := make([]NamedTensor, len(tensors))
	copy(sorted, tensors)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	header := make(map[string]any, len(sorted)+1)
	if len(metadata) > 0 {
		header[safeTensorsMetadataKey] = metadata
	}
	var offset int64
	for _, nt := range sorted {
		if err := ValidateTensorName(nt.Name); err != nil {
			return err
		}
		if _, dup := header[nt.Name]; dup {
			return &ValidationError{Kind: KindDuplicateName, Name: nt.Name, Detail: "tensor listed twice"}
		}
		size := int64(nt.Tensor.Len()) * bytesPerFloat32
		header[nt.Name] = SafeTensorInfo{
			DType:       "F32",
			Shape:       []int64{int64(nt.Tensor.Rows()), int64(nt.Tensor.Cols())},
			DataOffsets: [2]int64{offset, offset + size},
		}
		offset += size
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return fmt.Errorf("failed to write header size: %w", err)
	}
	if _, err := bw.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	buf := make([]byte, bytesPerFloat32)
	for _, nt := range sorted {
		for _, v := range nt.Tensor.Data() {
			binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
			if _, err := bw.Write(buf); err != nil {
				return fmt.Errorf("failed to write tensor %s: %w", nt.Name, err)
			}
		}
	}
	return bw.Flush()
}

// ImportSafeTensors reads an F32 SafeTensors stream. One-dimensional tensors
// become column vectors; tensors of rank above two are rejected.
func ImportSafeTensors(r io.Reader) ([]NamedTensor, map[string]string, error) {
	var headerSize uint64
	if err := binary.Read(r, binary.LittleEndian, &headerSize); err != nil {
		return nil, nil, fmt.Errorf("failed to read header size: %w", err)
	}
	if headerSize > MaxHeaderSize {
		return nil, nil, ErrHeaderTooLarge
	}
	headerJSON := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerJSON); err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(headerJSON, &raw); err != nil {
		return nil, nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}

	var metadata map[string]string
	metas := make([]TensorMeta, 0, len(raw))
	for name, msg := range raw {
		if name == safeTensorsMetadataKey {
			if err := json.Unmarshal(msg, &metadata); err != nil {
				return nil, nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
			continue
		}
		var info SafeTensorInfo
		if err := json.Unmarshal(msg, &info); err != nil {
			return nil, nil, fmt.Errorf("failed to unmarshal tensor %s: %w", name, err)
		}
		meta, err := safeTensorMeta(name, info)
		if err != nil {
			return nil, nil, err
		}
		metas = append(metas, meta)
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].Offset < metas[j].Offset })

	var dataSize int64
	for _, m := range metas {
		dataSize = max(dataSize, m.Offset+m.Size)
	}
	h := Header{Tensors: metas}
	if err := ValidateHeader(&h, dataSize, ValidationStrict); err != nil {
		return nil, nil, fmt.Errorf("validation failed: %w", err)
	}

	data := make([]byte, dataSize)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, nil, fmt.Errorf("failed to read tensor data: %w", err)
	}

	out := make([]NamedTensor, 0, len(metas))
	for _, m := range metas {
		t, err := decodeTensor(data, m)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, NamedTensor{Name: m.Name, Tensor: t})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, metadata, nil
}

func safeTensorMeta(name string, info SafeTensorInfo) (TensorMeta, error) {
	if info.DType != "F32" {
		return TensorMeta{}, &ValidationError{Kind: KindUnsupportedDType, Name: name, Detail: info.DType}
	}
	var rows, cols int64
	switch len(info.Shape) {
	case 0:
		rows, cols = 1, 1
	case 1:
		rows, cols = info.Shape[0], 1
	case 2:
		rows, cols = info.Shape[0], info.Shape[1]
	default:
		return TensorMeta{}, &ValidationError{
			Kind:   KindInvalidShape,
			Name:   name,
			Detail: fmt.Sprintf("rank %d, only rank <= 2 is supported", len(info.Shape)),
		}
	}
	if rows < 0 || cols < 0 || rows > math.MaxInt32 || cols > math.MaxInt32 {
		return TensorMeta{}, &ValidationError{Kind: KindInvalidShape, Name: name, Detail: fmt.Sprint(info.Shape)}
	}
	return TensorMeta{
		Name:   name,
		DType:  DTypeFloat32,
		Rows:   int(rows),
		Cols:   int(cols),
		Offset: info.DataOffsets[0],
		Size:   info.DataOffsets[1] - info.DataOffsets[0],
	}, nil
}
