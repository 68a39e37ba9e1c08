package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/convnet/internal/tensor"
)

// safeTensorsBlob hand-assembles a SafeTensors stream.
func safeTensorsBlob(t *testing.T, header map[string]any, values []float32) []byte {
	t.Helper()
	headerJSON, err := json.Marshal(header)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint64(len(headerJSON))))
	buf.Write(headerJSON)
	for _, v := range values {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, math.Float32bits(v)))
	}
	return buf.Bytes()
}

func TestExportSafeTensors(t *testing.T) {
	tensors := []NamedTensor{
		{Name: "layers.2.weight", Tensor: tensor.MustFromRows([][]float32{{5, 6}})},
		{Name: "layers.0.weight", Tensor: tensor.MustFromRows([][]float32{{1, 2}, {3, 4}})},
	}

	var buf bytes.Buffer
	require.NoError(t, ExportSafeTensors(&buf, tensors, map[string]string{"format": "pt"}))

	raw := buf.Bytes()
	headerSize := binary.LittleEndian.Uint64(raw[:8])
	var header map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw[8:8+headerSize], &header))

	var info SafeTensorInfo
	require.NoError(t, json.Unmarshal(header["layers.0.weight"], &info))
	assert.Equal(t, "F32", info.DType)
	assert.Equal(t, []int64{2, 2}, info.Shape)
	assert.Equal(t, [2]int64{0, 16}, info.DataOffsets)

	require.NoError(t, json.Unmarshal(header["layers.2.weight"], &info))
	assert.Equal(t, [2]int64{16, 24}, info.DataOffsets)

	got, meta, err := ImportSafeTensors(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "pt", meta["format"])
	require.Len(t, got, 2)
	assert.Equal(t, "layers.0.weight", got[0].Name)
	assert.True(t, got[0].Tensor.Equal(tensors[1].Tensor))
	assert.True(t, got[1].Tensor.Equal(tensors[0].Tensor))
}

func TestImportSafeTensors_Shapes(t *testing.T) {
	blob := safeTensorsBlob(t, map[string]any{
		"bias":   SafeTensorInfo{DType: "F32", Shape: []int64{3}, DataOffsets: [2]int64{0, 12}},
		"scalar": SafeTensorInfo{DType: "F32", Shape: []int64{}, DataOffsets: [2]int64{12, 16}},
	}, []float32{1, 2, 3, 4})

	got, meta, err := ImportSafeTensors(bytes.NewReader(blob))
	require.NoError(t, err)
	assert.Nil(t, meta)
	require.Len(t, got, 2)
	assert.Equal(t, 3, got[0].Tensor.Rows())
	assert.Equal(t, 1, got[0].Tensor.Cols())
	assert.Equal(t, float32(4), got[1].Tensor.At(0, 0))
}

func TestImportSafeTensors_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		info   SafeTensorInfo
		values []float32
	}{
		{"f16", SafeTensorInfo{DType: "F16", Shape: []int64{2}, DataOffsets: [2]int64{0, 4}}, []float32{0}},
		{"rank 3", SafeTensorInfo{DType: "F32", Shape: []int64{1, 1, 1}, DataOffsets: [2]int64{0, 4}}, []float32{0}},
		{"size", SafeTensorInfo{DType: "F32", Shape: []int64{2}, DataOffsets: [2]int64{0, 4}}, []float32{0}},
		{"truncated", SafeTensorInfo{DType: "F32", Shape: []int64{2}, DataOffsets: [2]int64{0, 8}}, []float32{0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blob := safeTensorsBlob(t, map[string]any{"x": tt.info}, tt.values)
			_, _, err := ImportSafeTensors(bytes.NewReader(blob))
			assert.Error(t, err)
		})
	}
}
