package serialization

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTensorOffsets(t *testing.T) {
	// region is a float32 tensor of n values starting at byte off.
	region := func(name string, off, n int64) TensorMeta {
		return TensorMeta{Name: name, Offset: off, Size: n * bytesPerFloat32}
	}
	cases := map[string]struct {
		tensors  []TensorMeta
		dataSize int64
		wantKind ValidationKind
	}{
		"packed": {
			tensors:  []TensorMeta{region("conv.weight", 0, 150), region("conv.bias", 600, 6), region("fc.weight", 624, 40)},
			dataSize: 784,
		},
		"gap between regions": {
			tensors:  []TensorMeta{region("fc.bias", 64, 2), region("fc.weight", 0, 8)},
			dataSize: 100,
		},
		"one byte overlap": {
			tensors:  []TensorMeta{region("fc.weight", 0, 8), {Name: "fc.bias", Offset: 31, Size: 8}},
			dataSize: 64,
			wantKind: KindOverlap,
		},
		"overlap listed out of order": {
			tensors:  []TensorMeta{region("fc.bias", 16, 8), region("fc.weight", 0, 8)},
			dataSize: 64,
			wantKind: KindOverlap,
		},
		"ends past data": {
			tensors:  []TensorMeta{region("fc.weight", 8, 4)},
			dataSize: 20,
			wantKind: KindOutOfBounds,
		},
		"negative offset": {
			tensors:  []TensorMeta{region("fc.weight", -4, 1)},
			dataSize: 20,
			wantKind: KindNegativeOffset,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := ValidateTensorOffsets(tc.tensors, tc.dataSize)
			if tc.wantKind == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.wantKind, verr.Kind)
			assert.ErrorIs(t, err, ErrInvalidCheckpoint)
		})
	}
}

func TestValidateTensorName(t *testing.T) {
	valid := []string{"layers.0.weight", "layers.12.bias", "head"}
	for _, name := range valid {
		assert.NoError(t, ValidateTensorName(name), name)
	}

	invalid := []string{"", "../etc/passwd", "layers/0", `layers\0`, "a\x00b", strings.Repeat("x", MaxTensorNameLen+1)}
	for _, name := range invalid {
		assert.Error(t, ValidateTensorName(name), "%q", name)
	}
}

func TestValidateHeader(t *testing.T) {
	meta := func(name string, rows, cols int, offset int64) TensorMeta {
		return TensorMeta{Name: name, DType: DTypeFloat32, Rows: rows, Cols: cols, Offset: offset, Size: int64(rows * cols * 4)}
	}

	h := &Header{Tensors: []TensorMeta{meta("a", 2, 2, 0), meta("b", 1, 3, 16)}}
	assert.NoError(t, ValidateHeader(h, 28, ValidationStrict))
	assert.Error(t, ValidateHeader(h, 20, ValidationStrict))
	assert.NoError(t, ValidateHeader(h, 20, ValidationNormal))

	bad := meta("a", 2, 2, 0)
	bad.Size = 12
	var verr *ValidationError
	require.ErrorAs(t, ValidateHeader(&Header{Tensors: []TensorMeta{bad}}, 16, ValidationNormal), &verr)
	assert.Equal(t, KindSizeMismatch, verr.Kind)
	assert.NoError(t, ValidateHeader(&Header{Tensors: []TensorMeta{bad}}, 16, ValidationNone))

	f64 := meta("a", 1, 1, 0)
	f64.DType = "float64"
	require.ErrorAs(t, ValidateHeader(&Header{Tensors: []TensorMeta{f64}}, 4, ValidationNormal), &verr)
	assert.Equal(t, KindUnsupportedDType, verr.Kind)

	assert.Equal(t, `offset_overlap: tensors "a" and "b": d`,
		(&ValidationError{Kind: KindOverlap, Name: "a", Other: "b", Detail: "d"}).Error())
	assert.Equal(t, `invalid_name: tensor "a": d`, (&ValidationError{Kind: KindInvalidName, Name: "a", Detail: "d"}).Error())
	assert.Equal(t, "too_many_tensors: d", (&ValidationError{Kind: KindTooManyTensors, Detail: "d"}).Error())
}
