package serialization

import "time"

// Format constants.
const (
	MagicBytes      = "CNVT"
	FormatVersion   = 1
	HeaderAlignment = 64   // Tensor data starts on a 64-byte boundary
	FixedHeaderSize = 64   // Fixed header size (0x40 bytes)
	ChecksumSize    = 32   // SHA-256 checksum size
	ChecksumOffset  = 0x20 // Checksum offset in the fixed header
	DTypeFloat32    = "float32"
	bytesPerFloat32 = 4
)

// Flags for the checkpoint format.
const (
	FlagHasTraining uint32 = 1 << 0 // bit 0: training state included
	FlagHasMetadata uint32 = 1 << 1 // bit 1: custom metadata included
)

// Header is the JSON header of a checkpoint file.
type Header struct {
	FormatVersion int               `json:"format_version"`     // Version of the checkpoint format
	Model         string            `json:"model"`              // Architecture name (e.g., "lenet5")
	CreatedAt     time.Time         `json:"created_at"`         // When the file was created
	Tensors       []TensorMeta      `json:"tensors"`            // Tensor metadata, in file order
	Metadata      map[string]string `json:"metadata,omitempty"` // Custom metadata
	Training      *TrainingState    `json:"training,omitempty"` // Training progress (optional)
}

// TrainingState records where training stopped when the checkpoint was taken.
type TrainingState struct {
	RunID           string             `json:"run_id"`
	Epoch           int                `json:"epoch"`
	Step            int64              `json:"step"`
	Loss            float64            `json:"loss"`
	Accuracy        float64            `json:"accuracy"`
	Optimizer       string             `json:"optimizer"`        // "sgd" or "adamw"
	OptimizerConfig map[string]float64 `json:"optimizer_config"` // Hyperparameters
}

// TensorMeta describes a tensor in the data section.
type TensorMeta struct {
	Name   string `json:"name"`   // Tensor name (e.g., "layers.0.weight")
	DType  string `json:"dtype"`  // Always "float32"
	Rows   int    `json:"rows"`   // Tensor rows
	Cols   int    `json:"cols"`   // Tensor columns
	Offset int64  `json:"offset"` // Bytes from the start of the data section
	Size   int64  `json:"size"`   // Size in bytes
}

// alignedOffset returns where the data section starts for a header of n bytes.
func alignedOffset(n int64) int64 {
	pos := int64(FixedHeaderSize) + n
	return pos + (HeaderAlignment-pos%HeaderAlignment)%HeaderAlignment
}
