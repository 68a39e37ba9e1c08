package serialization

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/born-ml/convnet/internal/tensor"
)

// ReaderOptions configures how checkpoints are read.
type ReaderOptions struct {
	SkipChecksumValidation bool            // Skip checksum validation (faster but less safe)
	ValidationLevel        ValidationLevel // Validation strictness level
}

// Checkpoint is a decoded checkpoint file.
type Checkpoint struct {
	Header  Header
	Flags   uint32
	tensors map[string]*tensor.Tensor
}

// Names returns the tensor names in file order.
func (c *Checkpoint) Names() []string {
	names := make([]string, len(c.Header.Tensors))
	for i, meta := range c.Header.Tensors {
		names[i] = meta.Name
	}
	return names
}

// Tensor returns the named tensor.
func (c *Checkpoint) Tensor(name string) (*tensor.Tensor, error) {
	t, ok := c.tensors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTensorNotFound, name)
	}
	return t, nil
}

// Len returns the number of tensors.
func (c *Checkpoint) Len() int { return len(c.tensors) }

// Load reads a checkpoint from path with strict validation.
func Load(path string) (*Checkpoint, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model loading
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Read(f, ReaderOptions{ValidationLevel: ValidationStrict})
}

// Read decodes a checkpoint from r.
func Read(r io.Reader, opts ReaderOptions) (*Checkpoint, error) {
	br := bufio.NewReader(r)

	fixed := make([]byte, FixedHeaderSize)
	if _, err := io.ReadFull(br, fixed); err != nil {
		return nil, fmt.Errorf("failed to read fixed header: %w", err)
	}
	if string(fixed[0:4]) != MagicBytes {
		return nil, ErrInvalidMagic
	}
	if version := binary.LittleEndian.Uint32(fixed[4:8]); version != FormatVersion {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrUnsupportedVersion, version, FormatVersion)
	}
	flags := binary.LittleEndian.Uint32(fixed[8:12])
	headerSize := binary.LittleEndian.Uint64(fixed[16:24])
	dataSize := binary.LittleEndian.Uint64(fixed[24:32])
	var stored [ChecksumSize]byte
	copy(stored[:], fixed[ChecksumOffset:ChecksumOffset+ChecksumSize])

	if headerSize > MaxHeaderSize {
		return nil, ErrHeaderTooLarge
	}
	headerJSON := make([]byte, headerSize)
	if _, err := io.ReadFull(br, headerJSON); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	var header Header
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}

	//nolint:gosec // G115: headerSize bounded by MaxHeaderSize above
	padding := alignedOffset(int64(headerSize)) - FixedHeaderSize - int64(headerSize)
	if _, err := br.Discard(int(padding)); err != nil {
		return nil, fmt.Errorf("failed to skip padding: %w", err)
	}

	// Bound the data section by what the header describes before allocating.
	var described uint64
	for _, t := range header.Tensors {
		if t.Size > 0 {
			described += uint64(t.Size)
		}
	}
	if dataSize > described {
		return nil, &ValidationError{
			Kind:   KindOutOfBounds,
			Detail: fmt.Sprintf("data section of %d bytes exceeds the %d bytes described", dataSize, described),
		}
	}

	data := make([]byte, dataSize)
	if _, err := io.ReadFull(br, data); err != nil {
		return nil, fmt.Errorf("failed to read tensor data: %w", err)
	}
	if !opts.SkipChecksumValidation {
		if err := ValidateChecksum(ComputeChecksum(data), stored); err != nil {
			return nil, err
		}
	}

	//nolint:gosec // G115: dataSize bounded by the header sizes above
	if err := ValidateHeader(&header, int64(dataSize), opts.ValidationLevel); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	ckpt := &Checkpoint{
		Header:  header,
		Flags:   flags,
		tensors: make(map[string]*tensor.Tensor, len(header.Tensors)),
	}
	for _, meta := range header.Tensors {
		t, err := decodeTensor(data, meta)
		if err != nil {
			return nil, err
		}
		ckpt.tensors[meta.Name] = t
	}
	return ckpt, nil
}

// decodeTensor reads one float32 tensor from the data section.
func decodeTensor(data []byte, meta TensorMeta) (*tensor.Tensor, error) {
	end := meta.Offset + meta.Size
	if meta.Offset < 0 || meta.Rows < 0 || meta.Cols < 0 || end > int64(len(data)) ||
		meta.Size != int64(meta.Rows)*int64(meta.Cols)*bytesPerFloat32 {
		return nil, &ValidationError{
			Kind:   KindOutOfBounds,
			Name:   meta.Name,
			Detail: fmt.Sprintf("%dx%d at [%d-%d] in %d bytes", meta.Rows, meta.Cols, meta.Offset, end, len(data)),
		}
	}
	src := data[meta.Offset:end]
	t := tensor.New(meta.Rows, meta.Cols)
	out := t.Data()
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[i*bytesPerFloat32:]))
	}
	return t, nil
}
