package serialization

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/born-ml/convnet/internal/tensor"
)

// NamedTensor pairs a tensor with its checkpoint name.
type NamedTensor struct {
	Name   string
	Tensor *tensor.Tensor
}

// Write encodes tensors and header to w. Tensor metadata, the format version
// and, if unset, CreatedAt are filled in by Write; the rest of header is
// stored as given.
func Write(w io.Writer, tensors []NamedTensor, header Header) error {
	data, metas, err := encodeTensors(tensors)
	if err != nil {
		return err
	}

	header.FormatVersion = FormatVersion
	header.Tensors = metas
	if header.CreatedAt.IsZero() {
		header.CreatedAt = time.Now().UTC()
	}
	if err := ValidateHeader(&header, int64(len(data)), ValidationStrict); err != nil {
		return fmt.Errorf("invalid checkpoint: %w", err)
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}
	if len(headerJSON) > MaxHeaderSize {
		return ErrHeaderTooLarge
	}

	flags := uint32(0)
	if len(header.Metadata) > 0 {
		flags |= FlagHasMetadata
	}
	if header.Training != nil {
		flags |= FlagHasTraining
	}

	fixed := make([]byte, FixedHeaderSize)
	copy(fixed[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(fixed[4:8], FormatVersion)
	binary.LittleEndian.PutUint32(fixed[8:12], flags)
	binary.LittleEndian.PutUint64(fixed[16:24], uint64(len(headerJSON)))
	binary.LittleEndian.PutUint64(fixed[24:32], uint64(len(data)))
	checksum := ComputeChecksum(data)
	copy(fixed[ChecksumOffset:ChecksumOffset+ChecksumSize], checksum[:])

	bw := bufio.NewWriter(w)
	if _, err := bw.Write(fixed); err != nil {
		return fmt.Errorf("failed to write fixed header: %w", err)
	}
	if _, err := bw.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	padding := alignedOffset(int64(len(headerJSON))) - FixedHeaderSize - int64(len(headerJSON))
	if _, err := bw.Write(make([]byte, padding)); err != nil {
		return fmt.Errorf("failed to write padding: %w", err)
	}
	if _, err := bw.Write(data); err != nil {
		return fmt.Errorf("failed to write tensor data: %w", err)
	}
	return bw.Flush()
}

// Save writes a checkpoint to path. The file is written next to path and
// renamed into place, so an interrupted save never leaves a truncated file.
func Save(path string, tensors []NamedTensor, header Header) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := Write(tmp, tensors, header); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// encodeTensors lays tensors out back to back in little-endian float32.
func encodeTensors(tensors []NamedTensor) ([]byte, []TensorMeta, error) {
	var total int64
	for _, nt := range tensors {
		if nt.Tensor == nil {
			return nil, nil, fmt.Errorf("tensor %s: %w", nt.Name, tensor.ErrUninitialized)
		}
		total += int64(nt.Tensor.Len()) * bytesPerFloat32
	}

	data := make([]byte, total)
	metas := make([]TensorMeta, 0, len(tensors))
	var offset int64
	for _, nt := range tensors {
		size := int64(nt.Tensor.Len()) * bytesPerFloat32
		dst := data[offset : offset+size]
		for i, v := range nt.Tensor.Data() {
			binary.LittleEndian.PutUint32(dst[i*bytesPerFloat32:], math.Float32bits(v))
		}
		metas = append(metas, TensorMeta{
			Name:   nt.Name,
			DType:  DTypeFloat32,
			Rows:   nt.Tensor.Rows(),
			Cols:   nt.Tensor.Cols(),
			Offset: offset,
			Size:   size,
		})
		offset += size
	}
	return data, metas, nil
}
