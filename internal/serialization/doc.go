// Package serialization saves and restores convnet model parameters.
//
// Checkpoints use a small binary format with a checksummed data section:
//
//	Format Structure:
//	  [0x00: 4 bytes  Magic "CNVT"]
//	  [0x04: 4 bytes  Version (uint32 LE)]
//	  [0x08: 4 bytes  Flags (uint32 LE)]
//	  [0x0C: 4 bytes  Reserved]
//	  [0x10: 8 bytes  Header size (uint64 LE)]
//	  [0x18: 8 bytes  Data size (uint64 LE)]
//	  [0x20: 32 bytes SHA-256 of the data section]
//	  [0x40: Header: JSON metadata]
//	  [Tensor data: float32 LE, 64-byte aligned]
//
// Tensors are named "layers.<index>.<parameter>" after their position in the
// module, so a checkpoint only loads into a module with the same layer layout.
// SafeTensors export and import are provided for interchange with other tools.
//
// Example usage:
//
//	// Save a model
//	err := serialization.SaveModule("model.cnvt", model, serialization.Header{Model: "lenet5"})
//
//	// Load it back into a freshly built module
//	ckpt, err := serialization.Load("model.cnvt")
//	err = serialization.LoadStateDict(model, ckpt)
package serialization
