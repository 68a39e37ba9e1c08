package nn

import (
	"fmt"
	"io"

	"github.com/born-ml/convnet/internal/tensor"
)

// role says how a layer is driven inside a Module.
type role int

const (
	roleImage role = iota
	roleFlatten
	roleVector
)

func (r role) String() string {
	switch r {
	case roleImage:
		return "image"
	case roleFlatten:
		return "flatten"
	default:
		return "vector"
	}
}

// stage is one registered layer with its resolved capabilities.
type stage struct {
	layer Layer
	role  role
	img   ImageLayer
	vec   VectorLayer
	flat  *Flatten
}

// Module is an ordered container of layers; insertion order is forward order.
//
// A Module is either vector-only (no image layers, input is a tensor) or an
// image model: image layers, exactly one Flatten, then vector layers. The
// structure is checked when layers are added, so Forward never meets a layer
// that cannot take its input.
//
// Example:
//
//	m := nn.NewModule()
//	m.MustAdd(conv1, nn.NewReLU(), pool1, nn.NewFlatten(), fc1)
//	logits, err := m.ForwardImage(img)
type Module struct {
	stages   []stage
	flatIdx  int // -1 until a Flatten is added
	hasImage bool
	hasVec   bool // a vector-only layer was added before any Flatten
	training bool
	lastPath role // roleImage after ForwardImage, roleVector after Forward
	ran      bool
}

// NewModule creates an empty module in training mode.
func NewModule() *Module {
	return &Module{flatIdx: -1, training: true}
}

// Add registers l at the next position and returns that position.
//
// Returns ErrInvalidArgument when l cannot be placed: an image-only layer after
// Flatten or after a vector-only layer, a vector-only layer before Flatten in
// an image model, a second Flatten, or a layer with neither capability.
func (m *Module) Add(l Layer) (int, error) {
	st, err := m.resolve(l)
	if err != nil {
		return -1, err
	}
	l.SetTraining(m.training)
	m.stages = append(m.stages, st)
	idx := len(m.stages) - 1
	if st.role == roleFlatten {
		m.flatIdx = idx
	}
	return idx, nil
}

// MustAdd adds every layer and panics on the first placement error.
// Intended for static model definitions.
func (m *Module) MustAdd(layers ...Layer) *Module {
	for _, l := range layers {
		if _, err := m.Add(l); err != nil {
			panic(err)
		}
	}
	return m
}

func (m *Module) resolve(l Layer) (stage, error) {
	pos := len(m.stages)
	if f, ok := l.(*Flatten); ok {
		switch {
		case m.flatIdx >= 0:
			return stage{}, placementErr(pos, l, "second Flatten")
		case m.hasVec:
			return stage{}, placementErr(pos, l, "Flatten after a vector-only layer")
		}
		return stage{layer: l, role: roleFlatten, flat: f}, nil
	}

	img, isImg := l.(ImageLayer)
	vec, isVec := l.(VectorLayer)
	switch {
	case !isImg && !isVec:
		return stage{}, placementErr(pos, l, "layer is neither image- nor vector-shaped")
	case m.flatIdx >= 0:
		if !isVec {
			return stage{}, placementErr(pos, l, "image layer after Flatten")
		}
		return stage{layer: l, role: roleVector, vec: vec}, nil
	case isImg && !isVec:
		if m.hasVec {
			return stage{}, placementErr(pos, l, "image layer after a vector-only layer")
		}
		m.hasImage = true
		return stage{layer: l, role: roleImage, img: img}, nil
	case isVec && !isImg:
		if m.hasImage {
			return stage{}, placementErr(pos, l, "vector layer before Flatten")
		}
		m.hasVec = true
		return stage{layer: l, role: roleVector, vec: vec}, nil
	}
	// Both capabilities before any Flatten: the role is fixed per forward path.
	return stage{layer: l, role: roleImage, img: img, vec: vec}, nil
}

func placementErr(pos int, l Layer, reason string) error {
	return fmt.Errorf("Module.Add: %w: %s at position %d: %s", tensor.ErrInvalidArgument, l.Name(), pos, reason)
}

// Len returns the number of layers.
func (m *Module) Len() int { return len(m.stages) }

// Layer returns the layer at position i.
func (m *Module) Layer(i int) Layer { return m.stages[i].layer }

// IsImageModel reports whether the module expects images (it contains Flatten
// or an image-only layer).
func (m *Module) IsImageModel() bool { return m.flatIdx >= 0 || m.hasImage }

// Forward threads a tensor through a vector-only module.
func (m *Module) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if m.IsImageModel() {
		return nil, fmt.Errorf("Module.Forward: %w: model expects images, use ForwardImage", tensor.ErrInvalidArgument)
	}
	out := x
	for i, st := range m.stages {
		var err error
		if out, err = st.vec.Forward(out); err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
	}
	m.lastPath, m.ran = roleVector, true
	return out, nil
}

// ForwardImage threads an image through the image layers, Flatten, and the
// vector layers, returning the final vector output.
func (m *Module) ForwardImage(x *tensor.Image) (*tensor.Tensor, error) {
	if m.flatIdx < 0 {
		return nil, fmt.Errorf("Module.ForwardImage: %w: model has no Flatten layer", tensor.ErrInvalidArgument)
	}
	img := x
	for i, st := range m.stages[:m.flatIdx] {
		var err error
		if img, err = st.img.ForwardImage(img); err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
	}
	out, err := m.stages[m.flatIdx].flat.FlattenImage(img)
	if err != nil {
		return nil, fmt.Errorf("layer %d: %w", m.flatIdx, err)
	}
	for i := m.flatIdx + 1; i < len(m.stages); i++ {
		if out, err = m.stages[i].vec.Forward(out); err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
	}
	m.lastPath, m.ran = roleImage, true
	return out, nil
}

// Backward propagates grad (w.r.t. the module output) through every layer in
// reverse order, accumulating parameter gradients. It is a no-op in
// evaluation mode.
func (m *Module) Backward(grad *tensor.Tensor) error {
	if !m.training {
		return nil
	}
	if !m.ran {
		return fmt.Errorf("Module.Backward: %w: backward called before forward", tensor.ErrUninitialized)
	}

	first := 0
	if m.lastPath == roleImage {
		first = m.flatIdx + 1
	}
	g := grad
	for i := len(m.stages) - 1; i >= first; i-- {
		var err error
		if g, err = m.stages[i].vec.Backward(g); err != nil {
			return fmt.Errorf("layer %d: %w", i, err)
		}
	}
	if m.lastPath != roleImage {
		return nil
	}

	img, err := m.stages[m.flatIdx].flat.UnflattenGrad(g)
	if err != nil {
		return fmt.Errorf("layer %d: %w", m.flatIdx, err)
	}
	for i := m.flatIdx - 1; i >= 0; i-- {
		if img, err = m.stages[i].img.BackwardImage(img); err != nil {
			return fmt.Errorf("layer %d: %w", i, err)
		}
	}
	return nil
}

// ZeroGrad resets the gradients of every layer.
func (m *Module) ZeroGrad() {
	for _, st := range m.stages {
		st.layer.ZeroGrad()
	}
}

// Train puts every layer in training mode.
func (m *Module) Train() { m.setTraining(true) }

// Eval puts every layer in evaluation mode.
func (m *Module) Eval() { m.setTraining(false) }

// IsTraining reports the current mode.
func (m *Module) IsTraining() bool { return m.training }

func (m *Module) setTraining(training bool) {
	m.training = training
	for _, st := range m.stages {
		st.layer.SetTraining(training)
	}
}

// Walk calls fn for every layer in forward order and stops at the first error.
func (m *Module) Walk(fn func(i int, l Layer) error) error {
	for i, st := range m.stages {
		if err := fn(i, st.layer); err != nil {
			return err
		}
	}
	return nil
}

// Accept lets v visit every parameterized layer in forward order.
func (m *Module) Accept(v Visitor) error {
	return m.Walk(func(i int, l Layer) error {
		if err := l.Accept(v); err != nil {
			return fmt.Errorf("layer %d (%s): %w", i, l.Name(), err)
		}
		return nil
	})
}

// Params returns every trainable parameter in forward order.
func (m *Module) Params() []*Parameter {
	var ps []*Parameter
	for _, st := range m.stages {
		if p, ok := st.layer.(Parameterized); ok {
			ps = append(ps, p.Params()...)
		}
	}
	return ps
}

// NumParams returns the total number of trainable scalars.
func (m *Module) NumParams() int {
	n := 0
	for _, p := range m.Params() {
		n += p.Len()
	}
	return n
}

// Summary writes a table of the layers and their parameter counts.
func (m *Module) Summary(w io.Writer) error {
	const rule = "_________________________________________________________________"
	lines := []string{
		"Model: Module",
		rule,
		fmt.Sprintf("%-25s %-20s %-10s", "Layer (type)", "Stage", "Param #"),
		"=================================================================",
	}
	total := 0
	for i, st := range m.stages {
		params := 0
		if p, ok := st.layer.(Parameterized); ok {
			for _, pp := range p.Params() {
				params += pp.Len()
			}
		}
		total += params
		lines = append(lines, fmt.Sprintf("%-25s %-20s %-10d", fmt.Sprintf("%s_%d", st.layer.Name(), i), m.stageLabel(st), params))
	}
	lines = append(lines,
		"=================================================================",
		fmt.Sprintf("Total params: %d", total),
		rule,
	)
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func (m *Module) stageLabel(st stage) string {
	if st.img != nil && st.vec != nil && !m.IsImageModel() {
		return roleVector.String()
	}
	return st.role.String()
}
