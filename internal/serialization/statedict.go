package serialization

import (
	"fmt"

	"github.com/born-ml/convnet/internal/nn"
)

// ParamName returns the checkpoint name of parameter p of layer index i.
func ParamName(i int, p *nn.Parameter) string {
	return fmt.Sprintf("layers.%d.%s", i, p.Name())
}

// StateDict lists the module parameters in layer order. The returned tensors
// alias the live parameter values.
func StateDict(m *nn.Module) []NamedTensor {
	var out []NamedTensor
	_ = m.Walk(func(i int, l nn.Layer) error {
		p, ok := l.(nn.Parameterized)
		if !ok {
			return nil
		}
		for _, param := range p.Params() {
			out = append(out, NamedTensor{Name: ParamName(i, param), Tensor: param.Value()})
		}
		return nil
	})
	return out
}

// LoadStateDict copies checkpoint tensors into the module parameters.
// Every parameter must be present with a matching shape and the checkpoint
// must not hold extra tensors. On error the module is left unchanged.
func LoadStateDict(m *nn.Module, ckpt *Checkpoint) error {
	type assignment struct {
		param *nn.Parameter
		name  string
	}
	var plan []assignment
	err := m.Walk(func(i int, l nn.Layer) error {
		p, ok := l.(nn.Parameterized)
		if !ok {
			return nil
		}
		for _, param := range p.Params() {
			name := ParamName(i, param)
			t, err := ckpt.Tensor(name)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrStateMismatch, err)
			}
			if !t.SameShape(param.Value()) {
				return fmt.Errorf("%w: %s is %dx%d, module expects %dx%d", ErrStateMismatch,
					name, t.Rows(), t.Cols(), param.Value().Rows(), param.Value().Cols())
			}
			plan = append(plan, assignment{param: param, name: name})
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(plan) != ckpt.Len() {
		return fmt.Errorf("%w: checkpoint has %d tensors, module has %d parameters",
			ErrStateMismatch, ckpt.Len(), len(plan))
	}

	for _, a := range plan {
		t, _ := ckpt.Tensor(a.name)
		if err := a.param.Set(t); err != nil {
			return err
		}
	}
	return nil
}

// SaveModule writes every parameter of m to path.
func SaveModule(path string, m *nn.Module, header Header) error {
	return Save(path, StateDict(m), header)
}
