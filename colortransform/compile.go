package colortransform

import (
	"fmt"

	"github.com/deepteams/vfximg/lut"
)

// CompileContext carries the resolution context for compiling a transform
// list: a config handle for symbolic refs, a LUT decoder for File
// transforms, and pedantic-adjacent bookkeeping for cycle detection
// (spec.md §4.2 step 1, §9 "Cyclic config references").
type CompileContext struct {
	Config     ConfigResolver
	LutDecoder LutDecoder

	inProgress map[string]struct{}
}

// resolveSymbolic expands ColorSpace/DisplayView/Look/NamedTransform/
// Builtin references into a concrete Transform list, tracking an
// in-progress set so a reference cycle fails InvalidTransform("cycle at
// X") instead of recursing forever (spec.md Design Notes).
func (cc *CompileContext) resolveSymbolic(t Transform, key string) ([]Transform, error) {
	if cc.inProgress == nil {
		cc.inProgress = make(map[string]struct{})
	}
	if _, busy := cc.inProgress[key]; busy {
		return nil, invalidTransform("cycle at %s", key)
	}
	cc.inProgress[key] = struct{}{}
	defer delete(cc.inProgress, key)

	switch t.Kind {
	case KindColorSpace:
		if cc.Config == nil {
			return nil, notSupported("ColorSpace resolution requires a ConfigResolver")
		}
		info, err := cc.Config.ColorSpace(t.Symbolic.Name)
		if err != nil {
			return nil, invalidTransform("colorspace %q: %v", t.Symbolic.Name, err)
		}
		chain := info.ToReference
		if t.Direction == Inverse {
			chain = info.FromReference
		}
		return cc.expandAll(chain, t.Direction)

	case KindDisplayView:
		if cc.Config == nil {
			return nil, notSupported("DisplayView resolution requires a ConfigResolver")
		}
		chain, err := cc.Config.View(t.Symbolic.Display, t.Symbolic.View)
		if err != nil {
			return nil, invalidTransform("view %s/%s: %v", t.Symbolic.Display, t.Symbolic.View, err)
		}
		return cc.expandAll(chain, t.Direction)

	case KindLook:
		if cc.Config == nil {
			return nil, notSupported("Look resolution requires a ConfigResolver")
		}
		chain, err := cc.Config.Look(t.Symbolic.Name)
		if err != nil {
			return nil, invalidTransform("look %q: %v", t.Symbolic.Name, err)
		}
		return cc.expandAll(chain, t.Direction)

	case KindNamedTransform:
		if cc.Config == nil {
			return nil, notSupported("NamedTransform resolution requires a ConfigResolver")
		}
		chain, err := cc.Config.NamedTransform(t.Symbolic.Name)
		if err != nil {
			return nil, invalidTransform("named transform %q: %v", t.Symbolic.Name, err)
		}
		return cc.expandAll(chain, t.Direction)

	case KindBuiltin:
		if cc.Config != nil {
			if chain, err := cc.Config.Builtin(t.Builtin.Name); err == nil {
				return cc.expandAll(chain, t.Direction)
			}
		}
		chain, ok := builtinPresets[t.Builtin.Name]
		if !ok {
			return nil, notSupported("builtin preset %q", t.Builtin.Name)
		}
		return cc.expandAll(chain, t.Direction)

	default:
		return []Transform{t}, nil
	}
}

// expandAll flattens a chain of transforms, applying dir to each member
// when dir is Inverse (an enclosing inverse direction reverses both the
// order and the per-element direction).
func (cc *CompileContext) expandAll(chain []Transform, dir Direction) ([]Transform, error) {
	ordered := chain
	if dir == Inverse {
		ordered = make([]Transform, len(chain))
		for i, t := range chain {
			ordered[len(chain)-1-i] = t
		}
	}
	var out []Transform
	for i, t := range ordered {
		tt := t
		if dir == Inverse {
			tt.Direction = tt.Direction.Opposite()
		}
		key := fmt.Sprintf("%d:%d:%v", i, tt.Kind, tt.Symbolic)
		flat, err := cc.flatten(tt, key)
		if err != nil {
			return nil, err
		}
		out = append(out, flat...)
	}
	return out, nil
}

// flatten recursively expands Group and symbolic-reference transforms into
// a flat list of lowerable leaf Transforms (spec.md §4.2 step 2).
func (cc *CompileContext) flatten(t Transform, key string) ([]Transform, error) {
	switch t.Kind {
	case KindGroup:
		group := t.Group
		ordered := group
		if t.Direction == Inverse {
			ordered = make([]Transform, len(group))
			for i, g := range group {
				ordered[len(group)-1-i] = g
			}
		}
		var out []Transform
		for i, g := range ordered {
			gg := g
			if t.Direction == Inverse {
				gg.Direction = gg.Direction.Opposite()
			}
			sub, err := cc.flatten(gg, fmt.Sprintf("%s/%d", key, i))
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
		}
		return out, nil

	case KindColorSpace, KindDisplayView, KindLook, KindNamedTransform, KindBuiltin:
		return cc.resolveSymbolic(t, key)

	case KindFile:
		if cc.Config == nil || cc.LutDecoder == nil {
			return nil, notSupported("File transform resolution requires a ConfigResolver and LutDecoder")
		}
		data, err := cc.Config.ResolvePath(t.File.Path, t.File.SearchPaths, t.File.ContextVars)
		if err != nil {
			return nil, invalidTransform("resolving file %q: %v", t.File.Path, err)
		}
		decoded, err := cc.LutDecoder.DecodeLut(data)
		if err != nil {
			return nil, invalidTransform("decoding file %q: %v", t.File.Path, err)
		}
		decoded.Direction = t.Direction
		return []Transform{*decoded}, nil

	default:
		return []Transform{t}, nil
	}
}

// lower converts one flattened leaf Transform into one or more concrete Ops
// (spec.md §4.2 step 3).
func lower(t Transform) ([]*Op, error) {
	switch t.Kind {
	case KindMatrix:
		op, err := lowerMatrix(&t)
		return single(op, err)
	case KindCDL:
		op, err := lowerCDL(&t)
		return single(op, err)
	case KindExponent:
		op, err := lowerExponent(&t)
		return single(op, err)
	case KindExponentWithLinear:
		op, err := lowerExponentWithLinear(&t)
		return single(op, err)
	case KindLog:
		op, err := lowerLog(&t)
		return single(op, err)
	case KindLogAffine:
		op, err := lowerLogAffine(&t)
		return single(op, err)
	case KindLogCamera:
		op, err := lowerLogCamera(&t)
		return single(op, err)
	case KindRange:
		op, err := lowerRange(&t)
		return single(op, err)
	case KindLut1D:
		op, err := lowerLut1D(&t)
		return single(op, err)
	case KindLut3D:
		op, err := lowerLut3D(&t)
		return single(op, err)
	case KindFixedFunction:
		op, err := lowerFixedFunction(&t)
		return single(op, err)
	case KindGradingPrimary:
		op, err := lowerGradingPrimary(&t)
		return single(op, err)
	case KindGradingTone:
		op, err := lowerGradingTone(&t)
		return single(op, err)
	case KindRGBCurve:
		op, err := lowerRGBCurve(&t)
		return single(op, err)
	case KindHueCurve:
		op, err := lowerHueCurve(&t)
		return single(op, err)
	default:
		return nil, notSupported("transform kind %d cannot be lowered directly (should have been flattened)", t.Kind)
	}
}

func single(op *Op, err error) ([]*Op, error) {
	if err != nil {
		return nil, err
	}
	return []*Op{op}, nil
}

func lowerLut1D(t *Transform) (*Op, error) {
	l := t.Lut1D.Lut
	if t.Direction == Inverse {
		inv := &lut.Lut1D{Channels: l.Channels, Min: l.Min, Max: l.Max, Entries: make([][]float32, len(l.Entries))}
		for c := 0; c < l.Channels; c++ {
			ic, err := l.Invert(c)
			if err != nil {
				return nil, invalidTransform("LUT1D channel %d: %v", c, err)
			}
			for i := range inv.Entries {
				if inv.Entries[i] == nil {
					inv.Entries[i] = make([]float32, l.Channels)
				}
				inv.Entries[i][c] = ic.Entries[i][c]
			}
			inv.Min, inv.Max = ic.Min, ic.Max
		}
		l = inv
	}
	fn := func(s *Sample) {
		for c := 0; c < 3 && c < l.Channels; c++ {
			s[c] = l.Eval(c, s[c])
		}
	}
	return &Op{Name: "lut1d", Fn: fn, GPUKernelKey: "lut1d"}, nil
}

func lowerLut3D(t *Transform) (*Op, error) {
	p := t.Lut3D
	l := p.Lut
	if t.Direction == Inverse {
		return nil, notSupported("LUT3D inverse requires a pre-baked inverse LUT (analytic inversion is not defined for general 3D LUTs)")
	}
	tetra := p.Tetrahedral
	fn := func(s *Sample) {
		var out [3]float32
		if tetra {
			out = l.EvalTetrahedral(s[0], s[1], s[2])
		} else {
			out = l.EvalTrilinear(s[0], s[1], s[2])
		}
		s[0], s[1], s[2] = out[0], out[1], out[2]
	}
	return &Op{Name: "lut3d", Fn: fn, GPUKernelKey: "lut3d"}, nil
}
