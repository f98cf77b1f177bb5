package colortransform

// ReferenceType distinguishes scene-referred from display-referred color
// spaces (spec.md §6). The compiler does not consult it: a DisplayView
// chain is composed the same way whichever reference type its color
// spaces carry.
type ReferenceType int

const (
	ReferenceScene ReferenceType = iota
	ReferenceDisplay
)

// ColorSpaceInfo is what a ConfigResolver returns for a named color space:
// its conversion chains to/from the config's reference space.
type ColorSpaceInfo struct {
	ToReference   []Transform
	FromReference []Transform
	ReferenceType ReferenceType
}

// ConfigResolver is the external YAML-config collaborator's contract
// (spec.md §6): out of scope to parse here, but the processor needs this
// seam to resolve ColorSpace/DisplayView/Look/NamedTransform/Builtin
// references and context variables during compilation.
type ConfigResolver interface {
	ColorSpace(name string) (ColorSpaceInfo, error)
	Display(name string) (views []string, err error)
	View(display, name string) ([]Transform, error)
	Look(name string) ([]Transform, error)
	Role(name string) (colorSpaceName string, err error)
	NamedTransform(name string) ([]Transform, error)
	Builtin(name string) ([]Transform, error)
	ResolveContextVar(name string) (string, bool)
	// ResolvePath asks the config's path resolver (path + search paths +
	// context vars) for the bytes of a File transform's target.
	ResolvePath(path string, searchPaths []string, contextVars map[string]string) ([]byte, error)
}

// LutDecoder dispatches resolved File-transform bytes to an external
// LUT-format reader; the processor consumes LUT data, not file syntax
// (spec.md §6). See lutcube.go for the one concrete implementation this
// repo ships as a default, swappable collaborator (SPEC_FULL.md §C.5).
type LutDecoder interface {
	DecodeLut(data []byte) (*Transform, error)
}
