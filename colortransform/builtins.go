package colortransform

// builtinPresets resolves Builtin transform names to a fixed chain when no
// ConfigResolver is supplied (or the resolver doesn't recognize the name).
// This is a small, explicit set — not an attempt to reproduce a full ACES
// builtin-transform registry.
var builtinPresets = map[string][]Transform{
	"IDENTITY": {
		{Kind: KindMatrix, Matrix: &MatrixPayload{M: identityMatrix()}},
	},
	"CURVE_SRGB": {
		{Kind: KindExponentWithLinear, ExponentWithLinear: &ExponentWithLinearPayload{
			Gamma:  [3]float64{2.4, 2.4, 2.4},
			Offset: [3]float64{0.055, 0.055, 0.055},
		}},
	},
	"CURVE_REC709": {
		{Kind: KindExponentWithLinear, ExponentWithLinear: &ExponentWithLinearPayload{
			Gamma:  [3]float64{1 / 0.45, 1 / 0.45, 1 / 0.45},
			Offset: [3]float64{0.099, 0.099, 0.099},
		}},
	},
	"ACES_GAMUT_COMPRESS": {
		{Kind: KindFixedFunction, FixedFunction: &FixedFunctionPayload{
			Style:  FFRec2020GamutCompress,
			Params: []float64{0.815, 1.147},
		}},
	},
}
