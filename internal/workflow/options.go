package workflow

// Compression methods accepted by the compression service.
const (
	MethodTraditional = "traditional"
	MethodML          = "ml"
	MethodHybrid      = "hybrid"
)

// Quality bounds enforced on user-configured options.
const (
	MinQuality = 10
	MaxQuality = 100
)

// Options holds the user-configured compression parameters. A zero
// TargetSizeKB means no size target is submitted.
type Options struct {
	Method         string `json:"method"`
	Quality        int    `json:"quality"`
	TargetSizeKB   int    `json:"target_size_kb"`
	EnableAnalysis bool   `json:"enable_analysis"`
}

// ValidMethod reports whether the method identifier is one of the supported
// compression methods.
func ValidMethod(method string) bool {
	switch method {
	case MethodTraditional, MethodML, MethodHybrid:
		return true
	default:
		return false
	}
}

// Normalized returns a copy with quality clamped to [MinQuality, MaxQuality],
// a non-positive size target treated as absent, and an empty method replaced
// by the traditional default.
func (o Options) Normalized() Options {
	if o.Method == "" {
		o.Method = MethodTraditional
	}
	if o.Quality < MinQuality {
		o.Quality = MinQuality
	}
	if o.Quality > MaxQuality {
		o.Quality = MaxQuality
	}
	if o.TargetSizeKB < 0 {
		o.TargetSizeKB = 0
	}
	return o
}
