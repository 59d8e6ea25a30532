package presets

// Preset names a target output size for the compression endpoints.
type Preset struct {
	TargetSizeKB int64
	Quality      int
}

var Email = Preset{TargetSizeKB: 100, Quality: 85}

var All = map[string]Preset{
	"email": Email,
	"web":   {TargetSizeKB: 200, Quality: 85},
	"chat":  {TargetSizeKB: 300, Quality: 85},
	"hd":    {TargetSizeKB: 500, Quality: 90},
	"print": {TargetSizeKB: 2048, Quality: 95},
}

func Get(name string) (Preset, bool) {
	p, ok := All[name]
	return p, ok
}

var Names = []string{
	"email",
	"web",
	"chat",
	"hd",
	"print",
}
