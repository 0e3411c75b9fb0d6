package cfg

type Cfg struct {
	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Application configuration
	FeedsFile          string
	RawDir             string
	ProcessedDir       string
	DynamicDir         string
	DynamicInterval    int
	StaticInterval     int
	MaxFilesPerFolder  int
	MaxCapturesPerPass int
	TransformInterval  int
	CheckInterval      int
	WorkerCount        int
	Port               string
	Modules            []string

	// Application metadata
	UserAgent string
	Debug     bool
	Version   string
}

// ModuleEnabled reports whether the named pipeline module was selected
// via the --modules flag.
func (c *Cfg) ModuleEnabled(name string) bool {
	for _, m := range c.Modules {
		if m == name {
			return true
		}
	}
	return false
}
