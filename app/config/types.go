package config

// Feeds represents the full feed definition file
type Feeds struct {
	Dynamic []DynamicFeed `yaml:"dynamic"`
	Static  []StaticFeed  `yaml:"static"`
}

// DynamicFeed is a real-time protobuf feed captured continuously
type DynamicFeed struct {
	Key string `yaml:"key"`
	URL string `yaml:"url"`
}

// StaticFeed is a slowly-changing schedule resource fetched on change only
type StaticFeed struct {
	Key  string `yaml:"key"`
	URL  string `yaml:"url"`
	Kind string `yaml:"kind"` // gtfs_zip or csv
}

// Known static feed kinds
const (
	KindGTFSZip = "gtfs_zip"
	KindCSV     = "csv"
)
