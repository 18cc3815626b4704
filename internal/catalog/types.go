package catalog

// LanguageEntry declares one supported generation language.
type LanguageEntry struct {
	Name string `yaml:"name"` // label used in request identity, e.g. "English"
	Tag  string `yaml:"tag"`  // BCP-47 tag, e.g. "en"
}

// SubjectEntry declares one subject and the levels it is taught at.
type SubjectEntry struct {
	Name   string   `yaml:"name"`
	Levels []string `yaml:"levels"`
}

// Document is the on-disk shape of a catalog YAML file.
type Document struct {
	Languages    []LanguageEntry `yaml:"languages"`
	Levels       []string        `yaml:"levels"`
	Subjects     []SubjectEntry  `yaml:"subjects"`
	Difficulties []string        `yaml:"difficulties"`
}
