package types

// Roadmap is the top-level document: a repository coordinate plus an
// ordered list of delivery phases.
type Roadmap struct {
	Repository string  `yaml:"repository" json:"repository"`
	Phases     []Phase `yaml:"phases" json:"phases"`
}

// Phase maps to one GitHub milestone. Each phase carries exactly one
// epic grouping its child issues.
type Phase struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Duration    string `yaml:"duration" json:"duration"`
	Epic        Epic   `yaml:"epic" json:"epic"`
}

// Epic is an issue used as the parent for a phase's child issues.
// An empty Title is derived from the phase name at apply time.
type Epic struct {
	Title    string   `yaml:"title" json:"title"`
	Body     string   `yaml:"body" json:"body"`
	Labels   []string `yaml:"labels" json:"labels"`
	Children []Issue  `yaml:"children" json:"children"`
}

// Issue is a child issue under an epic.
type Issue struct {
	Title  string   `yaml:"title" json:"title"`
	Body   string   `yaml:"body" json:"body"`
	Labels []string `yaml:"labels" json:"labels"`
}

// LinkMap describes an existing epic → children hierarchy by issue
// number, for linking issues that were created outside the apply pass.
type LinkMap struct {
	Repository string `yaml:"repository" json:"repository"`
	Links      []Link `yaml:"links" json:"links"`
}

// Link pairs one epic issue number with its child issue numbers.
type Link struct {
	Epic     int   `yaml:"epic" json:"epic"`
	Children []int `yaml:"children" json:"children"`
}
