package domain

// HypothesisSeed is one templated hypothesis statement. The {entity}
// placeholder in Statement is replaced with the entity's display name at
// initialization time.
type HypothesisSeed struct {
	Category   string  `json:"category" yaml:"category"`
	Statement  string  `json:"statement" yaml:"statement"`
	Prior      float64 `json:"prior" yaml:"prior"`
	PatternKey string  `json:"pattern_key" yaml:"pattern_key"`
}

// TemplateSet is a domain-configured set of hypothesis seeds, keyed by a
// template identifier. Template content is external configuration; the
// engine only consumes it.
type TemplateSet struct {
	ID    string           `json:"id" yaml:"id"`
	Name  string           `json:"name" yaml:"name"`
	Seeds []HypothesisSeed `json:"seeds" yaml:"seeds"`
}
