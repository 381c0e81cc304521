package core

// VariantInfo describes one table variant, such as the ferrous materials
// table or the bolting materials table.
type VariantInfo struct {
	ID       string `json:"id" yaml:"id"`
	Title    string `json:"title" yaml:"title"`
	Subtitle string `json:"subtitle,omitempty" yaml:"subtitle"`
}
