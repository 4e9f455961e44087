package workflow

// Binding maps one declared component parameter onto a node input field of
// the workflow template.
type Binding struct {
	// Param is the declared parameter name.
	Param string `json:"param"`
	// NodeID is the target node in the template.
	NodeID string `json:"node_id"`
	// Field is the input field written on the target node.
	Field string `json:"field"`
	// Transform optionally names a value transform applied before writing.
	// Unknown names are ignored.
	Transform string `json:"transform,omitempty"`
	// Composite enables dynamic prefix/suffix composition for string
	// parameters: the effective value is "<prefix> <value> <suffix>", with
	// prefix/suffix read from the "{param}_prefix"/"{param}_suffix"
	// parameters and falling back to the defaults below.
	Composite bool `json:"composite,omitempty"`
	// DefaultPrefix and DefaultSuffix back the composite lookup.
	DefaultPrefix string `json:"default_prefix,omitempty"`
	DefaultSuffix string `json:"default_suffix,omitempty"`
}
