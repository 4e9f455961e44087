package workflow

import (
	"math/rand"
	"strings"
)

// seedMax bounds injected sampler seeds; the render server takes them as
// unsigned but JSON transport keeps them in the safe integer range.
const seedMax = int64(1) << 53

// Binder turns a workflow template plus bound parameter values into a
// concrete, executable graph.
type Binder struct {
	// seedFn produces fresh sampler seeds; overridable in tests.
	seedFn func() int64
}

// NewBinder creates a Binder with a random seed source.
func NewBinder() *Binder {
	return &Binder{seedFn: func() int64 { return rand.Int63n(seedMax) }}
}

// NewBinderWithSeed creates a Binder with a fixed seed source.
func NewBinderWithSeed(fn func() int64) *Binder {
	return &Binder{seedFn: fn}
}

// Bind deep-copies the template, applies every binding whose parameter is
// present in params, and injects a fresh random seed into every stochastic
// sampler node that declares a seed input. The input template is never
// mutated. Bindings whose target node is absent are skipped silently.
func (b *Binder) Bind(template Graph, bindings []Binding, params map[string]any) Graph {
	g := template.Clone()

	for _, binding := range bindings {
		raw, present := params[binding.Param]
		if !present {
			continue
		}

		node, ok := g[binding.NodeID]
		if !ok || node == nil {
			// Template and bindings may drift; a missing node must not be
			// fatal.
			continue
		}

		value := raw
		if binding.Composite {
			if s, ok := value.(string); ok {
				value = composeAffixes(binding, s, params)
			}
		}
		value = ApplyTransform(binding.Transform, value)

		node.Inputs[binding.Field] = value
	}

	b.injectSeeds(g)
	return g
}

// composeAffixes builds "<prefix> <value> <suffix>" for composite string
// bindings. Prefix and suffix come from the same-named companion
// parameters, falling back to the binding defaults, and the result is
// trimmed so absent affixes leave no stray spaces.
func composeAffixes(binding Binding, value string, params map[string]any) string {
	prefix := affix(params, binding.Param+"_prefix", binding.DefaultPrefix)
	suffix := affix(params, binding.Param+"_suffix", binding.DefaultSuffix)
	return strings.TrimSpace(prefix + " " + value + " " + suffix)
}

func affix(params map[string]any, key, def string) string {
	if v, ok := params[key]; ok {
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return strings.TrimSpace(def)
}

// injectSeeds writes a fresh random seed into every sampler node that
// already declares a seed input. Bound graphs for cache-missed requests
// must never be accidentally identical.
func (b *Binder) injectSeeds(g Graph) {
	for _, node := range g {
		if node == nil || !isSampler(node.ClassType) {
			continue
		}
		if node.HasInput("seed") {
			node.Inputs["seed"] = b.seedFn()
		}
	}
}

// isSampler reports whether a node type indicates a stochastic sampler.
func isSampler(classType string) bool {
	return strings.Contains(classType, "Sampler")
}
