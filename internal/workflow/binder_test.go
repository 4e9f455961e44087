package workflow

import (
	"testing"
)

func testTemplate() Graph {
	return Graph{
		"3": {
			ClassType: "KSampler",
			Inputs: map[string]any{
				"seed":  float64(0),
				"steps": float64(20),
				"model": []any{"4", float64(0)},
			},
		},
		"6": {
			ClassType: "CLIPTextEncode",
			Inputs:    map[string]any{"text": ""},
		},
		"7": {
			ClassType: "CLIPTextEncode",
			Inputs:    map[string]any{"text": "bad quality"},
		},
	}
}

func fixedBinder(seed int64) *Binder {
	return NewBinderWithSeed(func() int64 { return seed })
}

func TestBindWritesParameterIntoNode(t *testing.T) {
	tmpl := testTemplate()
	bindings := []Binding{{Param: "prompt", NodeID: "6", Field: "text"}}

	g := fixedBinder(7).Bind(tmpl, bindings, map[string]any{"prompt": "a red fox"})

	if got := g["6"].Inputs["text"]; got != "a red fox" {
		t.Errorf("expected bound prompt, got %v", got)
	}
}

func TestBindDoesNotMutateTemplate(t *testing.T) {
	tmpl := testTemplate()
	bindings := []Binding{{Param: "prompt", NodeID: "6", Field: "text"}}

	_ = fixedBinder(7).Bind(tmpl, bindings, map[string]any{"prompt": "a red fox"})

	if got := tmpl["6"].Inputs["text"]; got != "" {
		t.Errorf("template mutated: node 6 text = %v", got)
	}
	if got := tmpl["3"].Inputs["seed"]; got != float64(0) {
		t.Errorf("template mutated: node 3 seed = %v", got)
	}
}

func TestBindSkipsAbsentParameter(t *testing.T) {
	tmpl := testTemplate()
	bindings := []Binding{{Param: "negative", NodeID: "7", Field: "text"}}

	g := fixedBinder(7).Bind(tmpl, bindings, map[string]any{})

	if got := g["7"].Inputs["text"]; got != "bad quality" {
		t.Errorf("absent parameter should leave template default, got %v", got)
	}
}

func TestBindSkipsMissingNode(t *testing.T) {
	tmpl := testTemplate()
	bindings := []Binding{{Param: "prompt", NodeID: "99", Field: "text"}}

	// Must not panic; binding to a drifted node id is silently skipped.
	g := fixedBinder(7).Bind(tmpl, bindings, map[string]any{"prompt": "x"})

	if _, ok := g["99"]; ok {
		t.Error("binding must not create missing nodes")
	}
}

func TestBindCompositePrefixSuffix(t *testing.T) {
	tests := []struct {
		name    string
		binding Binding
		params  map[string]any
		want    string
	}{
		{
			name:    "explicit affix parameters",
			binding: Binding{Param: "prompt", NodeID: "6", Field: "text", Composite: true},
			params: map[string]any{
				"prompt":        "a red fox",
				"prompt_prefix": "masterpiece,",
				"prompt_suffix": "4k",
			},
			want: "masterpiece, a red fox 4k",
		},
		{
			name: "binding defaults",
			binding: Binding{
				Param: "prompt", NodeID: "6", Field: "text", Composite: true,
				DefaultPrefix: "photo of", DefaultSuffix: "studio light",
			},
			params: map[string]any{"prompt": "a red fox"},
			want:   "photo of a red fox studio light",
		},
		{
			name:    "no affixes trims spacing",
			binding: Binding{Param: "prompt", NodeID: "6", Field: "text", Composite: true},
			params:  map[string]any{"prompt": "a red fox"},
			want:    "a red fox",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := fixedBinder(7).Bind(testTemplate(), []Binding{tt.binding}, tt.params)
			if got := g["6"].Inputs["text"]; got != tt.want {
				t.Errorf("expected %q, got %v", tt.want, got)
			}
		})
	}
}

func TestBindTransforms(t *testing.T) {
	tmpl := testTemplate()

	t.Run("number transform parses strings", func(t *testing.T) {
		bindings := []Binding{{Param: "steps", NodeID: "3", Field: "steps", Transform: "number"}}
		g := fixedBinder(7).Bind(tmpl, bindings, map[string]any{"steps": "30"})
		if got := g["3"].Inputs["steps"]; got != float64(30) {
			t.Errorf("expected 30, got %v", got)
		}
	})

	t.Run("unknown transform is a no-op", func(t *testing.T) {
		bindings := []Binding{{Param: "prompt", NodeID: "6", Field: "text", Transform: "reticulate"}}
		g := fixedBinder(7).Bind(tmpl, bindings, map[string]any{"prompt": "a red fox"})
		if got := g["6"].Inputs["text"]; got != "a red fox" {
			t.Errorf("unknown transform must pass value through, got %v", got)
		}
	})
}

func TestSeedInjection(t *testing.T) {
	tmpl := testTemplate()

	g := fixedBinder(42).Bind(tmpl, nil, nil)

	if got := g["3"].Inputs["seed"]; got != int64(42) {
		t.Errorf("sampler seed not injected, got %v", got)
	}
	// Non-sampler nodes and samplers without a declared seed input are left
	// alone.
	if _, ok := g["6"].Inputs["seed"]; ok {
		t.Error("seed injected into non-sampler node")
	}
}

func TestSeedInjectionRequiresDeclaredInput(t *testing.T) {
	tmpl := Graph{
		"1": {ClassType: "SamplerCustom", Inputs: map[string]any{"sigmas": float64(1)}},
	}

	g := fixedBinder(42).Bind(tmpl, nil, nil)

	if _, ok := g["1"].Inputs["seed"]; ok {
		t.Error("seed must only be injected where the node declares one")
	}
}

func TestApplyTransformTable(t *testing.T) {
	tests := []struct {
		name string
		xf   string
		in   any
		want any
	}{
		{"lowercase", "lowercase", "ABC", "abc"},
		{"uppercase", "uppercase", "abc", "ABC"},
		{"stringify number", "string", float64(3), "3"},
		{"number passthrough on junk", "number", "not-a-number", "not-a-number"},
		{"json parses object strings", "json", `{"a":1}`, nil}, // checked below
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyTransform(tt.xf, tt.in)
			if tt.xf == "json" {
				m, ok := got.(map[string]any)
				if !ok || m["a"] != float64(1) {
					t.Errorf("expected parsed object, got %v", got)
				}
				return
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
