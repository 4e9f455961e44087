package component

import (
	"strings"
	"testing"

	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/pkg/errors"
)

func testDescriptor() *Descriptor {
	return &Descriptor{
		ID: "text2image",
		Params: []ParamDecl{
			{Name: "prompt", Type: TypeString, Required: true},
			{Name: "steps", Type: TypeNumber, Default: float64(20)},
			{Name: "hires", Type: TypeBoolean},
			{Name: "reference", Type: TypeURL},
			{Name: "extra", Type: TypeJSON},
		},
	}
}

func TestValidateParams(t *testing.T) {
	tests := []struct {
		name    string
		params  map[string]any
		wantErr string
	}{
		{
			name:   "valid minimal",
			params: map[string]any{"prompt": "a red fox"},
		},
		{
			name:   "valid full",
			params: map[string]any{"prompt": "x", "steps": float64(30), "hires": true, "reference": "https://example.com/a.png", "extra": map[string]any{"cfg": 7}},
		},
		{
			name:    "missing required",
			params:  map[string]any{"steps": float64(30)},
			wantErr: "prompt: missing required parameter",
		},
		{
			name:    "number mismatch",
			params:  map[string]any{"prompt": "x", "steps": "lots"},
			wantErr: "steps: expected number",
		},
		{
			name:    "boolean mismatch",
			params:  map[string]any{"prompt": "x", "hires": "maybe"},
			wantErr: "hires: expected boolean",
		},
		{
			name:    "url mismatch",
			params:  map[string]any{"prompt": "x", "reference": "not a url"},
			wantErr: "reference: expected url",
		},
		{
			name:    "multiple field messages",
			params:  map[string]any{"steps": "lots"},
			wantErr: "; ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateParams(testDescriptor(), tt.params)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.IsValidation(err) {
				t.Errorf("expected VALIDATION_ERROR, got %v", errors.GetCode(err))
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected message containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateAppliesDefaults(t *testing.T) {
	normalized, err := ValidateParams(testDescriptor(), map[string]any{"prompt": "x"})
	if err != nil {
		t.Fatal(err)
	}
	if normalized["steps"] != float64(20) {
		t.Errorf("expected default steps=20, got %v", normalized["steps"])
	}
}

func TestValidateDoesNotMutateInput(t *testing.T) {
	in := map[string]any{"prompt": "x"}
	_, err := ValidateParams(testDescriptor(), in)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := in["steps"]; ok {
		t.Error("caller's parameter map was mutated")
	}
}

func TestValueConversionsAreTotal(t *testing.T) {
	tests := []struct {
		name string
		in   any
		str  string
	}{
		{"string", "hi", "hi"},
		{"number", float64(1.5), "1.5"},
		{"bool", true, "true"},
		{"json", map[string]any{"a": float64(1)}, `{"a":1}`},
		{"url", "https://example.com/x", "https://example.com/x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FromAny(tt.in).AsString(); got != tt.str {
				t.Errorf("AsString: expected %q, got %q", tt.str, got)
			}
		})
	}
}

func TestValueKinds(t *testing.T) {
	if FromAny("https://example.com/a").Kind() != KindURL {
		t.Error("https strings should classify as url")
	}
	if FromAny("plain").Kind() != KindString {
		t.Error("plain strings should classify as string")
	}
	if FromAny(float64(3)).Kind() != KindNumber {
		t.Error("float64 should classify as number")
	}
	if FromAny([]any{1}).Kind() != KindJSON {
		t.Error("slices should classify as json")
	}
}

func TestAsNumber(t *testing.T) {
	if n, ok := FromAny("42").AsNumber(); !ok || n != 42 {
		t.Errorf("numeric string should convert, got %v %v", n, ok)
	}
	if _, ok := FromAny("fox").AsNumber(); ok {
		t.Error("non-numeric string should not convert")
	}
}
