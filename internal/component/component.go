// Package component defines the renderable component descriptor: a workflow
// template plus the parameter contract and server target needed to execute
// it against a remote render server.
package component

import (
	"time"

	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/workflow"
)

// OutputKind classifies what a component produces.
type OutputKind string

const (
	OutputImage OutputKind = "image"
	OutputVideo OutputKind = "video"
	OutputText  OutputKind = "text"
)

// ParamType is the declared type of a component parameter.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeNumber  ParamType = "number"
	TypeBoolean ParamType = "boolean"
	TypeURL     ParamType = "url"
	TypeJSON    ParamType = "json"
)

// ParamDecl declares one user-facing parameter of a component.
type ParamDecl struct {
	Name     string    `json:"name"`
	Type     ParamType `json:"type"`
	Required bool      `json:"required"`
	Default  any       `json:"default,omitempty"`
}

// Descriptor is the declarative definition of a renderable unit. It is
// created by an external authoring flow and treated as immutable for the
// duration of one render.
type Descriptor struct {
	ID          string              `json:"id"`
	Name        string              `json:"name,omitempty"`
	Description string              `json:"description,omitempty"`
	Template    workflow.Graph      `json:"template"`
	Params      []ParamDecl         `json:"params"`
	Bindings    []workflow.Binding  `json:"bindings"`
	ServerURL   string              `json:"server_url"`
	APIKey      string              `json:"api_key,omitempty"`
	Output      OutputKind          `json:"output"`
	CreatedAt   time.Time           `json:"created_at,omitempty"`
	DeletedAt   *time.Time          `json:"deleted_at,omitempty"`
}

// Decl returns the declaration for a parameter name, if present.
func (d *Descriptor) Decl(name string) (ParamDecl, bool) {
	for _, p := range d.Params {
		if p.Name == name {
			return p, true
		}
	}
	return ParamDecl{}, false
}
