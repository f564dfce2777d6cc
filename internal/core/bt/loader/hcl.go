package loader

import (
	"fmt"
	"io"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// hclTreeFile is the decode target for .hcl trees:
//
//	root = "main"
//	node "main" {
//	  type     = "sequence"
//	  children = ["a", "b"]
//	}
type hclTreeFile struct {
	Name  string     `hcl:"name,optional"`
	Seed  int64      `hcl:"seed,optional"`
	Root  string     `hcl:"root"`
	Nodes []*hclNode `hcl:"node,block"`
}

type hclNode struct {
	Name      string         `hcl:"name,label"`
	Type      string         `hcl:"type"`
	Children  []string       `hcl:"children,optional"`
	Child     string         `hcl:"child,optional"`
	Action    string         `hcl:"action,optional"`
	Condition string         `hcl:"condition,optional"`
	Params    hcl.Expression `hcl:"params,optional"`
}

// LoadHCL loads config from an HCL reader. filename only shows up in
// diagnostics.
func LoadHCL(r io.Reader, filename string) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	file, diags := hclparse.NewParser().ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse hcl tree: %w", diags)
	}

	var parsed hclTreeFile
	if diags = gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("decode hcl tree: %w", diags)
	}

	c := Config{
		Name:  parsed.Name,
		Seed:  parsed.Seed,
		Root:  parsed.Root,
		Nodes: make(map[string]NodeConfig, len(parsed.Nodes)),
	}
	for _, n := range parsed.Nodes {
		if _, dup := c.Nodes[n.Name]; dup {
			return nil, fmt.Errorf("decode hcl tree: node %q declared twice", n.Name)
		}
		params, err := hclParams(n.Params)
		if err != nil {
			return nil, fmt.Errorf("decode hcl tree: node %q: %w", n.Name, err)
		}
		c.Nodes[n.Name] = NodeConfig{
			Type:      n.Type,
			Children:  n.Children,
			Child:     n.Child,
			Action:    n.Action,
			Condition: n.Condition,
			Params:    params,
		}
	}
	c.normalize()
	c.hash = Hash(data)
	return &c, nil
}

func hclParams(expr hcl.Expression) (Params, error) {
	if expr == nil {
		return nil, nil
	}
	v, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	native, err := ctyToNative(v)
	if err != nil {
		return nil, err
	}
	if native == nil {
		return nil, nil
	}
	m, ok := native.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: params must be an object, got %s", ErrBadParam, v.Type().FriendlyName())
	}
	return Params(m), nil
}

// ctyToNative converts a cty value into the plain Go shapes Params
// accessors understand. Numbers become float64.
func ctyToNative(v cty.Value) (any, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, nil
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil
	case ty == cty.Number:
		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return nil, err
		}
		return f, nil
	case ty == cty.Bool:
		return v.True(), nil
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		out := make([]any, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			n, err := ctyToNative(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, n)
		}
		return out, nil
	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			key, elem := it.Element()
			n, err := ctyToNative(elem)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key.AsString(), err)
			}
			out[key.AsString()] = n
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value type %s", ty.FriendlyName())
	}
}
