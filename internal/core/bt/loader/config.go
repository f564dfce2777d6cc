package loader

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Node types understood by Build.
const (
	TypeSequence  = "sequence"
	TypeSelector  = "selector"
	TypeScheduled = "scheduled"
	TypeInverter  = "inverter"
	TypeTimeout   = "timeout"
	TypeAction    = "action"
	TypeCondition = "condition"
)

// Config describes one tree in JSON or YAML. Nodes are declared flat and
// reference each other by name; Root names the entry node.
type Config struct {
	Name  string                `json:"name" yaml:"name"`
	Seed  int64                 `json:"seed,omitempty" yaml:"seed,omitempty"`
	Root  string                `json:"root" yaml:"root"`
	Nodes map[string]NodeConfig `json:"nodes" yaml:"nodes"`

	hash uint64
}

type NodeConfig struct {
	Type      string   `json:"type" yaml:"type"`
	Children  []string `json:"children,omitempty" yaml:"children,omitempty"`
	Child     string   `json:"child,omitempty" yaml:"child,omitempty"`
	Action    string   `json:"action,omitempty" yaml:"action,omitempty"`
	Condition string   `json:"condition,omitempty" yaml:"condition,omitempty"`
	Params    Params   `json:"params,omitempty" yaml:"params,omitempty"`
}

// LoadJSON loads config from JSON reader.
func LoadJSON(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var c Config
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("decode json tree: %w", err)
	}
	c.normalize()
	c.hash = Hash(data)
	return &c, nil
}

// LoadYAML loads config from YAML reader.
func LoadYAML(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode yaml tree: %w", err)
	}
	c.normalize()
	c.hash = Hash(data)
	return &c, nil
}

// LoadFile picks the decoder from the file extension: .json and .hcl
// have their own decoders, anything else is read as YAML.
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var c *Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		c, err = LoadJSON(f)
	case ".hcl":
		c, err = LoadHCL(f, path)
	default:
		c, err = LoadYAML(f)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if c.Name == "" {
		c.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return c, nil
}

// ContentHash is the hash of the bytes the config was decoded from, or 0
// for configs built in code.
func (c *Config) ContentHash() uint64 { return c.hash }

// Validate checks references without building anything.
func (c *Config) Validate() error {
	if c.Root == "" {
		return ErrNoRoot
	}
	if _, ok := c.Nodes[c.Root]; !ok {
		return fmt.Errorf("%w: root %q", ErrUnknownNode, c.Root)
	}
	for name, n := range c.Nodes {
		switch n.Type {
		case TypeSequence, TypeSelector, TypeScheduled:
		case TypeInverter, TypeTimeout:
			if n.Child == "" {
				return fmt.Errorf("%s %q requires child", n.Type, name)
			}
		case TypeAction:
			if n.Action == "" {
				return fmt.Errorf("action %q requires an action name", name)
			}
		case TypeCondition:
			if n.Condition == "" {
				return fmt.Errorf("condition %q requires a condition name", name)
			}
		default:
			return fmt.Errorf("%w: %q on node %q", ErrUnknownType, n.Type, name)
		}
		for _, ref := range n.refs() {
			if _, ok := c.Nodes[ref]; !ok {
				return fmt.Errorf("%w: %q referenced by %q", ErrUnknownNode, ref, name)
			}
		}
	}
	return nil
}

func (n NodeConfig) refs() []string {
	if n.Child != "" {
		return append(append([]string(nil), n.Children...), n.Child)
	}
	return n.Children
}

// normalize lower-cases type names so "Sequence" and "sequence" match.
func (c *Config) normalize() {
	for name, n := range c.Nodes {
		n.Type = strings.ToLower(strings.TrimSpace(n.Type))
		c.Nodes[name] = n
	}
}
