package loader

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// liveParams are the parameters ApplyLive can patch on a running tree.
// They are left out of the shape hash.
var liveParams = map[string]map[string]bool{
	TypeScheduled: {"loop_mode": true, "reset_on_abort": true},
	TypeTimeout:   {"duration": true},
}

// Hash returns the content hash of a tree file.
func Hash(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// Shape hashes everything about c that cannot be patched into a running
// tree: the root, node names, types, references and non-live parameters.
// Two configs with equal shapes differ only in live-editable parameters.
func (c *Config) Shape() uint64 {
	d := xxhash.New()
	write := func(parts ...string) {
		for _, p := range parts {
			_, _ = d.WriteString(p)
			_, _ = d.Write([]byte{0})
		}
	}

	write("root", c.Root)
	names := make([]string, 0, len(c.Nodes))
	for name := range c.Nodes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		n := c.Nodes[name]
		write("node", name, n.Type, strings.Join(n.Children, ","), n.Child, n.Action, n.Condition)

		keys := make([]string, 0, len(n.Params))
		for k := range n.Params {
			if !liveParams[n.Type][k] {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			v, _ := n.Params.Value(k)
			write(k, fmt.Sprintf("%v", v))
		}
	}
	return d.Sum64()
}
