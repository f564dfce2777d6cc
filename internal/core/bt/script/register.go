package script

import (
	"fmt"
	"os"

	"github.com/zeusync/behave/internal/core/bt"
	"github.com/zeusync/behave/internal/core/bt/loader"
)

// Register adds the "script" action. A node gives its code inline with
// "source" or as a path with "file"; "max_duration" and "max_allocs" bound
// each run.
func Register(reg *loader.Registry) {
	reg.RegisterAction("script", func(name string, p loader.Params) (bt.Node, error) {
		src := []byte(p.String("source", ""))
		if path := p.String("file", ""); path != "" {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, err
			}
			src = data
		}
		if len(src) == 0 {
			return nil, fmt.Errorf("%w: script requires 'source' or 'file'", loader.ErrBadParam)
		}

		var opts Options
		d, _, err := p.Duration("max_duration")
		if err != nil {
			return nil, err
		}
		opts.MaxDuration = d
		allocs, ok, err := p.Float("max_allocs")
		if err != nil {
			return nil, err
		}
		if ok {
			opts.MaxAllocs = int64(allocs)
		}

		params := make(map[string]any, len(p))
		for k := range p {
			switch k {
			case "source", "file", "max_duration", "max_allocs":
				continue
			}
			params[k], _ = p.Value(k)
		}
		a, err := NewAction(name, src, params, opts)
		if err != nil {
			return nil, err
		}
		return a, nil
	})
}
