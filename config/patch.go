package config

// Patch is an ordered set of key-path edits. Applying a patch walks its
// entries in order, so later entries may overwrite earlier ones.
type Patch struct {
	entries []patchEntry
}

type patchEntry struct {
	path   string
	value  any
	remove bool
}

// NewPatch starts an empty patch.
func NewPatch() *Patch {
	return &Patch{}
}

// Set records a value write and returns the patch for chaining.
func (p *Patch) Set(path string, value any) *Patch {
	p.entries = append(p.entries, patchEntry{path: path, value: value})
	return p
}

// Remove records a key deletion and returns the patch for chaining.
func (p *Patch) Remove(path string) *Patch {
	p.entries = append(p.entries, patchEntry{path: path, remove: true})
	return p
}

// Len reports the number of recorded edits.
func (p *Patch) Len() int {
	return len(p.entries)
}

// Apply clones the base configuration and applies the patches in order.
// The base is never mutated.
func Apply(base *Config, patches ...*Patch) (*Config, error) {
	out := base.Clone()
	for _, patch := range patches {
		if patch == nil {
			continue
		}
		for _, e := range patch.entries {
			if e.remove {
				out.Delete(e.path)
				continue
			}
			if err := out.Set(e.path, e.value); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}
