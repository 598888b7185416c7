package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/mschirtzinger/todosync/internal/view"
)

// presetFile is the layout of the view presets file:
//
//	[views.today]
//	sort = "priority"
//	group = "date"
//
//	[views."project:2203306141"]
//	group = "label"
//	order = "desc"
type presetFile struct {
	Views map[string]view.State `toml:"views"`
}

// LoadPresets reads view presets from a TOML file. A missing file yields no
// presets. Every preset is validated.
func LoadPresets(path string) (map[view.ViewID]view.State, error) {
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	var file presetFile
	md, err := toml.DecodeFile(path, &file)
	if err != nil {
		return nil, fmt.Errorf("failed to read presets %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown preset key %s in %s", undecoded[0], path)
	}

	presets := make(map[view.ViewID]view.State, len(file.Views))
	for name, state := range file.Views {
		id, err := view.ParseViewID(name)
		if err != nil {
			return nil, fmt.Errorf("invalid preset view %q: %w", name, err)
		}
		state = state.Normalize()
		if err := state.Validate(); err != nil {
			return nil, fmt.Errorf("invalid preset for %s: %w", id, err)
		}
		presets[id] = state
	}
	return presets, nil
}

// WritePresets saves presets as TOML.
func WritePresets(path string, presets map[view.ViewID]view.State) error {
	file := presetFile{Views: make(map[string]view.State, len(presets))}
	for id, state := range presets {
		file.Views[string(id)] = state
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create presets %s: %w", path, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(file); err != nil {
		return fmt.Errorf("failed to write presets %s: %w", path, err)
	}
	return nil
}
