package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"voicebridge/internal/core"
)

const DefaultProfileName = "default"

type profileFile struct {
	Name          string             `yaml:"name"`
	InputMode     string             `yaml:"input_mode"`
	TTSBackend    string             `yaml:"tts_backend"`
	DefaultVoice  string             `yaml:"default_voice"`
	OutputDevice  string             `yaml:"output_device"`
	ReplyStrategy core.ReplyStrategy `yaml:"reply_strategy"`
	Prompts       map[string]string  `yaml:"prompts"`
	Metadata      map[string]string  `yaml:"metadata"`
}

type Profiles map[string]*core.Profile

// LoadProfiles parses every *.yml / *.yaml file in dir, one profile each.
func LoadProfiles(dir string) (Profiles, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: profiles dir: %v", ErrConfig, err)
	}

	out := Profiles{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".yml" && ext != ".yaml" {
			continue
		}

		p, err := LoadProfile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		if _, dup := out[p.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate profile %q", ErrConfig, p.Name)
		}
		out[p.Name] = p
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no profiles in %s", ErrConfig, dir)
	}

	return out, nil
}

func LoadProfile(path string) (*core.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	// Keys left out of reply_strategy keep their defaults.
	f := profileFile{ReplyStrategy: core.DefaultReplyStrategy()}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfig, filepath.Base(path), err)
	}

	if f.Name == "" {
		f.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	var missing []string
	for _, field := range []struct{ key, val string }{
		{"input_mode", f.InputMode},
		{"tts_backend", f.TTSBackend},
		{"default_voice", f.DefaultVoice},
		{"output_device", f.OutputDevice},
	} {
		if strings.TrimSpace(field.val) == "" {
			missing = append(missing, field.key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: profile %q missing %s", ErrConfig, f.Name, strings.Join(missing, ", "))
	}

	rs := f.ReplyStrategy
	if rs.MaxSuggestionLength <= 0 {
		rs.MaxSuggestionLength = core.DefaultMaxSuggestionLength
	}

	return &core.Profile{
		Name:          f.Name,
		InputMode:     f.InputMode,
		TTSBackend:    f.TTSBackend,
		DefaultVoice:  f.DefaultVoice,
		OutputDevice:  f.OutputDevice,
		ReplyStrategy: rs,
		Prompts:       f.Prompts,
		Metadata:      f.Metadata,
	}, nil
}

func (ps Profiles) Get(name string) (*core.Profile, error) {
	if p, ok := ps[name]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: unknown profile %q (have %s)", ErrConfig, name, strings.Join(ps.Names(), ", "))
}

// Default returns "default" if present, otherwise the first name in order.
func (ps Profiles) Default() (*core.Profile, error) {
	if p, ok := ps[DefaultProfileName]; ok {
		return p, nil
	}
	names := ps.Names()
	if len(names) == 0 {
		return nil, errors.Join(ErrConfig, errors.New("no profiles loaded"))
	}
	return ps[names[0]], nil
}

func (ps Profiles) Names() []string {
	names := make([]string, 0, len(ps))
	for n := range ps {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
