package backend

import (
	"fmt"

	"assetgen/internal/config"
	"assetgen/internal/workspec"
)

// FromConfig builds the backend set described by cfg. Kinds that name the
// same backend share one instance.
func FromConfig(cfg *config.Config) (Backend, error) {
	built := make(map[string]Backend)
	byKind := make(map[workspec.Kind]Backend, len(workspec.Kinds))
	for _, kind := range workspec.Kinds {
		name := cfg.BackendFor(string(kind))
		b, ok := built[name]
		if !ok {
			var err error
			b, err = build(name, cfg)
			if err != nil {
				return nil, err
			}
			built[name] = b
		}
		byKind[kind] = b
	}
	if len(built) == 1 {
		for _, b := range built {
			return b, nil
		}
	}
	return NewMulti(byKind), nil
}

func build(name string, cfg *config.Config) (Backend, error) {
	switch name {
	case config.BackendPlaceholder:
		return NewPlaceholder(), nil
	case config.BackendHTTP:
		return NewHTTP(HTTPConfig{
			BaseURL:      cfg.Backend.BaseURL,
			APIKey:       cfg.Backend.APIKey,
			ImageModel:   cfg.Backend.ImageModel,
			AudioModel:   cfg.Backend.AudioModel,
			Timeout:      cfg.BackendTimeout(),
			ImageWidth:   cfg.Backend.ImageWidth,
			ImageHeight:  cfg.Backend.ImageHeight,
			DefaultStyle: cfg.Backend.DefaultStyle,
			DefaultVoice: cfg.Backend.DefaultVoice,
		}), nil
	case config.BackendCommand:
		return NewCommand(CommandConfig{
			Command:      cfg.Backend.Command,
			Args:         cfg.Backend.Args,
			DefaultStyle: cfg.Backend.DefaultStyle,
			DefaultVoice: cfg.Backend.DefaultVoice,
		}), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", name)
	}
}
