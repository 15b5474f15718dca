package colbeam

import (
	"github.com/BurntSushi/toml"
	"github.com/go-viper/mapstructure/v2"
)

// LoadConfig reads a TOML file at path, decodes it onto a copy of
// DefaultConfig (so an omitted section keeps its documented default), and
// validates the result.
func LoadConfig(path string) (*Config, error) {
	var raw map[string]any
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, NewInternalError("failed to decode config file", err)
	}

	cfg := DefaultConfig()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Metadata:         nil,
		Result:           cfg,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return nil, NewInternalError("failed to build config decoder", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, NewInternalError("failed to apply config overlay", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
