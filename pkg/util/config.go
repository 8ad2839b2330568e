package util

import (
	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog/log"
)

// ConfigToStruct populates a struct of type T from an arbitrary settings
// map. Used to turn the per-subsystem `settings:` blocks of the config
// file into typed backend configs.
func ConfigToStruct[T any](rawConfig map[string]any) *T {
	conf := new(T)
	if err := mapstructure.Decode(rawConfig, conf); err != nil {
		log.Error().Err(err).Msg("Unable to decode settings block")
	}
	return conf
}
