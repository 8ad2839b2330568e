package main

import (
	"os"

	"github.com/rs/zerolog/log"

	"github.com/keygate/keygate/cmd/keygate"
	"github.com/keygate/keygate/pkg/config"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal().Msg("Usage: keygate <config.yaml>")
	}

	conf, err := config.Load(os.Args[1])
	if err != nil {
		log.Fatal().Err(err).Msg("Unable to load config file")
	}

	keygate.Run(conf)
}
