package main

import (
	"context"
	"fmt"
	stdos "os"

	"github.com/framecast/framecast/pkg/caster"
	"github.com/framecast/framecast/pkg/config"
	"github.com/framecast/framecast/pkg/logger"
	"github.com/framecast/framecast/pkg/os"
	flag "github.com/spf13/pflag"
)

var Version = "?"

func run() int {
	var flags config.Flags
	flags.WithFlags(flag.CommandLine)
	testFrame := flag.String("test-frame", "", "Save a single frame into the PNG file and exit")
	version := flag.Bool("version", false, "Print the version and exit")
	flag.Parse()

	if *version {
		fmt.Println(Version)
		return caster.ExitOK
	}

	conf, src, err := config.NewConfig(flags.Path)
	if err != nil {
		fmt.Fprintf(stdos.Stderr, "config: %v\n", err)
		return caster.ExitConfig
	}
	flags.Apply(flag.CommandLine, &conf)

	log := logger.NewConsole(conf.Log.Debug, "cast", conf.Log.NoColor)
	if conf.Log.JSON {
		log = logger.New(conf.Log.Debug)
	}
	log.Info().Msgf("version %s", Version)
	if src != "" {
		log.Info().Msgf("config: %v", src)
	}

	ctx, cancel := os.TerminationContext(context.Background())
	defer cancel()

	c := caster.New(conf, log)
	var code int
	if *testFrame != "" {
		code, err = c.TestFrame(ctx, *testFrame)
	} else {
		code, err = c.Run(ctx)
	}
	if err != nil {
		log.Error().Err(err).Int("code", code).Msg("exit")
	}
	return code
}

func main() { stdos.Exit(run()) }
