package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"mentalpoker/internal/config"
	"mentalpoker/internal/handrank"
	"mentalpoker/internal/mpcrypto"
	"mentalpoker/internal/server"
	"mentalpoker/internal/zkverify"
)

func main() {
	var (
		cfgPath = flag.String("config", "", "path to TOML config (defaults apply when empty)")
		addr    = flag.String("addr", "", "listen address override")
		debug   = flag.Bool("debug", false, "verbose logging")
	)
	flag.Parse()

	level := zerolog.InfoLevel
	if *debug {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.NewConsoleWriter()).Level(level).With().Timestamp().Logger()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fail(err)
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}

	// The commitment hash must agree with the circuits bit for bit; refuse
	// to start on any convention drift.
	if err := mpcrypto.SelfCheck(); err != nil {
		fail(err)
	}

	table, err := handrank.Load(cfg.HandRankTableDir)
	if err != nil {
		fail(err)
	}
	rootBasic, rootFlush, err := table.Roots()
	if err != nil {
		fail(err)
	}
	log.Info().
		Str("rootBasic", rootBasic.String()).
		Str("rootFlush", rootFlush.String()).
		Msg("hand-rank trees ready")

	verifier, err := zkverify.LoadKeys(cfg.VerificationKeyDir)
	if err != nil {
		fail(err)
	}

	srv := server.New(cfg, log, verifier, table)
	if err := srv.ListenAndServe(); err != nil {
		fail(err)
	}
}

func fail(err error) {
	_, _ = fmt.Fprintf(os.Stderr, "mpokerd: %v\n", err)
	os.Exit(1)
}
