package main

import (
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/satindergrewal/wordrill/internal/audio"
	"github.com/satindergrewal/wordrill/internal/catalog"
	"github.com/satindergrewal/wordrill/internal/composer"
	"github.com/satindergrewal/wordrill/internal/config"
)

type commandContext struct {
	cfg     config.Config
	verbose bool
	quiet   bool
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	root := &cobra.Command{
		Use:   "wordrill",
		Short: "Bilingual vocabulary drill tracks from per-word recordings",
		Long: `wordrill builds listening drills from a library of per-word clips.
Each selected word plays in the source language, pauses, then plays in the
target language. The first pass keeps the section order; later passes shuffle.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(ctx.verbose, ctx.quiet)
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			ctx.cfg = cfg
			return nil
		},
	}

	root.PersistentFlags().BoolVarP(&ctx.verbose, "verbose", "v", false, "verbose logging")
	root.PersistentFlags().BoolVarP(&ctx.quiet, "quiet", "q", false, "suppress non-error output")

	root.AddCommand(
		newServeCommand(ctx),
		newSectionsCommand(ctx),
		newWordsCommand(ctx),
		newComposeCommand(ctx),
	)
	return root
}

func setupLogging(verbose, quiet bool) {
	log.SetOutput(os.Stderr)
	log.SetFlags(log.LstdFlags)
	if verbose {
		log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	}
	if quiet {
		log.SetOutput(io.Discard)
	}
}

func (c *commandContext) catalog() *catalog.Catalog {
	return catalog.New(catalog.Layout{
		Root:      c.cfg.AudioRoot,
		SourceDir: c.cfg.SourceDir,
		TargetDir: c.cfg.TargetDir,
		Ext:       c.cfg.ClipExt,
		InfoFile:  c.cfg.InfoFile,
	})
}

func (c *commandContext) composer(cat *catalog.Catalog, format string, extra ...composer.Option) (*composer.Composer, error) {
	f, err := audio.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	enc, err := audio.NewEncoder(f)
	if err != nil {
		return nil, err
	}
	opts := append([]composer.Option{
		composer.WithWorkers(c.cfg.DecodeWorkers),
		composer.WithEdgeFade(c.cfg.EdgeFade),
	}, extra...)
	return composer.New(composer.FileDecoder{Catalog: cat}, enc, opts...), nil
}
