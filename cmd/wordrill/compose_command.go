package main

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/satindergrewal/wordrill/internal/catalog"
	"github.com/satindergrewal/wordrill/internal/composer"
	"github.com/satindergrewal/wordrill/internal/config"
)

func newComposeCommand(ctx *commandContext) *cobra.Command {
	var (
		output  string
		format  string
		passes  int
		pause   string
		gap     time.Duration
		seed    uint64
		showLog bool
	)

	cmd := &cobra.Command{
		Use:   "compose <section> [word...]",
		Short: "Write a drill track for a section (all words unless listed)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			section := args[0]
			cat := ctx.catalog()

			all, err := cat.ListWords(section)
			if err != nil {
				return err
			}
			words := all
			if len(args) > 1 {
				words = catalog.Restrict(all, args[1:])
			}

			req := composer.Request{
				Section: section,
				Words:   words,
				Passes:  ctx.cfg.Passes,
				Pause:   ctx.cfg.Pause,
				Gap:     ctx.cfg.WordGap,
			}
			if cmd.Flags().Changed("passes") {
				req.Passes = passes
			}
			if pause != "" {
				d, err := config.ParseSeconds(pause)
				if err != nil {
					return err
				}
				req.Pause = config.ClampPause(d)
			}
			if cmd.Flags().Changed("gap") {
				req.Gap = gap
			}

			if format == "" {
				format = ctx.cfg.AudioFormat
			}
			var opts []composer.Option
			if cmd.Flags().Changed("seed") {
				opts = append(opts, composer.WithSeed(seed))
			}
			comp, err := ctx.composer(cat, format, opts...)
			if err != nil {
				return err
			}

			track, err := comp.Compose(cmd.Context(), req)
			if err != nil {
				return err
			}

			if output == "" {
				output = fmt.Sprintf("drill.%s", track.Format)
			}
			if err := os.WriteFile(output, track.Data, 0o644); err != nil {
				return fmt.Errorf("write track: %w", err)
			}

			if showLog {
				for i, pass := range track.Plan {
					fmt.Fprintf(cmd.OutOrStdout(), "pass %d: %s\n", i, strings.Join(catalog.IDs(pass), ", "))
				}
			}
			log.Printf("Wrote %s (%v, %d words x %d passes)", output, track.Duration, len(words), req.Passes)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default drill.<format>)")
	cmd.Flags().StringVar(&format, "format", "", "mp3 or wav (default from config)")
	cmd.Flags().IntVar(&passes, "passes", 5, "repeat passes")
	cmd.Flags().StringVar(&pause, "pause", "", "seconds between languages, 0-5")
	cmd.Flags().DurationVar(&gap, "gap", time.Second, "silence after each word")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "shuffle seed for reproducible tracks")
	cmd.Flags().BoolVar(&showLog, "show-order", false, "print the word order of every pass")
	return cmd
}
