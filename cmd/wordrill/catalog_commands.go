package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/satindergrewal/wordrill/internal/catalog"
	"github.com/satindergrewal/wordrill/internal/metadata"
)

func newSectionsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sections",
		Short: "List vocabulary sections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat := ctx.catalog()
			sections, err := cat.Sections()
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(sections))
			for _, s := range sections {
				count := "-"
				if words, err := cat.ListWords(s); err == nil {
					count = strconv.Itoa(len(words))
				}
				rows = append(rows, []string{s, count})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Section", "Words"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
}

func newWordsCommand(ctx *commandContext) *cobra.Command {
	var showTarget, showTranslit bool

	cmd := &cobra.Command{
		Use:   "words <section>",
		Short: "List a section's words in drill order with their labels",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat := ctx.catalog()
			words, err := cat.ListWords(args[0])
			if errors.Is(err, catalog.ErrNotFound) {
				return fmt.Errorf("no words available in %q", args[0])
			}
			if err != nil {
				return err
			}

			display := metadata.Display{
				ShowTarget:          showTarget || ctx.cfg.ShowTarget,
				ShowTransliteration: showTranslit || ctx.cfg.ShowTransliteration,
			}
			infos := metadata.NewResolver(cat).ResolveAll(args[0], words)

			rows := make([][]string, len(words))
			for i, w := range words {
				rows[i] = []string{strconv.Itoa(i + 1), w.ID, infos[i].Format(display)}
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"#", "ID", "Label"}, rows, []columnAlignment{alignRight}))
			return nil
		},
	}
	cmd.Flags().BoolVar(&showTarget, "target", false, "show target-language text")
	cmd.Flags().BoolVar(&showTranslit, "translit", false, "show transliteration")
	return cmd
}
