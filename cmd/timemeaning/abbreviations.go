package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/Drgblack/timemeaning/server/timezone"
)

func newAbbreviationsCmd() *cobra.Command {
	var onlyAmbiguous bool
	cmd := &cobra.Command{
		Use:   "abbreviations [ABBR]",
		Short: "List the timezone abbreviation knowledge base, or show one entry",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kb, err := timezone.DefaultKnowledgeBase()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				entry, ok := kb.Lookup(args[0])
				if !ok {
					return errors.Errorf("unknown abbreviation %q", args[0])
				}
				printEntry(out, entry)
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ABBR\tCANDIDATES\tSPREAD\tDEFAULT")
			for _, abbr := range kb.Abbreviations() {
				entry, _ := kb.Lookup(abbr)
				if onlyAmbiguous && !entry.IsAmbiguous() {
					continue
				}
				fmt.Fprintf(tw, "%s\t%d\t%dm\t%s\n", entry.Abbreviation, len(entry.Candidates), entry.MaxSpreadMinutes(), entry.Primary().Label())
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "\nknowledge base %s\n", kb.Version())
			return nil
		},
	}
	cmd.Flags().BoolVar(&onlyAmbiguous, "ambiguous", false, "only list abbreviations with more than one reading")
	return cmd
}

func printEntry(w io.Writer, entry *timezone.AbbreviationEntry) {
	color.New(color.Bold).Fprint(w, entry.Abbreviation)
	if entry.IsAmbiguous() {
		color.New(color.FgYellow).Fprintf(w, "  ambiguous, readings up to %d minutes apart", entry.MaxSpreadMinutes())
	}
	fmt.Fprintln(w)
	for i, c := range entry.Candidates {
		marker := " "
		if i == 0 {
			marker = "*"
		}
		fmt.Fprintf(w, " %s %-28s %s\n", marker, c.Label(), c.Region)
	}
}
