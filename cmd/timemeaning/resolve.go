package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Drgblack/timemeaning/plugin/timeref"
)

func newResolveCmd(v *viper.Viper) *cobra.Command {
	var (
		reference string
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "resolve TEXT",
		Short: "Resolve one time reference and print the result",
		Example: `  timemeaning resolve "Let's meet at 3pm EST on Friday" --reference 2025-03-01T12:00:00Z
  timemeaning resolve "noon tomorrow" --locale Europe/Berlin --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := timeref.NewEngine()
			if err != nil {
				return err
			}
			req := &timeref.Request{
				Input: strings.Join(args, " "),
				Context: timeref.RequestContext{
					ReferenceDatetime: reference,
					Locale:            v.GetString("locale"),
				},
			}

			out := cmd.OutOrStdout()
			resp, err := engine.Resolve(cmd.Context(), req)
			if asJSON {
				var payload any = resp
				if err != nil {
					payload = timeref.ErrorResponse{Error: timeref.NewErrorBody(err)}
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if encErr := enc.Encode(payload); encErr != nil {
					return encErr
				}
				return err
			}
			if err != nil {
				printFailure(out, timeref.NewErrorBody(err))
				return err
			}
			printResponse(out, resp)
			return nil
		},
	}
	cmd.Flags().StringVar(&reference, "reference", "", "reference datetime (RFC 3339 or YYYY-MM-DD); defaults to now")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the JSON response")
	return cmd
}

func printResponse(w io.Writer, resp *timeref.Response) {
	bold := color.New(color.Bold)
	muted := color.New(color.FgHiBlack)
	warn := color.New(color.FgYellow)

	bold.Fprintln(w, resp.Resolved.ISO8601UTC)
	fmt.Fprintf(w, "  local    %s\n", resp.Resolved.ISO8601Local)
	fmt.Fprintf(w, "  unix     %d\n", resp.Resolved.Unix)
	fmt.Fprintf(w, "  zone     %s (UTC%s)", resp.Timezone.Name, resp.Timezone.UTCOffset)
	if resp.Timezone.IANA != "" {
		muted.Fprintf(w, " %s", resp.Timezone.IANA)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  confidence %s\n", confidenceColor(resp.Confidence).Sprint(resp.Confidence))

	if flags := activeFlags(resp.Flags); len(flags) > 0 {
		warn.Fprintf(w, "  flags    %s\n", strings.Join(flags, ", "))
	}
	for _, a := range resp.Assumptions {
		fmt.Fprintf(w, "  - %s ", a.Description)
		muted.Fprintf(w, "[%s, %s]\n", a.Type, a.Confidence)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, resp.Explanation)
}

func printFailure(w io.Writer, body timeref.ErrorBody) {
	color.New(color.FgRed, color.Bold).Fprintf(w, "%s", body.Code)
	fmt.Fprintf(w, ": %s\n", body.Message)
	if body.Ghost != nil {
		fmt.Fprintf(w, "  %s\n", body.Ghost.Explanation)
	}
	for _, c := range body.Candidates {
		fmt.Fprintf(w, "  - %s\n", c.Label)
	}
}

func confidenceColor(level string) *color.Color {
	switch level {
	case "high":
		return color.New(color.FgGreen)
	case "medium":
		return color.New(color.FgYellow)
	}
	return color.New(color.FgRed)
}

func activeFlags(f timeref.Flags) []string {
	var out []string
	if f.Ambiguous {
		out = append(out, "ambiguous")
	}
	if f.GhostDate {
		out = append(out, "ghost date")
	}
	if f.DSTBoundary {
		out = append(out, "DST boundary")
	}
	if f.Y2K38Unsafe {
		out = append(out, "Y2K38 unsafe")
	}
	return out
}
