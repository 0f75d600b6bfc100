package main

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Drgblack/timemeaning/server/auth"
)

func newAPIKeyCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage API tokens",
	}

	var (
		id   string
		name string
		ttl  time.Duration
	)
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Issue a bearer token signed with TIMEMEANING_API_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret := v.GetString("api-secret")
			if secret == "" {
				return errors.New("TIMEMEANING_API_SECRET is not set")
			}
			now := time.Now()
			var expiresAt time.Time
			if ttl > 0 {
				expiresAt = now.Add(ttl)
			}
			token, err := auth.GenerateAPIToken(id, name, now, expiresAt, []byte(secret))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	issue.Flags().StringVar(&id, "id", "", "key id; also the rate-limit bucket")
	issue.Flags().StringVar(&name, "name", "", "human readable label")
	issue.Flags().DurationVar(&ttl, "ttl", 365*24*time.Hour, "token lifetime, 0 for no expiry")
	_ = issue.MarkFlagRequired("id")

	cmd.AddCommand(issue)
	return cmd
}
