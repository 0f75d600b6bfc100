package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Drgblack/timemeaning/internal/profile"
	"github.com/Drgblack/timemeaning/internal/version"
	"github.com/Drgblack/timemeaning/plugin/timeref"
	"github.com/Drgblack/timemeaning/server"
	"github.com/Drgblack/timemeaning/store"
	"github.com/Drgblack/timemeaning/store/cache"
	"github.com/Drgblack/timemeaning/store/db"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	rootCmd := &cobra.Command{
		Use:          "timemeaning",
		Short:        "Resolve ambiguous human time references into exact instants.",
		SilenceUsage: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
				slog.Warn("failed to load .env", slog.String("error", err.Error()))
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("mode", "demo", `mode of server, can be "prod" or "dev" or "demo"`)
	flags.String("addr", "", "address of server")
	flags.Int("port", 8081, "port of server")
	flags.String("data", "", "data directory")
	flags.String("driver", "sqlite", "database driver (sqlite or postgres)")
	flags.String("dsn", "", "database source name")
	flags.String("instance-url", "", "the public url of this instance, used in share links")
	flags.String("locale", "", "IANA zone assumed when an input names none")
	for _, name := range []string{"mode", "addr", "port", "data", "driver", "dsn", "instance-url", "locale"} {
		if err := v.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}
	v.SetEnvPrefix("timemeaning")
	v.AutomaticEnv()
	for key, env := range map[string]string{
		"instance-url": "TIMEMEANING_INSTANCE_URL",
		"locale":       "TIMEMEANING_DEFAULT_LOCALE",
		"api-secret":   "TIMEMEANING_API_SECRET",
	} {
		if err := v.BindEnv(key, env); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(
		newServeCmd(v),
		newResolveCmd(v),
		newAbbreviationsCmd(),
		newAPIKeyCmd(v),
	)
	return rootCmd
}

// loadProfile builds the profile from flags, environment and .env.
func loadProfile(v *viper.Viper) *profile.Profile {
	p := &profile.Profile{
		Mode:          v.GetString("mode"),
		Addr:          v.GetString("addr"),
		Port:          v.GetInt("port"),
		Data:          v.GetString("data"),
		Driver:        v.GetString("driver"),
		DSN:           v.GetString("dsn"),
		InstanceURL:   v.GetString("instance-url"),
		DefaultLocale: v.GetString("locale"),
		APISecret:     v.GetString("api-secret"),
	}
	p.Version = version.GetCurrentVersion(p.Mode)
	p.FromEnv()
	return p
}

func newServeCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			instanceProfile := loadProfile(v)
			if err := instanceProfile.Validate(); err != nil {
				return err
			}
			slog.SetDefault(newLogger(os.Stderr, instanceProfile.IsDev()))

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			dbDriver, err := db.NewDBDriver(instanceProfile)
			if err != nil {
				return errors.Wrap(err, "failed to create db driver")
			}
			cacheConfig := cache.DefaultTieredConfig()
			cacheConfig.RedisAddr = instanceProfile.RedisAddr
			shareCache, err := cache.NewTieredCache(ctx, cacheConfig)
			if err != nil {
				_ = dbDriver.Close()
				return errors.Wrap(err, "failed to create share cache")
			}
			storeInstance := store.New(dbDriver, instanceProfile, shareCache)
			if err := storeInstance.Migrate(ctx); err != nil {
				_ = storeInstance.Close()
				return errors.Wrap(err, "failed to migrate")
			}

			engine, err := timeref.NewEngine(timeref.WithWorkers(instanceProfile.BatchWorkers))
			if err != nil {
				_ = storeInstance.Close()
				return err
			}
			s, err := server.NewServer(ctx, instanceProfile, storeInstance, engine)
			if err != nil {
				_ = storeInstance.Close()
				return errors.Wrap(err, "failed to create server")
			}
			if err := s.Start(ctx); err != nil {
				_ = storeInstance.Close()
				return errors.Wrap(err, "failed to start server")
			}
			printGreetings(cmd, instanceProfile)

			<-ctx.Done()
			s.Shutdown(context.Background())
			return nil
		},
	}
}

// newLogger is text at debug level in development and JSON at info level
// otherwise.
func newLogger(w io.Writer, dev bool) *slog.Logger {
	if dev {
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func printGreetings(cmd *cobra.Command, p *profile.Profile) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "timemeaning %s started successfully!\n", p.Version)
	if p.IsDev() {
		fmt.Fprintf(out, "Database: %s (%s)\n", p.Driver, p.DSN)
	}
	addr := p.Addr
	if addr == "" {
		addr = "localhost"
	}
	fmt.Fprintf(out, "Server running on %s:%d\n", addr, p.Port)
	if !p.IsAuthEnabled() {
		fmt.Fprintln(out, "API tokens are not required; set TIMEMEANING_API_SECRET to enable them.")
	}
}
