package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"w3plex/internal/app"
)

// version is set at build time via ldflags.
var version = "dev"

const (
	envPrefix         = "W3PLEX"
	defaultConfigPath = "w3plex.yaml"
)

// newAppService is replaced in tests.
var newAppService = app.NewService

type RootConfig struct {
	ConfigPath   string
	SettingsFile string
	EnvFile      string
	LogLevel     string
}

func Execute() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		log.Debug().Err(err).Msg("command failed")
		fmt.Fprintln(os.Stderr, "Error:", errorMessage(err))
		os.Exit(exitCodeForError(err))
	}
}

func newRootCommand() *cobra.Command {
	cfg := RootConfig{}
	cmd := &cobra.Command{
		Use:           "w3plex",
		Short:         "Resolve w3plex configuration documents and run their applications",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadEnvFile(cfg.EnvFile); err != nil {
				return err
			}
			if err := initConfig(cfg.SettingsFile); err != nil {
				return err
			}
			setupLogging(viper.GetString("log_level"))
			return nil
		},
	}
	cmd.PersistentFlags().StringVarP(&cfg.ConfigPath, "config", "c", defaultConfigPath, "Configuration document")
	cmd.PersistentFlags().StringVar(&cfg.SettingsFile, "settings", "", "CLI settings file")
	cmd.PersistentFlags().StringVar(&cfg.EnvFile, "env-file", "", "Dotenv file loaded before the document (default .env when present)")
	cmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", "info", "Log level")
	_ = viper.BindPFlag("config", cmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("log_level", cmd.PersistentFlags().Lookup("log-level"))

	cmd.AddCommand(newValidateCommand())
	cmd.AddCommand(newInspectCommand())
	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newAppsCommand())
	cmd.AddCommand(newInitCommand())
	return cmd
}

func initConfig(settingsFile string) error {
	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()

	if settingsFile != "" {
		viper.SetConfigFile(settingsFile)
		if err := viper.ReadInConfig(); err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("failed to read settings file").
				WithCause(err)
		}
		return nil
	}

	viper.SetConfigName("w3plex-cli")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.config/w3plex")
	if err := viper.ReadInConfig(); err != nil {
		return nil
	}
	return nil
}

// loadEnvFile loads path into the process environment without overriding
// variables that are already set. An empty path loads .env if it exists.
func loadEnvFile(path string) error {
	if path == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to load env file: " + path).
			WithCause(err)
	}
	return nil
}

func setupLogging(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	// Library code logs through log.Ctx, which needs a fallback logger
	// when the context carries none.
	zerolog.DefaultContextLogger = &log.Logger
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func exitCodeForError(err error) int {
	switch errbuilder.CodeOf(err) {
	case errbuilder.CodeInvalidArgument, errbuilder.CodeAlreadyExists:
		return 2
	case errbuilder.CodeFailedPrecondition:
		return 3
	case errbuilder.CodeNotFound:
		return 4
	case errbuilder.CodeInternal:
		return 5
	default:
		return 1
	}
}

func errorMessage(err error) string {
	var builder *errbuilder.ErrBuilder
	if errors.As(err, &builder) && strings.TrimSpace(builder.Msg) != "" {
		return builder.Msg
	}
	return err.Error()
}
