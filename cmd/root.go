// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/linkmcp/internal/config"
	"github.com/xkilldash9x/linkmcp/internal/observability"
)

// EnvPrefix namespaces every environment override, e.g. LINKMCP_SERVER_TRANSPORT.
const EnvPrefix = "LINKMCP"

// osExit is swapped out in tests.
var osExit = os.Exit

// app carries what PersistentPreRunE resolved to the subcommands.
type app struct {
	cfgFile string
	envFile string
	v       *viper.Viper
	cfg     *config.Config
	logger  *zap.Logger
}

// newRootCmd builds the command tree with a fresh viper instance.
func newRootCmd() *cobra.Command {
	return newRootCmdFor(&app{v: viper.New()})
}

func newRootCmdFor(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "linkmcp",
		Short:         "linkmcp drives a persistent, human-paced LinkedIn browser session for an AI agent.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.bindFlags(cmd); err != nil {
				return err
			}
			if err := a.loadConfig(); err != nil {
				return err
			}
			observability.InitializeLogger(a.cfg.Logger())
			a.logger = observability.GetLogger()
			a.logger.Debug("Configuration loaded.", zap.String("config_file", a.v.ConfigFileUsed()))
			return nil
		},
	}
	rootCmd.SetVersionTemplate(`{{printf "%s version %s\n" .Name .Version}}`)
	rootCmd.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (default is ./config.yaml, then ~/.linkmcp/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().String("log-level", "", "override logger.level")

	rootCmd.AddCommand(newServeCmd(a), newLoginCmd(a), newVersionCmd())
	return rootCmd
}

// loadConfig resolves defaults, the config file, the dotenv file,
// environment variables and bound flags, in increasing precedence.
func (a *app) loadConfig() error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("error reading env file %s: %w", a.envFile, err)
		}
	}

	v := a.v
	config.SetDefaults(v)
	if a.cfgFile != "" {
		v.SetConfigFile(a.cfgFile)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.linkmcp")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg, err := config.NewConfigFromViper(v)
	if err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

// flagKeys maps flag names to the config keys they override.
var flagKeys = map[string]string{
	"log-level":   "logger.level",
	"transport":   "server.transport",
	"listen":      "server.listen_addr",
	"headless":    "browser.headless",
	"profile-dir": "browser.profile_dir",
}

// bindFlags binds whichever of flagKeys the running command defines, so an
// explicitly set flag wins over the file and environment.
func (a *app) bindFlags(cmd *cobra.Command) error {
	for flag, key := range flagKeys {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			continue
		}
		if err := a.v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding --%s: %w", flag, err)
		}
	}
	return nil
}

// Execute runs the command tree with a signal-aware context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	observability.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		osExit(1)
	}
}
