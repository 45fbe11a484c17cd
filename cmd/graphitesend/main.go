package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	sender "github.com/itzg/graphite-sender"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var configOptions = []string{
	"graphite_server",
	"graphite_port",
	"prefix",
	"suffix",
	"system_name",
	"group",
	"fqdn_squash",
	"lowercase_metric_names",
	"protocol",
	"dial_timeout",
	"write_timeout",
	"dry_run",
}

var (
	configFile string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:          "graphitesend",
	Short:        "graphitesend writes metrics to a graphite carbon endpoint using the plaintext protocol",
	SilenceUsage: true,
}

var sendCmd = &cobra.Command{
	Use:   "send <name> <value> [timestamp]",
	Short: "Send a single metric",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		tuple := make([]any, len(args))
		for i, arg := range args {
			tuple[i] = arg
		}
		samples, err := sender.SamplesFromTuples([][]any{tuple})
		if err != nil {
			return err
		}
		return withClient(cmd.Context(), func(client *sender.Client) (string, error) {
			return client.SendList(cmd.Context(), samples)
		})
	},
}

var linesCmd = &cobra.Command{
	Use:   "lines",
	Short: "Send Influx line protocol metrics read from stdin",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		input, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		metrics, err := sender.ParseLineProtocol(input)
		if err != nil {
			return err
		}
		if len(metrics) == 0 {
			log.Info("No metrics to send")
			return nil
		}
		return withClient(cmd.Context(), func(client *sender.Client) (string, error) {
			return client.SendMetrics(cmd.Context(), metrics...)
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().String("server", sender.DefaultServer, "graphite server")
	rootCmd.PersistentFlags().Int("port", sender.DefaultPort, "graphite port")
	rootCmd.PersistentFlags().String("prefix", "", "metric prefix")
	rootCmd.PersistentFlags().String("protocol", string(sender.ProtocolStream), "stream or datagram")
	rootCmd.PersistentFlags().Bool("dry-run", false, "print the message instead of sending it")

	rootCmd.AddCommand(sendCmd, linesCmd)
}

// loadConfig merges the config file, GRAPHITE_* environment variables and changed flags, in
// increasing priority. Unknown keys in the config file are rejected by sender.ConfigFromMap.
func loadConfig(flags *pflag.FlagSet) (sender.Config, error) {
	v := viper.New()
	for _, option := range configOptions {
		envName := "GRAPHITE_" + strings.ToUpper(strings.TrimPrefix(option, "graphite_"))
		if err := v.BindEnv(option, envName); err != nil {
			return sender.Config{}, err
		}
	}

	flagOptions := map[string]string{
		"graphite_server": "server",
		"graphite_port":   "port",
		"prefix":          "prefix",
		"protocol":        "protocol",
		"dry_run":         "dry-run",
	}
	for option, flag := range flagOptions {
		if err := v.BindPFlag(option, flags.Lookup(flag)); err != nil {
			return sender.Config{}, err
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return sender.Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	options := make(map[string]any)
	for _, key := range v.AllKeys() {
		if v.IsSet(key) {
			options[key] = v.Get(key)
		}
	}

	return sender.ConfigFromMap(options)
}

func withClient(ctx context.Context, send func(client *sender.Client) (string, error)) error {
	config, err := loadConfig(rootCmd.PersistentFlags())
	if err != nil {
		return err
	}

	logger := log.New()
	logger.Out = os.Stderr
	if debug {
		logger.SetLevel(log.DebugLevel)
	}
	config.Logger = logger

	client, err := sender.NewClient(ctx, config)
	if err != nil {
		return err
	}
	defer client.Disconnect()

	status, err := send(client)
	if err != nil {
		return err
	}
	if config.DryRun {
		fmt.Print(status)
	} else {
		logger.Info(strings.TrimSpace(status))
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
