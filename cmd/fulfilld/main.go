// Command fulfilld runs the order fulfillment daemon and its maintenance tasks.
//
// Subcommands:
//
//	serve            start the webhook server and the fulfillment scheduler
//	migrate          create the MySQL tables
//	settings import  load the settings document from a YAML seed file
//	settings show    print the stored settings as YAML
//	profit           print total profit, or one order's delivery record
//
// Every flag can also be set from a config file (--config) or from an
// environment variable prefixed FULFILL_, e.g. FULFILL_MYSQL_DSN.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:           "fulfilld",
		Short:         "Automated order fulfillment daemon",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(v, cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "Config file (yaml, json or toml)")
	flags.String("mysql-dsn", "", "MySQL DSN, e.g. user:pass@tcp(host:3306)/db?parseTime=true&loc=UTC")
	flags.String("table-prefix", "fulfill_", "Table name prefix")
	flags.String("log-level", "info", "Log level: debug, info, warn, error")
	flags.Bool("development", false, "Human-readable console logs")
	bindFlags(v, flags, map[string]string{
		"mysql.dsn":          "mysql-dsn",
		"mysql.table_prefix": "table-prefix",
		"log.level":          "log-level",
		"log.development":    "development",
	})

	root.AddCommand(newServeCmd(v))
	root.AddCommand(newMigrateCmd(v))
	root.AddCommand(newSettingsCmd(v))
	root.AddCommand(newProfitCmd(v))

	return root
}
