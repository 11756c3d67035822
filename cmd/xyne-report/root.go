package cmd

import (
	"context"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	logwriter "github.com/sirupsen/logrus/hooks/writer"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xynehq/xyne-report/internal/config"
	"github.com/xynehq/xyne-report/internal/errs"
	"github.com/xynehq/xyne-report/pkg/cmd/exp"
	"github.com/xynehq/xyne-report/pkg/cmd/report"
	"github.com/xynehq/xyne-report/pkg/version"
)

const logFile = "xyne-report.log"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "xyne-report",
	Short: "Xyne test execution reports",
	Long:  `xyne-report renders the test execution reports of an automated test run as HTML, PDF, spreadsheet and charts, and shares them with the team`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		// Validate logging level
		loglevel := viper.GetString("log-level")
		logrusLevel, err := log.ParseLevel(loglevel)
		if err != nil {
			return &errs.UsageError{Message: err.Error()}
		}
		log.SetLevel(logrusLevel)

		// Additional log options
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp: true,
		})

		log.SetOutput(os.Stdout)
		fdLog, err := os.OpenFile(logFile, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
		if err != nil {
			log.Errorf("error opening file %s: %v", logFile, err)
		} else {
			log.AddHook(&logwriter.Hook{
				Writer: fdLog,
				LogLevels: []log.Level{
					log.PanicLevel,
					log.FatalLevel,
					log.ErrorLevel,
					log.WarnLevel,
					log.InfoLevel,
					log.DebugLevel,
				},
			})
		}

		envFile := viper.GetString("env-file")
		return config.MergeEnvFile(viper.GetViper(), envFile, cmd.Flags().Changed("env-file"))
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Println(err)
		os.Exit(errs.ExitCode(err))
	}
}

func initBindFlag(flag string) {
	err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag))
	if err != nil {
		log.Warnf("Unable to bind flag %s\n", flag)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("log-level", "info", "logging level")
	rootCmd.PersistentFlags().String("env-file", config.DefaultEnvFile, "dotenv file with the configuration, real environment variables take precedence")
	rootCmd.PersistentFlags().Duration(config.KeyTimeout, config.DefaultTimeout, "timeout of each request to the query service and Slack")
	rootCmd.PersistentFlags().String(config.KeyOutputDir, "", "directory to save the reports, overrides REPORTS_DIR")
	rootCmd.PersistentFlags().Bool(config.KeyNoSlack, false, "do not send the reports to Slack")
	rootCmd.PersistentFlags().Bool(config.KeyPublish, false, "publish the reports to the bucket set by XYNE_REPORT_BUCKET_NAME")
	rootCmd.PersistentFlags().Bool(config.KeyDryRun, false, "log the uploads to the bucket without sending them")
	initBindFlag("log-level")
	initBindFlag("env-file")
	initBindFlag(config.KeyTimeout)
	initBindFlag(config.KeyOutputDir)
	initBindFlag(config.KeyNoSlack)
	initBindFlag(config.KeyPublish)
	initBindFlag(config.KeyDryRun)

	// Link in child commands
	rootCmd.AddCommand(report.NewCmdAll())
	rootCmd.AddCommand(report.NewCmdHTML())
	rootCmd.AddCommand(report.NewCmdPDF())
	rootCmd.AddCommand(report.NewCmdXLSX())
	rootCmd.AddCommand(report.NewCmdCharts())
	rootCmd.AddCommand(report.NewCmdSummary())
	rootCmd.AddCommand(exp.NewCmdExp())
	rootCmd.AddCommand(version.NewCmdVersion())
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	viper.AutomaticEnv() // read in environment variables that match
	config.SetDefaults(viper.GetViper())
}
