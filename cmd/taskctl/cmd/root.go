package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "taskctl",
	Short: "Taskctl is a command line tool for interacting with the taskrunner service",
	Long: `taskctl is the command-line interface for the taskrunner service.

Taskrunner stores named shell commands as tasks and executes them on demand
in disposable sandboxes. Each run leaves a durable execution record with the
captured output.

Common workflows:

  Save a task definition:
    taskctl create --id 123 --name "Print Hello" --owner "John Smith" --command "echo Hello World!"

  Run a task and see its output:
    taskctl run 123

  Inspect a task and its execution history:
    taskctl get 123

  Find tasks by name:
    taskctl search Hello

Configuration:
  Set the API endpoint via a flag, an environment variable or a config file:
    TASKRUNNER_URL    API endpoint (default: http://localhost:8080)`,
}

func Execute() error {
	return rootCmd.Execute()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".taskctl"
		viper.AddConfigPath(home)
		viper.SetConfigName(".taskctl")
		viper.SetConfigType("yaml")
	}

	// Read environment variables that match "TASKRUNNER_VARNAME"
	viper.SetEnvPrefix("TASKRUNNER")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.taskctl.yaml)")

	rootCmd.PersistentFlags().String("url", "http://localhost:8080", "Taskrunner server URL")
	viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("url"))
}
