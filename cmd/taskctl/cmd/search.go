package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var searchCmd = &cobra.Command{
	Use:   "search [name_fragment]",
	Short: "Find tasks whose name contains the given text",
	Long: `Find tasks by a case-insensitive name fragment.

Example:
  taskctl search Hello`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := NewTaskClient(viper.GetString("url"))

		tasks, err := client.SearchTasks(args[0])
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				if apiErr.StatusCode == 404 {
					cmd.Printf("No tasks found matching %q.\n", args[0])
					return
				}
				cmd.Printf("Error (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.Printf("Error: %v\n", err)
			}
			return
		}

		printTaskTable(cmd, tasks)
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
}
