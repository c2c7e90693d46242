package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var deleteCmd = &cobra.Command{
	Use:   "delete [task_id]",
	Short: "Delete a task and its execution history",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := NewTaskClient(viper.GetString("url"))

		if err := client.DeleteTask(args[0]); err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("Error (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.Printf("Error: %v\n", err)
			}
			return
		}

		cmd.Printf("✓ Task %s deleted.\n", args[0])
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
