package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ajithabhiram/Kaiburr-task2/pkg/api"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create or replace a task definition",
	Long: `Create a task definition that can be run later. Saving an existing id
replaces the definition but keeps the recorded executions.

Example:
  taskctl create --id 123 --name "Print Hello" --owner "John Smith" --command "echo Hello World!"`,
	Run: func(cmd *cobra.Command, args []string) {
		flags := cmd.Flags()
		id, _ := flags.GetString("id")
		name, _ := flags.GetString("name")
		owner, _ := flags.GetString("owner")
		command, _ := flags.GetString("command")

		if id == "" {
			cmd.Println("Error: --id is required")
			return
		}

		if name == "" {
			cmd.Println("Error: --name is required")
			return
		}

		if owner == "" {
			cmd.Println("Error: --owner is required")
			return
		}

		if command == "" {
			cmd.Println("Error: --command is required")
			return
		}

		client := NewTaskClient(viper.GetString("url"))
		req := api.TaskRequest{
			ID:      id,
			Name:    name,
			Owner:   owner,
			Command: command,
		}

		result, err := client.CreateTask(req)
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("Error (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.Printf("Error: %v\n", err)
			}
			return
		}

		cmd.Printf("✓ Task saved!\nID: %s\nName: %s\n", result.ID, result.Name)
	},
}

func init() {
	flags := createCmd.Flags()
	flags.String("id", "", "Unique id of the task (required)")
	flags.StringP("name", "n", "", "Name of the task (required)")
	flags.StringP("owner", "o", "", "Owner of the task (required)")
	flags.StringP("command", "c", "", "Shell command to execute (required)")

	rootCmd.AddCommand(createCmd)
}
