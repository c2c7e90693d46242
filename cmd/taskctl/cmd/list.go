package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ajithabhiram/Kaiburr-task2/pkg/api"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every stored task",
	Run: func(cmd *cobra.Command, args []string) {
		client := NewTaskClient(viper.GetString("url"))

		tasks, err := client.ListTasks()
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("Error (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.Printf("Error: %v\n", err)
			}
			return
		}

		if len(tasks) == 0 {
			cmd.Println("No tasks found.")
			return
		}

		printTaskTable(cmd, tasks)
	},
}

func printTaskTable(cmd *cobra.Command, tasks []api.TaskResponse) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tOWNER\tCOMMAND\tCREATED\tRUNS")
	for _, t := range tasks {
		command := t.Command
		// Truncate long commands for the table view
		if len(command) > 40 {
			command = command[:37] + "..."
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n",
			t.ID,
			t.Name,
			t.Owner,
			command,
			t.CreatedAt.Format(time.RFC3339),
			len(t.Executions),
		)
	}
	w.Flush()
}

func init() {
	rootCmd.AddCommand(listCmd)
}
