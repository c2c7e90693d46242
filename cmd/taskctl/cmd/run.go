package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var runCmd = &cobra.Command{
	Use:   "run [task_id]",
	Short: "Run a task's command and print the recorded execution",
	Long: `Run the task's stored command in a disposable sandbox and wait for it
to finish. The command's output is printed and the execution is recorded on
the task either way; a non-zero exit shows up in the output, not as a CLI
error.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		taskID := args[0]
		client := NewTaskClient(viper.GetString("url"))

		execution, err := client.RunTask(taskID)
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("Error (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.Printf("Error: %v\n", err)
			}
			return
		}

		duration := execution.EndedAt.Sub(execution.StartedAt)
		cmd.Printf("%s✓%s Execution finished %s(%s)%s\n",
			colorGreen, colorReset, colorCyan, formatDuration(duration), colorReset)
		if execution.ExecutedViaFallback {
			cmd.Printf("%s! Ran in a local process; the cluster was unavailable.%s\n", colorYellow, colorReset)
		}

		cmd.Println("Output:")
		printOutput(cmd, execution.Output)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
