package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ajithabhiram/Kaiburr-task2/pkg/api"
)

var getCmd = &cobra.Command{
	Use:   "get [task_id]",
	Short: "Show a task and its execution history",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := NewTaskClient(viper.GetString("url"))

		task, err := client.GetTask(args[0])
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("Error (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.Printf("Error: %v\n", err)
			}
			return
		}

		printTask(cmd, task)
	},
}

func printTask(cmd *cobra.Command, task *api.TaskResponse) {
	cmd.Printf("%sTask Details%s\n", colorBold, colorReset)
	cmd.Println("──────────────────────────────")
	cmd.Printf("%sID:%s       %s\n", colorDim, colorReset, task.ID)
	cmd.Printf("%sName:%s     %s\n", colorDim, colorReset, task.Name)
	cmd.Printf("%sOwner:%s    %s\n", colorDim, colorReset, task.Owner)
	cmd.Printf("%sCommand:%s  %s\n", colorDim, colorReset, task.Command)
	cmd.Printf("%sCreated:%s  %s\n", colorDim, colorReset, formatTimeWithRelative(task.CreatedAt))

	if len(task.Executions) == 0 {
		cmd.Println("\nNo executions recorded yet.")
		return
	}

	cmd.Printf("\n%sExecutions (%d)%s\n", colorBold, len(task.Executions), colorReset)
	for i, ex := range task.Executions {
		duration := ex.EndedAt.Sub(ex.StartedAt)
		marker := ""
		if ex.ExecutedViaFallback {
			marker = fmt.Sprintf(" %s[local fallback]%s", colorYellow, colorReset)
		}
		cmd.Printf("%d. %s %s(%s)%s%s\n", i+1,
			ex.StartedAt.Format("Mon, 02 Jan 2006 15:04:05 MST"),
			colorCyan, formatDuration(duration), colorReset, marker)
		printOutput(cmd, ex.Output)
	}
}

func printOutput(cmd *cobra.Command, output string) {
	if output == "" {
		cmd.Printf("   %s(no output)%s\n", colorDim, colorReset)
		return
	}
	for _, line := range strings.Split(strings.TrimRight(output, "\n"), "\n") {
		cmd.Printf("   %s\n", line)
	}
}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

func formatTimeWithRelative(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return fmt.Sprintf("%s %s(%s ago)%s", t.Format("Mon, 02 Jan 2006 15:04:05 MST"), colorDim, relativeTime(t), colorReset)
}

func relativeTime(t time.Time) string {
	duration := time.Since(t)

	if duration < time.Minute {
		return fmt.Sprintf("%ds", int(duration.Seconds()))
	} else if duration < time.Hour {
		return fmt.Sprintf("%dm", int(duration.Minutes()))
	} else if duration < 24*time.Hour {
		return fmt.Sprintf("%dh", int(duration.Hours()))
	} else {
		days := int(duration.Hours() / 24)
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	} else if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	} else if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}

func init() {
	rootCmd.AddCommand(getCmd)
}
