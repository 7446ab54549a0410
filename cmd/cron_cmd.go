package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/goclaw/internal/cron"
	"github.com/nextlevelbuilder/goclaw/pkg/protocol"
)

func cronCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cron",
		Short: "Manage scheduled cron jobs",
	}
	cmd.AddCommand(cronListCmd())
	cmd.AddCommand(cronRemoveCmd())
	cmd.AddCommand(cronToggleCmd())
	cmd.AddCommand(cronRunCmd())
	cmd.AddCommand(cronRunsCmd())
	cmd.AddCommand(cronStatusCmd())
	return cmd
}

func cronListCmd() *cobra.Command {
	var jsonOutput bool
	var showDisabled bool
	c := &cobra.Command{
		Use:   "list",
		Short: "List cron jobs (enabled only, unless --all)",
		Run: func(cmd *cobra.Command, args []string) {
			params, _ := json.Marshal(cron.ListParams{IncludeDisabled: showDisabled})
			resp := mustRPC(protocol.MethodCronList, params)

			raw, _ := json.Marshal(resp.Payload)
			var result cron.ListResult
			if err := json.Unmarshal(raw, &result); err != nil {
				fmt.Fprintf(os.Stderr, "Error parsing response: %v\n", err)
				os.Exit(1)
			}
			printCronJobs(result.Jobs, jsonOutput)
		},
	}
	c.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	c.Flags().BoolVar(&showDisabled, "all", false, "include disabled jobs")
	return c
}

func cronRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove [jobId]",
		Short: "Remove a cron job",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			params, _ := json.Marshal(map[string]string{"jobId": args[0]})
			mustRPC(protocol.MethodCronRemove, params)
			fmt.Printf("Removed job %s\n", args[0])
		},
	}
}

func cronToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle [jobId] [true|false]",
		Short: "Enable or disable a cron job",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			enabled := args[1] == "true" || args[1] == "1" || args[1] == "on"
			patch := cron.JobPatch{Enabled: &enabled}
			params, _ := json.Marshal(map[string]interface{}{"jobId": args[0], "patch": patch})
			mustRPC(protocol.MethodCronUpdate, params)
			fmt.Printf("Job %s enabled=%v\n", args[0], enabled)
		},
	}
}

func cronRunCmd() *cobra.Command {
	var force bool
	c := &cobra.Command{
		Use:   "run [jobId]",
		Short: "Dispatch a job now; cron(8) itself invokes this with --force",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			mode := "due"
			if force {
				mode = "force"
			}
			params, _ := json.Marshal(map[string]string{"jobId": args[0], "mode": mode})
			resp := mustRPC(protocol.MethodCronRun, params)

			raw, _ := json.Marshal(resp.Payload)
			var result cron.RunResult
			json.Unmarshal(raw, &result)
			if !result.Ran {
				fmt.Printf("Not run: %s\n", result.Reason)
				return
			}
			if result.Outcome != nil {
				fmt.Printf("Ran: status=%s\n", result.Outcome.Status)
				if result.Outcome.Error != "" {
					fmt.Fprintf(os.Stderr, "Error: %s\n", result.Outcome.Error)
					os.Exit(1)
				}
			}
		},
	}
	c.Flags().BoolVar(&force, "force", false, "run even if not currently due (cron(8) passes this)")
	return c
}

func cronRunsCmd() *cobra.Command {
	var limit int
	c := &cobra.Command{
		Use:   "runs [jobId]",
		Short: "Show recent run history for a job, reconstructed from the system log",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			params, _ := json.Marshal(map[string]interface{}{"jobId": args[0], "limit": limit})
			resp := mustRPC(protocol.MethodCronRuns, params)

			raw, _ := json.Marshal(resp.Payload)
			var result cron.RunsResult
			json.Unmarshal(raw, &result)

			if len(result.Entries) == 0 {
				fmt.Println("No run history found.")
				return
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "TIME\tSTATUS\n")
			for _, e := range result.Entries {
				fmt.Fprintf(tw, "%s\t%s\n", time.UnixMilli(e.TS).Format(time.DateTime), e.Status)
			}
			tw.Flush()
		},
	}
	c.Flags().IntVar(&limit, "limit", 50, "maximum entries to show")
	return c
}

func cronStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the crontab holds managed jobs, and how many",
		Run: func(cmd *cobra.Command, args []string) {
			resp := mustRPC(protocol.MethodCronStatus, nil)
			data, _ := json.MarshalIndent(resp.Payload, "", "  ")
			fmt.Println(string(data))
		},
	}
}

func mustRPC(method string, params json.RawMessage) *protocol.ResponseFrame {
	resp, err := gatewayRPC(method, params)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if !resp.OK {
		fmt.Fprintf(os.Stderr, "Failed: %s\n", resp.Error.Message)
		os.Exit(1)
	}
	return resp
}

func printCronJobs(jobs []cron.Job, jsonOutput bool) {
	if jsonOutput {
		data, _ := json.MarshalIndent(jobs, "", "  ")
		fmt.Println(string(data))
		return
	}

	if len(jobs) == 0 {
		fmt.Println("No cron jobs configured.")
		return
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\tNAME\tENABLED\tSCHEDULE\tNEXT RUN\n")
	for _, j := range jobs {
		schedule := string(j.Schedule.Kind)
		switch j.Schedule.Kind {
		case cron.ScheduleCron:
			schedule = j.Schedule.Expr
		case cron.ScheduleEvery:
			schedule = "every " + time.Duration(j.Schedule.EveryMS*int64(time.Millisecond)).String()
		case cron.ScheduleAt:
			schedule = "at " + j.Schedule.At
		}

		nextRun := "n/a"
		if j.State.NextRunAtMS != nil {
			nextRun = time.UnixMilli(*j.State.NextRunAtMS).Format(time.DateTime)
		}

		idShort := j.ID
		if len(idShort) > 8 {
			idShort = idShort[:8]
		}

		fmt.Fprintf(tw, "%s\t%s\t%v\t%s\t%s\n", idShort, j.Name, j.Enabled, schedule, nextRun)
	}
	tw.Flush()
}
