package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	rootCmd   = &cobra.Command{
		Use:   "plugin-hub",
		Short: "Plugin Hub CLI - Manage plugin downloads and repositories",
		Long:  `A command-line interface for downloading plugins and browsing plugin repositories.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(retryCmd)
	rootCmd.AddCommand(reposCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(updatesCmd)
}

var addCmd = &cobra.Command{
	Use:   "add [plugin-id]",
	Short: "Queue a plugin download",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		repository, _ := cmd.Flags().GetString("repository")
		version, _ := cmd.Flags().GetString("version")
		priority, _ := cmd.Flags().GetInt("priority")

		payload := map[string]interface{}{
			"plugin_id":     args[0],
			"repository_id": repository,
			"priority":      priority,
		}
		if version != "" {
			payload["version"] = version
		}

		data, _ := json.Marshal(payload)
		resp, err := http.Post(serverURL+"/api/v1/tasks", "application/json", bytes.NewBuffer(data))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusCreated {
			fmt.Fprintf(os.Stderr, "Error: %s\n", string(body))
			os.Exit(1)
		}

		var result map[string]interface{}
		json.Unmarshal(body, &result)
		fmt.Printf("Download queued!\n")
		fmt.Printf("ID:      %s\n", result["id"])
		fmt.Printf("Plugin:  %s %s\n", result["plugin_id"], result["version"])
		fmt.Printf("Status:  %s\n", result["status"])
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List download tasks",
	Run: func(cmd *cobra.Command, args []string) {
		status, _ := cmd.Flags().GetString("status")

		url := serverURL + "/api/v1/tasks"
		if status != "" {
			url += "?status=" + status
		}

		resp, err := http.Get(url)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		var result struct {
			Tasks []map[string]interface{} `json:"tasks"`
		}
		json.Unmarshal(body, &result)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tPLUGIN\tVERSION\tSTATUS\tPROGRESS\tCREATED")
		for _, t := range result.Tasks {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%v%%\t%s\n",
				truncate(str(t["id"]), 8),
				truncate(str(t["plugin_id"]), 30),
				t["version"],
				t["status"],
				t["progress"],
				t["created_at"])
		}
		w.Flush()
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show download statistics",
	Run: func(cmd *cobra.Command, args []string) {
		resp, err := http.Get(serverURL + "/api/v1/tasks/stats")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		var stats map[string]interface{}
		json.Unmarshal(body, &stats)

		fmt.Println("Download Statistics:")
		fmt.Printf("  Total:               %v\n", stats["total"])
		fmt.Printf("  Pending:             %v\n", stats["pending"])
		fmt.Printf("  Downloading:         %v\n", stats["downloading"])
		fmt.Printf("  Paused:              %v\n", stats["paused"])
		fmt.Printf("  Verifying:           %v\n", stats["verifying"])
		fmt.Printf("  Completed:           %v\n", stats["completed"])
		fmt.Printf("  Failed:              %v\n", stats["failed"])
		fmt.Printf("  Cancelled:           %v\n", stats["cancelled"])
		fmt.Printf("  Verification failed: %v\n", stats["verification_failed"])
	},
}

var getCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Get task details",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		resp, err := http.Get(serverURL + "/api/v1/tasks/" + args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			fmt.Fprintf(os.Stderr, "Error: %s\n", string(body))
			os.Exit(1)
		}

		var task map[string]interface{}
		json.Unmarshal(body, &task)

		fmt.Printf("Task Details:\n")
		fmt.Printf("  ID:         %s\n", task["id"])
		fmt.Printf("  Plugin:     %s\n", task["plugin_id"])
		fmt.Printf("  Version:    %s\n", task["version"])
		fmt.Printf("  Repository: %s\n", task["repository_id"])
		fmt.Printf("  Status:     %s\n", task["status"])
		fmt.Printf("  Progress:   %v%%\n", task["progress"])
		fmt.Printf("  Created:    %s\n", task["created_at"])
		if task["error_message"] != nil {
			fmt.Printf("  Error:      %s\n", task["error_message"])
		}
		if task["target_path"] != nil {
			fmt.Printf("  File:       %s\n", task["target_path"])
		}
	},
}

var pauseCmd = taskActionCommand("pause", "Pause a running download", "Download paused")
var resumeCmd = taskActionCommand("resume", "Resume a paused download", "Download resumed")
var cancelCmd = taskActionCommand("cancel", "Cancel a download", "Download cancelled")
var retryCmd = taskActionCommand("retry", "Retry a failed download", "Download queued for retry")

// taskActionCommand builds the shared POST /tasks/:id/<action> commands
func taskActionCommand(action, short, success string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " [id]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			resp, err := http.Post(serverURL+"/api/v1/tasks/"+args[0]+"/"+action, "application/json", nil)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			defer resp.Body.Close()

			body, _ := io.ReadAll(resp.Body)
			if resp.StatusCode != http.StatusOK {
				fmt.Fprintf(os.Stderr, "Error: %s\n", string(body))
				os.Exit(1)
			}
			fmt.Println(success)
		},
	}
}

var reposCmd = &cobra.Command{
	Use:   "repos",
	Short: "List configured repositories",
	Run: func(cmd *cobra.Command, args []string) {
		resp, err := http.Get(serverURL + "/api/v1/repositories")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		var result struct {
			Repositories []map[string]interface{} `json:"repositories"`
		}
		json.Unmarshal(body, &result)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tSTATUS\tPACKAGES\tFETCHED")
		for _, r := range result.Repositories {
			fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%v\n",
				r["id"], r["name"], r["sync_status"], r["package_count"], r["fetched_at"])
		}
		w.Flush()
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync [repository-id]",
	Short: "Sync a repository catalog",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		resp, err := http.Post(serverURL+"/api/v1/repositories/"+args[0]+"/sync", "application/json", nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		var result map[string]interface{}
		json.Unmarshal(body, &result)
		if resp.StatusCode != http.StatusOK {
			fmt.Fprintf(os.Stderr, "Sync failed: %v\n", result["error"])
			os.Exit(1)
		}
		fmt.Printf("%v\n", result["message"])
	},
}

var searchCmd = &cobra.Command{
	Use:   "search [repository-id] [query]",
	Short: "Search packages in a repository",
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		category, _ := cmd.Flags().GetString("category")
		free, _ := cmd.Flags().GetBool("free")

		filter := map[string]interface{}{}
		if len(args) > 1 {
			filter["query"] = args[1]
		}
		if category != "" {
			filter["categories"] = []string{category}
		}
		if free {
			filter["include_paid"] = false
		}

		data, _ := json.Marshal(filter)
		resp, err := http.Post(serverURL+"/api/v1/repositories/"+args[0]+"/search", "application/json", bytes.NewBuffer(data))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			fmt.Fprintf(os.Stderr, "Error: %s\n", string(body))
			os.Exit(1)
		}

		var result struct {
			Items []map[string]interface{} `json:"items"`
			Total int                      `json:"total"`
		}
		json.Unmarshal(body, &result)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tAUTHOR\tDOWNLOADS")
		for _, p := range result.Items {
			downloads := interface{}(0)
			if stats, ok := p["stats"].(map[string]interface{}); ok {
				downloads = stats["total"]
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%v\n",
				truncate(str(p["id"]), 30), p["name"], p["author"], downloads)
		}
		w.Flush()
		fmt.Printf("\n%d package(s) matched\n", result.Total)
	},
}

var updatesCmd = &cobra.Command{
	Use:   "updates [repository-id] [plugin-id]",
	Short: "Check a plugin for newer compatible versions",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		current, _ := cmd.Flags().GetString("current")
		if current == "" {
			fmt.Fprintln(os.Stderr, "Error: --current is required")
			os.Exit(1)
		}

		url := serverURL + "/api/v1/repositories/" + args[0] + "/packages/" + args[1] + "/updates?current=" + current
		resp, err := http.Get(url)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		var result map[string]interface{}
		json.Unmarshal(body, &result)

		if resp.StatusCode != http.StatusOK {
			fmt.Fprintf(os.Stderr, "Error: %v\n", result["error"])
			os.Exit(1)
		}

		if result["data"] == nil {
			fmt.Printf("%s %s is up to date\n", args[1], current)
			return
		}

		update := result["data"].(map[string]interface{})
		fmt.Printf("Update available: %s\n", update["version"])
		if update["released_at"] != nil {
			fmt.Printf("Released: %s\n", update["released_at"])
		}
	},
}

func init() {
	addCmd.Flags().StringP("repository", "r", "", "Repository ID (required)")
	addCmd.Flags().StringP("version", "v", "", "Version to download (default: latest stable)")
	addCmd.Flags().IntP("priority", "p", 1, "Priority (0=low, 1=normal, 2=high, 3=urgent)")
	addCmd.MarkFlagRequired("repository")
	listCmd.Flags().StringP("status", "s", "", "Filter by status")
	searchCmd.Flags().StringP("category", "c", "", "Filter by category")
	searchCmd.Flags().Bool("free", false, "Exclude paid packages")
	updatesCmd.Flags().String("current", "", "Currently installed version (required)")
}

func str(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
