package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a resume check to a running server and poll until it finishes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return submit(cmd)
	},
}

func init() {
	rootCmd.AddCommand(submitCmd)

	submitCmd.Flags().String("server", "http://localhost:8080", "base URL of the resumecheck server")
	submitCmd.Flags().String("job-post-file", "", "file with the job posting text (required)")
	submitCmd.Flags().String("resume-file", "", "file with the resume text; server falls back to the stored base resume when omitted")
	submitCmd.Flags().String("qualifications-file", "", "optional JSON file with pre-extracted qualifications")
	submitCmd.Flags().String("profile", "", "profile owning the stored base resume")
	submitCmd.Flags().Bool("no-summarize", false, "skip the job post summarization step")
	submitCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
	submitCmd.Flags().Bool("no-wait", false, "return right after enqueueing instead of polling")
	submitCmd.Flags().Duration("poll-interval", 3*time.Second, "interval between status polls")

	submitCmd.MarkFlagRequired("job-post-file")
}

type submitPayload struct {
	JobPost          string          `json:"job_post"`
	ResumeText       string          `json:"resume_text,omitempty"`
	SummarizeJobPost *bool           `json:"summarize_job_post,omitempty"`
	Qualifications   json.RawMessage `json:"qualifications,omitempty"`
	Profile          string          `json:"profile,omitempty"`
}

type enqueueReply struct {
	JobID     string `json:"job_id"`
	StatusURL string `json:"status_url"`
	Status    string `json:"status"`
}

type statusReply struct {
	JobID          string          `json:"job_id"`
	Status         string          `json:"status"`
	Analysis       json.RawMessage `json:"analysis,omitempty"`
	Error          string          `json:"error,omitempty"`
	Qualifications json.RawMessage `json:"qualifications,omitempty"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func submit(cmd *cobra.Command) error {
	server := strings.TrimRight(mustString(cmd, "server"), "/")

	jobPost, err := os.ReadFile(mustString(cmd, "job-post-file"))
	if err != nil {
		return fmt.Errorf("reading job post: %w", err)
	}

	payload := submitPayload{
		JobPost: string(jobPost),
		Profile: mustString(cmd, "profile"),
	}

	if resumeFile := mustString(cmd, "resume-file"); resumeFile != "" {
		resume, err := os.ReadFile(resumeFile)
		if err != nil {
			return fmt.Errorf("reading resume: %w", err)
		}
		payload.ResumeText = string(resume)
	}

	if qualsFile := mustString(cmd, "qualifications-file"); qualsFile != "" {
		quals, err := os.ReadFile(qualsFile)
		if err != nil {
			return fmt.Errorf("reading qualifications: %w", err)
		}
		payload.Qualifications = json.RawMessage(quals)
	}

	if noSummarize, _ := cmd.Flags().GetBool("no-summarize"); noSummarize {
		summarize := false
		payload.SummarizeJobPost = &summarize
	}

	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		confirm := promptui.Select{
			Label: fmt.Sprintf("Submit resume check to %s?", server),
			Items: []string{"Yes", "No"},
		}
		_, answer, err := confirm.Run()
		if err != nil {
			return err
		}
		if answer != "Yes" {
			fmt.Println("aborted")
			return nil
		}
	}

	enqueued, err := postCheck(server, payload)
	if err != nil {
		return err
	}

	fmt.Printf("enqueued job %s (status: %s)\n", enqueued.JobID, enqueued.Status)

	if noWait, _ := cmd.Flags().GetBool("no-wait"); noWait {
		fmt.Printf("poll it at %s%s\n", server, enqueued.StatusURL)
		return nil
	}

	interval, _ := cmd.Flags().GetDuration("poll-interval")
	return pollUntilDone(server, enqueued.StatusURL, interval)
}

func postCheck(server string, payload submitPayload) (*enqueueReply, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	resp, err := http.Post(server+"/api/checks", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("submit request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusAccepted {
		return nil, fmt.Errorf("server rejected submission (%d): %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var reply enqueueReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &reply, nil
}

func pollUntilDone(server, statusURL string, interval time.Duration) error {
	for {
		time.Sleep(interval)

		status, err := fetchStatus(server + statusURL)
		if err != nil {
			return err
		}

		switch status.Status {
		case "pending", "processing":
			fmt.Printf("status: %s\n", status.Status)
		case "failed":
			return fmt.Errorf("job failed: %s", status.Error)
		case "completed":
			pretty, err := json.MarshalIndent(status, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(pretty))
			return nil
		default:
			return fmt.Errorf("unexpected job status: %s", status.Status)
		}
	}
}

func fetchStatus(url string) (*statusReply, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("poll status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errors.New("job disappeared from the server")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var reply statusReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}

	return &reply, nil
}

func mustString(cmd *cobra.Command, name string) string {
	value, _ := cmd.Flags().GetString(name)
	return value
}
