// Command doozctl is a terminal client for the project-memory API.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/DoozHub/dooz-pm-suite/interfaces/http/rest/handlers"
	"github.com/DoozHub/dooz-pm-suite/pkg/auth"
)

// version is stamped at build time via -ldflags.
var version = "dev"

var (
	serverAddr string
	authToken  string
	outputJSON bool
)

var rootCmd = &cobra.Command{
	Use:   "doozctl",
	Short: "Project-memory CLI",
	Long: `doozctl drives the project-memory suite from a terminal: intents and
their lifecycle, the append-only decision ledger, the assumption and
risk registries, the knowledge graph, and the AI proposal queue.

The server address comes from --server or DOOZ_SERVER, the bearer
token from --token or DOOZ_TOKEN. Use 'doozctl token' to mint a
development token when you run the API with a shared HMAC secret.`,
}

func main() {
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", envOr("DOOZ_SERVER", "http://localhost:8080"), "API base URL")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", os.Getenv("DOOZ_TOKEN"), "bearer token")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output JSON instead of tables")
}

func registerCommands() {
	rootCmd.AddCommand(intentCmd())
	rootCmd.AddCommand(decisionCmd())
	rootCmd.AddCommand(assumptionCmd())
	rootCmd.AddCommand(riskCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(graphCmd())
	rootCmd.AddCommand(proposalCmd())
	rootCmd.AddCommand(extractCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(versionCmd())
}

// ---- HTTP client ----

type apiClient struct {
	base  string
	token string
	http  *http.Client
}

func newClient() *apiClient {
	return &apiClient{
		base:  strings.TrimRight(serverAddr, "/"),
		token: authToken,
		http:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *apiClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+"/api/v1"+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("%s: %s", strings.ToLower(apiErr.Type), apiErr.Message)
		}
		return fmt.Errorf("server returned %s", resp.Status)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *apiClient) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *apiClient) post(ctx context.Context, path string, in, out any) error {
	return c.do(ctx, http.MethodPost, path, in, out)
}

func (c *apiClient) del(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodDelete, path, nil, out)
}

// ---- intent ----

func intentCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "intent", Short: "Manage intents and their lifecycle"}
	cmd.AddCommand(intentCreateCmd())
	cmd.AddCommand(intentListCmd())
	cmd.AddCommand(intentShowCmd())
	cmd.AddCommand(intentTransitionCmd())
	cmd.AddCommand(intentReviewCmd())
	cmd.AddCommand(intentConfidenceCmd())
	cmd.AddCommand(intentContextCmd())
	return cmd
}

func intentCreateCmd() *cobra.Command {
	var title, description, visibility string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an intent (always starts in research)",
		RunE: func(cmd *cobra.Command, args []string) error {
			var out handlers.IntentResponse
			err := newClient().post(cmd.Context(), "/intents", handlers.CreateIntentRequest{
				Title:           title,
				Description:     description,
				VisibilityScope: visibility,
			}, &out)
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "intent title")
	cmd.Flags().StringVar(&description, "description", "", "free-form description")
	cmd.Flags().StringVar(&visibility, "visibility", "", "visibility scope (private, team, organization)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func intentListCmd() *cobra.Command {
	var state string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List intents",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if state != "" {
				q.Set("state", state)
			}
			var out []handlers.IntentResponse
			if err := newClient().get(cmd.Context(), withQuery("/intents", q), &out); err != nil {
				return err
			}
			if outputJSON {
				return printJSON(out)
			}
			tw := newTable()
			tw.AppendHeader(table.Row{"ID", "State", "Title", "Confidence", "Last Reviewed"})
			for _, intent := range out {
				tw.AppendRow(table.Row{intent.ID, intent.CurrentState, truncate(intent.Title, 48), fmtFloat(intent.ConfidenceLevel), fmtTimePtr(intent.LastHumanReviewedAt)})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&state, "state", "", "filter by state (research, planning, execution, archived)")
	return cmd
}

func intentShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <intent-id>",
		Short: "Show an intent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out handlers.IntentResponse
			if err := newClient().get(cmd.Context(), "/intents/"+args[0], &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	return cmd
}

func intentTransitionCmd() *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "transition <intent-id>",
		Short: "Move an intent to another lifecycle state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out handlers.IntentResponse
			err := newClient().post(cmd.Context(), "/intents/"+args[0]+"/transition", handlers.TransitionRequest{TargetState: target}, &out)
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	cmd.Flags().StringVar(&target, "to", "", "target state (research, planning, execution, archived)")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func intentReviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review <intent-id>",
		Short: "Stamp the intent as reviewed by a human",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out handlers.IntentResponse
			if err := newClient().post(cmd.Context(), "/intents/"+args[0]+"/review", nil, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	return cmd
}

func intentConfidenceCmd() *cobra.Command {
	var level float64
	cmd := &cobra.Command{
		Use:   "confidence <intent-id>",
		Short: "Set the confidence level",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out handlers.IntentResponse
			err := newClient().post(cmd.Context(), "/intents/"+args[0]+"/confidence", handlers.ConfidenceRequest{Level: &level}, &out)
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	cmd.Flags().Float64Var(&level, "level", 0, "confidence between 0 and 1")
	_ = cmd.MarkFlagRequired("level")
	return cmd
}

func intentContextCmd() *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "context <intent-id>",
		Short: "Ask the memory backend a question about the intent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			q.Set("q", query)
			var out handlers.ContextResponse
			if err := newClient().get(cmd.Context(), withQuery("/intents/"+args[0]+"/context", q), &out); err != nil {
				return err
			}
			if outputJSON {
				return printJSON(out)
			}
			fmt.Println(out.Context)
			return nil
		},
	}
	cmd.Flags().StringVar(&query, "query", "", "question to ask")
	_ = cmd.MarkFlagRequired("query")
	return cmd
}

// ---- decision ----

func decisionCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "decision", Short: "Work with the append-only decision ledger"}
	cmd.AddCommand(decisionCommitCmd())
	cmd.AddCommand(decisionListCmd())
	cmd.AddCommand(decisionLedgerCmd())
	cmd.AddCommand(decisionShowCmd())
	cmd.AddCommand(decisionSupersedeCmd())
	return cmd
}

func decisionDraftFlags(cmd *cobra.Command, draft *handlers.DecisionDraftRequest) {
	cmd.Flags().StringVar(&draft.DecisionStatement, "statement", "", "what was decided")
	cmd.Flags().StringVar(&draft.FinalChoice, "choice", "", "the option that won")
	cmd.Flags().StringArrayVar(&draft.OptionsConsidered, "option", nil, "option that was considered (repeatable)")
	cmd.Flags().StringArrayVar(&draft.AIInputsReferenced, "ai-input", nil, "AI input that informed the decision (repeatable)")
	cmd.Flags().StringVar(&draft.RevisitCondition, "revisit", "", "condition under which to revisit")
	_ = cmd.MarkFlagRequired("statement")
	_ = cmd.MarkFlagRequired("choice")
}

func decisionCommitCmd() *cobra.Command {
	var draft handlers.DecisionDraftRequest
	cmd := &cobra.Command{
		Use:   "commit <intent-id>",
		Short: "Commit a decision to an intent's ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out handlers.DecisionResponse
			if err := newClient().post(cmd.Context(), "/intents/"+args[0]+"/decisions", draft, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	decisionDraftFlags(cmd, &draft)
	return cmd
}

func decisionListCmd() *cobra.Command {
	var activeOnly bool
	cmd := &cobra.Command{
		Use:   "list <intent-id>",
		Short: "List an intent's decisions, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/intents/" + args[0] + "/decisions"
			if activeOnly {
				path += "/active"
			}
			var out []handlers.DecisionResponse
			if err := newClient().get(cmd.Context(), path, &out); err != nil {
				return err
			}
			if outputJSON {
				return printJSON(out)
			}
			renderDecisions(out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&activeOnly, "active", false, "only decisions still standing")
	return cmd
}

func decisionLedgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger <intent-id>",
		Short: "Show the full ledger in commit order, superseded entries included",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out []handlers.DecisionResponse
			if err := newClient().get(cmd.Context(), "/intents/"+args[0]+"/ledger", &out); err != nil {
				return err
			}
			if outputJSON {
				return printJSON(out)
			}
			renderDecisions(out)
			return nil
		},
	}
	return cmd
}

func decisionShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <decision-id>",
		Short: "Show a decision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out handlers.DecisionResponse
			if err := newClient().get(cmd.Context(), "/decisions/"+args[0], &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	return cmd
}

func decisionSupersedeCmd() *cobra.Command {
	var draft handlers.DecisionDraftRequest
	cmd := &cobra.Command{
		Use:   "supersede <decision-id>",
		Short: "Retire a decision and commit its replacement in one step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out handlers.SupersedeResponse
			if err := newClient().post(cmd.Context(), "/decisions/"+args[0]+"/supersede", draft, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	decisionDraftFlags(cmd, &draft)
	return cmd
}

// ---- assumption ----

func assumptionCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "assumption", Short: "Manage the assumption registry"}
	cmd.AddCommand(assumptionAddCmd())
	cmd.AddCommand(assumptionListCmd())
	cmd.AddCommand(assumptionShowCmd())
	cmd.AddCommand(assumptionInvalidateCmd())
	return cmd
}

func assumptionAddCmd() *cobra.Command {
	var statement, expiry string
	var confidence float64
	cmd := &cobra.Command{
		Use:   "add <intent-id>",
		Short: "Record an assumption against an intent",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := handlers.CreateAssumptionRequest{Statement: statement, ExpiryHint: expiry}
			if cmd.Flags().Changed("confidence") {
				req.ConfidenceLevel = &confidence
			}
			var out handlers.AssumptionResponse
			if err := newClient().post(cmd.Context(), "/intents/"+args[0]+"/assumptions", req, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
		Args: cobra.ExactArgs(1),
	}
	cmd.Flags().StringVar(&statement, "statement", "", "what is being assumed")
	cmd.Flags().Float64Var(&confidence, "confidence", 0, "confidence between 0 and 1")
	cmd.Flags().StringVar(&expiry, "expiry", "", "hint for when the assumption stops holding")
	_ = cmd.MarkFlagRequired("statement")
	return cmd
}

func assumptionListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <intent-id>",
		Short: "List an intent's assumptions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out []handlers.AssumptionResponse
			if err := newClient().get(cmd.Context(), "/intents/"+args[0]+"/assumptions", &out); err != nil {
				return err
			}
			if outputJSON {
				return printJSON(out)
			}
			tw := newTable()
			tw.AppendHeader(table.Row{"ID", "Status", "Origin", "Confidence", "Statement"})
			for _, a := range out {
				tw.AppendRow(table.Row{a.ID, a.Status, a.CreatedFrom, fmtFloat(a.ConfidenceLevel), truncate(a.Statement, 56)})
			}
			tw.Render()
			return nil
		},
	}
	return cmd
}

func assumptionShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <assumption-id>",
		Short: "Show an assumption",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out handlers.AssumptionResponse
			if err := newClient().get(cmd.Context(), "/assumptions/"+args[0], &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	return cmd
}

func assumptionInvalidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invalidate <assumption-id>",
		Short: "Flip an assumption to invalidated",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out handlers.AssumptionResponse
			if err := newClient().post(cmd.Context(), "/assumptions/"+args[0]+"/invalidate", nil, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	return cmd
}

// ---- risk ----

func riskCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "risk", Short: "Manage the risk registry"}
	cmd.AddCommand(riskAddCmd())
	cmd.AddCommand(riskListCmd())
	cmd.AddCommand(riskShowCmd())
	cmd.AddCommand(riskResolveCmd())
	return cmd
}

func riskAddCmd() *cobra.Command {
	var statement, severity, likelihood, notes string
	cmd := &cobra.Command{
		Use:   "add <intent-id>",
		Short: "Record a risk against an intent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out handlers.RiskResponse
			err := newClient().post(cmd.Context(), "/intents/"+args[0]+"/risks", handlers.CreateRiskRequest{
				Statement:       statement,
				Severity:        severity,
				Likelihood:      likelihood,
				MitigationNotes: notes,
			}, &out)
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	cmd.Flags().StringVar(&statement, "statement", "", "what could go wrong")
	cmd.Flags().StringVar(&severity, "severity", "", "severity (low, medium, high, critical)")
	cmd.Flags().StringVar(&likelihood, "likelihood", "", "likelihood (low, medium, high)")
	cmd.Flags().StringVar(&notes, "notes", "", "mitigation notes")
	_ = cmd.MarkFlagRequired("statement")
	_ = cmd.MarkFlagRequired("severity")
	_ = cmd.MarkFlagRequired("likelihood")
	return cmd
}

func riskListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <intent-id>",
		Short: "List an intent's risks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out []handlers.RiskResponse
			if err := newClient().get(cmd.Context(), "/intents/"+args[0]+"/risks", &out); err != nil {
				return err
			}
			if outputJSON {
				return printJSON(out)
			}
			tw := newTable()
			tw.AppendHeader(table.Row{"ID", "Status", "Severity", "Likelihood", "Origin", "Statement"})
			for _, r := range out {
				tw.AppendRow(table.Row{r.ID, r.Status, r.Severity, r.Likelihood, r.CreatedFrom, truncate(r.Statement, 48)})
			}
			tw.Render()
			return nil
		},
	}
	return cmd
}

func riskShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <risk-id>",
		Short: "Show a risk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out handlers.RiskResponse
			if err := newClient().get(cmd.Context(), "/risks/"+args[0], &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	return cmd
}

func riskResolveCmd() *cobra.Command {
	var status, notes string
	cmd := &cobra.Command{
		Use:   "resolve <risk-id>",
		Short: "Resolve a risk as mitigated or accepted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out handlers.RiskResponse
			err := newClient().post(cmd.Context(), "/risks/"+args[0]+"/status", handlers.RiskStatusRequest{
				Status:          status,
				MitigationNotes: notes,
			}, &out)
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "resolution (mitigated, accepted)")
	cmd.Flags().StringVar(&notes, "notes", "", "mitigation notes")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

// ---- task ----

func taskCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "task", Short: "Manage execution tasks"}
	cmd.AddCommand(taskAddCmd())
	cmd.AddCommand(taskListCmd())
	cmd.AddCommand(taskShowCmd())
	cmd.AddCommand(taskStatusCmd())
	cmd.AddCommand(taskAssignCmd())
	return cmd
}

func taskAddCmd() *cobra.Command {
	var title, description, decisionID, owner string
	cmd := &cobra.Command{
		Use:   "add <intent-id>",
		Short: "Create a task under an intent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out handlers.TaskResponse
			err := newClient().post(cmd.Context(), "/intents/"+args[0]+"/tasks", handlers.CreateTaskRequest{
				Title:       title,
				Description: description,
				DecisionID:  decisionID,
				Owner:       owner,
			}, &out)
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "task title")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&decisionID, "decision", "", "decision the task descends from")
	cmd.Flags().StringVar(&owner, "owner", "", "owner")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func taskListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <intent-id>",
		Short: "List an intent's tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out []handlers.TaskResponse
			if err := newClient().get(cmd.Context(), "/intents/"+args[0]+"/tasks", &out); err != nil {
				return err
			}
			if outputJSON {
				return printJSON(out)
			}
			tw := newTable()
			tw.AppendHeader(table.Row{"ID", "Status", "Owner", "Title"})
			for _, t := range out {
				tw.AppendRow(table.Row{t.ID, t.Status, t.Owner, truncate(t.Title, 56)})
			}
			tw.Render()
			return nil
		},
	}
	return cmd
}

func taskShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out handlers.TaskResponse
			if err := newClient().get(cmd.Context(), "/tasks/"+args[0], &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	return cmd
}

func taskStatusCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "status <task-id>",
		Short: "Move a task to a new status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out handlers.TaskResponse
			err := newClient().post(cmd.Context(), "/tasks/"+args[0]+"/status", handlers.TaskStatusRequest{Status: status}, &out)
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "new status (pending, in_progress, completed, blocked, cancelled)")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

func taskAssignCmd() *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "assign <task-id>",
		Short: "Reassign a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out handlers.TaskResponse
			err := newClient().post(cmd.Context(), "/tasks/"+args[0]+"/assign", handlers.AssignTaskRequest{Owner: owner}, &out)
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "new owner")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

// ---- graph ----

func graphCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "graph", Short: "Work with the knowledge graph"}
	cmd.AddCommand(graphLinkCmd())
	cmd.AddCommand(graphEdgesCmd())
	cmd.AddCommand(graphEdgeShowCmd())
	cmd.AddCommand(graphNodeCmd())
	cmd.AddCommand(graphShowCmd())
	cmd.AddCommand(graphUnlinkCmd())
	cmd.AddCommand(graphDetachCmd())
	return cmd
}

func graphLinkCmd() *cobra.Command {
	var fromID, fromType, toID, toType, edgeType string
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Create an edge between two records",
		Long: `Creates a directed edge. Endpoints are named by (id, type) pair and are
not checked for existence, so linking works across stores and before
both records exist.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var out handlers.EdgeResponse
			err := newClient().post(cmd.Context(), "/edges", handlers.CreateEdgeRequest{
				Source:   handlers.NodeRefInput{ID: fromID, Type: fromType},
				Target:   handlers.NodeRefInput{ID: toID, Type: toType},
				EdgeType: edgeType,
			}, &out)
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	cmd.Flags().StringVar(&fromID, "from", "", "source record id")
	cmd.Flags().StringVar(&fromType, "from-type", "", "source record type (intent, decision, task, assumption, risk)")
	cmd.Flags().StringVar(&toID, "to", "", "target record id")
	cmd.Flags().StringVar(&toType, "to-type", "", "target record type")
	cmd.Flags().StringVar(&edgeType, "type", "", "edge type (led_to, depends_on, invalidates, supports, blocks, derived_from, mitigates, assumes)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("from-type")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("to-type")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func graphEdgesCmd() *cobra.Command {
	var edgeType string
	cmd := &cobra.Command{
		Use:   "edges",
		Short: "List edges of a given type",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			q.Set("type", edgeType)
			var out []handlers.EdgeResponse
			if err := newClient().get(cmd.Context(), withQuery("/edges", q), &out); err != nil {
				return err
			}
			if outputJSON {
				return printJSON(out)
			}
			renderEdges(out)
			return nil
		},
	}
	cmd.Flags().StringVar(&edgeType, "type", "", "edge type")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func graphEdgeShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edge <edge-id>",
		Short: "Show an edge",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out handlers.EdgeResponse
			if err := newClient().get(cmd.Context(), "/edges/"+args[0], &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	return cmd
}

func graphNodeCmd() *cobra.Command {
	var direction string
	cmd := &cobra.Command{
		Use:   "node <node-id>",
		Short: "List the edges touching a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if direction != "" {
				q.Set("direction", direction)
			}
			var out []handlers.EdgeResponse
			if err := newClient().get(cmd.Context(), withQuery("/nodes/"+args[0]+"/edges", q), &out); err != nil {
				return err
			}
			if outputJSON {
				return printJSON(out)
			}
			renderEdges(out)
			return nil
		},
	}
	cmd.Flags().StringVar(&direction, "direction", "", "out, in or all (default all)")
	return cmd
}

func graphShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Dump the whole graph projection",
		RunE: func(cmd *cobra.Command, args []string) error {
			var out handlers.GraphResponse
			if err := newClient().get(cmd.Context(), "/graph", &out); err != nil {
				return err
			}
			if outputJSON {
				return printJSON(out)
			}
			fmt.Printf("%d node(s), %d edge(s)\n", len(out.Nodes), len(out.Edges))
			renderEdges(out.Edges)
			return nil
		},
	}
	return cmd
}

func graphUnlinkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unlink <edge-id>",
		Short: "Delete an edge",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newClient().del(cmd.Context(), "/edges/"+args[0], nil); err != nil {
				return err
			}
			fmt.Println("edge deleted")
			return nil
		},
	}
	return cmd
}

func graphDetachCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detach <node-id>",
		Short: "Delete every edge touching a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out handlers.DeleteByNodeResponse
			if err := newClient().del(cmd.Context(), "/nodes/"+args[0]+"/edges", &out); err != nil {
				return err
			}
			fmt.Printf("%d edge(s) deleted\n", out.Deleted)
			return nil
		},
	}
	return cmd
}

// ---- proposal ----

func proposalCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "proposal", Short: "Review the AI proposal queue"}
	cmd.AddCommand(proposalSubmitCmd())
	cmd.AddCommand(proposalListCmd())
	cmd.AddCommand(proposalShowCmd())
	cmd.AddCommand(proposalReviewCmd())
	return cmd
}

func proposalSubmitCmd() *cobra.Command {
	var intentID, proposalType, content, model, template string
	var confidence float64
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Queue a suggestion for human review",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := handlers.SubmitProposalRequest{
				IntentID:         intentID,
				ProposalType:     proposalType,
				Content:          content,
				ModelUsed:        model,
				PromptTemplateID: template,
			}
			if cmd.Flags().Changed("confidence") {
				req.Confidence = &confidence
			}
			var out handlers.ProposalResponse
			if err := newClient().post(cmd.Context(), "/proposals", req, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	cmd.Flags().StringVar(&intentID, "intent", "", "intent id, may be empty for a free-floating proposal")
	cmd.Flags().StringVar(&proposalType, "type", "", "proposal type (decision, assumption, risk, question)")
	cmd.Flags().StringVar(&content, "content", "", "the suggestion itself")
	cmd.Flags().Float64Var(&confidence, "confidence", 0, "confidence between 0 and 1")
	cmd.Flags().StringVar(&model, "model", "", "model that produced the suggestion")
	cmd.Flags().StringVar(&template, "template", "", "prompt template id")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("content")
	return cmd
}

func proposalListCmd() *cobra.Command {
	var status, intentID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List proposals",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if status != "" {
				q.Set("status", status)
			}
			if intentID != "" {
				q.Set("intentId", intentID)
			}
			var out []handlers.ProposalResponse
			if err := newClient().get(cmd.Context(), withQuery("/proposals", q), &out); err != nil {
				return err
			}
			if outputJSON {
				return printJSON(out)
			}
			renderProposals(out)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by status (pending, accepted, rejected, parked)")
	cmd.Flags().StringVar(&intentID, "intent", "", "filter by intent id")
	return cmd
}

func proposalShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <proposal-id>",
		Short: "Show a proposal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out handlers.ProposalResponse
			if err := newClient().get(cmd.Context(), "/proposals/"+args[0], &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	return cmd
}

func proposalReviewCmd() *cobra.Command {
	var action, intentID string
	cmd := &cobra.Command{
		Use:   "review <proposal-id>",
		Short: "Accept, reject or park a proposal",
		Long: `Records the review outcome. Accepting materializes the proposal into
its target record (a ledger decision, an assumption or a risk marked
as AI-origin); --intent binds a free-floating proposal first. Each
proposal is reviewed exactly once.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out handlers.ReviewResponse
			err := newClient().post(cmd.Context(), "/proposals/"+args[0]+"/review", handlers.ReviewProposalRequest{
				Action:   action,
				IntentID: intentID,
			}, &out)
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	cmd.Flags().StringVar(&action, "action", "", "accept, reject or park")
	cmd.Flags().StringVar(&intentID, "intent", "", "intent to bind a free-floating proposal to on accept")
	_ = cmd.MarkFlagRequired("action")
	return cmd
}

// ---- extract ----

func extractCmd() *cobra.Command {
	var intentID, filePath string
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Run AI extraction over text and queue the findings as proposals",
		Long: `Reads free-form text from --file or stdin, runs it through the
extraction pipeline and prints the pending proposals it produced.
Nothing is materialized until a human reviews them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readInput(filePath)
			if err != nil {
				return err
			}
			var out handlers.ExtractResponse
			err = newClient().post(cmd.Context(), "/extract", handlers.ExtractRequest{
				IntentID: intentID,
				Content:  content,
			}, &out)
			if err != nil {
				return err
			}
			if outputJSON {
				return printJSON(out)
			}
			fmt.Printf("%d proposal(s) queued for review\n", out.Count)
			renderProposals(out.Proposals)
			return nil
		},
	}
	cmd.Flags().StringVar(&intentID, "intent", "", "intent id to bind the proposals to")
	cmd.Flags().StringVar(&filePath, "file", "", "file to read instead of stdin")
	return cmd
}

func readInput(path string) (string, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ---- token ----

func tokenCmd() *cobra.Command {
	var user, tenant, secret, issuer string
	var roles []string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development JWT",
		Long: `Signs a bearer token locally with the shared HMAC secret. Meant for
development and smoke tests against an API started with the same
secret; production tokens come from the identity provider.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return fmt.Errorf("--secret or DOOZ_JWT_SECRET is required")
			}
			token, err := auth.NewGenerator(secret, issuer, ttl).GenerateToken(user, tenant, roles)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user id claim")
	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant id claim")
	cmd.Flags().StringArrayVar(&roles, "role", []string{"member"}, "role claim (repeatable)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("DOOZ_JWT_SECRET"), "HMAC signing secret")
	cmd.Flags().StringVar(&issuer, "issuer", "dooz-pm-suite", "token issuer")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the client version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}
}

// ---- output helpers ----

func newTable() table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	return tw
}

func renderDecisions(decisions []handlers.DecisionResponse) {
	tw := newTable()
	tw.AppendHeader(table.Row{"ID", "Status", "Statement", "Approver", "Decided"})
	for _, d := range decisions {
		tw.AppendRow(table.Row{d.ID, d.Status, truncate(d.DecisionStatement, 56), d.HumanApprover, fmtTime(d.DecisionTimestamp)})
	}
	tw.Render()
}

func renderProposals(proposals []handlers.ProposalResponse) {
	tw := newTable()
	tw.AppendHeader(table.Row{"ID", "Type", "Status", "Confidence", "Content"})
	for _, p := range proposals {
		tw.AppendRow(table.Row{p.ID, p.ProposalType, p.Status, fmtFloat(p.Confidence), truncate(p.Content, 48)})
	}
	tw.Render()
}

func renderEdges(edges []handlers.EdgeResponse) {
	tw := newTable()
	tw.AppendHeader(table.Row{"ID", "Type", "Source", "Target"})
	for _, e := range edges {
		tw.AppendRow(table.Row{e.ID, e.EdgeType, e.Source.Type + ":" + e.Source.ID, e.Target.Type + ":" + e.Target.ID})
	}
	tw.Render()
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func fmtFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func fmtTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}

func fmtTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return fmtTime(*t)
}
