package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/KamdynS/agentcrew/config"
	"github.com/KamdynS/agentcrew/crew"
	"github.com/KamdynS/agentcrew/dispatch"
	"github.com/KamdynS/agentcrew/history"
	"github.com/KamdynS/agentcrew/mcp"
	"github.com/KamdynS/agentcrew/observability/prom"
	"github.com/KamdynS/agentcrew/recommend"
	httpserver "github.com/KamdynS/agentcrew/server/http"
)

var (
	servePort      int
	mcpTransport   string
	mcpPort        int
	recommendLimit int
	historyLimit   int
)

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (default PORT or 6000)")
	mcpCmd.Flags().StringVar(&mcpTransport, "transport", "stdio", "transport: stdio or http")
	mcpCmd.Flags().IntVar(&mcpPort, "port", 0, "HTTP listen port (default PORT or 8080)")
	recommendCmd.Flags().IntVar(&recommendLimit, "limit", recommend.DefaultLimit, "number of songs (1-10)")
	historyCmd.Flags().IntVar(&historyLimit, "limit", history.DefaultLimit, "number of runs to list")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the crews over HTTP and print the registry enrollment link",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		a, err := newApp(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer a.Close()
		h, err := a.handler(ctx)
		if err != nil {
			return err
		}

		port := a.cfg.BridgePort
		if servePort != 0 {
			port = servePort
		}
		agentID := httpserver.AgentID(a.cfg.AgentID)
		srv := httpserver.NewServer(h, httpserver.Config{
			Port:       port,
			EnableCORS: true,
			DomainName: a.cfg.DomainName,
			CertFile:   a.cfg.CertFile,
			KeyFile:    a.cfg.KeyFile,
			AgentID:    agentID,
			Metrics:    prom.Handler(a.metrics),
			Logger:     a.logger,
		})

		if a.cfg.AgentBaseURL != "" {
			a.logger.Info("AGENT_BASE_URL set", "url", a.cfg.AgentBaseURL)
		}
		registry := httpserver.ResolveRegistryURL(".", a.cfg.RegistryURL)
		a.logger.Info("Starting crew agent (summarize/qa)", "agent_id", agentID, "registry", registry)
		printEnrollment(cmd.OutOrStdout(), httpserver.EnrollmentLink(registry, agentID))
		return srv.ListenAndServe(ctx)
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP tool server (greeting, add_numbers, recommend_song)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		// stdout carries the protocol in stdio mode
		a, err := newApp(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer a.Close()
		s := mcp.NewServer(a.logger)

		switch strings.ToLower(mcpTransport) {
		case "stdio":
			a.logger.Info("MCP server listening on stdio", "name", mcp.ServerName)
			return s.ServeStdio(ctx)
		case "http":
			port := a.cfg.MCPPort
			if mcpPort != 0 {
				port = mcpPort
			}
			return s.ServeHTTP(ctx, fmt.Sprintf(":%d", port))
		}
		return fmt.Errorf("unknown transport %q (want stdio or http)", mcpTransport)
	},
}

var recommendCmd = &cobra.Command{
	Use:   "recommend <prompt>",
	Short: "Recommend songs for a mood or genre prompt",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), recommend.Reply(strings.Join(args, " "), recommendLimit))
		return nil
	},
}

var planCmd = &cobra.Command{
	Use:   "plan [demo|summarize|qa]",
	Short: "Print the task flow of a crew as a Mermaid flowchart",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var raw string
		if len(args) > 0 {
			raw = args[0]
		}
		mode, err := dispatch.ParseMode(raw)
		if err != nil {
			return err
		}
		cfg, err := config.Load(envFiles...)
		if err != nil {
			return err
		}
		overrides, err := config.LoadCrewFile(cfg.CrewFile)
		if err != nil {
			return err
		}
		h := &dispatch.Handler{Options: crew.Options{OutputDir: cfg.OutputDir, Overrides: overrides}}
		chart, err := h.Crew(dispatch.Request{Mode: mode}).Mermaid()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), chart)
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent crew runs stored in Postgres",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		a, err := newApp(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer a.Close()
		if a.cfg.DatabaseURL == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "DATABASE_URL is not set; run history is only kept in Postgres.")
			return nil
		}
		rec, err := a.recorder(ctx)
		if err != nil {
			return err
		}
		runs, err := rec.Recent(ctx, historyLimit)
		if err != nil {
			return err
		}
		printRuns(cmd.OutOrStdout(), runs)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "crewdemo %s\n", version)
	},
}

func printRuns(w io.Writer, runs []history.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded yet.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tRUN\tMODE\tDURATION\tSTATUS\tINPUT")
	for _, r := range runs {
		status := "ok"
		if r.Error != "" {
			status = "error"
		}
		id := r.ID
		if len(id) > 8 {
			id = id[:8]
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.CreatedAt.Local().Format(time.DateTime), id, r.Mode,
			r.Duration.Round(time.Millisecond), status, clip(r.Input, 48))
	}
	tw.Flush()
}

func clip(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}
