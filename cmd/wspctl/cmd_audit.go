package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

type auditEventView struct {
	RuleID     string `json:"RuleID"`
	SessionID  string `json:"SessionID"`
	Outcome    string `json:"Outcome"`
	Detail     string `json:"Detail"`
	OccurredAt string `json:"OccurredAt"`
}

func auditCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "List recent dispatch events from the daemon's audit trail",
		RunE: func(_ *cobra.Command, _ []string) error {
			return reportAudit(addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", defaultAdminAddr(), "Admin server base URL")
	return cmd
}

func reportAudit(addr string) error {
	resp, err := adminClient().Get(addr + "/audit/recent")
	if err != nil {
		return fmt.Errorf("reaching %s: %w", addr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("admin surface returned status %d", resp.StatusCode)
	}

	var events []auditEventView
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	for _, ev := range events {
		fmt.Printf("%s  rule=%s session=%s outcome=%s %s\n", ev.OccurredAt, ev.RuleID, ev.SessionID, ev.Outcome, ev.Detail)
	}
	return nil
}
