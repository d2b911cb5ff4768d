package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

func healthCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check whether the daemon's admin surface is reachable",
		RunE: func(_ *cobra.Command, _ []string) error {
			return reportHealth(addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", defaultAdminAddr(), "Admin server base URL")
	return cmd
}

func defaultAdminAddr() string {
	if v := os.Getenv("WSPCTL_ADDR"); v != "" {
		return v
	}
	return "http://127.0.0.1:8090"
}

func reportHealth(addr string) error {
	resp, err := adminClient().Get(addr + "/healthz")
	if err != nil {
		return fmt.Errorf("reaching %s: %w", addr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("admin surface returned status %d", resp.StatusCode)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	fmt.Printf("status=%s bot=%s\n", body["status"], body["bot"])
	return nil
}
