package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

type shareDescriptor struct {
	Plugin string `json:"plugin"`
	Name   string `json:"name"`
}

func sharesCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "shares",
		Short: "List, read, or write a bot's IPC plugin shares",
	}
	cmd.PersistentFlags().StringVar(&addr, "addr", defaultAdminAddr(), "Admin server base URL")

	list := &cobra.Command{
		Use:   "list",
		Short: "List every registered share",
		RunE: func(_ *cobra.Command, _ []string) error {
			return listShares(addr)
		},
	}

	get := &cobra.Command{
		Use:   "get <plugin> <name>",
		Short: "Read a share's current value",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return getShare(addr, args[0], args[1])
		},
	}

	set := &cobra.Command{
		Use:   "set <plugin> <name> <value>",
		Short: "Write a non-static share's value",
		Args:  cobra.ExactArgs(3),
		RunE: func(_ *cobra.Command, args []string) error {
			return setShare(addr, args[0], args[1], args[2])
		},
	}

	cmd.AddCommand(list, get, set)
	return cmd
}

func listShares(addr string) error {
	resp, err := adminClient().Get(addr + "/shares")
	if err != nil {
		return fmt.Errorf("reaching %s: %w", addr, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("admin surface returned status %d", resp.StatusCode)
	}
	var descs []shareDescriptor
	if err := json.NewDecoder(resp.Body).Decode(&descs); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	for _, d := range descs {
		fmt.Printf("%s/%s\n", d.Plugin, d.Name)
	}
	return nil
}

func getShare(addr, plugin, name string) error {
	url := fmt.Sprintf("%s/shares/value?plugin=%s&name=%s", addr, plugin, name)
	resp, err := adminClient().Get(url)
	if err != nil {
		return fmt.Errorf("reaching %s: %w", addr, err)
	}
	defer resp.Body.Close()

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("admin surface error: %s", body["error"])
	}
	fmt.Println(body["value"])
	return nil
}

func setShare(addr, plugin, name, value string) error {
	url := fmt.Sprintf("%s/shares/value?plugin=%s&name=%s", addr, plugin, name)
	payload, err := json.Marshal(map[string]string{"value": value})
	if err != nil {
		return err
	}
	resp, err := adminClient().Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("reaching %s: %w", addr, err)
	}
	defer resp.Body.Close()

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("admin surface error: %s", body["error"])
	}
	fmt.Printf("%s/%s = %s\n", plugin, name, body["value"])
	return nil
}
