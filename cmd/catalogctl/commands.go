package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

type device struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PricePence  int64  `json:"pricePence"`
	Description string `json:"description"`
	UpdatedAt   string `json:"updatedAt"`
}

type client struct {
	BaseURL   string
	OutFormat string // "json" | "text"
	HTTP      *http.Client
	out       io.Writer
}

func (c *client) do(method, path string, body []byte) (int, []byte, error) {
	url := strings.TrimRight(c.BaseURL, "/") + path
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b, nil
}

// print renders devices as a table, or pretty JSON with --out json.
func (c *client) print(body []byte, devices ...device) {
	if c.OutFormat == "json" {
		var v any
		if json.Unmarshal(body, &v) == nil {
			p, _ := json.MarshalIndent(v, "", "  ")
			fmt.Fprintln(c.out, string(p))
			return
		}
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tUPDATED\tDESCRIPTION")
	for _, d := range devices {
		fmt.Fprintf(tw, "%s\t%s\t£%s\t%s\t%s\n", d.ID, d.Name, formatPence(d.PricePence), d.UpdatedAt, d.Description)
	}
	_ = tw.Flush()
}

func formatPence(p int64) string {
	return decimal.New(p, -2).StringFixed(2)
}

// parsePrice converts pounds ("3.50") to whole pence.
func parsePrice(s string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimPrefix(strings.TrimSpace(s), "£"))
	if err != nil {
		return 0, fmt.Errorf("invalid price %q: %w", s, err)
	}
	pence := d.Shift(2)
	if !pence.Equal(pence.Truncate(0)) {
		return 0, fmt.Errorf("invalid price %q: more than two decimal places", s)
	}
	if pence.IsNegative() {
		return 0, fmt.Errorf("invalid price %q: must not be negative", s)
	}
	return pence.IntPart(), nil
}

func failure(op string, status int, body []byte) error {
	var e struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Message != "" {
		if e.Error != "" {
			return fmt.Errorf("%s failed: status=%d: %s: %s", op, status, e.Message, e.Error)
		}
		return fmt.Errorf("%s failed: status=%d: %s", op, status, e.Message)
	}
	return fmt.Errorf("%s failed: status=%d body=%s", op, status, string(body))
}

func newRootCmd(out io.Writer) *cobra.Command {
	cl := &client{
		BaseURL:   envOr("CATALOG_URL", "http://localhost:8080"),
		OutFormat: envOr("CATALOG_OUT", "text"),
		HTTP:      &http.Client{Timeout: 30 * time.Second},
		out:       out,
	}

	root := &cobra.Command{
		Use:           "catalogctl",
		Short:         "Client for the catalog device API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&cl.BaseURL, "url", cl.BaseURL, "Catalog API base URL (env CATALOG_URL)")
	root.PersistentFlags().StringVar(&cl.OutFormat, "out", cl.OutFormat, "Output format: json|text")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.do(http.MethodGet, "/api/devices", nil)
			if err != nil {
				return err
			}
			if status != http.StatusOK {
				return failure("list", status, body)
			}
			var devices []device
			if err := json.Unmarshal(body, &devices); err != nil {
				return err
			}
			cl.print(body, devices...)
			return nil
		},
	}

	getCmd := &cobra.Command{
		Use:   "get ID",
		Short: "Show one device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.do(http.MethodGet, "/api/devices/"+url.PathEscape(args[0]), nil)
			if err != nil {
				return err
			}
			if status != http.StatusOK {
				return failure("get", status, body)
			}
			var d device
			if err := json.Unmarshal(body, &d); err != nil {
				return err
			}
			cl.print(body, d)
			return nil
		},
	}

	var upName, upPrice, upDesc string
	upsertCmd := &cobra.Command{
		Use:   "upsert ID",
		Short: "Create or replace a device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if upName == "" || upPrice == "" || upDesc == "" {
				return errors.New("--name, --price and --description are required")
			}
			pence, err := parsePrice(upPrice)
			if err != nil {
				return err
			}
			b, _ := json.Marshal(map[string]any{
				"id":          args[0],
				"name":        upName,
				"pricePence":  pence,
				"description": upDesc,
			})
			status, body, err := cl.do(http.MethodPut, "/api/devices", b)
			if err != nil {
				return err
			}
			if status != http.StatusOK {
				return failure("upsert", status, body)
			}
			var d device
			if err := json.Unmarshal(body, &d); err != nil {
				return err
			}
			cl.print(body, d)
			return nil
		},
	}
	upsertCmd.Flags().StringVar(&upName, "name", "", "Device name")
	upsertCmd.Flags().StringVar(&upPrice, "price", "", "Price in pounds, e.g. 12.99")
	upsertCmd.Flags().StringVar(&upDesc, "description", "", "Device description")

	deleteCmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.do(http.MethodDelete, "/api/devices/"+url.PathEscape(args[0]), nil)
			if err != nil {
				return err
			}
			if status != http.StatusNoContent {
				return failure("delete", status, body)
			}
			fmt.Fprintln(cl.out, "deleted", args[0])
			return nil
		},
	}

	root.AddCommand(listCmd, getCmd, upsertCmd, deleteCmd)
	return root
}
