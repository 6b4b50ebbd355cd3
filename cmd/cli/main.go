package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

var (
	baseURL string
	timeout time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "bankmatch-cli",
		Short: "BankMatch CLI tool",
		Long:  `A command line interface for interacting with the BankMatch reconciliation API.`,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the BankMatch API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	rootCmd.AddCommand(
		suggestCmd(),
		confirmCmd(),
		unmatchCmd(),
		unmatchedCmd(),
		autoMatchCmd(),
		importCmd(),
		reportCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func suggestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <side> <id>",
		Short: "Suggest match candidates for a bank or ledger transaction",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return getJSON(fmt.Sprintf("/api/v1/matching/candidates/%s/%s", args[0], args[1]))
		},
	}
}

func confirmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "confirm <bank-transaction-id> <transaction-id>",
		Short: "Confirm a match between a bank and a ledger transaction",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]string{
				"bank_transaction_id": args[0],
				"transaction_id":      args[1],
			}
			return postJSON("/api/v1/matching/confirm", body)
		},
	}
}

func unmatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unmatch <side> <id>",
		Short: "Release the match a transaction participates in",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			side := args[0]
			if side != "bank" && side != "ledger" {
				return fmt.Errorf("side must be bank or ledger, got %q", side)
			}
			return postJSON(fmt.Sprintf("/api/v1/matching/unmatch/%s/%s", side, args[1]), nil)
		},
	}
}

func autoMatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auto",
		Short: "Confirm every unambiguous exact amount-and-date pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return postJSON("/api/v1/matching/auto", nil)
		},
	}
}

func unmatchedCmd() *cobra.Command {
	var filterType, filterValue, side string

	cmd := &cobra.Command{
		Use:   "unmatched",
		Short: "List unmatched transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/transactions"
			if side == "bank" {
				path = "/api/v1/bank-transactions"
			}
			path += "?match_state=unmatched"
			if filterType != "" {
				path += "&filter_type=" + filterType + "&filter_value=" + filterValue
			}
			return getJSON(path)
		},
	}

	cmd.Flags().StringVar(&side, "side", "bank", "Which side to list: bank or ledger")
	cmd.Flags().StringVar(&filterType, "filter-type", "", "Date bucket kind: date, week, month or year")
	cmd.Flags().StringVar(&filterValue, "filter-value", "", "Date bucket value")

	return cmd
}

func importCmd() *cobra.Command {
	var bankName, accountNumber string

	cmd := &cobra.Command{
		Use:   "import <statement.csv>",
		Short: "Import a bank statement CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer file.Close()

			var buf bytes.Buffer
			mw := multipart.NewWriter(&buf)

			fw, err := mw.CreateFormFile("statement", filepath.Base(args[0]))
			if err != nil {
				return err
			}
			if _, err := io.Copy(fw, file); err != nil {
				return err
			}
			if err := mw.WriteField("bank_name", bankName); err != nil {
				return err
			}
			if err := mw.WriteField("account_number", accountNumber); err != nil {
				return err
			}
			if err := mw.Close(); err != nil {
				return err
			}

			client := &http.Client{Timeout: timeout}
			resp, err := client.Post(baseURL+"/api/v1/bank-transactions/import", mw.FormDataContentType(), &buf)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			return printResponse(resp)
		},
	}

	cmd.Flags().StringVar(&bankName, "bank", "", "Bank name recorded on imported rows")
	cmd.Flags().StringVar(&accountNumber, "account", "", "Account number recorded on imported rows")

	return cmd
}

func reportCmd() *cobra.Command {
	var filterType, filterValue, output string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Download unmatched bank transactions as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/bank-transactions/report"
			if filterType != "" {
				path += "?filter_type=" + filterType + "&filter_value=" + filterValue
			}

			client := &http.Client{Timeout: timeout}
			resp, err := client.Get(baseURL + path)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				body, _ := io.ReadAll(resp.Body)
				return fmt.Errorf("report failed (status %d): %s", resp.StatusCode, truncate(string(body), 200))
			}

			out := os.Stdout
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}

			_, err = io.Copy(out, resp.Body)
			return err
		},
	}

	cmd.Flags().StringVar(&filterType, "filter-type", "", "Date bucket kind: date, week, month or year")
	cmd.Flags().StringVar(&filterValue, "filter-value", "", "Date bucket value")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the CSV to a file instead of stdout")

	return cmd
}

func getJSON(path string) error {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(baseURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return printResponse(resp)
}

func postJSON(path string, body any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Post(baseURL+path, "application/json", reader)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return printResponse(resp)
}

func printResponse(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("request failed (status %d): %s", resp.StatusCode, truncate(string(body), 200))
	}

	if len(body) == 0 {
		fmt.Println("OK")
		return nil
	}

	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		fmt.Println(string(body))
		return nil
	}

	printJSON(decoded)
	return nil
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("failed to render response: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
