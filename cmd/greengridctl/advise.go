package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/greengrid/greengrid/pkg/common"
	"github.com/greengrid/greengrid/pkg/types"
)

func init() {
	var (
		serverURL   string
		householdID string
		token       string
	)
	cmd := &cobra.Command{
		Use:   "advise",
		Short: "Ask a running GreenGrid server for a fresh advisory",
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := url.JoinPath(serverURL, "/api/advise")
			if err != nil {
				return fmt.Errorf("invalid server url: %w", err)
			}
			body, err := json.Marshal(map[string]string{"householdID": householdID})
			if err != nil {
				return err
			}
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, u, bytes.NewReader(body))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/json")
			if token != "" {
				req.Header.Set("Authorization", "Bearer "+token)
			}

			resp, err := common.HTTPClient(time.Minute).Do(req)
			if err != nil {
				return fmt.Errorf("failed to call %s: %w", u, err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				b, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
				return fmt.Errorf("server returned %s: %s", resp.Status, bytes.TrimSpace(b))
			}

			var a types.Advisory
			if err := json.NewDecoder(resp.Body).Decode(&a); err != nil {
				return fmt.Errorf("failed to decode advisory: %w", err)
			}
			return render(cmd.OutOrStdout(), a)
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "GreenGrid server URL")
	cmd.Flags().StringVar(&householdID, "household", "", "household id, empty for the only household")
	cmd.Flags().StringVar(&token, "token", "", "OIDC id token when the server requires authentication")
	rootCmd.AddCommand(cmd)
}
