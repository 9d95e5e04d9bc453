package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/brk3/habitkit/pkg/versioninfo"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long: `The "version" command displays the current version info for both client
and server if available.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("Client Version: %s (built %s)\n", versioninfo.Version, versioninfo.BuildDate)

			v, err := serverVersion(cmd.Context(), cfg.APIBaseURL)
			if err != nil {
				cmd.Println("Error fetching server version:", err)
				return
			}
			cmd.Printf("Server Version: %s\n", v.Version)
		},
	}
}

func serverVersion(ctx context.Context, base string) (versioninfo.VersionInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/version", nil)
	if err != nil {
		return versioninfo.VersionInfo{}, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return versioninfo.VersionInfo{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return versioninfo.VersionInfo{}, fmt.Errorf("unexpected status %s", resp.Status)
	}
	var v versioninfo.VersionInfo
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return versioninfo.VersionInfo{}, fmt.Errorf("decoding version response: %w", err)
	}
	return v, nil
}
