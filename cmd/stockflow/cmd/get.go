package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/layer-3/stockflow/core"
	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <path>",
	Short: "Send a GET request to the API and print the response",
	Example: `  stockflow get /auth/me -u Alpha -p alpha123
  stockflow get "/products?category=Electronics"`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.client.Get(cmd.Context(), args[0])
	if err != nil {
		return explain(err)
	}

	var out bytes.Buffer
	if err := json.Indent(&out, resp.Body, "", "  "); err != nil {
		out.Reset()
		out.Write(resp.Body)
	}
	out.WriteByte('\n')

	_, err = out.WriteTo(os.Stdout)
	return err
}

// explain adds a hint to errors the user can act on
func explain(err error) error {
	switch {
	case errors.Is(err, core.ErrAuthenticationRequired):
		return fmt.Errorf("%w (log in with --username and --password)", err)
	case errors.Is(err, core.ErrInvalidCredentials):
		return fmt.Errorf("%w (check --username and --password)", err)
	default:
		return err
	}
}
