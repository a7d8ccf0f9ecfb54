package app

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stillwater-systems/appdock/internal/index"
	"github.com/stillwater-systems/appdock/internal/output"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed apps",
	Long: `List installed apps with their version, status, and trust state.

Examples:
  appdock list`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func runList(cmd *cobra.Command, args []string) error {
	idx, err := openIndex()
	if err != nil {
		return err
	}
	defer idx.Close()

	apps, err := idx.List()
	if err != nil {
		if errors.Is(err, index.ErrNotInitialized) {
			fmt.Println("No apps installed.")
			return nil
		}
		return err
	}

	fmt.Print(output.RenderAppTable(apps))
	return nil
}
