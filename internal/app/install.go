package app

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/stillwater-systems/appdock/internal/lifecycle"
)

var (
	installFlagTrust      bool
	installFlagOnConflict string

	installCmd = &cobra.Command{
		Use:   "install <bundle.AppImage>",
		Short: "Install an AppImage bundle",
		Long: `Install an AppImage bundle into the managed apps directory.

The bundle is copied, made executable, given a desktop entry, and
recorded in the index. Installing a bundle whose identity is already
installed from a different source raises a conflict; resolve it
interactively or with --on-conflict.

Conflict resolutions:
  replace    Uninstall the existing app first, including its config
  keep-both  Install alongside under a distinct storage name
  cancel     Abort before touching any file

Examples:
  # Install and trust in one go
  appdock install ./MyApp-1.2.0-x86_64.AppImage --trust

  # Replace an earlier install from another source without prompting
  appdock install ./MyApp.AppImage --on-conflict replace`,
		Args: cobra.ExactArgs(1),
		RunE: runInstall,
	}
)

func init() {
	installCmd.Flags().BoolVar(&installFlagTrust, "trust", false, "mark the app trusted so it can be launched")
	installCmd.Flags().StringVar(&installFlagOnConflict, "on-conflict", "", "conflict resolution: replace, keep-both, or cancel (default: ask)")
}

func runInstall(cmd *cobra.Command, args []string) error {
	resolver, err := conflictResolverFromFlag(installFlagOnConflict)
	if err != nil {
		return err
	}

	idx, err := openIndex()
	if err != nil {
		return err
	}
	defer idx.Close()

	machine, _, err := newMachine(idx, resolver)
	if err != nil {
		return err
	}

	provider, err := newProvider(idx)
	if err != nil {
		return err
	}

	source, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve bundle path: %w", err)
	}

	app, err := provider.NewFromFile(source, source)
	if err != nil {
		return err
	}
	if installFlagTrust {
		app.SetTrusted()
	}

	if err := machine.Install(cmd.Context(), app); err != nil {
		if err == lifecycle.ErrConflictCanceled {
			fmt.Println("Install cancelled.")
			return nil
		}
		return err
	}

	fmt.Printf("✓ Installed %s", app.Name)
	if app.Version != "" {
		fmt.Printf(" %s", app.Version)
	}
	fmt.Println()
	fmt.Printf("  Bundle:  %s\n", app.Path)
	if app.Trusted {
		fmt.Printf("  Trusted: yes\n")
	} else {
		fmt.Printf("  Trusted: no (run 'appdock trust %s' before launching)\n", app.Name)
	}
	return nil
}

// conflictResolverFromFlag maps --on-conflict to a resolver. Without
// the flag, a terminal gets an interactive prompt and everything else
// cancels.
func conflictResolverFromFlag(value string) (lifecycle.ConflictResolver, error) {
	switch value {
	case "":
		if isatty.IsTerminal(os.Stdin.Fd()) {
			return promptResolver{}, nil
		}
		return lifecycle.FixedResolver{Resolution: lifecycle.ResolutionCancel}, nil
	case "replace":
		return lifecycle.FixedResolver{Resolution: lifecycle.ResolutionReplace}, nil
	case "keep-both":
		return lifecycle.FixedResolver{Resolution: lifecycle.ResolutionKeepBoth}, nil
	case "cancel":
		return lifecycle.FixedResolver{Resolution: lifecycle.ResolutionCancel}, nil
	default:
		return nil, fmt.Errorf("invalid --on-conflict value %q: must be one of: replace, keep-both, cancel", value)
	}
}

// promptResolver asks on stdin how to resolve an install conflict.
type promptResolver struct{}

func (promptResolver) Resolve(name, existingProvenance, newProvenance string) (lifecycle.Resolution, error) {
	fmt.Printf("%s is already installed from a different source.\n", name)
	fmt.Printf("  existing: %s\n", existingProvenance)
	fmt.Printf("  new:      %s\n", newProvenance)
	fmt.Print("Replace it, keep both, or cancel? [r/k/C]: ")

	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return lifecycle.ResolutionCancel, nil
	}

	switch strings.TrimSpace(strings.ToLower(response)) {
	case "r", "replace":
		return lifecycle.ResolutionReplace, nil
	case "k", "keep", "keep-both":
		return lifecycle.ResolutionKeepBoth, nil
	default:
		return lifecycle.ResolutionCancel, nil
	}
}
