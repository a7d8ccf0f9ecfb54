package app

import (
	"errors"
	"fmt"

	"github.com/google/shlex"
	"github.com/spf13/cobra"

	"github.com/stillwater-systems/appdock/internal/lifecycle"
)

var launchCmd = &cobra.Command{
	Use:   "launch <app> [-- args...]",
	Short: "Launch an installed app",
	Long: `Launch an installed app detached from the terminal.

Launching requires the app to be trusted (see 'appdock trust') and not
marked terminal-only. Arguments after -- are passed to the bundle in
addition to its configured launch arguments.

Examples:
  appdock launch MyApp
  appdock launch MyApp -- --profile work`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLaunch,
}

func runLaunch(cmd *cobra.Command, args []string) error {
	idx, err := openIndex()
	if err != nil {
		return err
	}
	defer idx.Close()

	app, err := findApp(idx, args[0])
	if err != nil {
		return err
	}
	if len(args) > 1 {
		app.ExecArgs = append(app.ExecArgs, args[1:]...)
	}

	machine, _, err := newMachine(idx, lifecycle.FixedResolver{Resolution: lifecycle.ResolutionCancel})
	if err != nil {
		return err
	}

	if err := machine.Launch(app); err != nil {
		if errors.Is(err, lifecycle.ErrLaunchBlocked) && !app.Trusted {
			return fmt.Errorf("%s is not trusted; run 'appdock trust %s' first", app.Name, args[0])
		}
		return err
	}

	fmt.Printf("✓ Launched %s\n", app.Name)
	return nil
}

// parseExecArgs splits a launch argument string the way a shell would.
func parseExecArgs(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	args, err := shlex.Split(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid launch arguments: %w", err)
	}
	return args, nil
}
