// fillconv converts FS22 fillplane textures into the FS25 layout.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Faultbox/fillconv/internal/config"
	"github.com/Faultbox/fillconv/pkg/fillplane"
)

const version = "1.1"

const doneMessage = "All done. You can now drag the generated files onto the Giants Texture Tool in order to get FS25 DDS files."

// ErrUsage marks command line mistakes.
var ErrUsage = errors.New("invalid usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd()
	args := os.Args[1:]
	if helpRequested(args) {
		args = []string{"--help"}
	}
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, ErrUsage) {
			fmt.Fprint(os.Stderr, cmd.UsageString())
		}
	}
	stop()
	os.Exit(exitCode(err))
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fillconv [flags] <diffuse_file> <normal_file>",
		Short: "Convert FS22 fillplane textures to FS25",
		Long: `fillconv - FS22 to FS25 fillplane texture converter

    Mode1: If two DDS files are provided, it is assumed they are FS22 texture files.
    Mode2: If two PNG files are provided, it is assumed they are 1024x1024 PNG files.

The diffuse file name must end with '_diffuse'. Results are written to a
'converted' directory next to the diffuse file.`,
		Version:       version,
		Args:          validateArgs,
		RunE:          run,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	})
	config.BindFlags(cmd.Flags())
	return cmd
}

func validateArgs(cmd *cobra.Command, args []string) error {
	if config.SaveConfigPath() != "" && len(args) == 0 {
		return nil
	}
	if len(args) != 2 {
		return fmt.Errorf("%w: expected <diffuse_file> <normal_file>, got %d argument(s)", ErrUsage, len(args))
	}
	return nil
}

// helpRequested reports a DOS style /h anywhere on the command line.
// cobra already handles -h and --help in any position.
func helpRequested(args []string) bool {
	for _, a := range args {
		if a == "/h" || a == "/?" {
			return true
		}
	}
	return false
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrUsage), errors.Is(err, fillplane.ErrNoFillplaneName):
		return 2
	case errors.Is(err, fillplane.ErrUnsupportedInput):
		return 3
	default:
		return 1
	}
}
