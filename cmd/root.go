package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RootCommand creates the top level command
func RootCommand() (*cobra.Command, error) {
	root := cobra.Command{
		Use:          "statusplattform-operator",
		Short:        "reports readiness of platform applications to the status registry",
		SilenceUsage: true,
	}

	for name, fn := range map[string]func() (*cobra.Command, error){
		"controller": ControllerCommand,
	} {
		cmd, err := fn()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		root.AddCommand(cmd)
	}

	return &root, nil
}
