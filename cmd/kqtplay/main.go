// Command kqtplay renders a module against the real-time render core and
// writes the result to a WAV file, showing a live progress bar while it
// runs.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "kqtplay",
		Short: "Render a module against the real-time render core",
	}
	root.AddCommand(newRenderCmd())
	root.AddCommand(newInfoCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
