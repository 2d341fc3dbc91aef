package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kunquat/kqtcore/internal/moduleio"
)

func newInfoCmd() *cobra.Command {
	var modulePath string

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Print a module's tracks, songs, and pattern summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(modulePath)
		},
	}
	cmd.Flags().StringVar(&modulePath, "module", "", "path to a module JSON file (required)")
	cmd.MarkFlagRequired("module")
	return cmd
}

func runInfo(modulePath string) error {
	m, err := moduleio.Load(modulePath)
	if err != nil {
		return err
	}

	fmt.Printf("audio rate: %d Hz\n", m.AudioRate)
	fmt.Printf("tracks:     %v\n", m.Tracks)
	for si, song := range m.Songs {
		fmt.Printf("song %d: tempo=%.1f BPM, %d instance(s)\n", si, song.InitialTempoBPM, len(song.Instances))
		for _, ref := range song.Instances {
			pat, ok := m.PatternFor(ref)
			if !ok {
				fmt.Printf("  instance %d -> pattern %d (MISSING)\n", ref.InstanceID, ref.PatternID)
				continue
			}
			fmt.Printf("  instance %d -> pattern %d (length %s, %d column(s))\n", ref.InstanceID, ref.PatternID, pat.Length, len(pat.Columns))
		}
	}
	return nil
}
