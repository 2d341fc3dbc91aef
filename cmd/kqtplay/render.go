package main

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/cobra"

	"github.com/kunquat/kqtcore/internal/democonfig"
	"github.com/kunquat/kqtcore/internal/moduleio"
	"github.com/kunquat/kqtcore/internal/player"
	"github.com/kunquat/kqtcore/internal/processors"
)

const renderChunkFrames = 4096

func newRenderCmd() *cobra.Command {
	var modulePath, outPath string
	var maxSeconds float64
	var quiet bool

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a module to a WAV file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(modulePath, outPath, maxSeconds, quiet)
		},
	}
	cmd.Flags().StringVar(&modulePath, "module", "", "path to a module JSON file (required)")
	cmd.Flags().StringVar(&outPath, "out", "out.wav", "output WAV file path")
	cmd.Flags().Float64Var(&maxSeconds, "max-seconds", 120, "safety cap on render length")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "suppress the progress bar")
	cmd.MarkFlagRequired("module")
	return cmd
}

// runRender loads a module, renders it end to end through the twin-mono
// demo device graph (democonfig.BuildGraph), and writes the result as a
// 16-bit stereo WAV file. A module whose playback stops (RenderChunk
// returning 0) ends the render early; an infinitely-looping one is
// capped by maxSeconds.
func runRender(modulePath, outPath string, maxSeconds float64, quiet bool) error {
	m, err := moduleio.Load(modulePath)
	if err != nil {
		return err
	}

	p, err := player.NewPlayer(m, democonfig.BuildGraph(processors.Left), democonfig.BuildGraph(processors.Right), 64, renderChunkFrames)
	if err != nil {
		return fmt.Errorf("kqtplay: %w", err)
	}
	p.Play()

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("kqtplay: creating output file: %w", err)
	}
	defer out.Close()

	enc := wav.NewEncoder(out, m.AudioRate, 16, 2, 1)
	defer enc.Close()

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: m.AudioRate},
		Data:           make([]int, renderChunkFrames*2),
		SourceBitDepth: 16,
	}

	maxFrames := int(maxSeconds * float64(m.AudioRate))
	var prog *progressProgram
	if !quiet {
		prog = newProgressProgram(maxFrames)
		defer prog.stop()
	}

	totalFrames := 0
	for totalFrames < maxFrames {
		rendered := p.RenderChunk(renderChunkFrames)
		if rendered == 0 {
			break
		}
		left, right := p.MasterOutputs()
		for i := 0; i < rendered; i++ {
			buf.Data[2*i] = int(clampSample(left.Data[i]) * 32767)
			buf.Data[2*i+1] = int(clampSample(right.Data[i]) * 32767)
		}
		frame := buf
		if rendered != renderChunkFrames {
			frame = &audio.IntBuffer{Format: buf.Format, Data: buf.Data[:rendered*2], SourceBitDepth: 16}
		}
		if err := enc.Write(frame); err != nil {
			return fmt.Errorf("kqtplay: writing wav: %w", err)
		}
		totalFrames += rendered
		if prog != nil {
			prog.advance(totalFrames)
		}
	}

	return nil
}

func clampSample(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
