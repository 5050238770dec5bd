package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kelindar/sea"
	"github.com/kelindar/sea/internal/wavio"
)

var decodeCmd = &cobra.Command{
	Use:   "decode <in.sea> <out.wav>",
	Short: "Decode a SEA file to 16-bit PCM WAV",
	Args:  cobra.ExactArgs(2),
	RunE:  runDecode,
}

func runDecode(cmd *cobra.Command, args []string) error {
	in, out := args[0], args[1]

	data, err := os.ReadFile(in)
	if err != nil {
		return err
	}

	start := time.Now()
	result, err := sea.Decode(data)
	if err != nil {
		var de *sea.DecodeError
		if errors.As(err, &de) && de.Partial != nil {
			log.Warn().Err(err).Int("frames_recovered", de.Partial.Frames).Msg("decode failed partway; writing partial output")
			result = de.Partial
		} else {
			return fmt.Errorf("sea: decode: %w", err)
		}
	}
	elapsed := time.Since(start)

	dstFile, err := os.Create(out)
	if err != nil {
		return err
	}
	defer dstFile.Close()

	format := wavio.Format{Channels: result.Channels, SampleRate: int(result.SampleRate)}
	if err := wavio.Write(dstFile, format, result.Samples); err != nil {
		return fmt.Errorf("sea: writing %s: %w", out, err)
	}

	log.Debug().
		Int("frames", result.Frames).
		Int("channels", result.Channels).
		Dur("elapsed", elapsed).
		Msg("decode complete")

	return nil
}
