package main

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kelindar/sea"
	"github.com/kelindar/sea/config"
	"github.com/kelindar/sea/internal/wavio"
)

var (
	encQuality        int
	encVBR            bool
	encTargetBPS      float32
	encChunkSize      int
	encFramesPerChunk int
	encSFFrames       int
	encMeta           []string
	encVerify         bool
)

var encodeCmd = &cobra.Command{
	Use:   "encode <in.wav> <out.sea>",
	Short: "Encode a 16-bit PCM WAV file to SEA",
	Args:  cobra.ExactArgs(2),
	RunE:  runEncode,
}

func init() {
	f := encodeCmd.Flags()
	f.IntVar(&encQuality, "quality", 4, "quality tier 1-8, expands to scale_factor_bits/residual_bits")
	f.BoolVar(&encVBR, "vbr", false, "use variable-bitrate residual packing")
	f.Float32Var(&encTargetBPS, "target-bps", 4.0, "target bits per sample in VBR mode")
	f.IntVar(&encChunkSize, "chunk-size", 4096, "fixed byte length of each chunk")
	f.IntVar(&encFramesPerChunk, "frames-per-chunk", 5120, "PCM frames covered by each chunk")
	f.IntVar(&encSFFrames, "sf-frames", 20, "frames sharing one scale-factor slot")
	f.StringArrayVar(&encMeta, "meta", nil, "metadata entry as key=value, repeatable")
	f.BoolVar(&encVerify, "verify", false, "decode the freshly encoded file and report PSNR against the source")
}

func runEncode(cmd *cobra.Command, args []string) error {
	in, out := args[0], args[1]

	opts := []config.Option{
		config.WithQuality(encQuality),
		config.WithChunkSize(encChunkSize),
		config.WithFramesPerChunk(encFramesPerChunk),
		config.WithScaleFactorFrames(encSFFrames),
	}
	if encVBR {
		opts = append(opts, config.WithVBR(encTargetBPS))
	}
	for _, kv := range encMeta {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("sea: --meta %q is not key=value", kv)
		}
		opts = append(opts, config.WithMetadata(k, v))
	}

	cfg, err := config.Load(opts...)
	if err != nil {
		return err
	}

	srcFile, err := os.Open(in)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	format, channels, err := wavio.Read(srcFile)
	if err != nil {
		return fmt.Errorf("sea: reading %s: %w", in, err)
	}
	log.Debug().Str("file", in).Int("channels", format.Channels).Int("sample_rate", format.SampleRate).Msg("loaded wav")

	params := sea.EncodeParams{
		Mode:              cbrOrVBR(cfg.VBR),
		ResidualBits:      cfg.ResidualBits,
		ScaleFactorBits:   cfg.ScaleFactorBits,
		FramesPerChunk:    cfg.FramesPerChunk,
		ScaleFactorFrames: cfg.ScaleFactorFrames,
		VBRTargetBPS:      cfg.VBRTargetBPS,
		ChunkSize:         cfg.ChunkSize,
	}

	start := time.Now()
	data, err := sea.Encode(channels, uint32(format.SampleRate), params, cfg.Metadata)
	if err != nil {
		return fmt.Errorf("sea: encode: %w", err)
	}
	elapsed := time.Since(start)

	if err := os.WriteFile(out, data, 0o644); err != nil {
		return err
	}

	frames := 0
	if len(channels) > 0 {
		frames = len(channels[0])
	}
	rawBytes := frames * format.Channels * 2
	log.Debug().
		Int("frames", frames).
		Int("chunks", (frames+cfg.FramesPerChunk-1)/cfg.FramesPerChunk).
		Int("raw_bytes", rawBytes).
		Int("encoded_bytes", len(data)).
		Dur("elapsed", elapsed).
		Msg("encode complete")

	if encVerify {
		result, err := sea.Decode(data)
		if err != nil {
			return fmt.Errorf("sea: verify decode: %w", err)
		}
		for ch := range channels {
			p := psnr(channels[ch], result.Samples[ch])
			log.Debug().Int("channel", ch).Float64("psnr_db", p).Msg("verify")
		}
	}

	return nil
}

func cbrOrVBR(vbr bool) sea.Mode {
	if vbr {
		return sea.VBR
	}
	return sea.CBR
}

func psnr(original, decoded []int16) float64 {
	var sumSq float64
	for i := range original {
		d := float64(original[i]) - float64(decoded[i])
		sumSq += d * d
	}
	if sumSq == 0 {
		return math.Inf(1)
	}
	mse := sumSq / float64(len(original))
	return 20*math.Log10(32767) - 10*math.Log10(mse)
}
