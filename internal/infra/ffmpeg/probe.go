package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// VideoInfo describes the first video stream of a file.
type VideoInfo struct {
	Width    int
	Height   int
	Frames   int
	Duration float64
}

type probeOutput struct {
	Streams []struct {
		Width         int    `json:"width"`
		Height        int    `json:"height"`
		NbReadPackets string `json:"nb_read_packets"`
		NbFrames      string `json:"nb_frames"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func (s *Source) probe(ctx context.Context, videoPath string) (*VideoInfo, error) {
	cmd := exec.CommandContext(ctx, s.ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-count_packets",
		"-show_entries", "stream=width,height,nb_read_packets,nb_frames:format=duration",
		"-of", "json",
		videoPath,
	)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe: %w", err)
	}
	return parseProbeOutput(output)
}

func parseProbeOutput(output []byte) (*VideoInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(output, &out); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if len(out.Streams) == 0 {
		return nil, fmt.Errorf("no video stream")
	}

	st := out.Streams[0]
	if st.Width <= 0 || st.Height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", st.Width, st.Height)
	}

	frames := parseCount(st.NbReadPackets)
	if frames == 0 {
		frames = parseCount(st.NbFrames)
	}

	duration, _ := strconv.ParseFloat(strings.TrimSpace(out.Format.Duration), 64)

	return &VideoInfo{
		Width:    st.Width,
		Height:   st.Height,
		Frames:   frames,
		Duration: duration,
	}, nil
}

// parseCount reads ffprobe counters, which are strings and may be "N/A".
func parseCount(v string) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
