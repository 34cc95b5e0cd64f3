package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/olhodeaguia/scan-service/internal/domain/entity"
	"github.com/olhodeaguia/scan-service/internal/domain/port"
	"go.uber.org/zap"
)

type SourceConfig struct {
	FFmpegPath    string
	FFprobePath   string
	EveryNthFrame int
	MaxFrames     int
}

// Source opens videos as lazy gray frame streams decoded by an ffmpeg child process.
type Source struct {
	ffmpegPath  string
	ffprobePath string
	stride      int
	maxFrames   int
	logger      *zap.Logger
}

func NewSource(cfg SourceConfig, logger *zap.Logger) *Source {
	s := &Source{
		ffmpegPath:  cfg.FFmpegPath,
		ffprobePath: cfg.FFprobePath,
		stride:      cfg.EveryNthFrame,
		maxFrames:   cfg.MaxFrames,
		logger:      logger,
	}
	if s.ffmpegPath == "" {
		s.ffmpegPath = "ffmpeg"
	}
	if s.ffprobePath == "" {
		s.ffprobePath = "ffprobe"
	}
	if s.stride < 1 {
		s.stride = 1
	}
	return s
}

// Open probes the video and starts decoding it. The first frame is read
// before returning so that a video ffmpeg cannot decode at all is reported
// as port.ErrUnreadableVideo rather than as an empty stream.
func (s *Source) Open(ctx context.Context, videoPath string) (port.FrameStream, error) {
	if _, err := os.Stat(videoPath); err != nil {
		return nil, fmt.Errorf("%w: %v", port.ErrUnreadableVideo, err)
	}

	info, err := s.probe(ctx, videoPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", port.ErrUnreadableVideo, err)
	}
	if info.Frames == 0 {
		return nil, fmt.Errorf("%w: video has no frames", port.ErrUnreadableVideo)
	}

	cmd := exec.CommandContext(ctx, s.ffmpegPath,
		"-v", "error",
		"-nostdin",
		"-noautorotate",
		"-i", videoPath,
		"-map", "0:v:0",
		"-f", "rawvideo",
		"-pix_fmt", "gray",
		"pipe:1",
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout: %w", err)
	}
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: start ffmpeg: %v", port.ErrUnreadableVideo, err)
	}

	st := &stream{
		ctx:       ctx,
		cmd:       cmd,
		stderr:    stderr,
		reader:    newGrayReader(stdout, info.Width, info.Height, s.stride),
		total:     info.Frames,
		stride:    s.stride,
		maxFrames: s.maxFrames,
	}

	img, idx, err := st.reader.read()
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("%w: first frame: %v %s", port.ErrUnreadableVideo, err, st.stderrTail())
	}
	st.pending = &entity.RawFrame{Index: idx, Image: img}

	s.logger.Info("video opened",
		zap.String("path", videoPath),
		zap.Int("total_frames", info.Frames),
		zap.Int("width", info.Width),
		zap.Int("height", info.Height),
		zap.Float64("duration_secs", info.Duration),
		zap.Int("every_nth_frame", s.stride),
	)

	return st, nil
}

type stream struct {
	ctx    context.Context
	cmd    *exec.Cmd
	stderr *bytes.Buffer
	reader *grayReader

	total     int
	stride    int
	maxFrames int
	yielded   int

	pending  *entity.RawFrame
	frame    entity.RawFrame
	err      error
	finished bool
}

func (st *stream) Next() bool {
	if st.finished {
		return false
	}

	if st.pending != nil {
		st.frame = *st.pending
		st.pending = nil
		st.yielded++
		return true
	}

	img, idx, err := st.reader.read()
	if err == io.EOF {
		if waitErr := st.wait(); waitErr != nil {
			st.err = st.midStreamError(waitErr)
		}
		return false
	}
	if err != nil {
		_ = st.Close()
		st.err = st.midStreamError(err)
		return false
	}

	// The budget only cuts the scan short when a further frame exists.
	if st.maxFrames > 0 && st.yielded >= st.maxFrames {
		st.err = fmt.Errorf("%w: stopped after %d frames", port.ErrFrameBudgetExceeded, st.yielded)
		_ = st.Close()
		return false
	}

	st.frame = entity.RawFrame{Index: idx, Image: img}
	st.yielded++
	return true
}

func (st *stream) Frame() entity.RawFrame {
	return st.frame
}

func (st *stream) Err() error {
	return st.err
}

func (st *stream) TotalFrames() int {
	return st.total
}

func (st *stream) Stride() int {
	return st.stride
}

// Close stops ffmpeg if it is still running and reaps it.
func (st *stream) Close() error {
	if st.finished {
		return nil
	}
	st.finished = true
	if st.cmd.Process != nil {
		_ = st.cmd.Process.Kill()
	}
	_ = st.cmd.Wait()
	return nil
}

// wait reaps ffmpeg after it closed stdout on its own.
func (st *stream) wait() error {
	st.finished = true
	return st.cmd.Wait()
}

func (st *stream) midStreamError(cause error) error {
	if ctxErr := st.ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", port.ErrMidStreamRead, ctxErr)
	}
	return fmt.Errorf("%w: %v %s", port.ErrMidStreamRead, cause, st.stderrTail())
}

func (st *stream) stderrTail() string {
	msg := strings.TrimSpace(st.stderr.String())
	if len(msg) > 512 {
		msg = msg[len(msg)-512:]
	}
	return msg
}
