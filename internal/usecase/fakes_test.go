package usecase

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/olhodeaguia/scan-service/internal/domain/entity"
	"github.com/olhodeaguia/scan-service/internal/domain/port"
)

type fakeStream struct {
	frames []entity.RawFrame
	err    error
	pos    int
	closed int
	stride int
}

func (s *fakeStream) Next() bool {
	if s.closed > 0 || s.pos+1 >= len(s.frames) {
		return false
	}
	s.pos++
	return true
}

func (s *fakeStream) Frame() entity.RawFrame { return s.frames[s.pos] }

func (s *fakeStream) Err() error {
	if s.pos+1 >= len(s.frames) {
		return s.err
	}
	return nil
}

func (s *fakeStream) Close() error     { s.closed++; return nil }
func (s *fakeStream) TotalFrames() int { return len(s.frames) }
func (s *fakeStream) Stride() int      { return s.stride }

type fakeSource struct {
	stream *fakeStream
	err    error
	paths  []string
}

func (f *fakeSource) Open(_ context.Context, path string) (port.FrameStream, error) {
	f.paths = append(f.paths, path)
	if f.err != nil {
		return nil, f.err
	}
	// Each Open gets a fresh cursor over the same frames.
	s := *f.stream
	s.pos = -1
	s.closed = 0
	return &s, nil
}

// fakeDecoder keys its answers by frame index, read back from the image width
// that indexedStream encodes.
type fakeDecoder struct {
	byIndex map[int][]string
	errs    map[int]error
	panics  map[int]bool
	delays  map[int]time.Duration
	calls   int
}

func (d *fakeDecoder) Decode(img image.Image) ([]string, error) {
	d.calls++
	idx := img.Bounds().Dx() - 1
	if delay := d.delays[idx]; delay > 0 {
		time.Sleep(delay)
	}
	if d.panics[idx] {
		panic("corrupt frame")
	}
	if err := d.errs[idx]; err != nil {
		return nil, err
	}
	return d.byIndex[idx], nil
}

// indexedStream builds n frames whose width encodes the frame index for fakeDecoder.
func indexedStream(n int) *fakeStream {
	s := &fakeStream{pos: -1, stride: 1}
	for i := 0; i < n; i++ {
		s.frames = append(s.frames, entity.RawFrame{Index: i, Image: image.NewGray(image.Rect(0, 0, i+1, 1))})
	}
	return s
}

type countingCatalog struct {
	port.Catalog
	mu      sync.Mutex
	lookups map[string]int
	fail    map[string]error
}

func (c *countingCatalog) Lookup(ctx context.Context, code string) (*entity.Product, error) {
	c.mu.Lock()
	if c.lookups == nil {
		c.lookups = map[string]int{}
	}
	c.lookups[code]++
	err := c.fail[code]
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return c.Catalog.Lookup(ctx, code)
}

type recordingObserver struct {
	transitions [][2]entity.ScanState
}

func (o *recordingObserver) OnStateChange(from, to entity.ScanState) {
	o.transitions = append(o.transitions, [2]entity.ScanState{from, to})
}

type fakeRepo struct {
	mu      sync.Mutex
	jobs    map[uuid.UUID]entity.ScanJob
	updates []entity.ScanJob
}

func newFakeRepo() *fakeRepo { return &fakeRepo{jobs: map[uuid.UUID]entity.ScanJob{}} }

func (r *fakeRepo) Create(_ context.Context, job *entity.ScanJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = *job
	return nil
}

func (r *fakeRepo) Update(_ context.Context, job *entity.ScanJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = *job
	r.updates = append(r.updates, *job)
	return nil
}

func (r *fakeRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.ScanJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, errors.New("job not found")
	}
	return &job, nil
}

type fakeStorage struct {
	err  error
	keys []string
}

func (s *fakeStorage) DownloadVideo(_ context.Context, key, _ string) error {
	s.keys = append(s.keys, key)
	return s.err
}

type fakeScanner struct {
	report *entity.ProcessingReport
	err    error
	paths  []string
}

func (s *fakeScanner) Execute(_ context.Context, path string) (*entity.ProcessingReport, error) {
	s.paths = append(s.paths, path)
	return s.report, s.err
}

type fakePublisher struct {
	statuses [][]byte
	dlq      []string
}

func (p *fakePublisher) PublishStatus(_ context.Context, msg []byte) error {
	p.statuses = append(p.statuses, msg)
	return nil
}

func (p *fakePublisher) PublishToDLQ(_ context.Context, _ []byte, reason string) error {
	p.dlq = append(p.dlq, reason)
	return nil
}
