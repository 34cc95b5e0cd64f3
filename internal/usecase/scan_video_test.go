package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"io"
	"testing"
	"time"

	"github.com/olhodeaguia/scan-service/internal/domain/entity"
	"github.com/olhodeaguia/scan-service/internal/domain/port"
	"github.com/olhodeaguia/scan-service/internal/infra/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newScanUseCase(src *fakeSource, dec *fakeDecoder, obs StateObserver) *ScanVideoUseCase {
	return NewScanVideoUseCase(src, dec, memory.NewCatalog(memory.DemoProducts()...), zap.NewNop(),
		ScanVideoConfig{Observer: obs})
}

func TestScanVideoReportsFoundAndMissingCodes(t *testing.T) {
	src := &fakeSource{stream: indexedStream(3)}
	dec := &fakeDecoder{byIndex: map[int][]string{
		0: {"7891234567890"},
		1: {"7891234567890"},
		2: {"9999999999999"},
	}}

	report, err := newScanUseCase(src, dec, nil).Execute(context.Background(), "/tmp/upload_x.mp4")

	require.NoError(t, err)
	assert.Equal(t, 2, report.CodesFound)
	assert.Equal(t, 1, report.SuccessCount)
	assert.Equal(t, 1, report.ErrorCount)
	assert.Empty(t, report.PartialError)

	data, err := json.Marshal(report)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"message": "Processamento concluído! Encontrados 2 códigos únicos.",
		"codes_found": 2,
		"success_count": 1,
		"error_count": 1,
		"results": [
			{"codigo": "7891234567890", "nome_produto": "Produto A", "localizacao": "Estante 1A", "status": "✅ OK"},
			{"codigo": "9999999999999", "nome_produto": "Não encontrado", "localizacao": "N/A", "status": "❌ Erro"}
		]
	}`, string(data))
}

func TestScanVideoWithoutCodes(t *testing.T) {
	src := &fakeSource{stream: indexedStream(4)}

	report, err := newScanUseCase(src, &fakeDecoder{}, nil).Execute(context.Background(), "v.mp4")

	require.NoError(t, err)
	assert.Equal(t, "Processamento concluído! Encontrados 0 códigos únicos.", report.Message)
	assert.Zero(t, report.CodesFound)
	assert.Empty(t, report.Results)
}

func TestScanVideoUnreadable(t *testing.T) {
	obs := &recordingObserver{}
	src := &fakeSource{err: errors.New("moov atom not found")}

	report, err := newScanUseCase(src, &fakeDecoder{}, obs).Execute(context.Background(), "broken.mp4")

	assert.Nil(t, report)
	assert.ErrorIs(t, err, port.ErrUnreadableVideo)
	assert.Equal(t, [][2]entity.ScanState{
		{entity.ScanStateIdle, entity.ScanStateReadingVideo},
		{entity.ScanStateReadingVideo, entity.ScanStateFailed},
	}, obs.transitions)
}

func TestScanVideoIsIdempotent(t *testing.T) {
	src := &fakeSource{stream: indexedStream(3)}
	dec := &fakeDecoder{byIndex: map[int][]string{0: {"1111111111111"}, 2: {"5555555555555", "0000"}}}
	uc := newScanUseCase(src, dec, nil)

	first, err := uc.Execute(context.Background(), "same.mp4")
	require.NoError(t, err)
	second, err := uc.Execute(context.Background(), "same.mp4")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, []string{"same.mp4", "same.mp4"}, src.paths)
}

func TestScanVideoCarriesPartialError(t *testing.T) {
	stream := indexedStream(2)
	stream.err = io.ErrUnexpectedEOF
	src := &fakeSource{stream: stream}
	dec := &fakeDecoder{byIndex: map[int][]string{0: {"7891234567892"}}}

	report, err := newScanUseCase(src, dec, nil).Execute(context.Background(), "cut.mp4")

	require.NoError(t, err)
	assert.True(t, report.Partial())
	assert.Contains(t, report.PartialError, port.ErrMidStreamRead.Error())
	require.Len(t, report.Results, 1)
	assert.Equal(t, "Produto C", report.Results[0].ProductName)
}

func TestScanVideoStateSequence(t *testing.T) {
	obs := &recordingObserver{}
	src := &fakeSource{stream: indexedStream(1)}

	_, err := newScanUseCase(src, &fakeDecoder{}, obs).Execute(context.Background(), "v.mp4")

	require.NoError(t, err)
	assert.Equal(t, [][2]entity.ScanState{
		{entity.ScanStateIdle, entity.ScanStateReadingVideo},
		{entity.ScanStateReadingVideo, entity.ScanStateAggregating},
		{entity.ScanStateAggregating, entity.ScanStateResolving},
		{entity.ScanStateResolving, entity.ScanStateDone},
	}, obs.transitions)
}

func TestScanImage(t *testing.T) {
	dec := &fakeDecoder{byIndex: map[int][]string{0: {"9876543210987"}}}
	uc := newScanUseCase(&fakeSource{}, dec, nil)

	report := uc.ScanImage(context.Background(), image.NewGray(image.Rect(0, 0, 1, 1)))

	require.Len(t, report.Results, 1)
	assert.Equal(t, entity.FoundEntry("9876543210987", entity.Product{
		Code: "9876543210987", Name: "Produto F", Location: "Estante 3B",
	}), report.Results[0])
	assert.Equal(t, 1, dec.calls)
}

func TestScanImageCancelledRequestIsPartial(t *testing.T) {
	dec := &fakeDecoder{byIndex: map[int][]string{0: {"9876543210987"}}}
	uc := newScanUseCase(&fakeSource{}, dec, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := uc.ScanImage(ctx, image.NewGray(image.Rect(0, 0, 1, 1)))

	assert.True(t, report.Partial())
	assert.Contains(t, report.PartialError, context.Canceled.Error())
	assert.Zero(t, report.CodesFound)
	assert.Zero(t, dec.calls)
}

func TestScanVideoTimeoutKeepsCodesFoundBeforeDeadline(t *testing.T) {
	src := &fakeSource{stream: indexedStream(3)}
	dec := &fakeDecoder{
		byIndex: map[int][]string{
			0: {"7891234567890"},
			1: {"9876543210987"},
			2: {"9999999999999"},
		},
		delays: map[int]time.Duration{1: 200 * time.Millisecond},
	}
	uc := NewScanVideoUseCase(src, dec, memory.NewCatalog(memory.DemoProducts()...), zap.NewNop(),
		ScanVideoConfig{Timeout: 50 * time.Millisecond})

	report, err := uc.Execute(context.Background(), "slow.mp4")

	require.NoError(t, err)
	assert.True(t, report.Partial())
	assert.Contains(t, report.PartialError, context.DeadlineExceeded.Error())
	assert.Equal(t, 2, dec.calls)
	assert.Equal(t, 2, report.CodesFound)
	assert.Equal(t, 2, report.SuccessCount)
	assert.Zero(t, report.ErrorCount)
	assert.Equal(t, "7891234567890", report.Results[0].Code)
	assert.Equal(t, "9876543210987", report.Results[1].Code)
	assert.Equal(t, entity.ResultStatusOK, report.Results[1].Status)
}
