package entity

import "fmt"

type ResultStatus string

const (
	ResultStatusOK    ResultStatus = "✅ OK"
	ResultStatusError ResultStatus = "❌ Erro"
)

const (
	NotFoundProductName = "Não encontrado"
	NotFoundLocation    = "N/A"
)

// ResultEntry is the outcome of resolving one unique code against the catalog.
type ResultEntry struct {
	Code        string       `json:"codigo"`
	ProductName string       `json:"nome_produto"`
	Location    Location     `json:"localizacao"`
	Status      ResultStatus `json:"status"`
}

func FoundEntry(code string, p Product) ResultEntry {
	return ResultEntry{
		Code:        code,
		ProductName: p.Name,
		Location:    p.Location,
		Status:      ResultStatusOK,
	}
}

func MissingEntry(code string) ResultEntry {
	return ResultEntry{
		Code:        code,
		ProductName: NotFoundProductName,
		Location:    NotFoundLocation,
		Status:      ResultStatusError,
	}
}

func (e ResultEntry) OK() bool {
	return e.Status == ResultStatusOK
}

// ProcessingReport is the response for one scanned video.
type ProcessingReport struct {
	Message      string        `json:"message"`
	CodesFound   int           `json:"codes_found"`
	SuccessCount int           `json:"success_count"`
	ErrorCount   int           `json:"error_count"`
	Results      []ResultEntry `json:"results"`
	PartialError string        `json:"partial_error,omitempty"`
}

// NewProcessingReport derives the counters and summary message from entries,
// which must hold exactly one entry per unique code.
func NewProcessingReport(entries []ResultEntry) *ProcessingReport {
	results := make([]ResultEntry, len(entries))
	copy(results, entries)

	r := &ProcessingReport{
		CodesFound: len(results),
		Results:    results,
		Message:    SummaryMessage(len(results)),
	}
	for _, e := range results {
		if e.OK() {
			r.SuccessCount++
		} else {
			r.ErrorCount++
		}
	}
	return r
}

func SummaryMessage(codesFound int) string {
	return fmt.Sprintf("Processamento concluído! Encontrados %d códigos únicos.", codesFound)
}

// Partial reports whether the scan stopped before the end of the video.
func (r *ProcessingReport) Partial() bool {
	return r.PartialError != ""
}
