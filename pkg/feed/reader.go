// Package feed reads delimited supplier feeds in bounded chunks.
package feed

import (
	"bufio"
	"context"
	"encoding/csv"
	stderrors "errors"
	"io"
	"strings"

	"github.com/Ramsey-B/clover/pkg/errors"
	"github.com/Ramsey-B/clover/pkg/models"
)

const (
	DefaultChunkSize = 50000
	DefaultDelimiter = '\t'

	peekSize = 64 * 1024
	utf8BOM  = "\ufeff"
)

var candidateDelimiters = []rune{'\t', ',', '|', ';'}

// Chunk is a batch of feed rows. The reader does not produce the next chunk until Ack is called.
type Chunk struct {
	Index int
	Rows  []models.RawRow
	ack   chan struct{}
}

// Ack releases the reader to produce the next chunk. Calling it more than once is a no-op.
func (c *Chunk) Ack() {
	select {
	case <-c.ack:
	default:
		close(c.ack)
	}
}

type Config struct {
	ChunkSize int
	// Delimiter of 0 means detect it from the header line.
	Delimiter rune
}

type Reader struct {
	src       *bufio.Reader
	chunkSize int
	delimiter rune
}

func NewReader(src io.Reader, cfg Config) *Reader {
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Reader{
		src:       bufio.NewReaderSize(src, peekSize),
		chunkSize: chunkSize,
		delimiter: cfg.Delimiter,
	}
}

// Chunks starts the reader goroutine. Both channels are closed when the feed is exhausted, the
// context is cancelled or a read fails. A read failure is sent on the error channel as a
// FeedReadError before it closes.
func (r *Reader) Chunks(ctx context.Context) (<-chan *Chunk, <-chan error) {
	chunks := make(chan *Chunk)
	errs := make(chan error, 1)

	go func() {
		defer close(errs)
		defer close(chunks)

		if err := r.read(ctx, chunks); err != nil {
			errs <- err
		}
	}()

	return chunks, errs
}

func (r *Reader) read(ctx context.Context, chunks chan<- *Chunk) error {
	delimiter := r.delimiter
	if delimiter == 0 {
		delimiter = DetectDelimiter(r.peekHeader())
	}

	cr := csv.NewReader(r.src)
	cr.Comma = delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return errors.NewFeedReadError(1, err)
	}
	header = normalizeHeader(header)

	index := 0
	rows := make([]models.RawRow, 0, r.chunkSize)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.NewFeedReadError(errorLine(err), err)
		}
		line, _ := cr.FieldPos(0)

		rows = append(rows, toRow(header, record, line))
		if len(rows) < r.chunkSize {
			continue
		}

		if err := emit(ctx, chunks, index, rows); err != nil {
			return err
		}
		index++
		rows = make([]models.RawRow, 0, r.chunkSize)
	}

	if len(rows) > 0 {
		return emit(ctx, chunks, index, rows)
	}
	return nil
}

// emit hands a chunk to the consumer and blocks until it is acknowledged.
func emit(ctx context.Context, chunks chan<- *Chunk, index int, rows []models.RawRow) error {
	chunk := &Chunk{Index: index, Rows: rows, ack: make(chan struct{})}

	select {
	case chunks <- chunk:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-chunk.ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Reader) peekHeader() string {
	peeked, _ := r.src.Peek(peekSize)
	header := string(peeked)
	if i := strings.IndexByte(header, '\n'); i >= 0 {
		header = header[:i]
	}
	return header
}

// DetectDelimiter picks the candidate delimiter that occurs most often in the header line.
// Ties and headers with no candidate fall back to tab.
func DetectDelimiter(header string) rune {
	best := DefaultDelimiter
	bestCount := 0
	for _, candidate := range candidateDelimiters {
		count := strings.Count(header, string(candidate))
		if count > bestCount {
			best = candidate
			bestCount = count
		}
	}
	return best
}

func errorLine(err error) int {
	var parseErr *csv.ParseError
	if stderrors.As(err, &parseErr) {
		return parseErr.Line
	}
	return 0
}

func normalizeHeader(header []string) []string {
	normalized := make([]string, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, utf8BOM)
		}
		normalized[i] = strings.TrimSpace(name)
	}
	return normalized
}

func toRow(header, record []string, line int) models.RawRow {
	values := make(map[string]string, len(header))
	for i, name := range header {
		if i >= len(record) || name == "" {
			continue
		}
		values[name] = record[i]
	}
	return models.RawRow{Line: line, Values: values}
}
