package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgallion1/readpace/internal/blocks"
	"github.com/dgallion1/readpace/internal/parser"
	"github.com/dgallion1/readpace/internal/position"
	"github.com/dgallion1/readpace/internal/stats"
	"github.com/dgallion1/readpace/internal/store"
)

// Worker processes a single document job.
type Worker struct {
	store       *store.Store
	latency     *stats.Window
	log         *slog.Logger
	pdfFallback bool
}

func NewWorker(st *store.Store, latency *stats.Window, log *slog.Logger, pdfFallback bool) *Worker {
	return &Worker{
		store:       st,
		latency:     latency,
		log:         log,
		pdfFallback: pdfFallback,
	}
}

// Process segments the upload, deduplicates it by content and stores it.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID, "format", job.Format)
	defer job.releaseFileData()

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	p, err := parser.ForFormat(job.Format, w.pdfFallback)
	if err != nil {
		log.Error("unsupported format", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "parsing")
		return
	}

	start := time.Now()
	seq, err := p.Parse(bytes.NewReader(job.FileData()), job.Options)
	took := time.Since(start)
	if err != nil {
		log.Error("parse failed", "error", err)
		job.AddError(fmt.Sprintf("parse: %s", err))
		job.SetStatus(StatusFailed, "parsing")
		return
	}

	total := position.TotalWordCount(seq)
	job.SetSegmented(len(seq), total, took)
	if w.latency != nil {
		w.latency.Record(stats.Sample{Format: string(job.Format), Duration: took, Blocks: len(seq), Words: total})
	}
	log.Info("segmented document", "blocks", len(seq), "total_words", total, "duration_ms", took.Milliseconds())

	if len(seq) == 0 {
		log.Warn("no blocks produced")
		job.AddError("no extractable content")
		job.SetStatus(StatusFailed, "parsing")
		return
	}

	hash := ContentHashHex([]byte(flattenText(seq)))
	job.SetContentHash(hash)

	// Phase 1.5: Dedup check
	if !job.Force {
		existing, err := w.store.FindByHash(ctx, hash)
		switch {
		case err == nil && existing != job.DocID:
			log.Info("duplicate document, skipping", "existing_doc_id", existing)
			job.MarkDuplicate(existing)
			return
		case err != nil && !errors.Is(err, store.ErrNotFound):
			log.Warn("dedup check failed, proceeding", "error", err)
		}
	}

	// Phase 2: Store
	job.SetStatus(StatusStoring, "storing")
	doc := &store.Document{
		ID:          job.DocID,
		Title:       documentTitle(job, seq),
		Format:      string(job.Format),
		ContentHash: hash,
		Blocks:      seq,
		TotalWords:  total,
	}
	err = withRetry(ctx, func() error { return w.store.PutDocument(ctx, doc) })
	if err != nil {
		log.Error("store failed", "error", err)
		job.AddError(fmt.Sprintf("store: %s", err))
		job.SetStatus(StatusFailed, "storing")
		return
	}

	log.Info("document stored")
	job.SetStatus(StatusCompleted, "done")
}

// documentTitle prefers an explicit title, then the first heading, then the
// filename without its extension.
func documentTitle(job *Job, seq []blocks.Block) string {
	if job.Title != "" {
		return job.Title
	}
	for _, b := range seq {
		if h, ok := b.(blocks.Heading); ok {
			return h.Content
		}
	}
	name := job.Filename
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		name = name[:i]
	}
	return name
}

// flattenText joins the effective text of every block for hashing.
func flattenText(seq []blocks.Block) string {
	var sb strings.Builder
	for _, b := range seq {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(b.Text())
	}
	return sb.String()
}
