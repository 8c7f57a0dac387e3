package podcast

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/paperwavelabs/paperwave-core/internal/bus"
	"github.com/paperwavelabs/paperwave-core/internal/config"
	"github.com/paperwavelabs/paperwave-core/internal/extract"
	"github.com/paperwavelabs/paperwave-core/internal/gen"
	"github.com/paperwavelabs/paperwave-core/internal/protocol"
	"github.com/paperwavelabs/paperwave-core/internal/runlog"
	"github.com/paperwavelabs/paperwave-core/internal/speech"
	"github.com/paperwavelabs/paperwave-core/internal/task"
)

// Pipeline sequences extraction, summarization, speaker assignment, script
// generation, and audio rendering against one task record per run. Each
// submission gets a dedicated worker goroutine; records are mutated only by
// their owning worker.
type Pipeline struct {
	extractor  extract.Extractor
	summarizer *Summarizer
	generate   gen.GenerateFunc
	renderer   *Renderer
	synth      speech.Synthesizer
	tasks      *task.Store
	runs       *runlog.Store
	events     *bus.Client

	showName  string
	namePool  []string
	outputDir string

	clock  func() time.Time
	newRNG func() *rand.Rand
	logger *slog.Logger

	tasksStarted   metric.Int64Counter
	tasksCompleted metric.Int64Counter
	tasksFailed    metric.Int64Counter
}

func New(cfg config.PodcastConfig, outputDir string, extractor extract.Extractor, generator gen.Generator, synth speech.Synthesizer, tasks *task.Store, runs *runlog.Store, events *bus.Client, logger *slog.Logger) *Pipeline {
	log := logger.With(slog.String("component", "pipeline"))

	meter := otel.Meter("paperwave/pipeline")
	started, _ := meter.Int64Counter("paperwave.tasks.started")
	completed, _ := meter.Int64Counter("paperwave.tasks.completed")
	failed, _ := meter.Int64Counter("paperwave.tasks.failed")

	return &Pipeline{
		extractor:  extractor,
		summarizer: NewSummarizer(generator.Generate, time.Duration(cfg.PageDelayMS)*time.Millisecond, logger),
		generate:   generator.Generate,
		renderer:   NewRenderer(synth, logger),
		synth:      synth,
		tasks:      tasks,
		runs:       runs,
		events:     events,
		showName:   cfg.ShowName,
		namePool:   cfg.NamePool,
		outputDir:  outputDir,
		clock:      time.Now,
		newRNG: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
		logger:         log,
		tasksStarted:   started,
		tasksCompleted: completed,
		tasksFailed:    failed,
	}
}

// Submit creates a task record and launches its worker. It returns
// immediately with a snapshot of the new record.
func (p *Pipeline) Submit(params task.Parameters, docPath string) task.Record {
	rec := p.tasks.Create(params)
	go p.run(context.Background(), rec.ID, docPath, params)
	return rec
}

func (p *Pipeline) run(ctx context.Context, id, docPath string, params task.Parameters) {
	defer func() {
		// A panicking worker must not take down other tasks or the process.
		if r := recover(); r != nil {
			p.logger.Error("pipeline worker panicked", slog.String("task_id", id), slog.Any("panic", r))
			p.fail(ctx, id, fmt.Errorf("internal pipeline failure: %v", r))
		}
	}()

	p.tasksStarted.Add(ctx, 1)
	if p.runs != nil {
		if err := p.runs.BeginRun(ctx, id, filepath.Base(docPath)); err != nil {
			p.logger.Warn("failed to record run start", slog.String("error", err.Error()))
		}
	}
	p.logger.Info("task started", slog.String("task_id", id),
		slog.Int("hosts", params.Hosts), slog.Int("guests", params.Guests),
		slog.Int("minutes", params.LengthMinutes))

	p.advance(ctx, id, "Processing document...", 10)
	pages, err := p.extractor.Pages(ctx, docPath)
	if err != nil {
		p.fail(ctx, id, err)
		return
	}

	summary, err := p.summarizer.SummarizePages(ctx, pages, func(page, total int) {
		p.advance(ctx, id, fmt.Sprintf("Summarizing page %d/%d...", page, total), 10+page*30/total)
	})
	if err != nil {
		p.fail(ctx, id, err)
		return
	}

	rng := p.newRNG()
	speakers := PickNames(params.Hosts+params.Guests, p.namePool, params.Speakers, rng)
	voices := AssignVoices(ctx, speakers, p.synth, rng, p.logger)

	p.advance(ctx, id, "Generating podcast script...", 45)
	script, err := GenerateScript(ctx, p.generate, p.showName, summary, speakers, params.Hosts, params.Guests, params.LengthMinutes)
	if err != nil {
		p.fail(ctx, id, err)
		return
	}

	p.advance(ctx, id, "Converting to audio...", 60)
	audio := p.renderer.Render(ctx, script, speakers, voices, func(done, total int) {
		progress := 60 + done*35/total
		if progress > 95 {
			progress = 95
		}
		p.advance(ctx, id, fmt.Sprintf("Processing audio (%d/%d)...", done, total), progress)
	})

	p.advance(ctx, id, "Finalizing podcast...", 95)
	filename := p.outputFilename()
	if err := os.WriteFile(filepath.Join(p.outputDir, filename), audio, 0o644); err != nil {
		p.fail(ctx, id, fmt.Errorf("write podcast file: %w", err))
		return
	}

	p.tasks.Complete(id, filename, "/download/"+filename)
	p.tasksCompleted.Add(ctx, 1)
	p.publish(id)
	p.record(ctx, id, "complete", filename, 100)
	p.logger.Info("task complete", slog.String("task_id", id), slog.String("filename", filename))
}

// advance moves the task record forward and mirrors the transition to the
// run log and the progress bus.
func (p *Pipeline) advance(ctx context.Context, id, status string, progress int) {
	p.tasks.Advance(id, status, progress)
	p.publish(id)
	p.record(ctx, id, "advance", status, progress)
}

func (p *Pipeline) fail(ctx context.Context, id string, err error) {
	p.logger.Error("task failed", slog.String("task_id", id), slog.String("error", err.Error()))
	p.tasks.Fail(id, err.Error())
	p.tasksFailed.Add(ctx, 1)
	p.publish(id)
	p.record(ctx, id, "error", err.Error(), 0)
}

func (p *Pipeline) publish(id string) {
	if p.events == nil {
		return
	}
	rec, ok := p.tasks.Get(id)
	if !ok {
		return
	}
	p.events.PublishProgress(protocol.TaskProgress{
		TaskID:    rec.ID,
		Status:    rec.Status,
		Progress:  rec.Progress,
		Error:     rec.Error,
		Timestamp: p.clock().UTC(),
	})
}

func (p *Pipeline) record(ctx context.Context, id, stage, detail string, progress int) {
	if p.runs == nil {
		return
	}
	if err := p.runs.AppendEvent(ctx, runlog.Event{RunID: id, Stage: stage, Detail: detail, Progress: progress}); err != nil {
		p.logger.Warn("failed to append run event", slog.String("error", err.Error()))
	}
}

func (p *Pipeline) outputFilename() string {
	show := strings.ReplaceAll(p.showName, " ", "_")
	return fmt.Sprintf("%s_%s.mp3", show, p.clock().Format("20060102_150405"))
}
