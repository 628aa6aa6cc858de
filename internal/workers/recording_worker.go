package workers

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yoockh/callsplit/internal/models"
	"github.com/yoockh/callsplit/internal/providers/stt"
	mongorepo "github.com/yoockh/callsplit/internal/repositories/mongo"
	"github.com/yoockh/callsplit/internal/services"
	"github.com/yoockh/callsplit/internal/utils"
)

type AudioTools interface {
	Normalize(ctx context.Context, in, outDir string) (string, error)
	ExtractClientAudio(ctx context.Context, audioPath string, segments []models.Segment, outDir string) (string, error)
	Probe(ctx context.Context, path string) (float64, error)
	Cleanup(path string) error
}

type Archiver interface {
	Archive(ctx context.Context, recordingID, clientAudio string, docs map[string]any) ([]string, error)
}

type RecordingWorkerPool struct {
	Redis         *redis.Client
	Recordings    services.RecordingService
	Diarization   services.DiarizationService
	Transcription services.TranscriptionService
	Media         AudioTools
	Publisher     Publisher

	// Optional stages.
	Summary  services.SummaryService
	Archiver Archiver

	Logger     *logrus.Logger
	NumWorkers int

	Stream         string
	Group          string
	ConsumerPrefix string

	// Entries delivered but unacked for ClaimMinIdle are taken over by the
	// reclaimer, once at startup and then every ClaimInterval.
	ClaimMinIdle  time.Duration
	ClaimInterval time.Duration
}

// streamClient is the slice of *redis.Client the reclaimer needs.
type streamClient interface {
	XAutoClaim(ctx context.Context, a *redis.XAutoClaimArgs) *redis.XAutoClaimCmd
	XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd
}

func (p *RecordingWorkerPool) defaults() error {
	if p.Redis == nil || p.Recordings == nil || p.Diarization == nil || p.Transcription == nil || p.Media == nil {
		return errors.New("RecordingWorkerPool missing dependency: Redis/Recordings/Diarization/Transcription/Media must be set")
	}
	if p.Stream == "" {
		p.Stream = DefaultStream
	}
	if p.Group == "" {
		p.Group = DefaultGroup
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "c"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 2
	}
	if p.ClaimMinIdle <= 0 {
		p.ClaimMinIdle = 30 * time.Minute
	}
	if p.ClaimInterval <= 0 {
		p.ClaimInterval = 5 * time.Minute
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}
	if p.Publisher == nil {
		p.Publisher = &RedisPublisher{Redis: p.Redis}
	}
	return nil
}

// Run blocks until ctx is cancelled or a consumer fails.
func (p *RecordingWorkerPool) Run(ctx context.Context) error {
	if err := p.defaults(); err != nil {
		return err
	}

	_ = p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err() // ignore BUSYGROUP

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.runReclaimer(gctx, p.ConsumerPrefix+"-reclaim") })
	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		g.Go(func() error { return p.runConsumer(gctx, consumer) })
	}
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (p *RecordingWorkerPool) runConsumer(ctx context.Context, consumer string) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, ">"},
			Count:    1,
			Block:    5 * time.Second,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Logger.WithError(err).WithField("consumer", consumer).Warn("xreadgroup failed")
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				p.handle(ctx, p.Redis, msg)
			}
		}
	}
}

func (p *RecordingWorkerPool) handle(ctx context.Context, rdb streamClient, msg redis.XMessage) {
	id, _ := msg.Values["recording_id"].(string)
	if id != "" {
		p.Process(ctx, id)
	}
	_ = rdb.XAck(ctx, p.Stream, p.Group, msg.ID).Err()
}

func (p *RecordingWorkerPool) runReclaimer(ctx context.Context, consumer string) error {
	t := time.NewTicker(p.ClaimInterval)
	defer t.Stop()
	for {
		if n, err := p.reclaim(ctx, p.Redis, consumer); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Logger.WithError(err).WithField("consumer", consumer).Warn("xautoclaim failed")
		} else if n > 0 {
			p.Logger.WithField("count", n).Info("reclaimed pending recordings")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

// reclaim walks the group's pending list once, taking over and processing
// every entry idle for at least ClaimMinIdle. Entries whose stream record was
// trimmed come back without values and are only acked.
func (p *RecordingWorkerPool) reclaim(ctx context.Context, rdb streamClient, consumer string) (int, error) {
	start, n := "0-0", 0
	for {
		msgs, next, err := rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   p.Stream,
			Group:    p.Group,
			Consumer: consumer,
			MinIdle:  p.ClaimMinIdle,
			Start:    start,
			Count:    10,
		}).Result()
		if err != nil {
			return n, err
		}
		for _, msg := range msgs {
			p.handle(ctx, rdb, msg)
			n++
		}
		if next == "" || next == "0-0" || ctx.Err() != nil {
			return n, ctx.Err()
		}
		start = next
	}
}

func (p *RecordingWorkerPool) publish(ctx context.Context, id string, status models.RecordingStatus, msg string) {
	if p.Publisher == nil {
		return
	}
	if err := p.Publisher.PublishStatus(ctx, StatusEvent{RecordingID: id, Status: string(status), Message: msg}); err != nil {
		p.Logger.WithError(err).WithField("recording_id", id).Warn("status publish failed")
	}
}

// Process runs one recording through diarization, client extraction,
// transcription and the optional summary/archive stages.
func (p *RecordingWorkerPool) Process(ctx context.Context, recordingID string) {
	log := p.Logger.WithField("recording_id", recordingID)

	rec, err := p.Recordings.MarkProcessing(ctx, recordingID)
	if err != nil {
		if !utils.IsCode(err, utils.CodeConflict) {
			log.WithError(err).Warn("cannot start processing")
			return
		}
		// Redelivered: resume a run that died mid-way, skip a finished one.
		cur, gerr := p.Recordings.Get(ctx, "", recordingID)
		if gerr != nil {
			log.WithError(gerr).Warn("cannot load redelivered recording")
			return
		}
		if cur.Status != models.RecordingProcessing {
			log.WithField("status", cur.Status).Info("recording already finished, skipping")
			return
		}
		log.Info("resuming redelivered recording")
		rec = cur
	}
	p.publish(ctx, recordingID, models.RecordingProcessing, "diarization")

	var temps []string
	defer func() {
		for _, f := range temps {
			if err := p.Media.Cleanup(f); err != nil {
				log.WithError(err).Warn("cleanup failed")
			}
		}
	}()

	source := rec.AudioPath
	if !strings.EqualFold(filepath.Ext(source), ".wav") {
		if wav, err := p.Media.Normalize(ctx, source, ""); err != nil {
			log.WithError(err).Warn("normalize failed, using original audio")
		} else {
			source = wav
			temps = append(temps, wav)
		}
	}

	info := services.RunInfo{RecordingID: rec.RecordingID, UserID: rec.UserID}
	if d, err := p.Media.Probe(ctx, source); err == nil {
		secs := int64(d)
		info.AudioDurationSeconds = &secs
	}

	diar := p.Diarization.DiarizeWithMonitoring(ctx, source, info)

	target, clientAudio := source, ""
	if diar.Success && len(diar.ClientSegments) > 0 {
		out, err := p.Media.ExtractClientAudio(ctx, source, diar.ClientSegments, "")
		if err != nil {
			log.WithError(err).Warn("client audio extraction failed, transcribing full audio")
		} else if out != "" {
			target, clientAudio = out, out
			temps = append(temps, out)
		}
	}

	p.publish(ctx, recordingID, models.RecordingProcessing, "transcription")
	trans, err := p.Transcription.Transcribe(ctx, target, stt.Options{Model: rec.Model, Language: rec.Language})
	if err != nil {
		log.WithError(err).Error("transcription failed")
		if ferr := p.Recordings.Fail(ctx, recordingID, err.Error()); ferr != nil {
			log.WithError(ferr).Warn("cannot mark recording failed")
		}
		p.publish(ctx, recordingID, models.RecordingFailed, "transcription failed")
		return
	}

	results := mongorepo.RecordingResults{
		Diarization:   diar,
		Transcription: trans,
		ClientOnly:    clientAudio != "",
		ProcessedAt:   time.Now().UTC(),
	}

	if p.Summary != nil {
		s, err := p.Summary.SummarizeClient(ctx, trans.Text, trans.Language)
		if err != nil {
			log.WithError(err).Warn("summary failed")
		}
		results.Summary = s
	}

	if p.Archiver != nil {
		paths, err := p.Archiver.Archive(ctx, recordingID, clientAudio, map[string]any{
			"diarization":   diar,
			"transcription": trans,
		})
		if err != nil {
			log.WithError(err).Warn("archive failed")
		}
		results.Artifacts = paths
	}

	if err := p.Recordings.Complete(ctx, recordingID, results); err != nil {
		log.WithError(err).Error("cannot complete recording")
		p.publish(ctx, recordingID, models.RecordingFailed, "could not save results")
		return
	}
	log.WithFields(logrus.Fields{
		"client_only": results.ClientOnly,
		"chars":       len(trans.Text),
	}).Info("recording processed")
	p.publish(ctx, recordingID, models.RecordingDone, "")
}
