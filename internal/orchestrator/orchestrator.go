package orchestrator

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"lumen-assistant/internal/audiostore"
	"lumen-assistant/internal/cache"
	"lumen-assistant/internal/fingerprint"
	"lumen-assistant/internal/gateway"
	"lumen-assistant/internal/inflight"
	"lumen-assistant/internal/media"
	"lumen-assistant/internal/metrics"
	"lumen-assistant/pkg/logging"
)

// defaultPrompt is used when the request carries neither audio nor a text
// prompt: the image alone is a valid question.
const defaultPrompt = "What do you see in this image? Describe it briefly."

// Options wires the orchestrator's collaborators. Everything is injected;
// the orchestrator owns no global state.
type Options struct {
	Cache       cache.Store
	CacheTTL    time.Duration
	Transcriber gateway.Transcriber
	Vision      gateway.VisionModel
	Synthesizer gateway.Synthesizer
	Clips       *audiostore.Store
	VersionID   string

	// OnStage observes stage transitions; optional. This is the only
	// coupling point for progress reporting.
	OnStage func(ctx context.Context, s Stage)
}

// Orchestrator drives one interaction from receipt to completion:
// validate, transcribe, fingerprint, consult cache and in-flight registry,
// infer, synthesize, compose. Stages advance strictly in pipeline order;
// unrelated requests never serialize on each other.
type Orchestrator struct {
	cache       cache.Store
	cacheTTL    time.Duration
	registry    *inflight.Registry
	transcriber gateway.Transcriber
	vision      gateway.VisionModel
	synth       gateway.Synthesizer
	clips       *audiostore.Store
	versionID   string
	composer    Composer
	onStage     func(ctx context.Context, s Stage)
}

func New(opts Options) *Orchestrator {
	return &Orchestrator{
		cache:       opts.Cache,
		cacheTTL:    opts.CacheTTL,
		registry:    inflight.NewRegistry(),
		transcriber: opts.Transcriber,
		vision:      opts.Vision,
		synth:       opts.Synthesizer,
		clips:       opts.Clips,
		versionID:   opts.VersionID,
		onStage:     opts.OnStage,
	}
}

// Run executes the pipeline for one request. It returns either a completed
// (possibly degraded or cached) result, or exactly one error from the
// taxonomy in errors.go.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Result, error) {
	o.stage(ctx, StageReceived)

	// Validation happens before any collaborator is invoked.
	if len(req.Image) == 0 {
		err := &ValidationError{Reason: "image is required"}
		o.fail(ctx, StageReceived, err)
		return Result{}, err
	}
	canonicalImage, err := media.NormalizeImage(req.Image)
	if err != nil {
		verr := &ValidationError{Reason: "unreadable image", Err: err}
		o.fail(ctx, StageReceived, verr)
		return Result{}, verr
	}

	textPrompt := strings.TrimSpace(req.TextPrompt)

	// Audio and text prompt feed the same utterance field; audio is
	// best-effort context whenever a text prompt exists.
	transcript := ""
	if len(req.Audio) > 0 {
		o.stage(ctx, StageTranscribing)
		transcript, err = o.transcribe(ctx, req.Audio)
		if err == nil && textPrompt == "" && strings.TrimSpace(transcript) == "" {
			err = &TranscriptionError{Err: errEmptyTranscript}
		}
		if err != nil {
			if textPrompt == "" {
				terr, ok := err.(*TranscriptionError)
				if !ok {
					terr = &TranscriptionError{Err: err}
				}
				o.fail(ctx, StageTranscribing, terr)
				return Result{}, terr
			}
			logging.L(ctx).Warn("transcription failed, continuing with text prompt",
				zap.Error(err),
			)
			transcript = ""
		}
	}

	utterance := textPrompt
	if utterance == "" {
		utterance = strings.TrimSpace(transcript)
	}
	if utterance == "" {
		utterance = defaultPrompt
	}

	key := fingerprint.New(canonicalImage, utterance, o.versionID)
	cacheKey := key.String()
	ctx = logging.WithFields(ctx, zap.String("fingerprint", key.Hash))

	// Cache first: a hit costs nothing upstream.
	if data, hit, cerr := o.cache.Get(ctx, cacheKey); cerr == nil && hit {
		if res, derr := o.composer.FromCache(data); derr == nil {
			o.clips.Touch(res.AudioID)
			o.stage(ctx, StageCompleted)
			return res, nil
		} else {
			logging.L(ctx).Warn("cache entry undecodable, recomputing", zap.Error(derr))
		}
	}

	// At most one concurrent computation per fingerprint. The leader runs
	// detached from this request's context so a client disconnect never
	// strands the joined waiters or the cache write; per-attempt adapter
	// timeouts still bound every stage.
	leaderCtx := context.WithoutCancel(ctx)
	outcome, err := o.registry.Do(ctx, cacheKey, func() (any, error) {
		res, ferr := o.compute(leaderCtx, cacheKey, utterance, canonicalImage)
		return res, ferr
	})
	if err != nil {
		return Result{}, err
	}

	res := outcome.Value.(Result)
	if !outcome.Leader && !res.Cached {
		metrics.InflightJoinsTotal.Inc()
		res = o.composer.Joined(res)
	}
	return res, nil
}

// compute is the leader-only part of the pipeline: inference, synthesis,
// composition and the cache write.
func (o *Orchestrator) compute(ctx context.Context, cacheKey, utterance string, imageJPEG []byte) (Result, error) {
	// A previous leader may have completed between the caller's lookup
	// and this execution.
	if data, hit, err := o.cache.Get(ctx, cacheKey); err == nil && hit {
		if res, derr := o.composer.FromCache(data); derr == nil {
			o.clips.Touch(res.AudioID)
			return res, nil
		}
	}

	o.stage(ctx, StageInferring)
	answer, err := o.vision.Infer(ctx, utterance, imageJPEG)
	if err != nil {
		uerr := &UpstreamAIError{Err: err}
		o.fail(ctx, StageInferring, uerr)
		return Result{}, uerr
	}

	// Synthesis is an enhancement: failure degrades to text-only.
	o.stage(ctx, StageSynthesizing)
	audioID := ""
	if speech, serr := o.synth.Synthesize(ctx, answer); serr != nil {
		logging.L(ctx).Warn("degrading to text-only response",
			zap.Error(&SynthesisError{Err: serr}),
		)
	} else {
		audioID = o.clips.Put(speech, "audio/mpeg")
	}

	res := o.composer.Fresh(answer, audioID)
	if data, eerr := o.composer.Encode(res); eerr == nil {
		if serr := o.cache.Set(ctx, cacheKey, data, o.cacheTTL); serr != nil {
			logging.L(ctx).Warn("cache store failed", zap.Error(serr))
		}
	}

	o.stage(ctx, StageCompleted)
	return res, nil
}

func (o *Orchestrator) transcribe(ctx context.Context, raw []byte) (string, error) {
	audio, format, err := media.NormalizeAudio(raw)
	if err != nil {
		return "", err
	}
	return o.transcriber.Transcribe(ctx, audio, format)
}

// stage is the single observation point for pipeline progress.
func (o *Orchestrator) stage(ctx context.Context, s Stage) {
	metrics.StageTransitionsTotal.WithLabelValues(s.String()).Inc()
	logging.L(ctx).Debug("pipeline stage", zap.String("stage", s.String()))
	if o.onStage != nil {
		o.onStage(ctx, s)
	}
}

func (o *Orchestrator) fail(ctx context.Context, at Stage, err error) {
	metrics.StageTransitionsTotal.WithLabelValues(StageFailed.String()).Inc()
	logging.L(ctx).Error("pipeline failed",
		zap.String("stage", at.String()),
		zap.Error(err),
	)
	if o.onStage != nil {
		o.onStage(ctx, StageFailed)
	}
}
