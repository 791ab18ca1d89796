package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awstranscribe "github.com/aws/aws-sdk-go-v2/service/transcribe"
	"github.com/aws/aws-sdk-go-v2/service/transcribe/types"

	"callqa-backend/internal/shared/storage/object"
	"callqa-backend/internal/shared/telemetry"
)

// transcribeAPI is the subset of the AWS Transcribe client the gateway uses.
type transcribeAPI interface {
	StartTranscriptionJob(ctx context.Context, params *awstranscribe.StartTranscriptionJobInput, optFns ...func(*awstranscribe.Options)) (*awstranscribe.StartTranscriptionJobOutput, error)
	GetTranscriptionJob(ctx context.Context, params *awstranscribe.GetTranscriptionJobInput, optFns ...func(*awstranscribe.Options)) (*awstranscribe.GetTranscriptionJobOutput, error)
}

// Options configures gateway behavior.
type Options struct {
	InputBucket  string
	OutputBucket string
	Language     string
	PollInterval time.Duration
	MaxWait      time.Duration
}

// Gateway submits audio to the speech-to-text provider and polls for results.
// Await never returns an error past this boundary; callers observe a
// transcript or nothing.
type Gateway struct {
	client transcribeAPI
	store  object.Store
	opts   Options
}

var allowedFormats = map[string]types.MediaFormat{
	"mp3":  types.MediaFormatMp3,
	"mp4":  types.MediaFormatMp4,
	"wav":  types.MediaFormatWav,
	"flac": types.MediaFormatFlac,
	"ogg":  types.MediaFormatOgg,
	"amr":  types.MediaFormatAmr,
	"webm": types.MediaFormatWebm,
	"m4a":  types.MediaFormatM4a,
}

// NewGateway constructs a gateway using AWS credentials from the environment.
func NewGateway(ctx context.Context, region string, store object.Store, opts Options) (*Gateway, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return newGateway(awstranscribe.NewFromConfig(cfg), store, opts), nil
}

func newGateway(client transcribeAPI, store object.Store, opts Options) *Gateway {
	if opts.Language == "" {
		opts.Language = "en-US"
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	if opts.MaxWait <= 0 {
		opts.MaxWait = 15 * time.Minute
	}
	return &Gateway{client: client, store: store, opts: opts}
}

// Submit starts a transcription job for the audio object at storageKey and
// returns the output object key. Resubmitting an existing job name is not an
// error; the job is treated as already in flight.
func (g *Gateway) Submit(ctx context.Context, storageKey, jobName string) (string, error) {
	mediaURI := fmt.Sprintf("s3://%s/%s", g.opts.InputBucket, storageKey)
	outputKey := outputKeyFor(jobName)
	format := mediaFormatFor(storageKey)

	telemetry.Info("transcribe.submit", map[string]any{
		"jobName":     jobName,
		"mediaFormat": string(format),
		"storageKey":  storageKey,
	})

	_, err := g.client.StartTranscriptionJob(ctx, &awstranscribe.StartTranscriptionJobInput{
		TranscriptionJobName: aws.String(jobName),
		Media:                &types.Media{MediaFileUri: aws.String(mediaURI)},
		MediaFormat:          format,
		LanguageCode:         types.LanguageCode(g.opts.Language),
		OutputBucketName:     aws.String(g.opts.OutputBucket),
		OutputKey:            aws.String(outputKey),
	})
	if err != nil {
		var conflict *types.ConflictException
		if errors.As(err, &conflict) {
			telemetry.Info("transcribe.job_exists", map[string]any{"jobName": jobName})
			return outputKey, nil
		}
		return "", fmt.Errorf("start transcription job %s: %w", jobName, err)
	}

	return outputKey, nil
}

// Await polls the job until it completes, fails, or the configured maximum
// wait elapses. Transient polling or retrieval errors keep the loop going.
func (g *Gateway) Await(ctx context.Context, jobName string) (string, bool) {
	deadline := time.Now().Add(g.opts.MaxWait)

	for time.Now().Before(deadline) {
		out, err := g.client.GetTranscriptionJob(ctx, &awstranscribe.GetTranscriptionJobInput{
			TranscriptionJobName: aws.String(jobName),
		})
		if err != nil {
			if ctx.Err() != nil {
				telemetry.Error("transcribe.await_canceled", map[string]any{"jobName": jobName})
				return "", false
			}
			telemetry.Error("transcribe.poll_error", map[string]any{"jobName": jobName, "error": err.Error()})
			if !g.sleep(ctx) {
				return "", false
			}
			continue
		}

		status := out.TranscriptionJob.TranscriptionJobStatus
		switch status {
		case types.TranscriptionJobStatusCompleted:
			transcript, err := g.fetchTranscript(ctx, jobName)
			if err != nil {
				// Output object may not be visible yet. Keep polling.
				telemetry.Error("transcribe.fetch_transcript_failed", map[string]any{"jobName": jobName, "error": err.Error()})
				if !g.sleep(ctx) {
					return "", false
				}
				continue
			}
			telemetry.Info("transcribe.completed", map[string]any{"jobName": jobName})
			return transcript, true
		case types.TranscriptionJobStatusFailed:
			reason := aws.ToString(out.TranscriptionJob.FailureReason)
			telemetry.Error("transcribe.failed", map[string]any{"jobName": jobName, "reason": reason})
			return "", false
		default:
			telemetry.Info("transcribe.in_progress", map[string]any{"jobName": jobName, "status": string(status)})
			if !g.sleep(ctx) {
				return "", false
			}
		}
	}

	telemetry.Error("transcribe.timeout", map[string]any{"jobName": jobName, "maxWait": g.opts.MaxWait.String()})
	return "", false
}

func (g *Gateway) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(g.opts.PollInterval):
		return true
	}
}

// transcriptDocument matches the provider's output object shape.
type transcriptDocument struct {
	Results struct {
		Transcripts []struct {
			Transcript string `json:"transcript"`
		} `json:"transcripts"`
	} `json:"results"`
}

func (g *Gateway) fetchTranscript(ctx context.Context, jobName string) (string, error) {
	body, err := g.store.Get(ctx, g.opts.OutputBucket, outputKeyFor(jobName))
	if err != nil {
		return "", err
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("read transcript object: %w", err)
	}

	var doc transcriptDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return "", fmt.Errorf("parse transcript object: %w", err)
	}
	if len(doc.Results.Transcripts) == 0 {
		return "", fmt.Errorf("transcript object has no transcripts")
	}
	return doc.Results.Transcripts[0].Transcript, nil
}

func outputKeyFor(jobName string) string {
	return fmt.Sprintf("transcriptions/%s.json", jobName)
}

func mediaFormatFor(storageKey string) types.MediaFormat {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(storageKey), "."))
	if format, ok := allowedFormats[ext]; ok {
		return format
	}
	return types.MediaFormatWav
}
