package stt

import (
	"context"
	"fmt"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/satriahrh/voicechat/domain"
	"github.com/satriahrh/voicechat/domain/entities"
)

const providerGoogle = "google"

// syncRecognizeLimit is the longest audio accepted by Recognize. Longer
// utterances go through LongRunningRecognize.
const syncRecognizeLimit = time.Minute

// GoogleSpeechToText implements SpeechToText for Google Cloud. The
// underlying client is shared by all sessions.
type GoogleSpeechToText struct {
	client *speech.Client
	logger *zap.Logger
}

// NewGoogleSpeechToText dials Google Cloud Speech. An empty credentialsFile
// falls back to application default credentials.
func NewGoogleSpeechToText(ctx context.Context, credentialsFile string, logger *zap.Logger) (*GoogleSpeechToText, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}
	return &GoogleSpeechToText{client: client, logger: logger}, nil
}

// TranscribeAudio implements repositories.SpeechToText
func (g *GoogleSpeechToText) TranscribeAudio(ctx context.Context, audio entities.CanonicalAudio, language string) (string, error) {
	results, err := g.recognize(ctx, recognizeRequest(audio, language), audio.Duration())
	if err != nil {
		return "", &domain.TranscriptionServiceError{Provider: providerGoogle, Err: err}
	}

	transcript := joinResults(results)
	if transcript == "" {
		g.logger.Debug("No speech recognized", zap.Duration("audioDuration", audio.Duration()))
	}
	return transcript, nil
}

func (g *GoogleSpeechToText) recognize(ctx context.Context, req *speechpb.RecognizeRequest, duration time.Duration) ([]*speechpb.SpeechRecognitionResult, error) {
	if !needsLongRunning(duration) {
		resp, err := g.client.Recognize(ctx, req)
		if err != nil {
			return nil, err
		}
		return resp.GetResults(), nil
	}

	g.logger.Debug("Using long running recognition", zap.Duration("audioDuration", duration))
	op, err := g.client.LongRunningRecognize(ctx, &speechpb.LongRunningRecognizeRequest{
		Config: req.GetConfig(),
		Audio:  req.GetAudio(),
	})
	if err != nil {
		return nil, err
	}
	resp, err := op.Wait(ctx)
	if err != nil {
		return nil, err
	}
	return resp.GetResults(), nil
}

func needsLongRunning(d time.Duration) bool {
	return d > syncRecognizeLimit
}

func (g *GoogleSpeechToText) Close() error {
	return g.client.Close()
}

func recognizeRequest(audio entities.CanonicalAudio, language string) *speechpb.RecognizeRequest {
	return &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:          speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz:   int32(audio.SampleRate),
			AudioChannelCount: int32(audio.Channels),
			LanguageCode:      language,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio.PCM()},
		},
	}
}

// joinResults concatenates the best alternative of every result. No results
// means nothing was recognized.
func joinResults(results []*speechpb.SpeechRecognitionResult) string {
	parts := make([]string, 0, len(results))
	for _, result := range results {
		if len(result.Alternatives) == 0 {
			continue
		}
		if text := strings.TrimSpace(result.Alternatives[0].Transcript); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
