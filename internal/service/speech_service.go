package service

import (
	"context"
	"fmt"
	"interview_assistant_backend/internal/config"
	"interview_assistant_backend/internal/util"
	"interview_assistant_backend/pkg/logger"
	"interview_assistant_backend/pkg/monitoring"
	"math"
	"path/filepath"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const (
	NoSpeechDetected = "[No speech detected]"

	silenceWindow = 100 * time.Millisecond
	// 16 位采样的 RMS 低于该值视为静音
	silenceRMS = 500.0
)

type TranscriptSegment struct {
	Text       string  `json:"text"`
	Final      bool    `json:"final"`
	Confidence float32 `json:"confidence"`
}

type TranscriptResult struct {
	Transcript       string              `json:"transcript"`
	Segments         []TranscriptSegment `json:"segments"`
	DurationSeconds  float64             `json:"durationSeconds"`
	StoppedBySilence bool                `json:"stoppedBySilence"`
}

// Recognizer 语音识别后端，输入 16kHz 单声道 LINEAR16
type Recognizer interface {
	Recognize(ctx context.Context, pcm []byte, sampleRate int, languageCode string) ([]TranscriptSegment, error)
	Close() error
}

type GoogleRecognizer struct {
	client *speech.Client
}

func NewGoogleRecognizer(ctx context.Context, credentialsFile string) (*GoogleRecognizer, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}
	return &GoogleRecognizer{client: client}, nil
}

func (g *GoogleRecognizer) Recognize(ctx context.Context, pcm []byte, sampleRate int, languageCode string) ([]TranscriptSegment, error) {
	resp, err := g.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz:            int32(sampleRate),
			AudioChannelCount:          1,
			LanguageCode:               languageCode,
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: pcm},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("speech recognize: %w", err)
	}

	// 同步识别的结果都是最终结果
	segments := make([]TranscriptSegment, 0, len(resp.GetResults()))
	for _, r := range resp.GetResults() {
		alts := r.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		segments = append(segments, TranscriptSegment{
			Text:       alts[0].GetTranscript(),
			Final:      true,
			Confidence: alts[0].GetConfidence(),
		})
	}
	return segments, nil
}

func (g *GoogleRecognizer) Close() error {
	return g.client.Close()
}

// PCMConverter 将上传的录音转为 16kHz 单声道采样
type PCMConverter func(audio []byte, ext string, maxSeconds int) ([]int16, error)

type SpeechService struct {
	Recognizer Recognizer
	Convert    PCMConverter
	Cfg        config.SpeechConfig
}

// NewSpeechService 未启用或初始化失败时 Recognizer 为 nil，转写接口返回 ErrSpeechDisabled
func NewSpeechService(cfg config.SpeechConfig) *SpeechService {
	s := &SpeechService{Convert: util.ConvertToPCM, Cfg: cfg}
	if !cfg.Enabled {
		return s
	}
	rec, err := NewGoogleRecognizer(context.Background(), cfg.CredentialsFile)
	if err != nil {
		logger.Log.Error("Failed to initialize speech client, transcription disabled", zap.Error(err))
		return s
	}
	s.Recognizer = rec
	return s
}

func (s *SpeechService) Enabled() bool {
	return s.Recognizer != nil
}

func (s *SpeechService) Close() error {
	if s.Recognizer == nil {
		return nil
	}
	return s.Recognizer.Close()
}

// Transcribe 截取最长 MaxSeconds 秒，遇到连续 SilenceSeconds 秒静音即停止，拼接所有最终片段
func (s *SpeechService) Transcribe(ctx context.Context, audio []byte, filename string) (*TranscriptResult, error) {
	if !s.Enabled() {
		return nil, util.ErrSpeechDisabled
	}

	maxSeconds := s.Cfg.MaxSeconds
	if maxSeconds <= 0 {
		maxSeconds = 30
	}
	samples, err := s.Convert(audio, strings.ToLower(filepath.Ext(filename)), maxSeconds)
	if err != nil {
		monitoring.SpeechTranscriptions.WithLabelValues("convert_error").Inc()
		return nil, err
	}

	silence := time.Duration(s.Cfg.SilenceSeconds) * time.Second
	if silence <= 0 {
		silence = 3 * time.Second
	}
	trimmed, stopped := TrimAtSilence(samples, util.SpeechSampleRate, silence)

	result := &TranscriptResult{
		Transcript:       NoSpeechDetected,
		Segments:         []TranscriptSegment{},
		DurationSeconds:  float64(len(trimmed)) / util.SpeechSampleRate,
		StoppedBySilence: stopped,
	}
	if !hasSpeech(trimmed) {
		monitoring.SpeechTranscriptions.WithLabelValues("empty").Inc()
		return result, nil
	}

	lang := s.Cfg.LanguageCode
	if lang == "" {
		lang = "en-US"
	}
	segments, err := s.Recognizer.Recognize(ctx, util.EncodePCM(trimmed), util.SpeechSampleRate, lang)
	if err != nil {
		monitoring.SpeechTranscriptions.WithLabelValues("error").Inc()
		return nil, err
	}

	result.Segments = segments
	if text := JoinFinalSegments(segments); text != "" {
		result.Transcript = text
	}
	monitoring.SpeechTranscriptions.WithLabelValues("ok").Inc()
	return result, nil
}

// JoinFinalSegments 只拼接最终片段
func JoinFinalSegments(segments []TranscriptSegment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if !seg.Final {
			continue
		}
		if t := strings.TrimSpace(seg.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

func windowRMS(w []int16) float64 {
	if len(w) == 0 {
		return 0
	}
	var sum float64
	for _, v := range w {
		f := float64(v)
		sum += f * f
	}
	return math.Sqrt(sum / float64(len(w)))
}

// TrimAtSilence 按 100ms 窗口扫描，第一段持续 silence 的静音处截断
func TrimAtSilence(samples []int16, sampleRate int, silence time.Duration) ([]int16, bool) {
	window := int(int64(sampleRate) * int64(silenceWindow) / int64(time.Second))
	if window <= 0 || len(samples) == 0 {
		return samples, false
	}
	need := int(silence / silenceWindow)
	if need <= 0 {
		need = 1
	}

	runStart, run := 0, 0
	for off := 0; off < len(samples); off += window {
		end := off + window
		if end > len(samples) {
			end = len(samples)
		}
		if windowRMS(samples[off:end]) < silenceRMS {
			if run == 0 {
				runStart = off
			}
			run++
			if run >= need {
				return samples[:runStart], true
			}
			continue
		}
		run = 0
	}
	return samples, false
}

func hasSpeech(samples []int16) bool {
	return windowRMS(samples) >= silenceRMS/2 && len(samples) > 0
}
