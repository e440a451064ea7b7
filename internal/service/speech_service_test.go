package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"interview_assistant_backend/internal/config"
	"interview_assistant_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tone(seconds float64) []int16 {
	n := int(seconds * util.SpeechSampleRate)
	out := make([]int16, n)
	for i := range out {
		if i%2 == 0 {
			out[i] = 4000
		} else {
			out[i] = -4000
		}
	}
	return out
}

func quiet(seconds float64) []int16 {
	return make([]int16, int(seconds*util.SpeechSampleRate))
}

func concat(parts ...[]int16) []int16 {
	var out []int16
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

type fakeRecognizer struct {
	gotSamples int
	segments   []TranscriptSegment
	err        error
}

func (f *fakeRecognizer) Recognize(_ context.Context, pcm []byte, _ int, _ string) ([]TranscriptSegment, error) {
	f.gotSamples = len(pcm) / 2
	return f.segments, f.err
}

func (f *fakeRecognizer) Close() error { return nil }

func newSpeech(rec Recognizer, samples []int16) *SpeechService {
	return &SpeechService{
		Recognizer: rec,
		Convert: func([]byte, string, int) ([]int16, error) {
			return samples, nil
		},
		Cfg: config.SpeechConfig{Enabled: true, MaxSeconds: 30, SilenceSeconds: 3},
	}
}

func TestTrimAtSilenceStopsAfterThreeSeconds(t *testing.T) {
	samples := concat(tone(2), quiet(1), tone(1), quiet(3.5), tone(2))

	trimmed, stopped := TrimAtSilence(samples, util.SpeechSampleRate, 3*time.Second)
	assert.True(t, stopped)
	assert.Equal(t, 4*util.SpeechSampleRate, len(trimmed))
}

func TestTrimAtSilenceKeepsContinuousSpeech(t *testing.T) {
	samples := concat(tone(2), quiet(2), tone(2))
	trimmed, stopped := TrimAtSilence(samples, util.SpeechSampleRate, 3*time.Second)
	assert.False(t, stopped)
	assert.Len(t, trimmed, len(samples))
}

func TestTranscribeJoinsFinalSegments(t *testing.T) {
	rec := &fakeRecognizer{segments: []TranscriptSegment{
		{Text: "A closure captures", Final: true},
		{Text: "ignored interim", Final: false},
		{Text: " its scope. ", Final: true},
	}}
	s := newSpeech(rec, concat(tone(2), quiet(4), tone(1)))

	res, err := s.Transcribe(context.Background(), []byte("audio"), "answer.webm")
	require.NoError(t, err)
	assert.Equal(t, "A closure captures its scope.", res.Transcript)
	assert.True(t, res.StoppedBySilence)
	assert.Equal(t, 2*util.SpeechSampleRate, rec.gotSamples)
}

func TestTranscribeSilentAudio(t *testing.T) {
	rec := &fakeRecognizer{}
	s := newSpeech(rec, quiet(5))

	res, err := s.Transcribe(context.Background(), []byte("audio"), "answer.webm")
	require.NoError(t, err)
	assert.Equal(t, NoSpeechDetected, res.Transcript)
	assert.Zero(t, rec.gotSamples)
}

func TestTranscribeEmptyRecognition(t *testing.T) {
	s := newSpeech(&fakeRecognizer{}, tone(1))

	res, err := s.Transcribe(context.Background(), []byte("audio"), "a.wav")
	require.NoError(t, err)
	assert.Equal(t, NoSpeechDetected, res.Transcript)
}

func TestTranscribeDisabled(t *testing.T) {
	s := NewSpeechService(config.SpeechConfig{})
	_, err := s.Transcribe(context.Background(), []byte("audio"), "a.wav")
	assert.ErrorIs(t, err, util.ErrSpeechDisabled)
}

func TestTranscribeRecognizerError(t *testing.T) {
	s := newSpeech(&fakeRecognizer{err: errors.New("boom")}, tone(1))
	_, err := s.Transcribe(context.Background(), []byte("audio"), "a.wav")
	assert.Error(t, err)
}
