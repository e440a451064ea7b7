package util

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// SpeechSampleRate 转写使用的采样率（LINEAR16 单声道）
const SpeechSampleRate = 16000

// ConvertToPCM 使用 ffmpeg-go 将任意录音转为 16kHz 单声道 s16le 原始数据，最长 maxSeconds 秒
func ConvertToPCM(audio []byte, ext string, maxSeconds int) ([]int16, error) {
	dir, err := os.MkdirTemp("", "speech-*")
	if err != nil {
		return nil, fmt.Errorf("创建临时目录失败: %w", err)
	}
	defer os.RemoveAll(dir)

	if ext == "" {
		ext = ".webm"
	}
	inPath := filepath.Join(dir, "input"+ext)
	outPath := filepath.Join(dir, "output.pcm")

	if err := os.WriteFile(inPath, audio, 0600); err != nil {
		return nil, fmt.Errorf("写入临时音频失败: %w", err)
	}

	out := ffmpeg.KwArgs{
		"f":      "s16le",
		"acodec": "pcm_s16le",
		"ac":     "1",
		"ar":     fmt.Sprintf("%d", SpeechSampleRate),
	}
	if maxSeconds > 0 {
		out["t"] = fmt.Sprintf("%d", maxSeconds)
	}

	err = ffmpeg.Input(inPath).
		Output(outPath, out).
		OverWriteOutput().
		Run()
	if err != nil {
		return nil, fmt.Errorf("音频转码失败: %w", err)
	}

	raw, err := os.ReadFile(outPath)
	if err != nil {
		return nil, err
	}
	return DecodePCM(raw), nil
}

// DecodePCM 小端 s16le 字节流转采样
func DecodePCM(raw []byte) []int16 {
	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}
	return samples
}

// EncodePCM 采样转小端 s16le 字节流
func EncodePCM(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}
