// Package proctor 监考：基于肤色像素占比的人脸在场判定，以及掉脸后终止考试的状态机。
package proctor

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

var ErrEmptyFrame = errors.New("empty frame")

// ClassifierConfig 肤色判定阈值
type ClassifierConfig struct {
	// 占比严格大于该值才算有人脸
	SkinRatioThreshold float64
	// 红色通道不在 [MinRed, MaxRed] 的像素视为过暗或过曝，不参与统计
	MinRed int
	MaxRed int
	// 红色需比绿、蓝都高出该差值
	ChannelMargin int
}

func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		SkinRatioThreshold: 0.15,
		MinRed:             50,
		MaxRed:             200,
		ChannelMargin:      20,
	}
}

type Classifier struct {
	cfg ClassifierConfig
}

func NewClassifier(cfg ClassifierConfig) *Classifier {
	return &Classifier{cfg: cfg}
}

func (c *Classifier) Config() ClassifierConfig {
	return c.cfg
}

// SkinToneRatio 参与统计的像素中肤色像素的比例，没有可统计像素时为 0
func (c *Classifier) SkinToneRatio(img image.Image) float64 {
	bounds := img.Bounds()
	considered, skin := 0, 0

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r32, g32, b32, _ := img.At(x, y).RGBA()
			r, g, b := int(r32>>8), int(g32>>8), int(b32>>8)

			if r < c.cfg.MinRed || r > c.cfg.MaxRed {
				continue
			}
			considered++

			if r > g && r > b && r-g > c.cfg.ChannelMargin && r-b > c.cfg.ChannelMargin {
				skin++
			}
		}
	}

	if considered == 0 {
		return 0
	}
	return float64(skin) / float64(considered)
}

type Result struct {
	FacePresent bool    `json:"facePresent"`
	SkinRatio   float64 `json:"skinRatio"`
}

func (c *Classifier) Classify(img image.Image) Result {
	ratio := c.SkinToneRatio(img)
	return Result{
		FacePresent: ratio > c.cfg.SkinRatioThreshold,
		SkinRatio:   ratio,
	}
}

// ClassifyBytes 解码 jpeg/png/webp 帧后判定
func (c *Classifier) ClassifyBytes(data []byte) (Result, error) {
	img, err := DecodeFrame(data)
	if err != nil {
		return Result{}, err
	}
	return c.Classify(img), nil
}

func DecodeFrame(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFrame
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return img, nil
}
