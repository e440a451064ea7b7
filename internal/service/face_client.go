package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"interview_assistant_backend/internal/util"
	"interview_assistant_backend/pkg/tracing"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// FaceClient 人脸识别服务（/detect /verify /embed）的 HTTP 客户端
type FaceClient struct {
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

func NewFaceClient(baseURL, model string, timeout time.Duration) *FaceClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &FaceClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Model:      model,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

type DetectResult struct {
	FaceDetected bool `json:"faceDetected"`
	NumFaces     int  `json:"numFaces"`
}

type VerifyResult struct {
	Match     bool    `json:"match"`
	Distance  float64 `json:"distance"`
	Threshold float64 `json:"threshold"`
	Model     string  `json:"model"`
}

type EmbedResult struct {
	Embedding []float64 `json:"embedding"`
	Model     string    `json:"model"`
}

func (c *FaceClient) Detect(ctx context.Context, image Upload) (*DetectResult, error) {
	var out DetectResult
	err := c.post(ctx, "/detect", map[string]Upload{"image": image}, nil, &out)
	return &out, err
}

func (c *FaceClient) Verify(ctx context.Context, image1, image2 Upload) (*VerifyResult, error) {
	var out VerifyResult
	fields := map[string]string{"model": c.Model, "metric": "cosine"}
	err := c.post(ctx, "/verify", map[string]Upload{"image1": image1, "image2": image2}, fields, &out)
	return &out, err
}

func (c *FaceClient) Embed(ctx context.Context, image Upload) (*EmbedResult, error) {
	var out EmbedResult
	err := c.post(ctx, "/embed", map[string]Upload{"image": image}, map[string]string{"model": c.Model}, &out)
	if err != nil {
		return nil, err
	}
	if len(out.Embedding) == 0 {
		return nil, util.ErrNoFace
	}
	return &out, nil
}

// post 发送 multipart 请求；非 2xx 或网络错误统一包装为 ErrFaceService
func (c *FaceClient) post(ctx context.Context, path string, files map[string]Upload, fields map[string]string, out interface{}) (err error) {
	ctx, span := tracing.StartSpan(ctx, "face"+path, attribute.String("face.model", c.Model))
	defer func() { tracing.End(span, err) }()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	for name, f := range files {
		filename := f.Filename
		if filename == "" {
			filename = name + ".jpg"
		}
		part, err := w.CreateFormFile(name, filename)
		if err != nil {
			return err
		}
		if _, err := part.Write(f.Data); err != nil {
			return err
		}
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	tracing.InjectHeaders(ctx, req.Header)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", util.ErrFaceService, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: %v", util.ErrFaceService, err)
	}

	if resp.StatusCode == http.StatusBadRequest && strings.Contains(string(payload), "No face") {
		return util.ErrNoFace
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s returned %d: %s", util.ErrFaceService, path, resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", util.ErrFaceService, path, err)
	}
	return nil
}
