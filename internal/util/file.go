package util

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
)

// ValidateMimeType 深度校验文件 MIME 类型
// allowedTypes: 允许的 MIME 前缀或完整类型，如 "image/", "audio/"
func ValidateMimeType(data []byte, allowedTypes []string) (string, error) {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}

	mimeType := http.DetectContentType(head)

	for _, allowed := range allowedTypes {
		if strings.HasPrefix(mimeType, allowed) || mimeType == allowed {
			return mimeType, nil
		}
	}

	return mimeType, errors.New("invalid file type: " + mimeType)
}

// ReadMultipartFile 读取上传文件内容，超过 limit 字节时报错
func ReadMultipartFile(fh *multipart.FileHeader, limit int64) ([]byte, error) {
	if limit > 0 && fh.Size > limit {
		return nil, fmt.Errorf("file %s exceeds %d bytes", fh.Filename, limit)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if limit > 0 {
		r = io.LimitReader(f, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, fmt.Errorf("file %s exceeds %d bytes", fh.Filename, limit)
	}
	return data, nil
}
