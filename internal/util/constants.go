package util

const (
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

// 上传文件相关常量
const (
	MimeImage = "image/"
	MimeJPEG  = "image/jpeg"
)

const (
	ModeProctored = "proctored"
	ModeNormal    = "normal"
)

var AllowedAudioExtensions = []string{".webm", ".ogg", ".wav", ".mp3", ".m4a", ".flac"}
