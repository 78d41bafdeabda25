package util

import (
	"encoding/base64"

	"github.com/goccy/go-json"
)

type seqCursor struct {
	Seq uint64 `json:"seq"`
}

// EncodeCursor 将会话内序号编码为 Base64 字符串
func EncodeCursor(seq uint64) string {
	if seq == 0 {
		return ""
	}
	b, _ := json.Marshal(seqCursor{Seq: seq})
	return base64.StdEncoding.EncodeToString(b)
}

// DecodeCursor 将前端传来的 Base64 字符串解码为序号，空串表示从最新开始
func DecodeCursor(cursor string) (uint64, error) {
	if cursor == "" {
		return 0, nil
	}
	b, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return 0, err
	}
	var c seqCursor
	if err = json.Unmarshal(b, &c); err != nil {
		return 0, err
	}
	return c.Seq, nil
}
