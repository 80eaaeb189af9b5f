package paging

import (
	"errors"
	"strconv"
	"strings"
)

const (
	// DefaultPageSize は page_size 未指定時の件数です。
	DefaultPageSize = 50
	// MaxPageSize は page_size の上限です。
	MaxPageSize = 200
)

var (
	// ErrInvalidPageSize はページサイズが不正な場合に返却されます。
	ErrInvalidPageSize = errors.New("invalid page size")
	// ErrInvalidPageToken はページトークンが不正な場合に返却されます。
	ErrInvalidPageToken = errors.New("invalid page token")
)

// NormalizePageSize は 0 以下を既定値に置き換え、上限超過を拒否します。
func NormalizePageSize(pageSize int) (int, error) {
	if pageSize <= 0 {
		return DefaultPageSize, nil
	}
	if pageSize > MaxPageSize {
		return 0, ErrInvalidPageSize
	}
	return pageSize, nil
}

// ParsePageToken はオフセット形式のページトークンを解釈します。
func ParsePageToken(token string) (int, error) {
	if strings.TrimSpace(token) == "" {
		return 0, nil
	}

	offset, err := strconv.Atoi(token)
	if err != nil || offset < 0 {
		return 0, ErrInvalidPageToken
	}

	return offset, nil
}

// NextToken は取得件数から次ページのトークンを求めます。fetched は limit+1 件まで取得した件数です。
func NextToken(offset, limit, fetched int) string {
	if fetched > limit {
		return strconv.Itoa(offset + limit)
	}
	return ""
}
