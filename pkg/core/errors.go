package core

import "errors"

var (
	// ErrEntryNotFound 按名字删除 Tree 条目时，名字不存在
	ErrEntryNotFound = errors.New("tree entry not found")

	// ErrInvalidIdent Discard 收到了既不是名字也不是 Object 的参数
	ErrInvalidIdent = errors.New("unexpected identifier type")

	// ErrMalformed 读回的帧数据格式不对
	ErrMalformed = errors.New("malformed object")
)
