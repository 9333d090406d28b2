package ignore

import (
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// FileName 是快照根目录下的用户忽略文件
const FileName = ".ovignore"

// defaultRules 强制生效，用户文件无法取消
var defaultRules = []string{
	".ov",  // 元数据目录，写进快照会无限递归
	".git", // 其它 VCS 的数据

	"config.yaml", // 可能含有 S3 密钥
	".env",

	".DS_Store",
	"Thumbs.db",
}

// Matcher 判断快照时某个路径是否应被跳过
type Matcher struct {
	ignorer *gitignore.GitIgnore
}

// NewMatcher 合并默认规则和 rootPath 下的 .ovignore (如果存在)
func NewMatcher(rootPath string) (*Matcher, error) {
	ignoreFilePath := filepath.Join(rootPath, FileName)

	if _, err := os.Stat(ignoreFilePath); err != nil {
		return &Matcher{ignorer: gitignore.CompileIgnoreLines(defaultRules...)}, nil
	}

	ignorer, err := gitignore.CompileIgnoreFileAndLines(ignoreFilePath, defaultRules...)
	if err != nil {
		return nil, err
	}
	return &Matcher{ignorer: ignorer}, nil
}

// NewMatcherFromLines 只使用给定规则 (加上默认规则)，测试和 --exclude 用
func NewMatcherFromLines(lines ...string) *Matcher {
	all := append(append([]string{}, defaultRules...), lines...)
	return &Matcher{ignorer: gitignore.CompileIgnoreLines(all...)}
}

// Matches 检查相对于快照根目录的路径，例如 "data/model.bin"
// 目录可以带尾部斜杠，会先去掉
func (m *Matcher) Matches(path string) bool {
	if m == nil || m.ignorer == nil {
		return false
	}
	path = filepath.ToSlash(path)
	path = strings.TrimSuffix(path, "/")
	if path == "" || path == "." {
		return false
	}
	return m.ignorer.MatchesPath(path)
}
