package infrastructure

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPathProvider(t *testing.T) {
	p := NewPathProvider("/data/plugins", "/data/tmp")

	assert.Equal(t, "/data/plugins/vim-mode-1.2.0.plugin", p.TargetPath("vim-mode", "1.2.0"))
	assert.Equal(t, "/data/tmp/vim-mode-1.2.0.part", p.TempPath("vim-mode", "1.2.0"))
}

func TestPathProvider_SanitizesHostileIDs(t *testing.T) {
	p := NewPathProvider("/data/plugins", "/data/tmp")

	target := p.TargetPath("../../etc/passwd", "1.0.0")
	assert.True(t, strings.HasPrefix(target, "/data/plugins/"))
	assert.NotContains(t, target, "..")

	temp := p.TempPath("a/b\\c:d", "1.0.0")
	assert.True(t, strings.HasPrefix(temp, "/data/tmp/"))
	assert.NotContains(t, temp, "/a/b")
}
