package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mediacrawl/pkg/logger"
)

func TestCookieDomain(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"www.douyin.com", ".douyin.com"},
		{"www.xiaohongshu.com", ".xiaohongshu.com"},
		{"weibo.com", ".weibo.com"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CookieDomain(tt.host), "host %q", tt.host)
	}
}

func TestNewRejectsInvalidHomeURL(t *testing.T) {
	_, err := New(Options{HomeURL: "not a url"}, logger.NewNopLogger())
	assert.Error(t, err)
}
