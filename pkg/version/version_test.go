package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	info := Get()
	assert.Equal(t, GetVersion(), info.Version)
	assert.Equal(t, GetCommit(), info.Commit)
	assert.Equal(t, GetBuildDate(), info.BuildDate)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Contains(t, info.String(), "cvindex "+info.Version)
	assert.NotEmpty(t, GetVersion())
}
