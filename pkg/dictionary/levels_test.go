package dictionary

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevels(t *testing.T) {
	in := "# HSK list\n学生,xue2 sheng,HSK1\n中国,,1\n学生,,4\n"
	lv, err := ParseLevels(Chinese, strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, 2, lv.Len())
	assert.Equal(t, 1, lv.Level("学生", "xue2sheng5"))
	assert.Equal(t, 1, lv.Level("学生", ""), "first row wins for lemma")
	assert.Equal(t, 1, lv.Level("中国", "zhong1 guo2"))
	assert.Zero(t, lv.Level("未知", ""))
}

func TestParseLevels_Errors(t *testing.T) {
	_, err := ParseLevels(Japanese, strings.NewReader("犬,いぬ,5\n猫,ねこ,x\n"))
	assert.ErrorContains(t, err, "line 2")

	_, err = ParseLevels(Japanese, strings.NewReader("犬,5\n"))
	assert.ErrorContains(t, err, "expected lemma,reading,level")
}
