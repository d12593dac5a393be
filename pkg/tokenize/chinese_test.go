package tokenize

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	zhOnce sync.Once
	zhTok  *ChineseTokenizer
	zhErr  error
)

func newChinese(t *testing.T) *ChineseTokenizer {
	t.Helper()
	zhOnce.Do(func() { zhTok, zhErr = NewChinese("") })
	require.NoError(t, zhErr)
	return zhTok
}

func TestChinese_Lossless(t *testing.T) {
	c := newChinese(t)
	inputs := []string{
		"我是学生。你呢？",
		"“你好！”他说。\n下一段 text 123",
		"  空白  ",
	}
	for _, in := range inputs {
		units := c.Tokenize(in)
		require.NotEmpty(t, units, in)
		assert.Equal(t, in, join(units))
		assert.True(t, units[len(units)-1].Boundary)
	}
	assert.Empty(t, c.Tokenize(""))
}

func TestChinese_SentencesAndPinyin(t *testing.T) {
	units := newChinese(t).Tokenize("我是学生。你呢？")
	assert.Len(t, boundaries(units), 2)

	var student *Unit
	for i := range units {
		if units[i].Surface == "学生" {
			student = &units[i]
		}
	}
	require.NotNil(t, student)
	assert.Equal(t, "学生", student.Lemma)
	assert.Empty(t, student.Reading)
	assert.Equal(t, "xue2 sheng1", student.Pronunciation)
	assert.Equal(t, Word, student.Class)
}
