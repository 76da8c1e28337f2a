package editor

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"z-novel-desk/internal/domain/entity"
)

func TestTextBufferDeleteAndInsert(t *testing.T) {
	b := NewTextBuffer("The quick brown fox")
	b.SetSelection(entity.Range{Start: 4, End: 9})

	assert.Equal(t, "quick", b.TextInRange(b.Selection()))

	b.DeleteRange(b.Selection())
	assert.Equal(t, "The  brown fox", b.Text())
	assert.Equal(t, 4, b.Cursor())

	b.InsertAtCursor("slow")
	b.InsertAtCursor("ish")
	assert.Equal(t, "The slowish brown fox", b.Text())
	assert.Equal(t, 11, b.Cursor())
}

func TestTextBufferRunesNotBytes(t *testing.T) {
	b := NewTextBuffer("雨夜侦探")
	b.SetSelection(entity.Range{Start: 1, End: 3})

	assert.Equal(t, "夜侦", b.TextInRange(b.Selection()))

	b.DeleteRange(b.Selection())
	b.InsertAtCursor("中的")
	assert.Equal(t, "雨中的探", b.Text())
}

func TestTextBufferClampsAndNormalizes(t *testing.T) {
	b := NewTextBuffer("abc")

	b.SetSelection(entity.Range{Start: 10, End: -3})
	assert.Equal(t, entity.Range{Start: 0, End: 3}, b.Selection())

	b.SetCursor(99)
	assert.Equal(t, 3, b.Cursor())
	assert.True(t, b.Selection().Empty())
}

func TestTextBufferFindReplace(t *testing.T) {
	b := NewTextBuffer("Jane met jane. JANE left.")

	assert.Len(t, b.FindAll("jane", false), 3)
	assert.Equal(t, []entity.Range{{Start: 9, End: 13}}, b.FindAll("jane", true))

	n := b.ReplaceAll("jane", "Mary", false)
	assert.Equal(t, 3, n)
	assert.Equal(t, "Mary met Mary. Mary left.", b.Text())

	assert.Zero(t, b.ReplaceAll("", "x", true))
	assert.Nil(t, b.FindAll("zzz", true))
}

func TestTextBufferConcurrentInsertsDoNotTear(t *testing.T) {
	b := NewTextBuffer("")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.InsertAtCursor("ab")
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, b.Len())
}
