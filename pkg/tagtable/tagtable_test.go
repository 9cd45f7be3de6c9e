package tagtable

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/s7gopher/s7/pkg/s7type"
)

func TestInsertGetCaseInsensitive(t *testing.T) {
	tb := New()
	tb.InsertOrUpdate(&Tag{Name: "Motor1", Kind: s7type.KindBool})

	_, ok := tb.Get("motor1")
	assert.True(t, ok)
	_, ok = tb.Get("MOTOR1")
	assert.True(t, ok)
	_, ok = tb.Get("Motor2")
	assert.False(t, ok)
}

func TestInsertOrUpdateReplacesKeepingPosition(t *testing.T) {
	tb := New()
	tb.InsertOrUpdate(&Tag{Name: "A", Kind: s7type.KindWord})
	tb.InsertOrUpdate(&Tag{Name: "B", Kind: s7type.KindWord})
	tb.InsertOrUpdate(&Tag{Name: "a", Kind: s7type.KindDInt}) // replace A, different case

	assert.Equal(t, 2, tb.Len())
	snap := tb.SnapshotPollable()
	assert.Len(t, snap, 2)
	assert.Equal(t, s7type.KindDInt, snap[0].Kind)
}

func TestRemove(t *testing.T) {
	tb := New()
	tb.InsertOrUpdate(&Tag{Name: "A"})
	tb.InsertOrUpdate(&Tag{Name: "B"})
	tb.Remove("a")

	_, ok := tb.Get("A")
	assert.False(t, ok)
	assert.Equal(t, 1, tb.Len())
	snap := tb.SnapshotPollable()
	assert.Len(t, snap, 1)
	assert.Equal(t, "B", snap[0].Name)

	tb.Remove("nonexistent") // must not panic
}

func TestSnapshotPollableExcludesDoNotPoll(t *testing.T) {
	tb := New()
	tb.InsertOrUpdate(&Tag{Name: "Polled"})
	tb.InsertOrUpdate(&Tag{Name: "Skipped", DoNotPoll: true})

	snap := tb.SnapshotPollable()
	assert.Len(t, snap, 1)
	assert.Equal(t, "Polled", snap[0].Name)
}

func TestTagValueAndPending(t *testing.T) {
	tag := &Tag{Name: "X", Kind: s7type.KindInt}

	_, ok := tag.Value()
	assert.False(t, ok)

	tag.SetValue(int16(42))
	v, ok := tag.Value()
	assert.True(t, ok)
	assert.EqualValues(t, 42, v.(int16))

	_, ok = tag.TakePending()
	assert.False(t, ok)
	tag.SetPending(int16(7))
	pv, ok := tag.TakePending()
	assert.True(t, ok)
	assert.EqualValues(t, 7, pv.(int16))
	_, ok = tag.TakePending()
	assert.False(t, ok)
}

func TestWidthBytes(t *testing.T) {
	cases := []struct {
		tag  Tag
		want int
	}{
		{Tag{Kind: s7type.KindWord}, 2},
		{Tag{Kind: s7type.KindWord, ArrayLength: 5}, 10},
		{Tag{Kind: s7type.KindDInt, ArrayLength: 0}, 4},
		{Tag{Kind: s7type.KindS7String, ArrayLength: 20}, 22},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.tag.WidthBytes())
	}
}
