package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestThreadUpTo(t *testing.T) {
	post := &Post{Comments: []Comment{{ID: "c1"}, {ID: "c2"}, {ID: "c3"}}}

	assert.Len(t, post.ThreadUpTo("c2"), 2)
	assert.Len(t, post.ThreadUpTo("c3"), 3)
	assert.Len(t, post.ThreadUpTo("missing"), 3)
}

func TestRecordResultRecorded(t *testing.T) {
	assert.True(t, RecordResult{Status: RecordStored}.Recorded())
	assert.False(t, RecordResult{Status: RecordSkipped, Error: "boom"}.Recorded())
}
