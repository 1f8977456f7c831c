package storage

import (
	"fmt"
	"testing"
	"time"

	"github.com/magiconair/properties/assert"
)

func TestJournalAppendAndRead(t *testing.T) {
	path := t.TempDir()
	j, err := OpenJournal(path)
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= 5; i++ {
		err := j.Append(&JournalEntry{
			ID:       uint64(i),
			Time:     time.Now(),
			Commands: fmt.Sprintf("%d:select %d;", i, i),
			TwoPhase: i%2 == 0,
			Result:   fmt.Sprint(i),
		})
		assert.Equal(t, err, nil)
	}
	entries, err := j.Entries(2, 2)
	assert.Equal(t, err, nil)
	assert.Equal(t, len(entries), 2)
	assert.Equal(t, entries[0].ID, uint64(2))
	assert.Equal(t, entries[1].Commands, "3:select 3;")
	assert.Equal(t, entries[1].TwoPhase, false)

	tail, err := j.Tail(2)
	assert.Equal(t, err, nil)
	assert.Equal(t, len(tail), 2)
	assert.Equal(t, tail[0].ID, uint64(4))
	assert.Equal(t, tail[1].ID, uint64(5))
	assert.Equal(t, j.Close(), nil)

	// entries survive a reopen and new ones continue the index.
	j, err = OpenJournal(path)
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()
	assert.Equal(t, j.Append(&JournalEntry{ID: 6, Decision: "rollback"}), nil)
	all, err := j.Entries(0, 100)
	assert.Equal(t, err, nil)
	assert.Equal(t, len(all), 6)
	assert.Equal(t, all[5].Decision, "rollback")
	assert.Equal(t, all[4].Result, "5")
}

func TestJournalEmpty(t *testing.T) {
	j, err := OpenJournal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()
	assert.Equal(t, j.Flush(), nil)
	entries, err := j.Tail(10)
	assert.Equal(t, err, nil)
	assert.Equal(t, len(entries), 0)
}
