package exam

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stemsi/exstem-cbt/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswerStore_SetAndSnapshot(t *testing.T) {
	s := NewAnswerStore()

	s.SetAnswer("q1", model.IndexAnswer(2))
	s.SetAnswer("q1", model.IndexAnswer(3))
	s.SetDoubtful("q2", true)

	snap := s.Snapshot()
	assert.Equal(t, uint64(3), snap.Version)
	assert.Equal(t, model.IndexAnswer(3), snap.Answers["q1"])
	assert.True(t, snap.Doubtfuls["q2"])

	got, ok := s.Answer("q1")
	require.True(t, ok)
	assert.Equal(t, model.IndexAnswer(3), got)

	_, ok = s.Answer("missing")
	assert.False(t, ok)
}

func TestAnswerStore_SnapshotIsDetached(t *testing.T) {
	s := NewAnswerStore()
	s.SetAnswer("q1", model.IndicesAnswer(0, 1))

	snap := s.Snapshot()
	indices, _ := snap.Answers["q1"].Indices()
	indices[0] = 9
	snap.Doubtfuls["q1"] = true

	again := s.Snapshot()
	assert.Equal(t, model.IndicesAnswer(0, 1), again.Answers["q1"])
	assert.False(t, again.Doubtfuls["q1"])
}

func TestAnswerStore_Seed(t *testing.T) {
	s := NewAnswerStore()
	s.SetAnswer("old", model.IndexAnswer(1))

	s.Seed(map[string]model.AnswerValue{"q1": model.IndexAnswer(2)}, map[string]bool{"q1": true})

	snap := s.Snapshot()
	assert.Len(t, snap.Answers, 1)
	assert.Equal(t, model.IndexAnswer(2), snap.Answers["q1"])
	assert.True(t, snap.Doubtfuls["q1"])
}

func TestAnswerStore_SubscribersSeeCommitOrder(t *testing.T) {
	s := NewAnswerStore()

	var seen []uint64
	unsubscribe := s.Subscribe(func(snap StoreSnapshot) {
		seen = append(seen, snap.Version)
	})

	const writers, writes = 8, 50
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < writes; i++ {
				if i%2 == 0 {
					s.SetAnswer(fmt.Sprintf("q%d", w), model.IndexAnswer(i))
				} else {
					s.SetDoubtful(fmt.Sprintf("q%d", w), true)
				}
			}
		}(w)
	}
	wg.Wait()

	require.Len(t, seen, writers*writes)
	for i, v := range seen {
		assert.Equal(t, uint64(i+1), v)
	}

	unsubscribe()
	unsubscribe()
	s.SetAnswer("q0", model.IndexAnswer(0))
	assert.Len(t, seen, writers*writes)
}
