package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDList(t *testing.T) {
	var l IDList

	assert.True(t, l.Add(3))
	assert.True(t, l.Add(7))
	assert.False(t, l.Add(3), "duplicate ids are not appended")
	assert.Equal(t, IDList{3, 7}, l)

	assert.True(t, l.Contains(7))
	assert.True(t, l.Remove(3))
	assert.False(t, l.Remove(3))
	assert.Equal(t, IDList{7}, l)
}

func TestCanonicalPair(t *testing.T) {
	d := NewDiscussion(9, 4)
	assert.Equal(t, uint(4), d.ParticipantLowID)
	assert.Equal(t, uint(9), d.ParticipantHighID)

	other, ok := d.OtherParticipant(4)
	assert.True(t, ok)
	assert.Equal(t, uint(9), other)

	_, ok = d.OtherParticipant(5)
	assert.False(t, ok)
	assert.False(t, d.HasParticipant(5))
}

func TestPurchaseTransitions(t *testing.T) {
	cases := []struct {
		from, to PurchaseStatus
		ok       bool
	}{
		{PurchaseIdle, PurchasePending, true},
		{PurchaseIdle, PurchasePurchased, false},
		{PurchasePending, PurchasePurchased, true},
		{PurchasePending, PurchaseFailed, true},
		{PurchaseFailed, PurchasePending, true},
		{PurchasePurchased, PurchasePending, false},
		{PurchasePurchased, PurchaseFailed, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.ok, c.from.CanTransition(c.to), "%s -> %s", c.from, c.to)
	}
}

func TestSwipeAction(t *testing.T) {
	assert.True(t, SwipeLike.Liked())
	assert.True(t, SwipeSuperLike.Liked())
	assert.False(t, SwipeSkip.Liked())
	assert.False(t, SwipeAction("maybe").Valid())
}
