package feedback

import (
	"testing"

	"feedback-portal/internal/types/feedback"
	"feedback-portal/internal/types/user"

	"github.com/stretchr/testify/assert"
)

var items = []feedback.Item{
	{Feedback: "Доставка быстрая", Timestamp: "2024-05-01T10:00:00", Username: "alice"},
	{Feedback: "Сайт тормозит", Timestamp: "2024-05-01T11:00:00", Username: "bob"},
	{Feedback: "Спасибо", Timestamp: "2024-05-02T09:30:00", Username: "alice"},
}

func TestFilter(t *testing.T) {
	t.Run("пользователь видит только свои отзывы", func(t *testing.T) {
		got := Filter(user.RoleUser, "alice", items)
		assert.Len(t, got, 2)
		for _, it := range got {
			assert.Equal(t, "alice", it.Username)
		}
	})

	t.Run("alice и bob", func(t *testing.T) {
		got := Filter(user.RoleUser, "alice", items[:2])
		assert.Equal(t, []feedback.Item{items[0]}, got)
	})

	t.Run("администратор видит все без изменений", func(t *testing.T) {
		assert.Equal(t, items, Filter(user.RoleAdmin, "root", items))
	})

	t.Run("нет своих отзывов", func(t *testing.T) {
		got := Filter(user.RoleUser, "carol", items)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("пустое имя ничего не видит", func(t *testing.T) {
		got := Filter(user.RoleUser, "", []feedback.Item{{Feedback: "x"}})
		assert.Empty(t, got)
	})

	t.Run("вход не меняется", func(t *testing.T) {
		before := append([]feedback.Item(nil), items...)
		_ = Filter(user.RoleUser, "bob", items)
		assert.Equal(t, before, items)
	})
}

func TestFilterCollection(t *testing.T) {
	c := feedback.Collection{
		Current:    items[:2],
		Historical: items[2:],
	}

	got := FilterCollection(user.RoleUser, "bob", c)
	assert.Equal(t, []feedback.Item{items[1]}, got.Current)
	assert.Empty(t, got.Historical)

	assert.Equal(t, c, FilterCollection(user.RoleAdmin, "admin", c))
}
