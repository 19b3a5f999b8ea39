package feedback

import (
	"feedback-portal/internal/types/feedback"
	"feedback-portal/internal/types/user"
)

// Filter - что из списка отзывов видит пользователь.
// Администратор видит все, остальные только свои отзывы
func Filter(role user.Role, username string, items []feedback.Item) []feedback.Item {
	if role.IsAdmin() {
		return items
	}

	out := make([]feedback.Item, 0, len(items))
	for _, it := range items {
		if username != "" && it.Username == username {
			out = append(out, it)
		}
	}

	return out
}

func FilterCollection(role user.Role, username string, c feedback.Collection) feedback.Collection {
	return feedback.Collection{
		Current:    Filter(role, username, c.Current),
		Historical: Filter(role, username, c.Historical),
	}
}
