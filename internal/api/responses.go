package api

type ErrorResponse struct {
	Error string `json:"error" example:"something went wrong"`
}

type MessageResponse struct {
	Message string `json:"message" example:"ok"`
}

type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}

// CursorPage is the shared shape for cursor-paginated lists.
// NextCursor is the id of the last item when HasMore is set.
type CursorPage struct {
	Items      interface{} `json:"items"`
	HasMore    bool        `json:"has_more"`
	NextCursor *int64      `json:"next_cursor"`
}

func NewCursorPage(items interface{}, count, limit int, lastID int64) CursorPage {
	page := CursorPage{Items: items}
	if count == limit && count > 0 {
		page.HasMore = true
		page.NextCursor = &lastID
	}
	return page
}
