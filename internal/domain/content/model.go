// internal/domain/content/model.go

package content

import "time"

// Piece is an atomic piece of content by a single author
type Piece struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Post is an ordered assembly of piece ids. A piece belongs to at most one post.
type Post struct {
	ID        string    `json:"id"`
	Pieces    []string  `json:"pieces"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ResolvedPost is a post with its pieces expanded for read paths
type ResolvedPost struct {
	ID        string    `json:"id"`
	Pieces    []Piece   `json:"pieces"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DeleteResult tells the caller whether removing a piece took its post along
type DeleteResult struct {
	PieceID     string `json:"pieceId"`
	PostID      string `json:"postId,omitempty"`
	PostDeleted bool   `json:"postDeleted"`
}

// Without returns ids minus id, keeping relative order
func Without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
