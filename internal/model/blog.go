package model

// BlogResponse is GET /blog/{username}.
type BlogResponse struct {
	User PublicProfile `json:"user"`
}

// BlogPostsResponse is GET /blog/{username}/posts.
type BlogPostsResponse struct {
	Posts []Post `json:"posts"`
}
