package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types for the blog stream
const (
	EventPostPublished  = "post_published"
	EventPostUpdated    = "post_updated"
	EventPostDeleted    = "post_deleted"
	EventPostViewed     = "post_viewed"
	EventProfileUpdated = "profile_updated"
)

// Stream names
const (
	StreamBlog = "stream:blog"
)

// Consumer group name for blog workers
const (
	ConsumerGroupBlog = "blog_workers"
)

// BlogEvent is one change to a public blog. Username is the author's
// username at the time of the change and keys the blog cache.
type BlogEvent struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`

	AuthorID int64  `json:"author_id"`
	Username string `json:"username,omitempty"`
	PostID   int64  `json:"post_id,omitempty"`
	Slug     string `json:"slug,omitempty"`
}

func newPostEvent(eventType string, postID, authorID int64, username, slug string) BlogEvent {
	return BlogEvent{
		Type:      eventType,
		Timestamp: time.Now().Unix(),
		AuthorID:  authorID,
		Username:  username,
		PostID:    postID,
		Slug:      slug,
	}
}

// NewPostPublishedEvent is emitted after a post goes through the quota gate.
func NewPostPublishedEvent(postID, authorID int64, username, slug string) BlogEvent {
	return newPostEvent(EventPostPublished, postID, authorID, username, slug)
}

// NewPostUpdatedEvent is emitted when a published post is edited.
func NewPostUpdatedEvent(postID, authorID int64, username, slug string) BlogEvent {
	return newPostEvent(EventPostUpdated, postID, authorID, username, slug)
}

func NewPostDeletedEvent(postID, authorID int64, username, slug string) BlogEvent {
	return newPostEvent(EventPostDeleted, postID, authorID, username, slug)
}

// NewPostViewedEvent records one public read of a post.
func NewPostViewedEvent(postID, authorID int64) BlogEvent {
	return newPostEvent(EventPostViewed, postID, authorID, "", "")
}

func NewProfileUpdatedEvent(authorID int64, username string) BlogEvent {
	return BlogEvent{
		Type:      EventProfileUpdated,
		Timestamp: time.Now().Unix(),
		AuthorID:  authorID,
		Username:  username,
	}
}

// ToMap converts the event to XADD field-value pairs.
// The whole event is stored as JSON in a "data" field.
func (e BlogEvent) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"type": e.Type,
		"data": string(data),
	}, nil
}

// ParseBlogEvent parses a BlogEvent from Redis stream message values.
func ParseBlogEvent(values map[string]interface{}) (BlogEvent, error) {
	data, ok := values["data"].(string)
	if !ok {
		return BlogEvent{}, fmt.Errorf("missing or invalid 'data' field")
	}

	var event BlogEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return BlogEvent{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return event, nil
}
