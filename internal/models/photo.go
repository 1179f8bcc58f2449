package models

import "time"

// Photo is a single uploaded image and its comments in server order.
type Photo struct {
	ID       string    `json:"_id" yaml:"id"`
	UserID   string    `json:"user_id" yaml:"user_id"`
	FileName string    `json:"file_name" yaml:"file_name"`
	DateTime time.Time `json:"date_time" yaml:"date_time"`
	Comments []Comment `json:"comments" yaml:"comments"`
}

// Clone returns a copy of the photo that shares no comment storage with the receiver.
func (p Photo) Clone() Photo {
	if p.Comments != nil {
		comments := make([]Comment, len(p.Comments))
		copy(comments, p.Comments)
		p.Comments = comments
	}
	return p
}

// Comment is a piece of text posted against a photo.
type Comment struct {
	ID       string      `json:"_id" yaml:"id"`
	PhotoID  string      `json:"photo_id,omitempty" yaml:"photo_id,omitempty"`
	User     UserSummary `json:"user" yaml:"user"`
	DateTime time.Time   `json:"date_time" yaml:"date_time"`
	Comment  string      `json:"comment" yaml:"comment"`
}
