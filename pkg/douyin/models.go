package douyin

import "encoding/json"

// commentListResponse is the envelope of the comment list and comment
// reply endpoints.
type commentListResponse struct {
	Comments []json.RawMessage `json:"comments"`
	Cursor   int64             `json:"cursor"`
	HasMore  int               `json:"has_more"`
}

// commentMeta carries the fields the engine reads out of a comment record.
type commentMeta struct {
	CID               string `json:"cid"`
	CreateTime        int64  `json:"create_time"`
	ReplyCommentTotal int    `json:"reply_comment_total"`
}

// Comment is one comment record: the untouched payload plus the parsed
// fields pagination and reply descent need.
type Comment struct {
	Raw  json.RawMessage
	Meta commentMeta
}

// searchResponse is the envelope of the general search endpoint. Entries
// wrap the post record under aweme_info.
type searchResponse struct {
	Data    []searchEntry `json:"data"`
	Cursor  int64         `json:"cursor"`
	HasMore int           `json:"has_more"`
	Extra   struct {
		Logid string `json:"logid"`
	} `json:"extra"`
}

type searchEntry struct {
	Type      int             `json:"type"`
	AwemeInfo json.RawMessage `json:"aweme_info"`
}

// detailResponse is the envelope of the post detail endpoint.
type detailResponse struct {
	AwemeDetail json.RawMessage `json:"aweme_detail"`
}

// userPostsResponse is the envelope of the creator post listing endpoint.
type userPostsResponse struct {
	AwemeList []json.RawMessage `json:"aweme_list"`
	MaxCursor int64             `json:"max_cursor"`
	HasMore   int               `json:"has_more"`
}

// postMeta carries the fields the engine reads out of a post record.
type postMeta struct {
	AwemeID    string `json:"aweme_id"`
	CreateTime int64  `json:"create_time"`
}

// Post is one post record: the untouched payload plus parsed fields.
type Post struct {
	Raw  json.RawMessage
	Meta postMeta
}

func parsePost(raw json.RawMessage) Post {
	var meta postMeta
	// Best effort: a record that fails to parse still flows through with
	// empty meta, the timeline loop skips it via the zero timestamp.
	_ = json.Unmarshal(raw, &meta)
	return Post{Raw: raw, Meta: meta}
}

func parseComment(raw json.RawMessage) Comment {
	var meta commentMeta
	_ = json.Unmarshal(raw, &meta)
	return Comment{Raw: raw, Meta: meta}
}
