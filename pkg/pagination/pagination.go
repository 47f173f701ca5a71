package pagination

import (
	"encoding/base64"
	"encoding/json"
)

// Pagination carries cursor paging parameters for list queries.
type Pagination struct {
	PageToken string
	PageSize  int
}

type Cursor struct {
	ID         string `json:"id,omitempty"`
	DetectedAt string `json:"detected_at,omitempty"`
}

type PageInfo struct {
	NextPageToken string `json:"next_page_token"`
	HasMore       bool   `json:"has_more"`
}

func EncodeCursor(data Cursor) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func DecodeCursor(data string) (*Cursor, error) {
	b, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, err
	}

	var cursor Cursor
	if err := json.Unmarshal(b, &cursor); err != nil {
		return nil, err
	}

	return &cursor, nil
}
