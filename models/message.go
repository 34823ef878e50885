package models

import "time"

// Conversation roles as understood by the generative API
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// DefaultSessionID is used when a caller does not identify its conversation.
const DefaultSessionID = "default"

// Turn is one entry of a conversation history
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type AskRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id,omitempty"`
}

type AskResponse struct {
	Answer    string `json:"answer"`
	SessionID string `json:"session_id"`
}

type HistoryResponse struct {
	SessionID string    `json:"session_id"`
	Turns     []Turn    `json:"turns"`
	Count     int       `json:"count"`
	FetchedAt time.Time `json:"fetched_at"`
}

// UploadResponse represents the response after a successful upload
type UploadResponse struct {
	Message  string `json:"message"`
	FileName string `json:"fileName"`
	Pages    int    `json:"pages,omitempty"`
	Chunks   int    `json:"chunks,omitempty"`
	TaskID   string `json:"taskId,omitempty"` // async ingestion only
}

// TaskStatus reports the state of a background ingestion task
type TaskStatus struct {
	TaskID    string `json:"taskId"`
	State     string `json:"state"`
	FileName  string `json:"fileName,omitempty"`
	LastError string `json:"lastError,omitempty"`
}
